package presence

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultHeartbeat is the period of last_seen refreshes while a session is
// visible. Must stay materially below the freshness window so classification
// tolerates at most one missed beat.
const DefaultHeartbeat = 30 * time.Second

type sessionState int

const (
	stateUninitialized sessionState = iota
	stateOnline
	stateOffline
)

// Tracker owns the presence lifecycle of one client session: online on start,
// offline on hide/teardown, back online when visible again, heartbeats in
// between. All store writes are best effort — a failed write is logged and
// dropped, the next transition or beat self-heals.
type Tracker struct {
	store  Store
	userID string
	period time.Duration
	now    func() time.Time

	mu       sync.Mutex
	state    sessionState
	visible  bool
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
}

func NewTracker(store Store, userID string, period time.Duration) *Tracker {
	if period <= 0 {
		period = DefaultHeartbeat
	}
	return &Tracker{
		store:  store,
		userID: userID,
		period: period,
		now:    time.Now,
		done:   make(chan struct{}),
	}
}

// Start transitions uninitialized -> online and begins the heartbeat loop.
// Calling Start twice is a no-op.
func (t *Tracker) Start() {
	t.mu.Lock()
	if t.state != stateUninitialized {
		t.mu.Unlock()
		return
	}
	t.state = stateOnline
	t.visible = true
	t.ticker = time.NewTicker(t.period)
	t.mu.Unlock()

	t.writeOnline()
	go t.loop()
}

func (t *Tracker) loop() {
	for {
		select {
		case <-t.ticker.C:
			t.beat()
		case <-t.done:
			return
		}
	}
}

// beat refreshes last_seen, but only while the session is visibly online.
func (t *Tracker) beat() {
	t.mu.Lock()
	live := t.state == stateOnline && t.visible
	t.mu.Unlock()
	if !live {
		return
	}
	if err := t.store.Heartbeat(context.Background(), t.userID, t.now()); err != nil {
		slog.Warn("presence heartbeat failed", "user_id", t.userID, "err", err)
	}
}

// SetVisible feeds the client's visibility signal into the state machine:
// online -> offline when hidden, offline -> online when visible again.
func (t *Tracker) SetVisible(visible bool) {
	t.mu.Lock()
	switch {
	case t.state == stateOnline && !visible:
		t.state = stateOffline
		t.visible = false
		t.mu.Unlock()
		t.writeOffline()
		return
	case t.state == stateOffline && visible:
		t.state = stateOnline
		t.visible = true
		t.mu.Unlock()
		t.writeOnline()
		return
	}
	t.visible = visible
	t.mu.Unlock()
}

// Stop cancels the heartbeat and always attempts a final offline write, even
// when the session already went hidden. Safe to call more than once.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if t.state == stateUninitialized {
		t.mu.Unlock()
		return
	}
	t.state = stateOffline
	t.visible = false
	if t.ticker != nil {
		t.ticker.Stop()
	}
	t.stopOnce.Do(func() { close(t.done) })
	t.mu.Unlock()

	t.writeOffline()
}

func (t *Tracker) writeOnline() {
	if err := t.store.SetOnline(context.Background(), t.userID, t.now()); err != nil {
		slog.Warn("presence online write failed", "user_id", t.userID, "err", err)
	}
}

func (t *Tracker) writeOffline() {
	if err := t.store.SetOffline(context.Background(), t.userID, t.now()); err != nil {
		slog.Warn("presence offline write failed", "user_id", t.userID, "err", err)
	}
}

package presence

import (
	"context"
	"errors"
	"testing"
	"time"
)

type write struct {
	kind string // "online", "offline", "beat"
	at   time.Time
}

// recordingStore captures every write; failOnline makes SetOnline fail.
type recordingStore struct {
	writes     []write
	failOnline bool
}

func (r *recordingStore) SetOnline(_ context.Context, _ string, at time.Time) error {
	r.writes = append(r.writes, write{"online", at})
	if r.failOnline {
		return errors.New("store unreachable")
	}
	return nil
}

func (r *recordingStore) SetOffline(_ context.Context, _ string, at time.Time) error {
	r.writes = append(r.writes, write{"offline", at})
	return nil
}

func (r *recordingStore) Heartbeat(_ context.Context, _ string, at time.Time) error {
	r.writes = append(r.writes, write{"beat", at})
	return nil
}

func (r *recordingStore) Get(context.Context, string) (Snapshot, error) {
	return Snapshot{}, nil
}

func (r *recordingStore) kinds() []string {
	out := make([]string, len(r.writes))
	for i, w := range r.writes {
		out[i] = w.kind
	}
	return out
}

func kindsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// fakeClock starts at a fixed origin and is advanced by hand.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestTracker(store Store) (*Tracker, *fakeClock) {
	clk := newFakeClock()
	// long real period so the background ticker never fires during a test;
	// beats are driven by hand
	tr := NewTracker(store, "u1", time.Hour)
	tr.now = clk.now
	return tr, clk
}

func TestTrackerStartWritesOnline(t *testing.T) {
	store := &recordingStore{}
	tr, clk := newTestTracker(store)

	tr.Start()
	defer tr.Stop()

	if !kindsEqual(store.kinds(), []string{"online"}) {
		t.Fatalf("writes after start: %v", store.kinds())
	}
	if !store.writes[0].at.Equal(clk.now()) {
		t.Fatalf("online write timestamp = %v, want %v", store.writes[0].at, clk.now())
	}
}

func TestTrackerHeartbeatThenHide(t *testing.T) {
	store := &recordingStore{}
	tr, clk := newTestTracker(store)

	tr.Start()
	for i := 0; i < 3; i++ {
		clk.advance(30 * time.Second)
		tr.beat() // t=30s, 60s, 90s
	}
	clk.advance(5 * time.Second)
	tr.SetVisible(false) // hidden at t=95s

	clk.advance(30 * time.Second)
	tr.beat() // must be suppressed while hidden

	want := []string{"online", "beat", "beat", "beat", "offline"}
	if !kindsEqual(store.kinds(), want) {
		t.Fatalf("writes = %v, want %v", store.kinds(), want)
	}

	off := store.writes[4]
	if elapsed := off.at.Sub(store.writes[0].at); elapsed != 95*time.Second {
		t.Fatalf("offline write at +%v, want +95s", elapsed)
	}
}

func TestTrackerVisibilityRoundTrip(t *testing.T) {
	store := &recordingStore{}
	tr, clk := newTestTracker(store)

	tr.Start()
	tr.SetVisible(false)
	clk.advance(10 * time.Second)
	tr.SetVisible(true)

	want := []string{"online", "offline", "online"}
	if !kindsEqual(store.kinds(), want) {
		t.Fatalf("writes = %v, want %v", store.kinds(), want)
	}

	// visible again: beats resume
	clk.advance(30 * time.Second)
	tr.beat()
	if got := store.kinds(); got[len(got)-1] != "beat" {
		t.Fatalf("expected heartbeat after regaining visibility, writes = %v", got)
	}
}

func TestTrackerStopAlwaysWritesOffline(t *testing.T) {
	store := &recordingStore{}
	tr, _ := newTestTracker(store)

	tr.Start()
	tr.SetVisible(false) // already offline
	tr.Stop()            // still attempts the teardown write

	want := []string{"online", "offline", "offline"}
	if !kindsEqual(store.kinds(), want) {
		t.Fatalf("writes = %v, want %v", store.kinds(), want)
	}

	// second Stop must not panic
	tr.Stop()
}

func TestTrackerWriteFailureDoesNotStopHeartbeats(t *testing.T) {
	store := &recordingStore{failOnline: true}
	tr, clk := newTestTracker(store)

	tr.Start() // online write fails, swallowed
	clk.advance(30 * time.Second)
	tr.beat()
	clk.advance(30 * time.Second)
	tr.beat()
	tr.Stop()

	want := []string{"online", "beat", "beat", "offline"}
	if !kindsEqual(store.kinds(), want) {
		t.Fatalf("writes = %v, want %v", store.kinds(), want)
	}
}

func TestTrackerStopBeforeStart(t *testing.T) {
	store := &recordingStore{}
	tr, _ := newTestTracker(store)

	tr.Stop()
	if len(store.writes) != 0 {
		t.Fatalf("uninitialized tracker wrote %v", store.kinds())
	}
}

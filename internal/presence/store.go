package presence

import (
	"context"
	"time"
)

// Store persists per-user presence snapshots. Each user's fields are written
// only by that user's own sessions; observers only read.
type Store interface {
	// SetOnline writes {online: true, last_seen: at}.
	SetOnline(ctx context.Context, userID string, at time.Time) error
	// SetOffline writes {online: false, last_seen: at}.
	SetOffline(ctx context.Context, userID string, at time.Time) error
	// Heartbeat refreshes last_seen without touching the online flag.
	Heartbeat(ctx context.Context, userID string, at time.Time) error
	// Get returns the stored snapshot. Unknown users come back as a zero
	// Snapshot, not an error.
	Get(ctx context.Context, userID string) (Snapshot, error)
}

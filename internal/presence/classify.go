package presence

import (
	"fmt"
	"time"
)

// DefaultWindow is how old a heartbeat may be before a stored online flag is
// no longer trusted. Overridable via config; keep it well above the heartbeat
// period (see Tracker).
const DefaultWindow = 120 * time.Second

// Snapshot is the persisted presence state of one user. A zero LastSeen means
// the user never wrote a heartbeat. Online is a hint written by the user's own
// session and can be stale if that session died without a clean teardown, so
// Classify never trusts it alone.
type Snapshot struct {
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

// Classification is what observers render. Never persisted.
type Classification struct {
	Online bool   `json:"online"`
	Label  string `json:"label"`
}

// Classify reconciles a stored snapshot against the observer's clock.
// now is supplied by the caller so the function stays deterministic in tests.
//
// Order matters: the staleness check overrides a stuck online flag.
func Classify(s Snapshot, now time.Time, window time.Duration) Classification {
	if window <= 0 {
		window = DefaultWindow
	}
	online := s.Online && !s.LastSeen.IsZero() && now.Sub(s.LastSeen) < window
	if online {
		return Classification{Online: true, Label: "Online"}
	}
	return Classification{Online: false, Label: recencyLabel(s.LastSeen, now)}
}

func recencyLabel(lastSeen, now time.Time) string {
	if lastSeen.IsZero() {
		return "Offline"
	}
	elapsed := now.Sub(lastSeen)
	switch {
	case elapsed < 2*time.Minute:
		return "Active just now"
	case elapsed < time.Hour:
		mins := int(elapsed / time.Minute)
		if mins == 1 {
			return "Active 1 minute ago"
		}
		return fmt.Sprintf("Active %d minutes ago", mins)
	case elapsed < 24*time.Hour:
		return "Active today at " + lastSeen.Local().Format("15:04")
	case elapsed < 48*time.Hour:
		return "Active yesterday"
	default:
		return "Active on " + lastSeen.Local().Format("Jan 2, 2006")
	}
}

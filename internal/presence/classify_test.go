package presence

import (
	"testing"
	"time"
)

var now = time.Date(2025, time.March, 14, 15, 0, 0, 0, time.Local)

func snapAgo(online bool, elapsed time.Duration) Snapshot {
	return Snapshot{Online: online, LastSeen: now.Add(-elapsed)}
}

func TestClassifyOnlineDecision(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want bool
	}{
		{"flag false always offline", snapAgo(false, time.Second), false},
		{"flag false old timestamp", snapAgo(false, 100 * time.Hour), false},
		{"missing last_seen never online", Snapshot{Online: true}, false},
		{"fresh heartbeat online", snapAgo(true, 119 * time.Second), true},
		{"stale heartbeat overrides flag", snapAgo(true, 121 * time.Second), false},
		{"exactly at window offline", snapAgo(true, 120 * time.Second), false},
		{"zero elapsed online", snapAgo(true, 0), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.snap, now, DefaultWindow)
			if got.Online != tc.want {
				t.Errorf("Classify(%+v).Online = %v, want %v", tc.snap, got.Online, tc.want)
			}
		})
	}
}

func TestClassifyLabels(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		want    string
	}{
		{"grace band", 90 * time.Second, "Active just now"},
		{"two minutes", 150 * time.Second, "Active 2 minutes ago"},
		{"fifty nine minutes", 59*time.Minute + 30*time.Second, "Active 59 minutes ago"},
		{"exactly one hour is today", time.Hour, "Active today at " + now.Add(-time.Hour).Format("15:04")},
		{"twenty three hours", 23 * time.Hour, "Active today at " + now.Add(-23*time.Hour).Format("15:04")},
		{"twenty five hours", 25 * time.Hour, "Active yesterday"},
		{"fifty hours", 50 * time.Hour, "Active on " + now.Add(-50*time.Hour).Format("Jan 2, 2006")},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(snapAgo(false, tc.elapsed), now, DefaultWindow)
			if got.Label != tc.want {
				t.Errorf("elapsed %v: label = %q, want %q", tc.elapsed, got.Label, tc.want)
			}
		})
	}
}

func TestClassifyMissingLastSeen(t *testing.T) {
	got := Classify(Snapshot{Online: true}, now, DefaultWindow)
	if got.Online {
		t.Fatal("online flag without heartbeat must not classify as online")
	}
	if got.Label != "Offline" {
		t.Fatalf("label = %q, want Offline", got.Label)
	}
}

func TestClassifyCustomWindow(t *testing.T) {
	snap := snapAgo(true, 45*time.Second)
	if !Classify(snap, now, time.Minute).Online {
		t.Error("45s old heartbeat should be online with a 60s window")
	}
	if Classify(snap, now, 30*time.Second).Online {
		t.Error("45s old heartbeat should be offline with a 30s window")
	}
}

package chatid

import "testing"

func TestSessionKeySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"a1", "b2"},
		{"b2", "a1"},
		{"0f8fad5b", "7c9e6679"},
		{"zzz", "aaa"},
	}
	for _, p := range pairs {
		if SessionKey(p[0], p[1]) != SessionKey(p[1], p[0]) {
			t.Errorf("SessionKey(%q,%q) != SessionKey(%q,%q)", p[0], p[1], p[1], p[0])
		}
	}
}

func TestSessionKeyExact(t *testing.T) {
	got := SessionKey("b2", "a1")
	if got != "a1_b2" {
		t.Fatalf("expected a1_b2, got %q", got)
	}
}

func TestParticipantsRoundTrip(t *testing.T) {
	a, b, err := Participants(SessionKey("b2", "a1"))
	if err != nil {
		t.Fatal(err)
	}
	if a != "a1" || b != "b2" {
		t.Fatalf("expected a1,b2 got %q,%q", a, b)
	}
}

func TestParticipantsMalformed(t *testing.T) {
	for _, key := range []string{"", "a1", "a1_", "_b2"} {
		if _, _, err := Participants(key); err == nil {
			t.Errorf("expected error for key %q", key)
		}
	}
}

func TestPeer(t *testing.T) {
	key := SessionKey("a1", "b2")

	got, err := Peer(key, "a1")
	if err != nil || got != "b2" {
		t.Fatalf("Peer(a1) = %q, %v", got, err)
	}
	got, err = Peer(key, "b2")
	if err != nil || got != "a1" {
		t.Fatalf("Peer(b2) = %q, %v", got, err)
	}
	if _, err := Peer(key, "c3"); err == nil {
		t.Fatal("expected error for non-participant")
	}
}

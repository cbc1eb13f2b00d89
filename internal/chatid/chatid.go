package chatid

import (
	"fmt"
	"strings"
)

// Delim joins the two participant ids inside a session key. User ids are
// UUID strings and never contain it; Participants relies on that.
const Delim = "_"

// SessionKey returns the canonical key for a one-to-one chat between a and b.
// The two ids are sorted lexicographically before joining, so the result is
// the same no matter which side derives it.
func SessionKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + Delim + b
}

// Participants recovers the two user ids from a session key.
func Participants(key string) (string, string, error) {
	parts := strings.SplitN(key, Delim, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("malformed session key %q", key)
	}
	return parts[0], parts[1], nil
}

// Peer returns the other participant of the session key, or an error if uid
// is not a participant at all.
func Peer(key, uid string) (string, error) {
	a, b, err := Participants(key)
	if err != nil {
		return "", err
	}
	switch uid {
	case a:
		return b, nil
	case b:
		return a, nil
	}
	return "", fmt.Errorf("user %s not in session %q", uid, key)
}

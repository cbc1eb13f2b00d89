package chat

// WireMessage is the single envelope for everything pushed over a websocket:
// chat messages, read receipts, typing signals and presence transitions.
type WireMessage struct {
	Type         string `json:"type"`
	ChatKey      string `json:"chat_key,omitempty"`
	MessageID    string `json:"message_id,omitempty"`
	SenderID     string `json:"sender_id,omitempty"`
	SenderHandle string `json:"sender_handle,omitempty"`
	Content      string `json:"content,omitempty"`
	SentAt       string `json:"sent_at,omitempty"`
	// presence events only
	Online   bool   `json:"online,omitempty"`
	Label    string `json:"label,omitempty"`
	LastSeen string `json:"last_seen,omitempty"`
}

package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/zapchat/backend/internal/chatid"
	"github.com/zapchat/backend/internal/presence"
)

type Hub struct {
	DB       *sql.DB
	Presence presence.Store
	Window   time.Duration
	Beat     time.Duration

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
	// userID -> set of client connections (handles multi-tab / multi-device)
	clients map[string]map[*Client]bool
	// one lifecycle tracker per connected user; started on the first
	// connection, stopped when the last one goes away
	trackers map[string]*presence.Tracker
}

func NewHub(db *sql.DB, store presence.Store, window, beat time.Duration) *Hub {
	return &Hub{
		DB:         db,
		Presence:   store,
		Window:     window,
		Beat:       beat,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string]map[*Client]bool),
		trackers:   make(map[string]*presence.Tracker),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			first := h.clients[client.UserID] == nil
			if first {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			if first {
				tr := presence.NewTracker(h.Presence, client.UserID, h.Beat)
				h.trackers[client.UserID] = tr
				h.mu.Unlock()
				tr.Start()
			} else {
				h.mu.Unlock()
			}
			h.BroadcastPresence(client.UserID)

		case client := <-h.unregister:
			h.mu.Lock()
			set, ok := h.clients[client.UserID]
			if !ok {
				h.mu.Unlock()
				continue
			}
			if set[client] {
				delete(set, client)
				close(client.Send)
			}
			last := len(set) == 0
			var tr *presence.Tracker
			if last {
				delete(h.clients, client.UserID)
				tr = h.trackers[client.UserID]
				delete(h.trackers, client.UserID)
			}
			h.mu.Unlock()
			if last {
				if tr != nil {
					tr.Stop()
				}
				h.BroadcastPresence(client.UserID)
			}
		}
	}
}

// Visibility forwards a client's document-visibility signal into the user's
// tracker and lets peers see the transition.
func (h *Hub) Visibility(userID string, visible bool) {
	h.mu.RLock()
	tr := h.trackers[userID]
	h.mu.RUnlock()
	if tr == nil {
		return
	}
	tr.SetVisible(visible)
	h.BroadcastPresence(userID)
}

// sendToUser delivers a payload to every connection of one user, dropping
// clients whose send buffer is full.
func (h *Hub) sendToUser(userID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[userID]
	if !ok {
		return
	}
	for client := range set {
		select {
		case client.Send <- payload:
		default:
			// slow/broken client
			close(client.Send)
			delete(set, client)
			log.Printf("[hub] dropped slow client for user %s", userID)
		}
	}
}

func (h *Hub) handleOf(userID string) string {
	var handle string
	if err := h.DB.QueryRow(`SELECT handle FROM users WHERE id=?`, userID).Scan(&handle); err != nil {
		log.Printf("[hub] failed to fetch handle for %s: %v", userID, err)
		return "unknown"
	}
	return handle
}

// BroadcastMessage sends a chat message to the other participant of a session.
func (h *Hub) BroadcastMessage(chatKey, senderID, messageID, content string) {
	peer, err := chatid.Peer(chatKey, senderID)
	if err != nil {
		log.Printf("[hub] bad chat key %q: %v", chatKey, err)
		return
	}

	var sentAt time.Time
	if err := h.DB.QueryRow(`SELECT sent_at FROM messages WHERE id=?`, messageID).Scan(&sentAt); err != nil {
		log.Printf("[hub] failed to fetch sent_at for message %s: %v", messageID, err)
		sentAt = time.Now()
	}

	wire := WireMessage{
		Type:         "message",
		ChatKey:      chatKey,
		MessageID:    messageID,
		SenderID:     senderID,
		SenderHandle: h.handleOf(senderID),
		Content:      content,
		SentAt:       sentAt.Format(time.RFC3339),
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		log.Printf("[hub] failed to marshal wire message: %v", err)
		return
	}

	if _, err := h.DB.Exec(
		`INSERT OR IGNORE INTO message_status (message_id, user_id, status)
		 VALUES (?, ?, 'delivered')`, messageID, peer); err != nil {
		log.Printf("[hub] failed to insert message_status for user %s: %v", peer, err)
	}

	h.sendToUser(peer, payload)
}

// BroadcastReadReceipt notifies the sender's side when the peer reads a message.
func (h *Hub) BroadcastReadReceipt(messageID, readerID string) {
	var chatKey string
	if err := h.DB.QueryRow(`SELECT chat_key FROM messages WHERE id=?`, messageID).Scan(&chatKey); err != nil {
		log.Printf("[hub] read receipt: failed to get chat_key for message %s: %v", messageID, err)
		return
	}

	peer, err := chatid.Peer(chatKey, readerID)
	if err != nil {
		log.Printf("[hub] read receipt: bad chat key %q: %v", chatKey, err)
		return
	}

	wire := WireMessage{
		Type:      "read_receipt",
		ChatKey:   chatKey,
		MessageID: messageID,
		SenderID:  readerID,
	}
	payload, err := json.Marshal(wire)
	if err != nil {
		log.Printf("[hub] read receipt: failed to marshal: %v", err)
		return
	}

	h.sendToUser(peer, payload)
}

func (h *Hub) BroadcastTyping(chatKey, userID, eventType string) {
	peer, err := chatid.Peer(chatKey, userID)
	if err != nil {
		return
	}

	wire := WireMessage{
		Type:         eventType, // "typing_start" or "typing_stop"
		ChatKey:      chatKey,
		SenderID:     userID,
		SenderHandle: h.handleOf(userID),
	}
	payload, _ := json.Marshal(wire)

	h.sendToUser(peer, payload)
}

// BroadcastPresence pushes the user's classified presence to everyone sharing
// a chat with them.
func (h *Hub) BroadcastPresence(userID string) {
	snap, err := h.Presence.Get(context.Background(), userID)
	if err != nil {
		log.Printf("[hub] presence read failed for %s: %v", userID, err)
		snap = presence.Snapshot{}
	}
	cls := presence.Classify(snap, time.Now(), h.Window)

	wire := WireMessage{
		Type:         "presence",
		SenderID:     userID,
		SenderHandle: h.handleOf(userID),
		Online:       cls.Online,
		Label:        cls.Label,
	}
	if !snap.LastSeen.IsZero() {
		wire.LastSeen = snap.LastSeen.UTC().Format(time.RFC3339)
	}
	payload, _ := json.Marshal(wire)

	rows, err := h.DB.Query(`SELECT user_a, user_b FROM chats WHERE user_a=? OR user_b=?`, userID, userID)
	if err != nil {
		log.Printf("[hub] presence broadcast: query failed: %v", err)
		return
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			continue
		}
		for _, uid := range []string{a, b} {
			if uid == userID || seen[uid] {
				continue
			}
			seen[uid] = true
			h.sendToUser(uid, payload)
		}
	}
}

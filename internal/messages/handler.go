package messages

import (
	"database/sql"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/zapchat/backend/internal/auth"
	"github.com/zapchat/backend/internal/chat"
	"github.com/zapchat/backend/internal/chatid"
	"github.com/zapchat/backend/internal/httpx"
	"github.com/zapchat/backend/internal/utils"
)

type Service struct {
	DB  *sql.DB
	Hub *chat.Hub
}

type sendReq struct {
	ChatKey string `json:"chat_key" binding:"required"`
	Content string `json:"content" binding:"required"`
}

type pageReq struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

type readReq struct {
	MessageIDs []string `json:"message_ids" binding:"required"`
}

func Register(rg *gin.RouterGroup, db *sql.DB, hub *chat.Hub) {
	s := Service{
		DB:  db,
		Hub: hub,
	}
	rg.POST("/messages", s.send)
	rg.GET("/chats/:key/messages", s.list)
	rg.POST("/messages/read", s.markRead)
}

func (s Service) send(c *gin.Context) {
	uid := auth.MustUserID(c)
	var req sendReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	// the key itself names the participants; membership is a string check
	if _, err := chatid.Peer(req.ChatKey, uid); err != nil {
		httpx.Err(c, http.StatusForbidden, "not a participant")
		return
	}

	var n int
	_ = s.DB.QueryRow(`SELECT COUNT(1) FROM chats WHERE key=?`, req.ChatKey).Scan(&n)
	if n == 0 {
		httpx.Err(c, http.StatusNotFound, "chat not found")
		return
	}

	mid := uuid.NewString()
	_, err := s.DB.Exec(
		`INSERT INTO messages (id, chat_key, sender_id, content) VALUES (?, ?, ?, ?)`,
		mid, req.ChatKey, uid, req.Content)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "insert failed")
		return
	}

	// fanout via hub (includes sender handle in payload)
	s.Hub.BroadcastMessage(req.ChatKey, uid, mid, req.Content)

	httpx.OK(c, gin.H{"message_id": mid})
}

func (s Service) list(c *gin.Context) {
	uid := auth.MustUserID(c)
	key := c.Param("key")

	if _, err := chatid.Peer(key, uid); err != nil {
		httpx.Err(c, http.StatusForbidden, "not a participant")
		return
	}

	var q pageReq
	_ = c.BindQuery(&q)
	if q.Limit <= 0 {
		q.Limit = 50
	}

	rows, err := s.DB.Query(`
		SELECT m.id, m.sender_id, u.handle, m.content, m.sent_at
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.chat_key=?
		ORDER BY m.sent_at DESC LIMIT ? OFFSET ?`, key, q.Limit, q.Offset)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "db error")
		return
	}
	defer rows.Close()

	var list []gin.H
	for rows.Next() {
		var id, sid, handle, content string
		var at sql.NullString

		if err := rows.Scan(&id, &sid, &handle, &content, &at); err != nil {
			continue
		}

		var sentAt string
		if at.Valid {
			sentAt = utils.ParseTime(at.String).Format(time.RFC3339)
		}

		list = append(list, gin.H{
			"id": id, "sender_id": sid, "sender_handle": handle,
			"content": content, "sent_at": sentAt,
		})
	}
	httpx.OK(c, gin.H{"messages": list})
}

func (s Service) markRead(c *gin.Context) {
	uid := auth.MustUserID(c)
	var req readReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.MessageIDs) == 0 {
		httpx.OK(c, gin.H{"message": "no messages to mark as read"})
		return
	}

	args := make([]interface{}, 0, len(req.MessageIDs)*2)
	for _, mid := range req.MessageIDs {
		args = append(args, mid, uid)
	}

	query := fmt.Sprintf(`INSERT INTO message_status (message_id, user_id, status, read_at)
		VALUES %s
		ON CONFLICT(message_id, user_id) DO UPDATE SET status='read', read_at=CURRENT_TIMESTAMP`,
		strings.TrimSuffix(strings.Repeat("(?, ?, 'read', CURRENT_TIMESTAMP),", len(req.MessageIDs)), ","))

	if _, err := s.DB.Exec(query, args...); err != nil {
		httpx.Err(c, http.StatusBadRequest, "db error")
		return
	}

	for _, mid := range req.MessageIDs {
		s.Hub.BroadcastReadReceipt(mid, uid)
	}

	httpx.OK(c, gin.H{"message": "marked as read"})
}

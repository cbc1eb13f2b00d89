package chats

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/zapchat/backend/internal/auth"
	"github.com/zapchat/backend/internal/chatid"
	"github.com/zapchat/backend/internal/httpx"
	"github.com/zapchat/backend/internal/presence"
	"github.com/zapchat/backend/internal/utils"
)

type Service struct {
	DB       *sql.DB
	Presence presence.Store
	Window   time.Duration
}

type createReq struct {
	OtherUserID string `json:"other_user_id" binding:"required"`
}

func Register(rg *gin.RouterGroup, db *sql.DB, store presence.Store, window time.Duration) {
	s := Service{
		DB:       db,
		Presence: store,
		Window:   window,
	}
	rg.POST("/chats", s.createOrGet)
	rg.GET("/chats", s.listMine)
}

// createOrGet resolves the canonical session key for the caller and the other
// user. Both sides derive the same key, so whoever opens the chat first
// creates the row and the other side just finds it.
func (s Service) createOrGet(c *gin.Context) {
	uid := auth.MustUserID(c)
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	if req.OtherUserID == uid {
		httpx.Err(c, http.StatusBadRequest, "cannot chat with yourself")
		return
	}

	var n int
	_ = s.DB.QueryRow(`SELECT COUNT(1) FROM users WHERE id=?`, req.OtherUserID).Scan(&n)
	if n == 0 {
		httpx.Err(c, http.StatusNotFound, "user not found")
		return
	}

	key := chatid.SessionKey(uid, req.OtherUserID)
	a, b, _ := chatid.Participants(key)

	_, err := s.DB.Exec(
		`INSERT OR IGNORE INTO chats (key, user_a, user_b) VALUES (?, ?, ?)`,
		key, a, b)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "create chat failed")
		return
	}

	httpx.OK(c, gin.H{"chat_key": key})
}

func (s Service) listMine(c *gin.Context) {
	uid := auth.MustUserID(c)

	rows, err := s.DB.Query(`
		SELECT c.key, c.created_at
		FROM chats c
		WHERE c.user_a = ? OR c.user_b = ?
		ORDER BY c.created_at DESC`, uid, uid)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "failed to fetch chats")
		return
	}

	// drain the result set before issuing per-peer lookups; sqlite runs on a
	// single pooled connection
	type chatRow struct {
		key       string
		createdAt string
	}
	var mine []chatRow
	for rows.Next() {
		var r chatRow
		if err := rows.Scan(&r.key, &r.createdAt); err != nil {
			slog.Warn("listMine: failed to scan row", "err", err)
			continue
		}
		mine = append(mine, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		httpx.Err(c, http.StatusInternalServerError, "error reading chat list")
		return
	}
	rows.Close()

	now := time.Now()
	var list []gin.H

	for _, r := range mine {
		peerID, err := chatid.Peer(r.key, uid)
		if err != nil {
			slog.Warn("listMine: bad chat key", "key", r.key, "err", err)
			continue
		}

		var handle, avatar string
		if err := s.DB.QueryRow(
			`SELECT handle, COALESCE(avatar_url, '') FROM users WHERE id=?`, peerID,
		).Scan(&handle, &avatar); err != nil {
			continue
		}

		snap, err := s.Presence.Get(c.Request.Context(), peerID)
		if err != nil {
			// presence is cosmetic here, degrade to offline
			snap = presence.Snapshot{}
		}
		cls := presence.Classify(snap, now, s.Window)

		list = append(list, gin.H{
			"chat_key":   r.key,
			"created_at": r.createdAt,
			"peer": gin.H{
				"id":         peerID,
				"handle":     handle,
				"avatar_url": avatar,
				"online":     cls.Online,
				"label":      cls.Label,
			},
		})
	}

	httpx.OK(c, gin.H{"chats": list})
}

package profile

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zapchat/backend/internal/auth"
	"github.com/zapchat/backend/internal/httpx"
)

type Service struct {
	DB *sql.DB
}

type updateReq struct {
	Handle    string `json:"handle"`
	AvatarURL string `json:"avatar_url"`
}

func Register(rg *gin.RouterGroup, db *sql.DB) {
	s := Service{
		DB: db,
	}
	rg.GET("/me", s.getMe)
	rg.PUT("/me", s.updateMe)
}

func (s Service) getMe(c *gin.Context) {
	uid := auth.MustUserID(c)

	if uid == "" {
		httpx.Err(c, http.StatusUnauthorized, "unauthorized")
		return
	}

	row := s.DB.QueryRow(
		`SELECT id, handle, email, COALESCE(avatar_url, '') AS avatar_url, created_at
		FROM users WHERE id=?`, uid,
	)

	var id, handle, email, avatar string
	var created time.Time

	if err := row.Scan(&id, &handle, &email, &avatar, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			httpx.Err(c, http.StatusNotFound, "user not found")
		} else {
			slog.Error("getMe: db error", "err", err)
			httpx.Err(c, http.StatusInternalServerError, "database error")
		}
		return
	}

	httpx.OK(c, gin.H{
		"id":         id,
		"handle":     handle,
		"email":      email,
		"avatar_url": avatar,
		"created_at": created,
	})
}

func (s Service) updateMe(c *gin.Context) {
	uid := auth.MustUserID(c)

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Handle == "" && req.AvatarURL == "" {
		httpx.Err(c, http.StatusBadRequest, "nothing to update")
		return
	}

	if req.Handle != "" {
		var n int
		_ = s.DB.QueryRow(`SELECT COUNT(1) FROM users WHERE handle=? AND id<>?`, req.Handle, uid).Scan(&n)
		if n > 0 {
			httpx.Err(c, http.StatusConflict, "handle already taken")
			return
		}
		if _, err := s.DB.Exec(`UPDATE users SET handle=? WHERE id=?`, req.Handle, uid); err != nil {
			httpx.Err(c, http.StatusInternalServerError, "update failed")
			return
		}
	}
	if req.AvatarURL != "" {
		if _, err := s.DB.Exec(`UPDATE users SET avatar_url=? WHERE id=?`, req.AvatarURL, uid); err != nil {
			httpx.Err(c, http.StatusInternalServerError, "update failed")
			return
		}
	}

	httpx.OK(c, gin.H{"message": "profile updated"})
}

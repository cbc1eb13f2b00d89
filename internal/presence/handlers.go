package presence

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zapchat/backend/internal/httpx"
)

type Service struct {
	Store  Store
	Window time.Duration
}

func Register(rg *gin.RouterGroup, store Store, window time.Duration) {
	s := Service{
		Store:  store,
		Window: window,
	}
	rg.GET("/users/:id/presence", s.getPresence)
}

func (s Service) getPresence(c *gin.Context) {
	userID := c.Param("id")

	snap, err := s.Store.Get(c.Request.Context(), userID)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "presence lookup failed")
		return
	}

	cls := Classify(snap, time.Now(), s.Window)

	resp := gin.H{
		"user_id": userID,
		"online":  cls.Online,
		"label":   cls.Label,
	}
	if !snap.LastSeen.IsZero() {
		resp["last_seen"] = snap.LastSeen.UTC().Format(time.RFC3339)
	}
	httpx.OK(c, resp)
}

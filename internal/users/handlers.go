package users

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/zapchat/backend/internal/auth"
	"github.com/zapchat/backend/internal/config"
	"github.com/zapchat/backend/internal/httpx"
	"github.com/zapchat/backend/internal/otp"
	"github.com/zapchat/backend/internal/utils"
)

type Service struct {
	DB        *sql.DB
	JWTSecret string
	JWTTTLMin int
	OTP       otp.Service
}

type signupInitReq struct {
	Handle   string `json:"handle" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type signupVerifyReq struct {
	Handle   string `json:"handle" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"` // send again on verify
	OTP      string `json:"otp" binding:"required"`
}

type loginReq struct {
	Handle   string `json:"handle" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type forgotInitReq struct {
	Email string `json:"email" binding:"required,email"`
}

type forgotVerifyReq struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

type resetReq struct {
	Email       string `json:"email" binding:"required,email"`
	NewPassword string `json:"new_password" binding:"required"`
}

func RegisterPublic(rg *gin.RouterGroup, db *sql.DB, cfg config.Config) {
	s := Service{
		DB:        db,
		JWTSecret: cfg.JWTSecret,
		JWTTTLMin: cfg.JWTTTLMin,
		OTP: otp.Service{
			DB:     db,
			Digits: cfg.OTPDigits,
			TTL:    time.Duration(cfg.OTPTTLSec) * time.Second,
			APIKey: cfg.SendGridAPIKey,
			From:   cfg.SendGridFrom,
		},
	}

	rg.POST("/signup/initiate", s.signupInitiate)
	rg.POST("/signup/verify", s.signupVerify)
	rg.POST("/login", s.login)
	rg.POST("/forgot/initiate", s.forgotInitiate)
	rg.POST("/forgot/verify", s.forgotVerify)
	rg.PUT("/forgot/reset", s.resetPassword)
}

// RegisterProtected mounts the handle-discovery endpoint behind auth.
func RegisterProtected(rg *gin.RouterGroup, db *sql.DB) {
	s := Service{DB: db}
	rg.GET("/users/search", s.searchUsers)
}

func (s Service) signupInitiate(c *gin.Context) {
	var req signupInitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	var count int
	_ = s.DB.QueryRow(`SELECT COUNT(1) FROM users WHERE handle=? OR email=?`, req.Handle, req.Email).Scan(&count)

	if count > 0 {
		httpx.Err(c, http.StatusConflict, "handle or email already exists")
		return
	}

	if _, err := s.OTP.Generate(req.Email, "signup"); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "otp send failed")
		return
	}

	httpx.OK(c, gin.H{"message": "otp sent"})
}

func (s Service) signupVerify(c *gin.Context) {
	var req signupVerifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := s.OTP.Verify(req.Email, "signup", req.OTP)
	if err != nil || !ok {
		httpx.Err(c, http.StatusUnauthorized, "invalid otp")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "create user failed")
		return
	}

	// uuid ids keep session keys unambiguous: they never contain the key
	// delimiter
	uid := uuid.NewString()
	_, err = s.DB.Exec(`INSERT INTO users (id, handle, email, password_hash) VALUES (?, ?, ?, ?)`,
		uid, req.Handle, req.Email, hash)
	if err != nil {
		httpx.Err(c, http.StatusBadRequest, "create user failed")
		return
	}

	tok, err := auth.NewToken(s.JWTSecret, uid, s.JWTTTLMin)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "token generation failed")
		return
	}

	httpx.OK(c, gin.H{"token": tok, "user_id": uid})
}

func (s Service) login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}

	row := s.DB.QueryRow(`SELECT id, password_hash FROM users WHERE handle=?`, req.Handle)

	var id, hash string
	if err := row.Scan(&id, &hash); err != nil {
		httpx.Err(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if err := auth.CheckPassword(hash, req.Password); err != nil {
		httpx.Err(c, http.StatusUnauthorized, "invalid credentials")
		return
	}

	tok, err := auth.NewToken(s.JWTSecret, id, s.JWTTTLMin)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "token generation failed")
		return
	}
	httpx.OK(c, gin.H{"token": tok, "user_id": id})
}

func (s Service) forgotInitiate(c *gin.Context) {
	var req forgotInitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := s.OTP.Generate(req.Email, "reset"); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "otp send failed")
		return
	}
	httpx.OK(c, gin.H{"message": "otp sent"})
}

func (s Service) forgotVerify(c *gin.Context) {
	var req forgotVerifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}
	ok, err := s.OTP.Verify(req.Email, "reset", req.OTP)
	if err != nil || !ok {
		httpx.Err(c, http.StatusUnauthorized, "invalid otp")
		return
	}

	httpx.OK(c, gin.H{"message": "otp verified"})
}

func (s Service) resetPassword(c *gin.Context) {
	var req resetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			httpx.Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
			return
		}
		httpx.Err(c, http.StatusBadRequest, err.Error())
		return
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "update password failed")
		return
	}
	if _, err := s.DB.Exec(`UPDATE users SET password_hash=? WHERE email=?`, hash, req.Email); err != nil {
		httpx.Err(c, http.StatusInternalServerError, "update password failed")
		return
	}
	httpx.OK(c, gin.H{"message": "password updated"})
}

func (s Service) searchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		httpx.Err(c, http.StatusBadRequest, "query parameter is required")
		return
	}

	rows, err := s.DB.Query(
		`SELECT id, handle, COALESCE(avatar_url, '') FROM users WHERE handle LIKE ? LIMIT 10`,
		"%"+query+"%")
	if err != nil {
		httpx.Err(c, http.StatusInternalServerError, "database query failed")
		return
	}
	defer rows.Close()

	var users []gin.H
	for rows.Next() {
		var id, handle, avatar string
		if err := rows.Scan(&id, &handle, &avatar); err != nil {
			continue
		}
		users = append(users, gin.H{
			"id":         id,
			"handle":     handle,
			"avatar_url": avatar,
		})
	}

	httpx.OK(c, gin.H{"users": users})
}

package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr        string
	JWTSecret   string
	JWTTTLMin   int
	SQLITEDsn   string
	PostgresDsn string
	RedisURL    string
	OTPDigits   int
	OTPTTLSec   int
	// presence tuning: the window must stay materially larger than the
	// heartbeat period (default ratio 4:1) so one missed heartbeat is tolerated
	PresenceWindow  time.Duration
	HeartbeatPeriod time.Duration
	SendGridAPIKey  string
	SendGridFrom    string
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val != "" {
		return val
	}
	return def
}

func MustLoad() Config {
	jwtttl, _ := strconv.Atoi(getenv("JWT_TTL_MIN", "1440"))
	otpdigit, _ := strconv.Atoi(getenv("OTP_DIGITS", "6"))
	otpttl, _ := strconv.Atoi(getenv("OTP_TTL_SEC", "300"))
	windowsec, _ := strconv.Atoi(getenv("PRESENCE_WINDOW_SEC", "120"))
	heartbeatsec, _ := strconv.Atoi(getenv("HEARTBEAT_SEC", "30"))

	cfg := Config{
		Addr:            getenv("HTTP_ADDR", ":8080"),
		JWTSecret:       getenv("JWT_SECRET", ""),
		JWTTTLMin:       jwtttl,
		SQLITEDsn:       getenv("SQLITE_DSN", "file:zapchat.db?_pragma=foreign_keys(ON)"),
		PostgresDsn:     getenv("POSTGRES_DSN", ""),
		RedisURL:        getenv("REDIS_URL", ""),
		OTPDigits:       otpdigit,
		OTPTTLSec:       otpttl,
		PresenceWindow:  time.Duration(windowsec) * time.Second,
		HeartbeatPeriod: time.Duration(heartbeatsec) * time.Second,
		SendGridAPIKey:  getenv("SENDGRID_API_KEY", ""),
		SendGridFrom:    getenv("SENDGRID_FROM", ""),
	}
	return cfg
}

package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/zapchat/backend/internal/auth"
	"github.com/zapchat/backend/internal/chat"
	"github.com/zapchat/backend/internal/chats"
	"github.com/zapchat/backend/internal/config"
	"github.com/zapchat/backend/internal/messages"
	"github.com/zapchat/backend/internal/presence"
	"github.com/zapchat/backend/internal/profile"
	"github.com/zapchat/backend/internal/storage/postgres"
	"github.com/zapchat/backend/internal/storage/sqlite"
	"github.com/zapchat/backend/internal/users"
)

func main() {
	migrate := flag.Bool("migrate", false, "run migrations and exit")
	schema := flag.String("schema", "sql/schema.sql", "path to schema file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file, using environment as-is")
	}
	cfg := config.MustLoad()

	if cfg.HeartbeatPeriod >= cfg.PresenceWindow {
		slog.Warn("heartbeat period is not smaller than the presence window; stale sessions will flap",
			"heartbeat", cfg.HeartbeatPeriod, "window", cfg.PresenceWindow)
	}

	db, closeDB, err := openDB(cfg, *migrate, *schema)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer closeDB()
	if *migrate {
		slog.Info("migration completed")
		return
	}

	store, err := openPresenceStore(cfg, db)
	if err != nil {
		log.Fatalf("presence store: %v", err)
	}

	hub := chat.NewHub(db, store, cfg.PresenceWindow, cfg.HeartbeatPeriod)
	go hub.Run()

	r := gin.Default()
	api := r.Group("/api")

	users.RegisterPublic(api, db, cfg)
	chat.RegisterWS(api, hub, cfg.JWTSecret)

	authed := api.Group("", auth.JWTMiddleware(cfg.JWTSecret))
	users.RegisterProtected(authed, db)
	profile.Register(authed, db)
	presence.Register(authed, store, cfg.PresenceWindow)
	chats.Register(authed, db, store, cfg.PresenceWindow)
	messages.Register(authed, db, hub)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	go func() {
		slog.Info("starting zapchat", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}
}

func openDB(cfg config.Config, migrate bool, schema string) (*sql.DB, func(), error) {
	if cfg.PostgresDsn != "" {
		conn, err := postgres.New(cfg.PostgresDsn)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			if err := conn.Migrate(schema); err != nil {
				return nil, nil, err
			}
		}
		return conn.Db, func() { conn.Db.Close() }, nil
	}

	conn, err := sqlite.New(cfg.SQLITEDsn)
	if err != nil {
		return nil, nil, err
	}
	if migrate {
		if err := conn.Migrate(schema); err != nil {
			return nil, nil, err
		}
	}
	return conn.Db, func() { conn.Db.Close() }, nil
}

func openPresenceStore(cfg config.Config, db *sql.DB) (presence.Store, error) {
	if cfg.RedisURL == "" {
		return presence.NewSQLStore(db), nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	slog.Info("presence store backed by redis")
	return presence.NewRedisStore(rdb), nil
}

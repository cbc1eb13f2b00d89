package presence

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLStore keeps presence on the users table. Fallback when no redis is
// configured; fine for single-node deployments.
type SQLStore struct {
	DB *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{DB: db}
}

func (s *SQLStore) SetOnline(ctx context.Context, userID string, at time.Time) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE users SET is_online=1, last_seen=? WHERE id=?`, at.UTC(), userID)
	return err
}

func (s *SQLStore) SetOffline(ctx context.Context, userID string, at time.Time) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE users SET is_online=0, last_seen=? WHERE id=?`, at.UTC(), userID)
	return err
}

func (s *SQLStore) Heartbeat(ctx context.Context, userID string, at time.Time) error {
	_, err := s.DB.ExecContext(ctx,
		`UPDATE users SET last_seen=? WHERE id=?`, at.UTC(), userID)
	return err
}

func (s *SQLStore) Get(ctx context.Context, userID string) (Snapshot, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT is_online, last_seen FROM users WHERE id=?`, userID)

	var online bool
	var lastSeen sql.NullTime
	if err := row.Scan(&online, &lastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Snapshot{}, nil
		}
		return Snapshot{}, err
	}
	snap := Snapshot{Online: online}
	if lastSeen.Valid {
		snap.LastSeen = lastSeen.Time
	}
	return snap, nil
}

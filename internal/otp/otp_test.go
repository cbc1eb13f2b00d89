package otp

import (
	"database/sql"
	"testing"
	"time"

	"github.com/zapchat/backend/internal/storage/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Db.Close() })

	_, err = conn.Db.Exec(`CREATE TABLE otp_codes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL,
		code TEXT NOT NULL,
		purpose TEXT NOT NULL,
		expires_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}
	return conn.Db
}

func newTestService(db *sql.DB) *Service {
	// empty APIKey: codes are stored but never mailed
	return &Service{DB: db, Digits: 6, TTL: 5 * time.Minute}
}

func TestGenerateStoresCode(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(db)

	code, err := s.Generate("a@example.com", "signup")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("code length = %d, want 6", len(code))
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			t.Fatalf("code %q contains non-digit", code)
		}
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(1) FROM otp_codes WHERE email=? AND purpose='signup' AND code=?`,
		"a@example.com", code).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("stored rows = %d, want 1", n)
	}
}

func insertCode(t *testing.T, db *sql.DB, email, purpose, code, expiry string) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO otp_codes (email, code, purpose, expires_at) VALUES (?, ?, ?, datetime('now', ?))`,
		email, code, purpose, expiry)
	if err != nil {
		t.Fatalf("insert code: %v", err)
	}
}

func TestVerifyConsumesCode(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(db)

	insertCode(t, db, "a@example.com", "signup", "123456", "+5 minutes")

	ok, err := s.Verify("a@example.com", "signup", "123456")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !ok {
		t.Fatal("valid code rejected")
	}

	ok, err = s.Verify("a@example.com", "signup", "123456")
	if err != nil {
		t.Fatalf("second Verify: %v", err)
	}
	if ok {
		t.Fatal("consumed code accepted twice")
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(db)

	insertCode(t, db, "a@example.com", "signup", "123456", "-1 minutes")

	ok, err := s.Verify("a@example.com", "signup", "123456")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Fatal("expired code accepted")
	}
}

func TestVerifyWrongCodeOrPurpose(t *testing.T) {
	db := newTestDB(t)
	s := newTestService(db)

	insertCode(t, db, "a@example.com", "signup", "123456", "+5 minutes")

	tests := []struct {
		name           string
		email, purpose string
		code           string
	}{
		{"wrong code", "a@example.com", "signup", "654321"},
		{"wrong purpose", "a@example.com", "reset", "123456"},
		{"wrong email", "b@example.com", "signup", "123456"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := s.Verify(tc.email, tc.purpose, tc.code)
			if err != nil {
				t.Fatalf("Verify: %v", err)
			}
			if ok {
				t.Fatal("mismatched code accepted")
			}
		})
	}

	// the stored code must survive failed attempts
	ok, err := s.Verify("a@example.com", "signup", "123456")
	if err != nil || !ok {
		t.Fatalf("valid code gone after failed attempts: ok=%v err=%v", ok, err)
	}
}

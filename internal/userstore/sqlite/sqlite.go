package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/freespacenet/fsn-rewards/internal/userstore"
)

// Store implements userstore.Store backed by SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite identity store at the supplied path.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create identity directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS identities (
	id TEXT PRIMARY KEY,
	name TEXT UNIQUE,
	referrer_id TEXT,
	status TEXT NOT NULL DEFAULT 'active',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_identities_referrer ON identities(referrer_id);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases underlying resources.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ensure creates the identity row for id if absent and returns it.
func (s *Store) Ensure(ctx context.Context, id string) (*userstore.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("user id required")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO identities(id) VALUES(?)
ON CONFLICT(id) DO NOTHING`, id)
	if err != nil {
		return nil, fmt.Errorf("ensure identity %s: %w", id, err)
	}
	return s.byID(ctx, id)
}

// ClaimName assigns a .rep name to the user, optionally linking a referrer.
func (s *Store) ClaimName(ctx context.Context, id, name, referrerName string) (*userstore.User, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("user id required")
	}
	name = userstore.NormalizeName(name)
	if !userstore.ValidName(name) {
		return nil, fmt.Errorf("invalid name %q", name)
	}

	var referrerID sql.NullString
	if referrerName != "" {
		referrer, err := s.FindByName(ctx, referrerName)
		if err != nil && !errors.Is(err, userstore.ErrNotFound) {
			return nil, err
		}
		// A referrer that does not exist or is the claimant themselves is
		// dropped silently; the claim itself still goes through.
		if err == nil && referrer.ID != id {
			referrerID = sql.NullString{String: referrer.ID, Valid: true}
		}
	}

	if _, err := s.Ensure(ctx, id); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
UPDATE identities
SET name = ?, referrer_id = COALESCE(referrer_id, ?), updated_at = ?
WHERE id = ? AND (name IS NULL OR name = ?)`,
		name, referrerID, time.Now().UTC(), id, name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, userstore.ErrNameTaken
		}
		return nil, fmt.Errorf("claim name %s: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// The user already holds a different name; claims are one-shot.
		return nil, fmt.Errorf("user %s already has a claimed name", id)
	}
	return s.byID(ctx, id)
}

// FindByName resolves a claimed name to its identity.
func (s *Store) FindByName(ctx context.Context, name string) (*userstore.User, error) {
	name = userstore.NormalizeName(name)
	if name == "" {
		return nil, errors.New("name required")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, referrer_id, status, created_at, updated_at
FROM identities WHERE name = ?`, name)
	return scanUser(row)
}

// ReferrerOf returns the referrer's user id, or "" when the user was not
// referred (or does not exist).
func (s *Store) ReferrerOf(ctx context.Context, id string) (string, error) {
	row := s.db.QueryRowContext(ctx, `SELECT referrer_id FROM identities WHERE id = ?`, id)
	var referrer sql.NullString
	if err := row.Scan(&referrer); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	if !referrer.Valid {
		return "", nil
	}
	return referrer.String, nil
}

func (s *Store) byID(ctx context.Context, id string) (*userstore.User, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, referrer_id, status, created_at, updated_at
FROM identities WHERE id = ?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*userstore.User, error) {
	var (
		u        userstore.User
		name     sql.NullString
		referrer sql.NullString
	)
	err := row.Scan(&u.ID, &name, &referrer, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, userstore.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Name = name.String
	u.ReferrerID = referrer.String
	return &u, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

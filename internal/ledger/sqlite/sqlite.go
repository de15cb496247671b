package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// register sqlite driver
	_ "modernc.org/sqlite"

	"github.com/freespacenet/fsn-rewards/internal/ledger"
)

// Store implements ledger.Store backed by SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite store at the given path.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
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
CREATE TABLE IF NOT EXISTS xp_ledgers (
	user_id TEXT PRIMARY KEY,
	total_xp INTEGER NOT NULL DEFAULT 0,
	last_grant_at TEXT NOT NULL DEFAULT '{}',
	daily_grant_count TEXT NOT NULL DEFAULT '{}',
	referral_bonus_given INTEGER NOT NULL DEFAULT 0,
	signal_status TEXT NOT NULL DEFAULT 'none',
	pulse_qualified INTEGER NOT NULL DEFAULT 0,
	streak_days INTEGER NOT NULL DEFAULT 0,
	last_active_day TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS xp_events (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	action TEXT NOT NULL,
	amount INTEGER NOT NULL,
	total_after INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_xp_events_user_created ON xp_events(user_id, created_at DESC);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Close releases underlying database resources.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load fetches the user's ledger row, decoding the JSON grant maps. A user
// without a row gets a fresh empty ledger.
func (s *Store) Load(ctx context.Context, userID string) (*ledger.Ledger, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT total_xp, last_grant_at, daily_grant_count, referral_bonus_given,
       signal_status, pulse_qualified, streak_days, last_active_day,
       created_at, updated_at
FROM xp_ledgers
WHERE user_id = ?`, userID)

	var (
		led           ledger.Ledger
		lastGrantJSON string
		dailyJSON     string
	)
	err := row.Scan(&led.TotalXP, &lastGrantJSON, &dailyJSON, &led.ReferralBonusGiven,
		&led.SignalStatus, &led.PulseQualified, &led.StreakDays, &led.LastActiveDay,
		&led.CreatedAt, &led.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// Timestamps stay zero until the engine persists the first change.
		return ledger.New(userID, time.Time{}), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger %s: %w", userID, err)
	}
	led.UserID = userID
	if err := json.Unmarshal([]byte(lastGrantJSON), &led.LastGrantAt); err != nil {
		return nil, fmt.Errorf("decode last_grant_at for %s: %w", userID, err)
	}
	if err := json.Unmarshal([]byte(dailyJSON), &led.DailyGrantCount); err != nil {
		return nil, fmt.Errorf("decode daily_grant_count for %s: %w", userID, err)
	}
	if led.LastGrantAt == nil {
		led.LastGrantAt = make(map[string]time.Time)
	}
	if led.DailyGrantCount == nil {
		led.DailyGrantCount = make(map[string]map[string]int)
	}
	return &led, nil
}

// Save upserts the full ledger row.
func (s *Store) Save(ctx context.Context, led *ledger.Ledger) error {
	if led == nil || led.UserID == "" {
		return errors.New("ledger save requires user id")
	}
	lastGrantJSON, err := json.Marshal(led.LastGrantAt)
	if err != nil {
		return fmt.Errorf("encode last_grant_at: %w", err)
	}
	dailyJSON, err := json.Marshal(led.DailyGrantCount)
	if err != nil {
		return fmt.Errorf("encode daily_grant_count: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO xp_ledgers(user_id, total_xp, last_grant_at, daily_grant_count, referral_bonus_given,
                       signal_status, pulse_qualified, streak_days, last_active_day, created_at, updated_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
	total_xp = excluded.total_xp,
	last_grant_at = excluded.last_grant_at,
	daily_grant_count = excluded.daily_grant_count,
	referral_bonus_given = excluded.referral_bonus_given,
	signal_status = excluded.signal_status,
	pulse_qualified = excluded.pulse_qualified,
	streak_days = excluded.streak_days,
	last_active_day = excluded.last_active_day,
	updated_at = excluded.updated_at`,
		led.UserID,
		led.TotalXP,
		string(lastGrantJSON),
		string(dailyJSON),
		led.ReferralBonusGiven,
		led.SignalStatus,
		led.PulseQualified,
		led.StreakDays,
		led.LastActiveDay,
		led.CreatedAt,
		led.UpdatedAt,
	)
	return err
}

// AppendEvent records a grant in the append-only history.
func (s *Store) AppendEvent(ctx context.Context, ev ledger.Event) error {
	if ev.UserID == "" {
		return errors.New("event requires user id")
	}
	created := ev.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO xp_events(id, user_id, action, amount, total_after, created_at)
VALUES(?, ?, ?, ?, ?, ?)`,
		ev.ID,
		ev.UserID,
		ev.Action,
		ev.Amount,
		ev.TotalAfter,
		created,
	)
	return err
}

// ListRecent returns the latest grant events for a user.
func (s *Store) ListRecent(ctx context.Context, userID string, limit int) ([]ledger.Event, error) {
	if userID == "" {
		return nil, errors.New("user id required")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, action, amount, total_after, created_at
FROM xp_events
WHERE user_id = ?
ORDER BY created_at DESC
LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []ledger.Event
	for rows.Next() {
		var ev ledger.Event
		if err := rows.Scan(&ev.ID, &ev.UserID, &ev.Action, &ev.Amount, &ev.TotalAfter, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

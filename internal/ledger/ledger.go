package ledger

import (
	"context"
	"time"
)

// dayKeyFormat is the UTC calendar-day key used for daily grant caps.
// Day boundaries are UTC midnight; there is no timezone-local day concept.
const dayKeyFormat = "2006-01-02"

// DayKey truncates t to its UTC calendar day.
func DayKey(t time.Time) string {
	return t.UTC().Format(dayKeyFormat)
}

// Ledger is the per-user XP record. It is owned exclusively by the reward
// engine; other subsystems read derived values only. TotalXP never decreases.
type Ledger struct {
	UserID  string `json:"user_id"`
	TotalXP int64  `json:"total_xp"`

	// LastGrantAt maps action name to the most recent successful grant time.
	LastGrantAt map[string]time.Time `json:"last_grant_at"`
	// DailyGrantCount maps UTC day key -> action name -> grants that day.
	DailyGrantCount map[string]map[string]int `json:"daily_grant_count"`

	// ReferralBonusGiven is set at most once per user and guards against
	// paying the same referrer twice for one referee.
	ReferralBonusGiven bool `json:"referral_bonus_given"`

	// Cached derived fields, recomputed after every grant.
	SignalStatus   string `json:"signal_status"`
	PulseQualified bool   `json:"pulse_qualified"`

	// Consecutive-UTC-day activity streak, maintained by the login handler.
	StreakDays    int    `json:"streak_days"`
	LastActiveDay string `json:"last_active_day"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an empty ledger for the given user.
func New(userID string, now time.Time) *Ledger {
	return &Ledger{
		UserID:          userID,
		LastGrantAt:     make(map[string]time.Time),
		DailyGrantCount: make(map[string]map[string]int),
		SignalStatus:    "none",
		CreatedAt:       now.UTC(),
		UpdatedAt:       now.UTC(),
	}
}

// LastGrant returns the most recent grant time for the action.
func (l *Ledger) LastGrant(action string) (time.Time, bool) {
	t, ok := l.LastGrantAt[action]
	return t, ok
}

// GrantedToday returns how many times the action was granted on now's UTC day.
func (l *Ledger) GrantedToday(action string, now time.Time) int {
	day, ok := l.DailyGrantCount[DayKey(now)]
	if !ok {
		return 0
	}
	return day[action]
}

// RecordGrant applies a successful grant: the daily counter, the XP total and
// the last-grant timestamp move together in one step so they can never drift.
// Callers must have confirmed eligibility first.
func (l *Ledger) RecordGrant(action string, amount int64, now time.Time) {
	key := DayKey(now)
	if l.DailyGrantCount == nil {
		l.DailyGrantCount = make(map[string]map[string]int)
	}
	day, ok := l.DailyGrantCount[key]
	if !ok {
		day = make(map[string]int)
		l.DailyGrantCount[key] = day
	}
	day[action]++
	l.TotalXP += amount
	if l.LastGrantAt == nil {
		l.LastGrantAt = make(map[string]time.Time)
	}
	l.LastGrantAt[action] = now.UTC()
	l.UpdatedAt = now.UTC()
}

// PruneDailyCounts drops day buckets older than keepDays so the JSON-encoded
// counter map stays bounded. The current day is always kept.
func (l *Ledger) PruneDailyCounts(now time.Time, keepDays int) {
	if keepDays < 1 {
		keepDays = 1
	}
	cutoff := DayKey(now.UTC().AddDate(0, 0, -(keepDays - 1)))
	for key := range l.DailyGrantCount {
		if key < cutoff {
			delete(l.DailyGrantCount, key)
		}
	}
}

// Event is a single immutable grant record appended to the activity history.
type Event struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Action     string    `json:"action"`
	Amount     int64     `json:"amount"`
	TotalAfter int64     `json:"total_after"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store defines persistence behaviour for ledgers and grant events.
type Store interface {
	// Load returns the user's ledger, or a fresh empty ledger when the user
	// has no persisted record yet. The implicit ledger is not persisted
	// until the first Save.
	Load(ctx context.Context, userID string) (*Ledger, error)
	// Save upserts the full ledger row.
	Save(ctx context.Context, led *Ledger) error
	// AppendEvent records a grant in the append-only history.
	AppendEvent(ctx context.Context, ev Event) error
	// ListRecent returns the latest grant events for a user, newest first.
	ListRecent(ctx context.Context, userID string, limit int) ([]Event, error)
	Close() error
}

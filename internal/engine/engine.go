// Package engine implements the XP reward core: the grant gate, the grant
// executor, and the per-action handlers. All ledger mutations go through a
// per-user lock so concurrent attempts for the same user can never
// double-grant.
package engine

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/freespacenet/fsn-rewards/internal/ledger"
	"github.com/freespacenet/fsn-rewards/internal/metrics"
	"github.com/freespacenet/fsn-rewards/internal/rules"
	"github.com/freespacenet/fsn-rewards/internal/status"
	"github.com/freespacenet/fsn-rewards/internal/userstore"
)

// defaultRetentionDays bounds how many day buckets a ledger carries.
const defaultRetentionDays = 7

// Engine coordinates rule lookups, gate checks and ledger mutations.
type Engine struct {
	table         *rules.Table
	store         ledger.Store
	identity      userstore.Store
	locks         *userLocks
	logger        *log.Logger
	now           func() time.Time
	retentionDays int
	collector     *metrics.Collector
}

// Option customises engine construction.
type Option func(*Engine)

// WithIdentity wires the identity store used for referral lookups. Without
// it, referral bonuses are disabled.
func WithIdentity(store userstore.Store) Option {
	return func(e *Engine) { e.identity = store }
}

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithRetentionDays overrides how many daily-count buckets ledgers keep.
func WithRetentionDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.retentionDays = days
		}
	}
}

// WithMetrics wires a metrics collector for grant counters.
func WithMetrics(c *metrics.Collector) Option {
	return func(e *Engine) { e.collector = c }
}

// New creates an engine over the given rule table and ledger store.
func New(table *rules.Table, store ledger.Store, opts ...Option) *Engine {
	e := &Engine{
		table:         table,
		store:         store,
		locks:         newUserLocks(),
		logger:        log.New(log.Writer(), "[engine] ", log.LstdFlags|log.Lmicroseconds),
		now:           time.Now,
		retentionDays: defaultRetentionDays,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rules exposes the active rule table.
func (e *Engine) Rules() *rules.Table {
	return e.table
}

func (e *Engine) logf(format string, args ...any) {
	if e.logger != nil {
		e.logger.Printf(format, args...)
	}
}

// Attempt describes the outcome of a single grant attempt.
type Attempt struct {
	Granted bool   `json:"granted"`
	Reason  Reason `json:"reason"`
	Amount  int64  `json:"amount,omitempty"`
	TotalXP int64  `json:"total_xp"`
}

// mutation describes one serialized ledger update: an optional grant attempt
// plus an optional extra mutation applied under the same lock.
type mutation struct {
	action string
	extra  func(led *ledger.Ledger, now time.Time) []string
}

// update is the single write path for ledgers. It acquires the user's lock,
// loads a consistent snapshot, runs the gate and executor plus any extra
// mutation, recomputes the cached derived statuses, and persists the result.
// Gate and executor run inside the same critical section, so callers cannot
// misuse the executor without a prior gate check.
func (e *Engine) update(ctx context.Context, userID string, m mutation) (Attempt, *ledger.Ledger, []string, error) {
	unlock := e.locks.acquire(userID)
	defer unlock()

	led, err := e.store.Load(ctx, userID)
	if err != nil {
		return Attempt{}, nil, nil, err
	}

	now := e.now()
	att := Attempt{Reason: ReasonOK}
	var fields []string
	var ev *ledger.Event

	if m.action != "" {
		att.Reason = Evaluate(e.table, led, m.action, now)
		switch att.Reason {
		case ReasonOK:
			rule, _ := e.table.Lookup(m.action)
			led.RecordGrant(m.action, rule.Amount, now)
			led.PruneDailyCounts(now, e.retentionDays)
			att.Granted = true
			att.Amount = rule.Amount
			fields = append(fields, "total_xp", "last_grant_at."+m.action)
			ev = &ledger.Event{
				ID:         uuid.NewString(),
				UserID:     userID,
				Action:     m.action,
				Amount:     rule.Amount,
				TotalAfter: led.TotalXP,
				CreatedAt:  now.UTC(),
			}
			if e.collector != nil {
				e.collector.RecordGrant(m.action, rule.Amount)
			}
		case ReasonUnknownAction:
			// Fail closed but quiet: a retired or misspelled action name
			// must never break the calling feature.
			e.logf("grant rejected action=%s user=%s reason=%s", m.action, userID, att.Reason)
			fallthrough
		default:
			if e.collector != nil {
				e.collector.RecordDenial(m.action, string(att.Reason))
			}
		}
	}

	if m.extra != nil {
		fields = append(fields, m.extra(led, now)...)
	}

	if len(fields) > 0 {
		prevSignal := led.SignalStatus
		prevPulse := led.PulseQualified
		led.SignalStatus = string(status.SignalFor(led.TotalXP))
		led.PulseQualified = status.PulseActive(led.TotalXP)
		if led.SignalStatus != prevSignal {
			fields = append(fields, "signal_status")
		}
		if led.PulseQualified != prevPulse {
			fields = append(fields, "pulse_qualified")
		}
		if led.CreatedAt.IsZero() {
			led.CreatedAt = now.UTC()
		}
		led.UpdatedAt = now.UTC()
		if err := e.store.Save(ctx, led); err != nil {
			return Attempt{}, nil, nil, err
		}
		if ev != nil {
			if err := e.store.AppendEvent(ctx, *ev); err != nil {
				return Attempt{}, nil, nil, err
			}
		}
	}

	att.TotalXP = led.TotalXP
	return att, led, fields, nil
}

// AttemptGrant runs one serialized grant attempt for (userID, action).
// Business rejections come back in the Attempt; only store failures error.
func (e *Engine) AttemptGrant(ctx context.Context, userID, action string) (Attempt, error) {
	att, _, _, err := e.update(ctx, userID, mutation{action: action})
	return att, err
}

// grantReferralBonus pays the one-shot referral bonus to the user's
// referrer. The referee's ReferralBonusGiven flag is claimed atomically under
// the referee's lock, then the payout takes the referrer's own lock, so the
// two critical sections never nest. The flag stays set only when the payout
// actually lands: a gate rejection or store failure on the referrer's side
// releases the claim so a later upload retries the bonus.
func (e *Engine) grantReferralBonus(ctx context.Context, refereeID string) (bool, error) {
	if e.identity == nil {
		return false, nil
	}

	var referrerID string
	var lookupErr error
	_, _, _, err := e.update(ctx, refereeID, mutation{
		extra: func(led *ledger.Ledger, _ time.Time) []string {
			if led.ReferralBonusGiven {
				return nil
			}
			id, rerr := e.identity.ReferrerOf(ctx, refereeID)
			if rerr != nil {
				lookupErr = rerr
				return nil
			}
			if id == "" {
				return nil
			}
			led.ReferralBonusGiven = true
			referrerID = id
			return []string{"referral_bonus_given"}
		},
	})
	if err != nil {
		return false, err
	}
	if lookupErr != nil {
		return false, lookupErr
	}
	if referrerID == "" {
		return false, nil
	}

	att, err := e.AttemptGrant(ctx, referrerID, rules.ActionReferral)
	if err != nil || !att.Granted {
		if relErr := e.releaseReferralClaim(ctx, refereeID); relErr != nil {
			e.logf("referral claim release failed referee=%s: %v", refereeID, relErr)
		}
		if err != nil {
			return false, err
		}
		e.logf("referral payout rejected referrer=%s referee=%s reason=%s", referrerID, refereeID, att.Reason)
		return false, nil
	}
	if e.collector != nil {
		e.collector.RecordReferralBonus()
	}
	return true, nil
}

// releaseReferralClaim clears the referee's bonus flag after a payout that
// did not land, restoring the claim for a future attempt.
func (e *Engine) releaseReferralClaim(ctx context.Context, refereeID string) error {
	_, _, _, err := e.update(ctx, refereeID, mutation{
		extra: func(led *ledger.Ledger, _ time.Time) []string {
			if !led.ReferralBonusGiven {
				return nil
			}
			led.ReferralBonusGiven = false
			return []string{"referral_bonus_given"}
		},
	})
	return err
}

// StatusSnapshot is the read-only derived view of a user's progression.
type StatusSnapshot struct {
	UserID             string            `json:"user_id"`
	TotalXP            int64             `json:"total_xp"`
	Signal             status.Signal     `json:"signal"`
	PulseLevel         status.PulseLevel `json:"pulse_level"`
	PulseLabel         string            `json:"pulse_label"`
	PulseActive        bool              `json:"pulse_active"`
	StreakDays         int               `json:"streak_days"`
	BeaconEligible     bool              `json:"beacon_eligible"`
	ReferralBonusGiven bool              `json:"referral_bonus_given"`
}

// Snapshot derives the current statuses from a single consistent ledger read.
func (e *Engine) Snapshot(ctx context.Context, userID string) (StatusSnapshot, error) {
	led, err := e.store.Load(ctx, userID)
	if err != nil {
		return StatusSnapshot{}, err
	}
	return snapshotOf(led), nil
}

func snapshotOf(led *ledger.Ledger) StatusSnapshot {
	sig := status.SignalFor(led.TotalXP)
	pulse := status.PulseFor(led.TotalXP)
	return StatusSnapshot{
		UserID:             led.UserID,
		TotalXP:            led.TotalXP,
		Signal:             sig,
		PulseLevel:         pulse,
		PulseLabel:         pulse.Label(),
		PulseActive:        status.PulseActive(led.TotalXP),
		StreakDays:         led.StreakDays,
		BeaconEligible:     status.BeaconEligible(sig, pulse, led.StreakDays),
		ReferralBonusGiven: led.ReferralBonusGiven,
	}
}

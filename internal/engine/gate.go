package engine

import (
	"time"

	"github.com/freespacenet/fsn-rewards/internal/ledger"
	"github.com/freespacenet/fsn-rewards/internal/rules"
)

// Reason explains the outcome of a grant attempt. Business rejections are
// values, never errors: a denied grant must not disturb the user action that
// triggered it.
type Reason string

const (
	ReasonOK            Reason = "ok"
	ReasonCooldown      Reason = "cooldown"
	ReasonDailyCap      Reason = "daily_cap"
	ReasonUnknownAction Reason = "unknown_action"
)

// Evaluate is the grant gate: a pure predicate over the ledger, the rule
// table, and the clock. Unknown actions fail closed.
//
// The cooldown comparison is strict: an attempt at exactly
// lastGrantAt + cooldown is rejected, one second later it passes. Daily caps
// count grants per UTC calendar day, so two grants two seconds apart straddling
// UTC midnight land in different buckets.
func Evaluate(table *rules.Table, led *ledger.Ledger, action string, now time.Time) Reason {
	rule, ok := table.Lookup(action)
	if !ok {
		return ReasonUnknownAction
	}
	if last, ok := led.LastGrant(action); ok {
		if now.Sub(last) <= time.Duration(rule.CooldownSeconds)*time.Second {
			return ReasonCooldown
		}
	}
	if led.GrantedToday(action, now) >= rule.MaxPerDay {
		return ReasonDailyCap
	}
	return ReasonOK
}

// CanGrant reports whether a grant is currently permitted.
func CanGrant(table *rules.Table, led *ledger.Ledger, action string, now time.Time) bool {
	return Evaluate(table, led, action, now) == ReasonOK
}

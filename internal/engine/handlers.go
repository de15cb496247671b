package engine

import (
	"context"
	"time"

	"github.com/freespacenet/fsn-rewards/internal/ledger"
	"github.com/freespacenet/fsn-rewards/internal/rules"
	"github.com/freespacenet/fsn-rewards/internal/status"
)

// ActionResult aggregates what one platform event changed. The UI layer uses
// UpdatedFields to decide what to refresh or animate; everything else is the
// post-event derived state.
type ActionResult struct {
	UserID            string            `json:"user_id"`
	XPGranted         bool              `json:"xp_granted"`
	Reason            Reason            `json:"reason"`
	ReferralXPGranted bool              `json:"referral_xp_granted"`
	TotalXP           int64             `json:"total_xp"`
	Signal            status.Signal     `json:"signal"`
	PulseLevel        status.PulseLevel `json:"pulse_level"`
	PulseLabel        string            `json:"pulse_label"`
	PulseQualified    bool              `json:"pulse_qualified"`
	StreakDays        int               `json:"streak_days"`
	BeaconEligible    bool              `json:"beacon_eligible"`
	UpdatedFields     []string          `json:"updated_fields"`
}

func (e *Engine) buildResult(att Attempt, led *ledger.Ledger, fields []string, referralGranted bool) ActionResult {
	snap := snapshotOf(led)
	return ActionResult{
		UserID:            led.UserID,
		XPGranted:         att.Granted,
		Reason:            att.Reason,
		ReferralXPGranted: referralGranted,
		TotalXP:           led.TotalXP,
		Signal:            snap.Signal,
		PulseLevel:        snap.PulseLevel,
		PulseLabel:        snap.PulseLabel,
		PulseQualified:    led.PulseQualified,
		StreakDays:        led.StreakDays,
		BeaconEligible:    snap.BeaconEligible,
		UpdatedFields:     fields,
	}
}

// HandleVaultUpload awards XP for a completed vault upload and, independently,
// attempts the one-shot referral bonus for the uploader's referrer. A denied
// grant is a quiet no-op: the upload itself has already succeeded and must
// not be disturbed.
func (e *Engine) HandleVaultUpload(ctx context.Context, userID string) (ActionResult, error) {
	att, led, fields, err := e.update(ctx, userID, mutation{action: rules.ActionVaultUpload})
	if err != nil {
		return ActionResult{}, err
	}

	referralGranted, err := e.grantReferralBonus(ctx, userID)
	if err != nil {
		return ActionResult{}, err
	}
	if referralGranted {
		fields = append(fields, "referral_bonus_given")
		led.ReferralBonusGiven = true
	}

	return e.buildResult(att, led, fields, referralGranted), nil
}

// HandleDailyLogin awards the daily login XP and maintains the
// consecutive-UTC-day activity streak. The streak moves even when the XP
// grant is denied, so a capped login still keeps the streak alive.
func (e *Engine) HandleDailyLogin(ctx context.Context, userID string) (ActionResult, error) {
	att, led, fields, err := e.update(ctx, userID, mutation{
		action: rules.ActionDailyLogin,
		extra: func(led *ledger.Ledger, now time.Time) []string {
			today := ledger.DayKey(now)
			if led.LastActiveDay == today {
				return nil
			}
			yesterday := ledger.DayKey(now.AddDate(0, 0, -1))
			if led.LastActiveDay == yesterday {
				led.StreakDays++
			} else {
				led.StreakDays = 1
			}
			led.LastActiveDay = today
			return []string{"streak_days", "last_active_day"}
		},
	})
	if err != nil {
		return ActionResult{}, err
	}
	return e.buildResult(att, led, fields, false), nil
}

// HandleProfileUpdate awards XP for a profile edit.
func (e *Engine) HandleProfileUpdate(ctx context.Context, userID string) (ActionResult, error) {
	return e.handleSimple(ctx, userID, rules.ActionProfileUpdate)
}

// HandleAgentMessage awards XP for messaging an AI agent.
func (e *Engine) HandleAgentMessage(ctx context.Context, userID string) (ActionResult, error) {
	return e.handleSimple(ctx, userID, rules.ActionAgentMessage)
}

// HandleNameClaim awards XP for claiming a .rep name. The claim itself is
// recorded by the identity store before this is called.
func (e *Engine) HandleNameClaim(ctx context.Context, userID string) (ActionResult, error) {
	return e.handleSimple(ctx, userID, rules.ActionNameClaim)
}

func (e *Engine) handleSimple(ctx context.Context, userID, action string) (ActionResult, error) {
	att, led, fields, err := e.update(ctx, userID, mutation{action: action})
	if err != nil {
		return ActionResult{}, err
	}
	return e.buildResult(att, led, fields, false), nil
}

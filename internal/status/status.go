// Package status holds the pure derivations from cumulative XP to the
// discrete FreeSpace status labels (Pulse, Signal, Beacon). All functions
// are monotonic non-decreasing step functions of total XP.
package status

// Signal is the broadcast-tier label derived from total XP. It gates
// messaging and broadcast features on the platform side.
type Signal string

const (
	SignalNone     Signal = "none"
	SignalBasic    Signal = "basic"
	SignalCore     Signal = "core"
	SignalSentinel Signal = "sentinel"
)

// SignalFor maps total XP to a Signal. All thresholds are strict
// lower bounds: 100 XP is still "basic" territory only above 50, and
// exactly 100 does NOT reach "core".
func SignalFor(totalXP int64) Signal {
	switch {
	case totalXP > 200:
		return SignalSentinel
	case totalXP > 100:
		return SignalCore
	case totalXP > 50:
		return SignalBasic
	default:
		return SignalNone
	}
}

// Rank orders signals none < basic < core < sentinel.
func (s Signal) Rank() int {
	switch s {
	case SignalBasic:
		return 1
	case SignalCore:
		return 2
	case SignalSentinel:
		return 3
	default:
		return 0
	}
}

// PulseLevel is the activity tier 0..4.
type PulseLevel int

const (
	PulseInactive PulseLevel = 0
	PulseInitial  PulseLevel = 1
	PulseStable   PulseLevel = 2
	PulseCore     PulseLevel = 3
	PulseSentinel PulseLevel = 4
)

// PulseFor maps total XP to a pulse level. Unlike Signal, the upper tiers
// use inclusive thresholds (>= 250, >= 500, >= 1000); only the level-1 step
// is strict (> 0). The asymmetry with Signal is intentional and pinned
// by tests.
func PulseFor(totalXP int64) PulseLevel {
	switch {
	case totalXP >= 1000:
		return PulseSentinel
	case totalXP >= 500:
		return PulseCore
	case totalXP >= 250:
		return PulseStable
	case totalXP > 0:
		return PulseInitial
	default:
		return PulseInactive
	}
}

// Label returns the display name for a pulse level.
func (p PulseLevel) Label() string {
	switch p {
	case PulseInitial:
		return "Initial Pulse"
	case PulseStable:
		return "Stable Pulse"
	case PulseCore:
		return "Core Pulse"
	case PulseSentinel:
		return "Sentinel Pulse"
	default:
		return "Inactive"
	}
}

// PulseActive reports whether the user has any XP at all.
func PulseActive(totalXP int64) bool {
	return totalXP > 0
}

// beaconMinStreakDays is the consecutive-day activity requirement for
// network-wide Beacon visibility.
const beaconMinStreakDays = 7

// BeaconEligible composes the other derivers: Beacon requires at least core
// Signal, at least a stable Pulse, and a week-long activity streak.
func BeaconEligible(sig Signal, pulse PulseLevel, streakDays int) bool {
	return sig.Rank() >= SignalCore.Rank() &&
		pulse >= PulseStable &&
		streakDays >= beaconMinStreakDays
}

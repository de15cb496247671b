package metrics

import (
	"sync"
	"time"
)

// Collector tracks reward-engine counters for Prometheus export.
// This implementation uses manual metric tracking without external dependencies.
// For production, consider integrating prometheus/client_golang.
type Collector struct {
	mu sync.RWMutex

	// Grant outcomes
	grantsByAction  map[string]int64 // successful grants by action
	denialsByReason map[string]int64 // denied attempts by gate reason
	denialsByAction map[string]int64 // denied attempts by action

	// XP totals
	totalXPAwarded int64
	xpByAction     map[string]int64

	// Referral bonuses paid
	referralBonuses int64

	// System metrics
	startTime time.Time
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		grantsByAction:  make(map[string]int64),
		denialsByReason: make(map[string]int64),
		denialsByAction: make(map[string]int64),
		xpByAction:      make(map[string]int64),
		startTime:       time.Now(),
	}
}

// RecordGrant records a successful XP grant.
func (c *Collector) RecordGrant(action string, amount int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.grantsByAction[action]++
	c.totalXPAwarded += amount
	c.xpByAction[action] += amount
}

// RecordDenial records a gate rejection.
func (c *Collector) RecordDenial(action, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.denialsByReason[reason]++
	if action != "" {
		c.denialsByAction[action]++
	}
}

// RecordReferralBonus records one paid referral bonus.
func (c *Collector) RecordReferralBonus() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.referralBonuses++
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	Uptime          int64
	GrantsByAction  map[string]int64
	DenialsByReason map[string]int64
	DenialsByAction map[string]int64
	TotalXPAwarded  int64
	XPByAction      map[string]int64
	ReferralBonuses int64
}

// GetSnapshot returns a snapshot of current metrics.
func (c *Collector) GetSnapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		Uptime:          int64(time.Since(c.startTime).Seconds()),
		GrantsByAction:  copyMap(c.grantsByAction),
		DenialsByReason: copyMap(c.denialsByReason),
		DenialsByAction: copyMap(c.denialsByAction),
		TotalXPAwarded:  c.totalXPAwarded,
		XPByAction:      copyMap(c.xpByAction),
		ReferralBonuses: c.referralBonuses,
	}
}

func copyMap(m map[string]int64) map[string]int64 {
	result := make(map[string]int64, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

package rules

import (
	"fmt"
)

// Action names recognised by the reward engine. Anything outside this set
// (or outside a loaded rule file) is non-grantable.
const (
	ActionVaultUpload   = "vaultUpload"
	ActionDailyLogin    = "dailyLogin"
	ActionProfileUpdate = "profileUpdate"
	ActionAgentMessage  = "agentMessage"
	ActionNameClaim     = "nameClaim"
	ActionReferral      = "referral"
)

// Rule describes the award policy for a single action. Internal rules are
// only grantable by the engine's own orchestration (the referral payout);
// the event API refuses them.
type Rule struct {
	Action          string `yaml:"action" json:"action"`
	Amount          int64  `yaml:"amount" json:"amount"`
	CooldownSeconds int64  `yaml:"cooldown_seconds" json:"cooldown_seconds"`
	MaxPerDay       int    `yaml:"max_per_day" json:"max_per_day"`
	Internal        bool   `yaml:"internal,omitempty" json:"internal,omitempty"`
}

// Validate checks the rule invariants.
func (r Rule) Validate() error {
	if r.Action == "" {
		return fmt.Errorf("rule missing action name")
	}
	if r.Amount <= 0 {
		return fmt.Errorf("rule %s: amount must be positive, got %d", r.Action, r.Amount)
	}
	if r.CooldownSeconds < 0 {
		return fmt.Errorf("rule %s: cooldown_seconds must be >= 0, got %d", r.Action, r.CooldownSeconds)
	}
	if r.MaxPerDay < 1 {
		return fmt.Errorf("rule %s: max_per_day must be >= 1, got %d", r.Action, r.MaxPerDay)
	}
	return nil
}

// Table is a read-only mapping of action name to rule.
type Table struct {
	rules map[string]Rule
}

// NewTable builds a table from the given rules. Duplicate action names are
// rejected so a config cannot silently shadow an earlier rule.
func NewTable(rules []Rule) (*Table, error) {
	byAction := make(map[string]Rule, len(rules))
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, ok := byAction[r.Action]; ok {
			return nil, fmt.Errorf("duplicate rule for action %s", r.Action)
		}
		byAction[r.Action] = r
	}
	return &Table{rules: byAction}, nil
}

// Lookup returns the rule for the given action. Unknown actions return
// ok=false; callers must treat that as non-grantable.
func (t *Table) Lookup(action string) (Rule, bool) {
	r, ok := t.rules[action]
	return r, ok
}

// Actions returns the configured action names in no particular order.
func (t *Table) Actions() []string {
	out := make([]string, 0, len(t.rules))
	for name := range t.rules {
		out = append(out, name)
	}
	return out
}

// All returns a copy of every configured rule.
func (t *Table) All() []Rule {
	out := make([]Rule, 0, len(t.rules))
	for _, r := range t.rules {
		out = append(out, r)
	}
	return out
}

// Defaults returns the built-in rule set used when no rule file is configured.
func Defaults() *Table {
	t, err := NewTable([]Rule{
		{Action: ActionVaultUpload, Amount: 50, CooldownSeconds: 3600, MaxPerDay: 5},
		{Action: ActionDailyLogin, Amount: 20, CooldownSeconds: 0, MaxPerDay: 1},
		{Action: ActionProfileUpdate, Amount: 10, CooldownSeconds: 600, MaxPerDay: 3},
		{Action: ActionAgentMessage, Amount: 15, CooldownSeconds: 300, MaxPerDay: 20},
		{Action: ActionNameClaim, Amount: 25, CooldownSeconds: 0, MaxPerDay: 1},
		{Action: ActionReferral, Amount: 100, CooldownSeconds: 0, MaxPerDay: 25, Internal: true},
	})
	if err != nil {
		panic(fmt.Sprintf("built-in rules invalid: %v", err))
	}
	return t
}

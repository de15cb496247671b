package rules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsCoverAllActions(t *testing.T) {
	table := Defaults()
	for _, action := range []string{
		ActionVaultUpload, ActionDailyLogin, ActionProfileUpdate,
		ActionAgentMessage, ActionNameClaim, ActionReferral,
	} {
		rule, ok := table.Lookup(action)
		if !ok {
			t.Fatalf("missing default rule for %s", action)
		}
		if rule.Amount <= 0 {
			t.Fatalf("rule %s has non-positive amount %d", action, rule.Amount)
		}
	}

	// Only the referral payout is orchestrator-internal by default.
	for _, rule := range table.All() {
		if rule.Internal != (rule.Action == ActionReferral) {
			t.Fatalf("rule %s internal = %v", rule.Action, rule.Internal)
		}
	}
}

func TestLookupUnknownAction(t *testing.T) {
	table := Defaults()
	if _, ok := table.Lookup("retiredAction"); ok {
		t.Fatal("unknown action must not resolve to a rule")
	}
}

func TestNewTableRejectsDuplicates(t *testing.T) {
	_, err := NewTable([]Rule{
		{Action: "foo", Amount: 10, MaxPerDay: 1},
		{Action: "foo", Amount: 20, MaxPerDay: 2},
	})
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate error, got %v", err)
	}
}

func TestRuleValidate(t *testing.T) {
	cases := []struct {
		name string
		rule Rule
		ok   bool
	}{
		{"valid", Rule{Action: "x", Amount: 1, CooldownSeconds: 0, MaxPerDay: 1}, true},
		{"zero amount", Rule{Action: "x", Amount: 0, MaxPerDay: 1}, false},
		{"negative amount", Rule{Action: "x", Amount: -5, MaxPerDay: 1}, false},
		{"negative cooldown", Rule{Action: "x", Amount: 1, CooldownSeconds: -1, MaxPerDay: 1}, false},
		{"zero max per day", Rule{Action: "x", Amount: 1, MaxPerDay: 0}, false},
		{"missing action", Rule{Amount: 1, MaxPerDay: 1}, false},
	}
	for _, tc := range cases {
		err := tc.rule.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoadFileMergesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	contents := `rules:
  - action: vaultUpload
    amount: 75
    cooldown_seconds: 1800
    max_per_day: 10
  - action: customAction
    amount: 5
    cooldown_seconds: 0
    max_per_day: 100
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}

	table, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	upload, ok := table.Lookup(ActionVaultUpload)
	if !ok || upload.Amount != 75 || upload.CooldownSeconds != 1800 || upload.MaxPerDay != 10 {
		t.Fatalf("vaultUpload override not applied: %+v", upload)
	}
	custom, ok := table.Lookup("customAction")
	if !ok || custom.Amount != 5 {
		t.Fatalf("custom action missing: %+v", custom)
	}
	// Actions absent from the file keep their defaults.
	login, ok := table.Lookup(ActionDailyLogin)
	if !ok || login.Amount != 20 || login.MaxPerDay != 1 {
		t.Fatalf("dailyLogin default lost: %+v", login)
	}
}

func TestLoadFileRejectsInvalidRule(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	contents := `rules:
  - action: vaultUpload
    amount: -1
    max_per_day: 5
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write rules: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected error for negative amount")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

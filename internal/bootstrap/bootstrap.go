package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/freespacenet/fsn-rewards/internal/config"
)

// InitOptions configures the bootstrap process for generating config files.
type InitOptions struct {
	Root         string
	Environment  string
	HTTPAddress  string
	LedgerDriver string
	LedgerPath   string
	IdentityPath string
	Force        bool
}

// Init scaffolds configuration files for the reward service: the global
// setting.ini, the per-environment rewards.ini, and a starter rules.yaml.
func Init(opts InitOptions) error {
	applyDefaults(&opts)
	if err := ensureDir(filepath.Join(opts.Root, "config", opts.Environment)); err != nil {
		return err
	}

	settingPath := filepath.Join(opts.Root, "config", "setting.ini")
	if err := writeFile(settingPath, settingTemplate(opts), opts.Force); err != nil {
		return err
	}

	rewardsPath := filepath.Join(opts.Root, "config", opts.Environment, "rewards.ini")
	if err := writeFile(rewardsPath, rewardsTemplate(opts), opts.Force); err != nil {
		return err
	}

	rulesPath := filepath.Join(opts.Root, "config", "rules.yaml")
	if err := writeFile(rulesPath, rulesTemplate(), opts.Force); err != nil {
		return err
	}

	return nil
}

func applyDefaults(opts *InitOptions) {
	if strings.TrimSpace(opts.Root) == "" {
		opts.Root = "."
	}
	if strings.TrimSpace(opts.Environment) == "" {
		opts.Environment = "dev"
	}
	if strings.TrimSpace(opts.HTTPAddress) == "" {
		opts.HTTPAddress = ":8090"
	}
	if strings.TrimSpace(opts.LedgerDriver) == "" {
		opts.LedgerDriver = "sqlite"
	}
	if strings.TrimSpace(opts.LedgerPath) == "" {
		opts.LedgerPath = config.DefaultLedgerPath()
	}
	if strings.TrimSpace(opts.IdentityPath) == "" {
		opts.IdentityPath = config.DefaultIdentityPath()
	}
}

func ensureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}

func writeFile(path, contents string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("file already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(contents), 0o644)
}

func settingTemplate(opts InitOptions) string {
	return fmt.Sprintf(`# FreeSpace rewards settings
environment=%s
`, opts.Environment)
}

func rewardsTemplate(opts InitOptions) string {
	return fmt.Sprintf(`# Environment specific overrides for %s
http_address=%s
log_level=info
# Dash '-' disables file output.
log_file=logs/rewardsd.log
ledger_driver=%s
ledger_path=%s
identity_path=%s
rules_path=config/rules.yaml
`, opts.Environment, opts.HTTPAddress, opts.LedgerDriver, opts.LedgerPath, opts.IdentityPath)
}

func rulesTemplate() string {
	return `# XP award rules. Actions omitted here keep their built-in defaults.
rules:
  - action: vaultUpload
    amount: 50
    cooldown_seconds: 3600
    max_per_day: 5
  - action: dailyLogin
    amount: 20
    cooldown_seconds: 0
    max_per_day: 1
  - action: profileUpdate
    amount: 10
    cooldown_seconds: 600
    max_per_day: 3
`
}

// Validate ensures required fields are present without modifying files.
func Validate(opts InitOptions) error {
	applyDefaults(&opts)
	switch opts.LedgerDriver {
	case "sqlite", "postgres", "memory":
	default:
		return errors.New("ledger driver must be sqlite, postgres or memory")
	}
	return nil
}

package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	settingsFile     = "config/setting.ini"
	defaultEnv       = "dev"
	envConfigPattern = "config/%s/rewards.ini"
)

// Settings contains global toggles such as the active environment.
type Settings struct {
	Environment string
	Defaults    map[string]string
}

// RewardsConfig describes runtime options for the reward service.
type RewardsConfig struct {
	Environment string
	HTTPAddress string
	// LedgerDriver selects the ledger backend: sqlite, postgres or memory.
	LedgerDriver string
	LedgerPath   string
	PostgresDSN  string
	// Postgres connection pool tuning.
	PGMaxOpenConns     int
	PGMaxIdleConns     int
	PGConnLifetimeMins int
	PGConnIdleTimeMins int
	IdentityPath       string
	// RulesPath optionally points at a YAML rule file overriding the
	// built-in rule table.
	RulesPath string
	LogFile   string
	LogLevel  string
	// DailyCountRetentionDays caps how many day buckets the ledgers keep.
	DailyCountRetentionDays int
	// AsyncEvents defers XP history writes to a background batcher.
	AsyncEvents bool
}

// Load reads the current environment and loads the appropriate rewards
// config file. FSN_* environment variables take precedence over file values.
func Load(root string) (RewardsConfig, error) {
	if root == "" {
		root = "."
	}
	s, err := loadSettings(root)
	if err != nil {
		return RewardsConfig{}, err
	}

	envValues, err := parseINI(filepath.Join(root, fmt.Sprintf(envConfigPattern, s.Environment)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			envValues = map[string]string{}
		} else {
			return RewardsConfig{}, err
		}
	}

	merged := make(map[string]string)
	for k, v := range s.Defaults {
		merged[k] = v
	}
	for k, v := range envValues {
		merged[k] = v
	}

	cfg := RewardsConfig{
		Environment:             s.Environment,
		HTTPAddress:             firstNonEmpty(os.Getenv("FSN_HTTP_ADDRESS"), merged["http_address"], ":8090"),
		LedgerDriver:            strings.ToLower(firstNonEmpty(os.Getenv("FSN_LEDGER_DRIVER"), merged["ledger_driver"], "sqlite")),
		LedgerPath:              firstNonEmpty(os.Getenv("FSN_LEDGER_PATH"), merged["ledger_path"], DefaultLedgerPath()),
		PostgresDSN:             firstNonEmpty(os.Getenv("FSN_POSTGRES_DSN"), merged["postgres_dsn"]),
		PGMaxOpenConns:          parseOptionalInt(firstNonEmpty(os.Getenv("FSN_PG_MAX_OPEN_CONNS"), merged["pg_max_open_conns"]), 20),
		PGMaxIdleConns:          parseOptionalInt(firstNonEmpty(os.Getenv("FSN_PG_MAX_IDLE_CONNS"), merged["pg_max_idle_conns"]), 5),
		PGConnLifetimeMins:      parseOptionalInt(merged["pg_conn_lifetime_minutes"], 60),
		PGConnIdleTimeMins:      parseOptionalInt(merged["pg_conn_idle_minutes"], 10),
		IdentityPath:            firstNonEmpty(os.Getenv("FSN_IDENTITY_PATH"), merged["identity_path"], DefaultIdentityPath()),
		RulesPath:               firstNonEmpty(os.Getenv("FSN_RULES_PATH"), merged["rules_path"]),
		LogFile:                 firstNonEmpty(os.Getenv("FSN_LOG_FILE"), merged["log_file"]),
		LogLevel:                firstNonEmpty(os.Getenv("FSN_LOG_LEVEL"), merged["log_level"], "info"),
		DailyCountRetentionDays: parseOptionalInt(merged["daily_count_retention_days"], 7),
		AsyncEvents:             parseOptionalBool(firstNonEmpty(os.Getenv("FSN_ASYNC_EVENTS"), merged["async_events"]), false),
	}

	switch cfg.LedgerDriver {
	case "sqlite", "memory":
	case "postgres":
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return RewardsConfig{}, errors.New("ledger_driver=postgres requires postgres_dsn")
		}
	default:
		return RewardsConfig{}, fmt.Errorf("unknown ledger_driver %q", cfg.LedgerDriver)
	}

	return cfg, nil
}

func loadSettings(root string) (Settings, error) {
	values, err := parseINI(filepath.Join(root, settingsFile))
	if errors.Is(err, os.ErrNotExist) {
		return Settings{Environment: defaultEnv, Defaults: map[string]string{}}, nil
	}
	if err != nil {
		return Settings{}, err
	}
	env := values["environment"]
	if env == "" {
		env = defaultEnv
	}
	defaults := make(map[string]string)
	for k, v := range values {
		if k == "environment" {
			continue
		}
		defaults[k] = v
	}
	return Settings{Environment: env, Defaults: defaults}, nil
}

func parseINI(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}
		values[strings.ToLower(key)] = val
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

func parseOptionalInt(v string, fallback int) int {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
		return parsed
	}
	return fallback
}

func parseOptionalBool(v string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// DefaultLedgerPath returns the fallback ledger location under the user's
// home directory.
func DefaultLedgerPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "ledger.db"
	}
	return filepath.Join(home, ".fsn-rewards", "ledger.db")
}

// DefaultIdentityPath returns the fallback identity database path.
func DefaultIdentityPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "identity.db"
	}
	return filepath.Join(home, ".fsn-rewards", "identity.db")
}

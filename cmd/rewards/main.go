package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/freespacenet/fsn-rewards/internal/bootstrap"
	"github.com/freespacenet/fsn-rewards/internal/client"
	"github.com/freespacenet/fsn-rewards/internal/version"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "init":
		if err := runInit(os.Args[2:]); err != nil {
			log.Fatalf("rewards init failed: %v", err)
		}
		fmt.Println("rewards config initialised")
	case "status":
		if err := runStatus(os.Args[2:]); err != nil {
			log.Fatalf("rewards status failed: %v", err)
		}
	case "ledger":
		if err := runLedger(os.Args[2:]); err != nil {
			log.Fatalf("rewards ledger failed: %v", err)
		}
	case "report":
		if err := runReport(os.Args[2:]); err != nil {
			log.Fatalf("rewards report failed: %v", err)
		}
	case "claim":
		if err := runClaim(os.Args[2:]); err != nil {
			log.Fatalf("rewards claim failed: %v", err)
		}
	case "rules":
		if err := runRules(os.Args[2:]); err != nil {
			log.Fatalf("rewards rules failed: %v", err)
		}
	case "version":
		fmt.Println(version.FullInfo())
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		printUsage()
		os.Exit(2)
	}
}

func printUsage() {
	fmt.Print(`FreeSpace Rewards CLI

Usage:
  rewards init [flags]                  Generate config files for rewardsd
  rewards status --user <id>            Show a user's XP and derived statuses
  rewards ledger --user <id>            Show a user's recent XP events
  rewards report --user <id> --action <name>
                                        Report an action event for a user
  rewards claim --user <id> --name <rep-name> [--referrer <rep-name>]
                                        Claim a .rep name for a user
  rewards rules                         Show the active rule table
  rewards version                       Print version information

Common flags:
  --server string    rewardsd base URL (default 'http://localhost:8090',
                     env FSN_SERVER)

Flags for init:
  --root string            output directory (default '.')
  --env string             environment name (default 'dev')
  --http-address string    bind address for rewardsd (default ':8090')
  --ledger-driver string   ledger backend: sqlite, postgres or memory
  --ledger-path string     ledger SQLite path (default ~/.fsn-rewards/ledger.db)
  --identity-path string   identity SQLite path (default ~/.fsn-rewards/identity.db)
  --force                  overwrite existing files
`)
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	root := fs.String("root", ".", "config root")
	env := fs.String("env", "dev", "environment name")
	httpAddr := fs.String("http-address", ":8090", "rewardsd HTTP bind address")
	ledgerDriver := fs.String("ledger-driver", "sqlite", "ledger backend")
	ledgerPath := fs.String("ledger-path", "", "ledger sqlite path")
	identityPath := fs.String("identity-path", "", "identity sqlite path")
	force := fs.Bool("force", false, "overwrite existing files")
	if err := fs.Parse(args); err != nil {
		return err
	}
	opts := bootstrap.InitOptions{
		Root:         *root,
		Environment:  *env,
		HTTPAddress:  *httpAddr,
		LedgerDriver: *ledgerDriver,
		LedgerPath:   *ledgerPath,
		IdentityPath: *identityPath,
		Force:        *force,
	}
	if err := bootstrap.Validate(opts); err != nil {
		return err
	}
	return bootstrap.Init(opts)
}

func newClient(fs *flag.FlagSet, args []string) (*client.RewardsClient, error) {
	server := fs.String("server", "", "rewardsd base URL")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	base := strings.TrimSpace(*server)
	if base == "" {
		base = strings.TrimSpace(os.Getenv("FSN_SERVER"))
	}
	if base == "" {
		base = "http://localhost:8090"
	}
	return client.NewRewardsClient(base, nil)
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	user := fs.String("user", "", "user id")
	c, err := newClient(fs, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*user) == "" {
		return fmt.Errorf("--user is required")
	}

	ctx, cancel := commandContext()
	defer cancel()
	snap, err := c.GetStatus(ctx, *user)
	if err != nil {
		return err
	}
	return printJSON(snap)
}

func runLedger(args []string) error {
	fs := flag.NewFlagSet("ledger", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	user := fs.String("user", "", "user id")
	limit := fs.Int("limit", 20, "maximum events to show")
	c, err := newClient(fs, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*user) == "" {
		return fmt.Errorf("--user is required")
	}

	ctx, cancel := commandContext()
	defer cancel()
	events, err := c.GetLedger(ctx, *user, *limit)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Println("no XP events recorded")
		return nil
	}
	for _, ev := range events {
		fmt.Printf("%s  %-16s +%-5d total=%d\n",
			ev.CreatedAt.UTC().Format(time.RFC3339), ev.Action, ev.Amount, ev.TotalAfter)
	}
	return nil
}

func runReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	user := fs.String("user", "", "user id")
	action := fs.String("action", "", "action name")
	c, err := newClient(fs, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*user) == "" {
		return fmt.Errorf("--user is required")
	}
	if strings.TrimSpace(*action) == "" {
		return fmt.Errorf("--action is required")
	}

	ctx, cancel := commandContext()
	defer cancel()
	att, err := c.ReportAction(ctx, *user, *action)
	if err != nil {
		return err
	}
	if att.Granted {
		fmt.Printf("granted +%d XP (total %d)\n", att.Amount, att.TotalXP)
	} else {
		fmt.Printf("not granted: %s (total %d)\n", att.Reason, att.TotalXP)
	}
	return nil
}

func runClaim(args []string) error {
	fs := flag.NewFlagSet("claim", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	user := fs.String("user", "", "user id")
	name := fs.String("name", "", ".rep name to claim")
	referrer := fs.String("referrer", "", "referrer's .rep name")
	c, err := newClient(fs, args)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*user) == "" {
		return fmt.Errorf("--user is required")
	}
	if strings.TrimSpace(*name) == "" {
		return fmt.Errorf("--name is required")
	}

	ctx, cancel := commandContext()
	defer cancel()
	res, err := c.ClaimName(ctx, *user, *name, *referrer)
	if err != nil {
		return err
	}
	fmt.Printf("claimed %s.rep for user %s\n", res.User.Name, res.User.ID)
	if res.Reward.XPGranted {
		fmt.Printf("awarded claim XP (total %d)\n", res.Reward.TotalXP)
	}
	return nil
}

func runRules(args []string) error {
	fs := flag.NewFlagSet("rules", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	c, err := newClient(fs, args)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()
	rules, err := c.GetRules(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%-16s %8s %10s %8s\n", "ACTION", "XP", "COOLDOWN", "MAX/DAY")
	for _, r := range rules {
		fmt.Printf("%-16s %8d %9ds %8d\n", r.Action, r.Amount, r.CooldownSeconds, r.MaxPerDay)
	}
	return nil
}

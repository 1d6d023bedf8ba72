package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goodtune/daygauge/internal/config"
	"github.com/goodtune/daygauge/internal/identity"
	"github.com/goodtune/daygauge/internal/submit"
	"github.com/goodtune/daygauge/internal/web"
	"github.com/goodtune/daygauge/internal/window"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set [flags] START",
	Short: "Set the start of the day",
	Long: `Store START as the owner's new start time. START is a wall-clock time in
the configured display timezone (` + submit.InputLayout + `) or an RFC 3339
timestamp. It may be in the past but not in the future. Every open gauge for
the owner switches to it.`,
	Example: `  daygauge set --token $TOKEN 2024-01-01T07:30
  daygauge set 2024-01-01T07:30:00+10:00`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSet,
}

func init() {
	addTokenFlag(setCmd)
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := quietLogger()

	loc, err := cfg.Display.Location()
	if err != nil {
		return fmt.Errorf("failed to load display timezone: %w", err)
	}

	auth, err := newAuthority(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize identity: %w", err)
	}
	owner, err := resolveOwner(auth)
	if err != nil {
		return err
	}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	clock := clockwork.NewRealClock()
	submitter := submit.New(store.Starts(), clock, loc, logger)

	// "2024-01-01 07:30" arrives as two arguments
	candidate := strings.Join(args, "T")
	record, err := submitter.Submit(cmd.Context(), candidate, owner)
	if errors.Is(err, identity.ErrAuthRequired) {
		return fmt.Errorf("a token is required (--token or $%s)", tokenEnv)
	}
	if errors.Is(err, submit.ErrInvalidInput) {
		return fmt.Errorf("%w (expected %s)", err, submit.InputLayout)
	}
	if err != nil {
		return err
	}

	m := window.Compute(record.Start, clock.Now(), window.Length)
	printStatus(cmd.OutOrStdout(), owner, web.NewReadout(m, loc))
	return nil
}

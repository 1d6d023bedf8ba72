package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/goodtune/daygauge/internal/config"
	"github.com/goodtune/daygauge/internal/storage"
	"github.com/goodtune/daygauge/internal/web"
	"github.com/goodtune/daygauge/internal/window"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print how much of the day is spent",
	Long:  `Print the owner's current start time and the day window breakdown once.`,
	Example: `  daygauge status --token $TOKEN
  DAYGAUGE_TOKEN=$TOKEN daygauge -c config.yaml status`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	addTokenFlag(statusCmd)
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

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
	if owner == "" {
		return fmt.Errorf("a token is required (--token or $%s)", tokenEnv)
	}

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	record, err := store.Starts().Latest(cmd.Context(), owner)
	if errors.Is(err, storage.ErrNotFound) {
		printNoRecord(cmd.OutOrStdout(), owner)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read start time: %w", err)
	}

	m := window.Compute(record.Start, clockwork.NewRealClock().Now(), window.Length)
	printStatus(cmd.OutOrStdout(), owner, web.NewReadout(m, loc))
	return nil
}

// quietLogger reports only errors, on stderr, for commands that print their
// own output.
func quietLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.ErrorLevel).With().Timestamp().Logger()
}

var rule = strings.Repeat("━", 50)

func printNoRecord(w io.Writer, owner string) {
	yellow := color.New(color.FgYellow, color.Bold)

	_, _ = fmt.Fprintf(w, "Owner:      %s\n", owner)
	_, _ = yellow.Fprintln(w, "No start time yet. Set one with `daygauge set`.")
}

func printStatus(w io.Writer, owner string, r web.Readout) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	_, _ = fmt.Fprintln(w)
	_, _ = cyan.Fprintln(w, rule)
	_, _ = cyan.Fprintln(w, "DAY STATUS")
	_, _ = cyan.Fprintln(w, rule)
	_, _ = fmt.Fprintln(w)

	_, _ = fmt.Fprintf(w, "Owner:      %s\n", owner)
	_, _ = fmt.Fprintf(w, "Now:        %s\n", r.Clock)
	_, _ = fmt.Fprintf(w, "Started:    %s\n", r.Start)
	_, _ = fmt.Fprintf(w, "Ends:       %s\n", r.End)
	_, _ = fmt.Fprintln(w)

	_, _ = cyan.Fprint(w, "Day Spent:  ")
	if r.Overrun {
		_, _ = red.Fprintln(w, r.PercentSpent)
	} else {
		_, _ = green.Fprintln(w, r.PercentSpent)
	}
	_, _ = fmt.Fprintf(w, "            %s (%s)\n", r.Spent, r.SpentMinutes)
	_, _ = fmt.Fprintf(w, "            %s quarter hours, %s ten-minute blocks\n", r.QuarterHoursSpent, r.TenMinutesSpent)

	_, _ = cyan.Fprint(w, "Day Left:   ")
	_, _ = fmt.Fprintln(w, r.PercentLeft)
	_, _ = fmt.Fprintf(w, "            %s (%s)\n", r.Left, r.LeftMinutes)
	_, _ = fmt.Fprintf(w, "            %s quarter hours, %s ten-minute blocks\n", r.QuarterHoursLeft, r.TenMinutesLeft)

	_, _ = fmt.Fprintln(w)
	_, _ = cyan.Fprintln(w, rule)
	_, _ = fmt.Fprintln(w)
}

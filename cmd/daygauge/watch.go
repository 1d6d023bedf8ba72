package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/goodtune/daygauge/internal/config"
	"github.com/goodtune/daygauge/internal/display"
	"github.com/goodtune/daygauge/internal/submit"
	"github.com/goodtune/daygauge/internal/tui"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var watchLogFile string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Show the live day gauge in the terminal",
	Long: `Show the day gauge in the terminal. The gauge follows the owner's latest
start time and refreshes once a second. Press e to set a new start time.`,
	Example: `  daygauge watch --token $TOKEN
  daygauge -c config.yaml watch --log-file /tmp/daygauge.log`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	addTokenFlag(watchCmd)
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "Write logs to this file (logs are discarded otherwise)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// The screen belongs to bubbletea, so logs go to a file or nowhere.
	var out io.Writer = io.Discard
	if watchLogFile != "" {
		f, err := os.OpenFile(watchLogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		out = f
	}
	logger := setupLogger(cfg.Logging, out)

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

	model := tui.NewModel(func(ctx context.Context, candidate string) error {
		_, err := submitter.Submit(ctx, candidate, owner)
		return err
	}, clock, loc)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

	syncer := display.New(store.Starts(), tui.NewSurface(program.Send), display.Config{
		Clock:        clock,
		Location:     loc,
		TickInterval: display.NarrowTickInterval,
		Surface:      "tui",
	}, logger)
	syncer.SetOwner(owner)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := syncer.Run(gctx)
		program.Quit()
		return err
	})
	g.Go(func() error {
		defer cancel()
		if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
			return fmt.Errorf("terminal: %w", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Debug().Interface("stats", syncer.Stats()).Msg("Watch ended")
	return err
}

package main

import (
	"fmt"
	"os"

	"github.com/goodtune/daygauge/internal/config"
	"github.com/goodtune/daygauge/internal/identity"
	"github.com/spf13/cobra"
)

// tokenEnv is read when --token is not given.
const tokenEnv = "DAYGAUGE_TOKEN"

var tokenFlag string

var tokenCmd = &cobra.Command{
	Use:   "token OWNER",
	Short: "Issue an owner token",
	Long: `Issue a signed token for OWNER. Pass it to the web page, to watch, set
and status with --token, or export it as DAYGAUGE_TOKEN.`,
	Example: `  daygauge token alice
  export DAYGAUGE_TOKEN=$(daygauge -c config.yaml token alice)`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	auth, err := newAuthority(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize identity: %w", err)
	}

	token, err := auth.Issue(args[0])
	if err != nil {
		return fmt.Errorf("failed to issue token: %w", err)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

// addTokenFlag registers --token on a command that acts for an owner.
func addTokenFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&tokenFlag, "token", "", "Owner token (defaults to $"+tokenEnv+")")
}

// resolveOwner verifies the token from --token or the environment. An empty
// owner with a nil error means no token was supplied.
func resolveOwner(auth *identity.Authority) (string, error) {
	token := tokenFlag
	if token == "" {
		token = os.Getenv(tokenEnv)
	}
	if token == "" {
		return "", nil
	}

	owner, err := auth.Verify(token)
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	return owner, nil
}

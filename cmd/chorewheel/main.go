// Command chorewheel runs the household data service and drives the client
// stores from the command line.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dukerupert/chorewheel/internal/config"
	"github.com/dukerupert/chorewheel/internal/logging"
)

// app carries what every subcommand needs once the root pre-run has loaded it.
type app struct {
	configPath string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "chorewheel",
		Short:         "Shared chores, expenses and nudges for a household",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = logging.Setup(cfg.LogLevel, cfg.LogFormat)
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file (CHOREWHEEL_* env vars override it)")

	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newVAPIDKeysCmd(),
		newSignUpCmd(a),
		newSignInCmd(a),
		newSignOutCmd(a),
		newHouseholdCmd(a),
		newGenerateCmd(a),
		newLeaderboardCmd(a),
		newNudgesCmd(a),
		newExpensesCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		slog.Error("chorewheel failed", "error", err)
		stop()
		os.Exit(1)
	}
}

// Package cli implements the polarsim commands.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/talgya/polarsim/internal/config"
	"github.com/talgya/polarsim/internal/persistence"
)

var (
	configPath string
	setFlags   []string
	dbPath     string
	logLevel   string
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:   "polarsim",
	Short: "Agent-based simulation of political polarization",
	Long: "Simulates humans and media outlets on a grid. Humans consume media and talk " +
		"with neighbors, shift ideology and affective polarization, and move when unhappy.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(logLevel)
	},
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML parameter file")
	RootCmd.PersistentFlags().StringArrayVarP(&setFlags, "set", "s", nil, "Override a parameter: key=value (repeatable)")
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $POLARSIM_DB or data/polarsim.db)")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn or error")
}

func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return fmt.Errorf("log level %q: %w", level, err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
	return nil
}

// loadParams resolves parameters from defaults, the config file, the
// environment and --set overrides, in that order.
func loadParams() (config.Params, error) {
	p := config.Default()
	if configPath != "" {
		var err error
		if p, err = config.Load(configPath); err != nil {
			return p, err
		}
	}
	if err := p.ApplyEnv(); err != nil {
		return p, err
	}
	if err := p.SetPairs(setFlags); err != nil {
		return p, err
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func runtimeConfig() config.Runtime {
	rt := config.LoadRuntime()
	if dbPath != "" {
		rt.DBPath = dbPath
	}
	return rt
}

func openDB(rt config.Runtime) (*persistence.DB, error) {
	db, err := persistence.Open(rt.DBPath)
	if err != nil {
		return nil, err
	}
	slog.Debug("database opened", "path", rt.DBPath)
	return db, nil
}

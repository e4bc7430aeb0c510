package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/candemir/geopact/internal/config"
	"github.com/candemir/geopact/internal/engine"
	"github.com/candemir/geopact/internal/store"
	"github.com/candemir/geopact/internal/telemetry"
)

var rootCmd = &cobra.Command{
	Use:   "geopact",
	Short: "Location-based challenge tracker",
	Long: "Geopact tracks geofenced place-visit challenges: weekly goals,\n" +
		"combo streaks, forgiveness chances, and arrival alarms.",
	SilenceUsage: true,
}

func Execute() error {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides GEOPACT_DB env var)")

	rootCmd.AddCommand(challengeCmd)
	rootCmd.AddCommand(checkinCmd)
	rootCmd.AddCommand(advanceCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(alarmCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest
// priority), then the configured path, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, cfg config.Config) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if cfg.DBPath != "" {
		return cfg.DBPath, store.EnsureDir(cfg.DBPath)
	}
	return store.DefaultDBPath()
}

// openStore loads configuration and opens the store. The caller
// closes the returned store.
func openStore(cmd *cobra.Command) (*store.Store, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, err
	}
	dbPath, err := resolveDBPath(cmd, cfg)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("open store: %w", err)
	}
	return st, cfg, nil
}

// openEngine opens the store and builds the progress engine on top.
func openEngine(cmd *cobra.Command) (*store.Store, *engine.Engine, config.Config, error) {
	st, cfg, err := openStore(cmd)
	if err != nil {
		return nil, nil, config.Config{}, err
	}
	sink := telemetry.NewEmitter(cmd.ErrOrStderr(), cfg.Clock())
	eng := engine.New(st, cfg.Clock(), sink)
	return st, eng, cfg, nil
}

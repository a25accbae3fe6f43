package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"fecharvest/internal/loader"
)

var migrationsDir string

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Load emitted artifacts for a cycle into the warehouse",
	Run:   runLoad,
}

func init() {
	loadCmd.Flags().StringVar(&migrationsDir, "migrations", "migrations", "goose migrations directory")
	rootCmd.AddCommand(loadCmd)
}

func runLoad(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	if cfg.Database.URL == "" {
		slog.Error("database.url is required for load")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := loader.NewDB(ctx, cfg.Database, migrationsDir)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	if _, err := loader.New(db).LoadCycle(ctx, cfg.Paths.OutputDir, cycle); err != nil {
		slog.Error("Failed to load cycle", "cycle", cycle, "error", err)
		os.Exit(1)
	}
}

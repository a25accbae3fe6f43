package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"fecharvest/internal/collect/progress"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Discard the checkpoint for a cycle",
	Run:   runReset,
}

func init() {
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	store := progress.NewFileStore(cfg.Paths.CheckpointDir)
	if err := store.Reset(cycle); err != nil {
		slog.Error("Failed to reset checkpoint", "cycle", cycle, "error", err)
		os.Exit(1)
	}
	fmt.Printf("Checkpoint for cycle %d discarded\n", cycle)
}

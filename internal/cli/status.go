package cli

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"fecharvest/internal/collect/progress"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show checkpoint progress for a cycle",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	store := progress.NewFileStore(cfg.Paths.CheckpointDir)
	state, err := store.Load(cycle)
	if err != nil {
		slog.Error("Failed to load checkpoint", "cycle", cycle, "error", err)
		os.Exit(1)
	}
	if state == nil {
		fmt.Printf("No checkpoint for cycle %d\n", cycle)
		return
	}

	attempted := len(state.CollectedEntities()) + len(state.NoData) +
		len(state.RetryQueue) + len(state.Failures)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CYCLE\tRUN\tPASS\tATTEMPTED\tCOLLECTED\tNO DATA\tRETRY QUEUE\tFAILURES")
	_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%d/%d\t%d\t%d\t%d\t%d\n",
		state.Cycle,
		state.RunID,
		state.Pass,
		attempted, len(state.Entities),
		len(state.CollectedEntities()),
		len(state.NoData),
		len(state.RetryQueue),
		len(state.Failures),
	)
	_ = w.Flush()

	if len(state.RetryQueue) == 0 {
		return
	}

	fmt.Println()
	qw := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(qw, "QUEUED ENTITY\tKIND\tRETRIES\tLAST ERROR")
	for _, entry := range state.RetryQueue {
		_, _ = fmt.Fprintf(qw, "%s\t%s\t%d\t%s\n",
			entry.Entity.ID, entry.Kind, entry.RetryCount, entry.Message)
	}
	_ = qw.Flush()
}

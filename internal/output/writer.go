// Package output serializes the terminal partitions of a collection run.
//
// Four artifacts are written per cycle: collected financials, quarterly
// aggregated financials, the no-data entity list, and residual failures.
// The quarterly file is the canonical feed for the downstream loader; the
// raw financials file exists for audit and debugging.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"fecharvest/internal/core/domain"
)

// Partitions holds the four terminal artifacts of a run.
type Partitions struct {
	Collected []domain.FinancialRecord
	Quarterly []domain.QuarterlyTotal
	NoData    []domain.Entity
	Failures  []domain.FailureRecord
}

// Paths names the artifact files for a cycle under a directory.
type Paths struct {
	Collected string
	Quarterly string
	NoData    string
	Failures  string
}

// ArtifactPaths returns the artifact file locations for a cycle.
func ArtifactPaths(dir string, cycle int) Paths {
	return Paths{
		Collected: filepath.Join(dir, fmt.Sprintf("financials_%d.json", cycle)),
		Quarterly: filepath.Join(dir, fmt.Sprintf("quarterly_%d.json", cycle)),
		NoData:    filepath.Join(dir, fmt.Sprintf("no_data_%d.json", cycle)),
		Failures:  filepath.Join(dir, fmt.Sprintf("failures_%d.json", cycle)),
	}
}

// Writer emits run artifacts to a directory.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Write serializes all four partitions for a cycle. Output order is
// deterministic (entity ID ascending, then period start) so repeated runs
// over identical input produce byte-stable artifacts. Any write failure is
// fatal to the run; the checkpoint remains valid for a future retry.
func (w *Writer) Write(cycle int, parts Partitions) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	sortPartitions(&parts)
	paths := ArtifactPaths(w.dir, cycle)

	if err := writeJSON(paths.Collected, parts.Collected); err != nil {
		return err
	}
	if err := writeJSON(paths.Quarterly, parts.Quarterly); err != nil {
		return err
	}
	if err := writeJSON(paths.NoData, parts.NoData); err != nil {
		return err
	}
	return writeJSON(paths.Failures, parts.Failures)
}

func sortPartitions(parts *Partitions) {
	sort.Slice(parts.Collected, func(i, j int) bool {
		a, b := parts.Collected[i], parts.Collected[j]
		if a.EntityID != b.EntityID {
			return a.EntityID < b.EntityID
		}
		if a.CommitteeID != b.CommitteeID {
			return a.CommitteeID < b.CommitteeID
		}
		return a.PeriodStart.Before(b.PeriodStart)
	})
	sort.Slice(parts.Quarterly, func(i, j int) bool {
		a, b := parts.Quarterly[i], parts.Quarterly[j]
		if a.EntityID != b.EntityID {
			return a.EntityID < b.EntityID
		}
		return a.PeriodStart.Before(b.PeriodStart)
	})
	sort.Slice(parts.NoData, func(i, j int) bool {
		return parts.NoData[i].ID < parts.NoData[j].ID
	})
	sort.Slice(parts.Failures, func(i, j int) bool {
		return parts.Failures[i].EntityID < parts.Failures[j].EntityID
	})
}

// writeJSON writes to a temp file in the target directory and renames, so a
// crash mid-write never leaves a truncated artifact.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"fecharvest/internal/core/domain"
	"fecharvest/internal/output"
)

// Summary reports how many rows each artifact contributed.
type Summary struct {
	Financials int
	Quarterly  int
	NoData     int
	Failures   int
}

// Loader reads run artifacts and upserts them into the warehouse.
type Loader struct {
	db  *DB
	log *slog.Logger
}

// New creates a loader over an open database.
func New(db *DB) *Loader {
	return &Loader{db: db, log: slog.Default()}
}

// LoadCycle ingests all four artifacts for a cycle from dir. Records are
// upserted keyed on (entity, committee, period) so re-loading the same
// artifacts is idempotent.
func (l *Loader) LoadCycle(ctx context.Context, dir string, cycle int) (*Summary, error) {
	paths := output.ArtifactPaths(dir, cycle)
	summary := &Summary{}

	var financials []domain.FinancialRecord
	if err := readArtifact(paths.Collected, &financials); err != nil {
		return nil, err
	}
	for _, rec := range financials {
		if err := l.upsertFinancial(ctx, cycle, rec); err != nil {
			return nil, fmt.Errorf("failed to upsert financial for %s: %w", rec.EntityID, err)
		}
	}
	summary.Financials = len(financials)

	var quarterly []domain.QuarterlyTotal
	if err := readArtifact(paths.Quarterly, &quarterly); err != nil {
		return nil, err
	}
	for _, q := range quarterly {
		if err := l.upsertQuarterly(ctx, cycle, q); err != nil {
			return nil, fmt.Errorf("failed to upsert quarterly for %s: %w", q.EntityID, err)
		}
	}
	summary.Quarterly = len(quarterly)

	var noData []domain.Entity
	if err := readArtifact(paths.NoData, &noData); err != nil {
		return nil, err
	}
	for _, e := range noData {
		if err := l.upsertNoData(ctx, cycle, e); err != nil {
			return nil, fmt.Errorf("failed to upsert no-data entity %s: %w", e.ID, err)
		}
	}
	summary.NoData = len(noData)

	var failures []domain.FailureRecord
	if err := readArtifact(paths.Failures, &failures); err != nil {
		return nil, err
	}
	for _, f := range failures {
		if err := l.insertFailure(ctx, cycle, f); err != nil {
			return nil, fmt.Errorf("failed to insert failure for %s: %w", f.EntityID, err)
		}
	}
	summary.Failures = len(failures)

	l.log.Info("Cycle loaded",
		"cycle", cycle,
		"financials", summary.Financials,
		"quarterly", summary.Quarterly,
		"no_data", summary.NoData,
		"failures", summary.Failures,
	)

	return summary, nil
}

func (l *Loader) upsertFinancial(ctx context.Context, cycle int, rec domain.FinancialRecord) error {
	query := `
		INSERT INTO financials (cycle, entity_id, entity_name, party, state, district,
			committee_id, committee_name, designation, committee_type,
			period_start, period_end, receipts, disbursements, cash_on_hand)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (cycle, entity_id, committee_id, period_start) DO UPDATE SET
			receipts = EXCLUDED.receipts,
			disbursements = EXCLUDED.disbursements,
			cash_on_hand = EXCLUDED.cash_on_hand,
			period_end = EXCLUDED.period_end
	`
	_, err := l.db.ExecContext(ctx, query,
		cycle, rec.EntityID, rec.EntityName, rec.Party, rec.State, rec.District,
		rec.CommitteeID, rec.CommitteeName, string(rec.Designation), rec.CommitteeType,
		rec.PeriodStart, rec.PeriodEnd, rec.Receipts, rec.Disbursements, rec.CashOnHand,
	)
	return err
}

func (l *Loader) upsertQuarterly(ctx context.Context, cycle int, q domain.QuarterlyTotal) error {
	query := `
		INSERT INTO quarterly_totals (cycle, entity_id, entity_name, party, state, district,
			period_start, period_end, receipts, disbursements, cash_on_hand)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (cycle, entity_id, period_start) DO UPDATE SET
			receipts = EXCLUDED.receipts,
			disbursements = EXCLUDED.disbursements,
			cash_on_hand = EXCLUDED.cash_on_hand,
			period_end = EXCLUDED.period_end
	`
	_, err := l.db.ExecContext(ctx, query,
		cycle, q.EntityID, q.EntityName, q.Party, q.State, q.District,
		q.PeriodStart, q.PeriodEnd, q.Receipts, q.Disbursements, q.CashOnHand,
	)
	return err
}

func (l *Loader) upsertNoData(ctx context.Context, cycle int, e domain.Entity) error {
	query := `
		INSERT INTO no_data_entities (cycle, entity_id, entity_name, party, state, district)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (cycle, entity_id) DO NOTHING
	`
	_, err := l.db.ExecContext(ctx, query, cycle, e.ID, e.Name, e.Party, e.State, e.District)
	return err
}

func (l *Loader) insertFailure(ctx context.Context, cycle int, f domain.FailureRecord) error {
	query := `
		INSERT INTO residual_failures (id, cycle, entity_id, entity_name, error_kind,
			error_message, retry_count, pass, failed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`
	_, err := l.db.ExecContext(ctx, query,
		f.ID, cycle, f.EntityID, f.Name, string(f.Kind),
		f.Message, f.RetryCount, f.Pass, f.Timestamp,
	)
	return err
}

func readArtifact(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse artifact %s: %w", path, err)
	}
	return nil
}

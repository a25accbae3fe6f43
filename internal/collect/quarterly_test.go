package collect

import (
	"testing"
	"time"

	"fecharvest/internal/core/domain"
)

func rec(entityID, committeeID string, start, end time.Time, receipts, disb, cash float64) domain.FinancialRecord {
	return domain.FinancialRecord{
		EntityID:      entityID,
		EntityName:    "Candidate " + entityID,
		CommitteeID:   committeeID,
		PeriodStart:   start,
		PeriodEnd:     end,
		Receipts:      receipts,
		Disbursements: disb,
		CashOnHand:    cash,
	}
}

func TestAggregateQuarterly_SumsPerEntityPerPeriod(t *testing.T) {
	q1s := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	q1e := time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC)
	q2s := time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)
	q2e := time.Date(2023, 6, 30, 0, 0, 0, 0, time.UTC)

	records := []domain.FinancialRecord{
		// Two committees of the same entity overlap in Q1.
		rec("E1", "C1", q1s, q1e, 100, 40, 60),
		rec("E1", "C2", q1s, q1e, 50, 10, 40),
		rec("E1", "C1", q2s, q2e, 200, 80, 180),
		rec("E2", "C3", q1s, q1e, 10, 5, 5),
	}

	totals := AggregateQuarterly(records)

	if len(totals) != 3 {
		t.Fatalf("expected 3 aggregates, got %d", len(totals))
	}

	// Output is sorted entity-ID ascending, then period.
	if totals[0].EntityID != "E1" || !totals[0].PeriodStart.Equal(q1s) {
		t.Fatalf("unexpected first aggregate: %+v", totals[0])
	}
	if totals[0].Receipts != 150 || totals[0].Disbursements != 50 || totals[0].CashOnHand != 100 {
		t.Errorf("Q1 sums wrong: %+v", totals[0])
	}
	if totals[1].Receipts != 200 {
		t.Errorf("Q2 should be unmerged: %+v", totals[1])
	}
	if totals[2].EntityID != "E2" || totals[2].Receipts != 10 {
		t.Errorf("E2 aggregate wrong: %+v", totals[2])
	}
}

func TestAggregateQuarterly_Empty(t *testing.T) {
	if totals := AggregateQuarterly(nil); len(totals) != 0 {
		t.Errorf("expected no aggregates, got %d", len(totals))
	}
}

func TestAggregateQuarterly_DistinctPeriodsNotMerged(t *testing.T) {
	q1s := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	q1e := time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC)
	// Same start, different end: a different reporting period.
	altEnd := time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)

	totals := AggregateQuarterly([]domain.FinancialRecord{
		rec("E1", "C1", q1s, q1e, 100, 0, 0),
		rec("E1", "C1", q1s, altEnd, 30, 0, 0),
	})

	if len(totals) != 2 {
		t.Fatalf("expected 2 aggregates for distinct periods, got %d", len(totals))
	}
}

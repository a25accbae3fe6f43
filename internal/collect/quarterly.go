package collect

import (
	"sort"
	"time"

	"fecharvest/internal/core/domain"
)

type periodKey struct {
	entityID string
	start    time.Time
	end      time.Time
}

// AggregateQuarterly groups collected records per entity by reporting period
// and sums the period-scoped amounts. Year-to-date columns are never used
// here: they reset at calendar boundaries, which makes them wrong for a
// two-year cycle. Cash on hand is a point-in-time balance, summed across an
// entity's committees within the same period.
func AggregateQuarterly(records []domain.FinancialRecord) []domain.QuarterlyTotal {
	totals := make(map[periodKey]*domain.QuarterlyTotal)

	for _, rec := range records {
		key := periodKey{entityID: rec.EntityID, start: rec.PeriodStart, end: rec.PeriodEnd}
		agg, ok := totals[key]
		if !ok {
			agg = &domain.QuarterlyTotal{
				EntityID:    rec.EntityID,
				EntityName:  rec.EntityName,
				Party:       rec.Party,
				State:       rec.State,
				District:    rec.District,
				PeriodStart: rec.PeriodStart,
				PeriodEnd:   rec.PeriodEnd,
			}
			totals[key] = agg
		}
		agg.Receipts += rec.Receipts
		agg.Disbursements += rec.Disbursements
		agg.CashOnHand += rec.CashOnHand
	}

	out := make([]domain.QuarterlyTotal, 0, len(totals))
	for _, agg := range totals {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntityID != out[j].EntityID {
			return out[i].EntityID < out[j].EntityID
		}
		return out[i].PeriodStart.Before(out[j].PeriodStart)
	})
	return out
}

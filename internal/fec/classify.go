package fec

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"fecharvest/internal/core/domain"
)

// Classify maps the outcome of one entity fetch to a disposition. This is
// the routing decision for the whole pipeline; the critical distinction is
// NoData (the API explicitly said "no committee" or "no filings") versus a
// transient empty response, which must be retried rather than silently
// recorded as absence.
func Classify(entity domain.Entity, data *EntityData, err error) domain.Disposition {
	if err != nil {
		return classifyError(err)
	}

	if data.NoCommittees {
		return domain.NoData()
	}

	if len(data.Committees) == 0 {
		// Committees existed but none carried an attributable
		// designation. Confirmed absence, same as no committees.
		return domain.NoData()
	}

	var records []domain.FinancialRecord
	allExplicitEmpty := true
	for _, cr := range data.Committees {
		if !cr.ExplicitEmpty {
			allExplicitEmpty = false
		}
		for _, report := range cr.Reports {
			rec, err := toRecord(entity, cr.Committee, report)
			if err != nil {
				return domain.Fatal(err.Error())
			}
			records = append(records, rec)
		}
	}

	if len(records) == 0 {
		if allExplicitEmpty {
			return domain.NoData()
		}
		// Empty without an explicit signal is ambiguous; err toward
		// retry over silent loss.
		return domain.Retryable(domain.ErrorKindServer, "empty payload without no-data signal")
	}

	return domain.Succeeded(records)
}

func classifyError(err error) domain.Disposition {
	var callErr *CallError
	if !errors.As(err, &callErr) {
		return domain.Retryable(domain.ErrorKindNetwork, err.Error())
	}

	if callErr.Status == http.StatusTooManyRequests {
		return domain.RateLimited(callErr.Message)
	}

	switch callErr.Kind {
	case domain.ErrorKindTimeout:
		return domain.Retryable(domain.ErrorKindTimeout, callErr.Message)
	case domain.ErrorKindNetwork:
		return domain.Retryable(domain.ErrorKindNetwork, callErr.Message)
	case domain.ErrorKindServer:
		return domain.Retryable(domain.ErrorKindServer, callErr.Message)
	case domain.ErrorKindSchema:
		return domain.Fatal(callErr.Message)
	}

	if callErr.Status >= 500 {
		return domain.Retryable(domain.ErrorKindServer, callErr.Message)
	}

	// Remaining 4xx: the request itself is wrong and will not self-heal.
	return domain.Fatal(fmt.Sprintf("http %d: %s", callErr.Status, callErr.Message))
}

// toRecord converts a wire report into a financial record. A report missing
// required fields is a schema violation, never patched over.
func toRecord(
	entity domain.Entity,
	committee Committee,
	report Report,
) (domain.FinancialRecord, error) {
	if report.CoverageStart == nil || report.CoverageEnd == nil {
		return domain.FinancialRecord{}, fmt.Errorf(
			"report for committee %s missing coverage dates", committee.CommitteeID)
	}
	if report.ReceiptsPeriod == nil || report.DisbursementsPeriod == nil {
		return domain.FinancialRecord{}, fmt.Errorf(
			"report for committee %s missing period amounts", committee.CommitteeID)
	}

	start, err := parseReportDate(*report.CoverageStart)
	if err != nil {
		return domain.FinancialRecord{}, fmt.Errorf(
			"report for committee %s has invalid coverage start: %w", committee.CommitteeID, err)
	}
	end, err := parseReportDate(*report.CoverageEnd)
	if err != nil {
		return domain.FinancialRecord{}, fmt.Errorf(
			"report for committee %s has invalid coverage end: %w", committee.CommitteeID, err)
	}

	var cashOnHand float64
	if report.CashOnHandEnd != nil {
		cashOnHand = *report.CashOnHandEnd
	}

	return domain.FinancialRecord{
		EntityID:      entity.ID,
		EntityName:    entity.Name,
		Party:         entity.Party,
		State:         entity.State,
		District:      entity.District,
		CommitteeID:   committee.CommitteeID,
		CommitteeName: committee.Name,
		Designation:   domain.CommitteeDesignation(committee.Designation),
		CommitteeType: committee.CommitteeType,
		PeriodStart:   start,
		PeriodEnd:     end,
		Receipts:      *report.ReceiptsPeriod,
		Disbursements: *report.DisbursementsPeriod,
		CashOnHand:    cashOnHand,
	}, nil
}

// parseReportDate accepts the two date layouts the API is known to emit.
func parseReportDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

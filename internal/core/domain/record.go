package domain

import "time"

// CommitteeDesignation classifies which committee a filing belongs to.
type CommitteeDesignation string

const (
	DesignationPrincipal   CommitteeDesignation = "P" // principal campaign committee
	DesignationAuthorized  CommitteeDesignation = "A"
	DesignationJoint       CommitteeDesignation = "J"
	DesignationLeadership  CommitteeDesignation = "D"
	DesignationUnspecified CommitteeDesignation = "U"
)

// FinancialRecord is one committee filing-period observation for an entity.
// Records are never mutated after creation; corrections arrive as new records.
type FinancialRecord struct {
	EntityID      string               `json:"entity_id"`
	EntityName    string               `json:"entity_name"`
	Party         string               `json:"party"`
	State         string               `json:"state"`
	District      string               `json:"district"`
	CommitteeID   string               `json:"committee_id"`
	CommitteeName string               `json:"committee_name"`
	Designation   CommitteeDesignation `json:"designation"`
	CommitteeType string               `json:"committee_type"`
	PeriodStart   time.Time            `json:"period_start"`
	PeriodEnd     time.Time            `json:"period_end"`

	// Period-scoped amounts. These are the only fields safe to aggregate
	// across a multi-year cycle; the matching year-to-date columns on the
	// wire reset at calendar boundaries and must never be summed.
	Receipts      float64 `json:"receipts"`
	Disbursements float64 `json:"disbursements"`
	CashOnHand    float64 `json:"cash_on_hand"`
}

// QuarterlyTotal is a derived per-entity, per-reporting-period aggregate.
type QuarterlyTotal struct {
	EntityID      string    `json:"entity_id"`
	EntityName    string    `json:"entity_name"`
	Party         string    `json:"party"`
	State         string    `json:"state"`
	District      string    `json:"district"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	Receipts      float64   `json:"receipts"`
	Disbursements float64   `json:"disbursements"`
	CashOnHand    float64   `json:"cash_on_hand"`
}

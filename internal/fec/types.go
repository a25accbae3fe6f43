package fec

// Pagination is the standard envelope metadata on FEC list endpoints. A
// response that carries it with Count == 0 is an explicit empty result; a
// response without it is malformed.
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
}

// Candidate is one row from the candidate listing endpoint.
type Candidate struct {
	CandidateID string `json:"candidate_id"`
	Name        string `json:"name"`
	Party       string `json:"party"`
	State       string `json:"state"`
	District    string `json:"district"`
	Office      string `json:"office"`
}

type candidateListResponse struct {
	Results    []Candidate `json:"results"`
	Pagination *Pagination `json:"pagination"`
}

// totalsResponse only needs the envelope: the totals call is made to verify
// the candidate resolves before walking committees, and its response shape
// is validated, but cycle-wide totals are not collected — period-scoped
// report amounts are the only figures that feed aggregation.
type totalsResponse struct {
	Pagination *Pagination `json:"pagination"`
}

// Committee is one committee affiliated with a candidate.
type Committee struct {
	CommitteeID   string `json:"committee_id"`
	Name          string `json:"name"`
	Designation   string `json:"designation"`
	CommitteeType string `json:"committee_type"`
}

type committeeListResponse struct {
	Results    []Committee `json:"results"`
	Pagination *Pagination `json:"pagination"`
}

// Report is one filing-period report for a committee. Period-scoped and
// year-to-date amounts both appear on the wire; only the period-scoped
// fields feed aggregation.
type Report struct {
	CommitteeID   string  `json:"committee_id"`
	CoverageStart *string `json:"coverage_start_date"`
	CoverageEnd   *string `json:"coverage_end_date"`

	ReceiptsPeriod      *float64 `json:"total_receipts_period"`
	DisbursementsPeriod *float64 `json:"total_disbursements_period"`
	CashOnHandEnd       *float64 `json:"cash_on_hand_end_period"`

	// YTD columns reset at calendar boundaries; parsed for completeness,
	// never aggregated.
	ReceiptsYTD      *float64 `json:"total_receipts_ytd"`
	DisbursementsYTD *float64 `json:"total_disbursements_ytd"`
}

type reportListResponse struct {
	Results    []Report    `json:"results"`
	Pagination *Pagination `json:"pagination"`
}

// CommitteeReports pairs a committee with its filing-period reports.
type CommitteeReports struct {
	Committee Committee
	Reports   []Report
	// ExplicitEmpty is set when the reports endpoint returned a
	// well-formed envelope with count 0, the API's "no filings" signal.
	ExplicitEmpty bool
}

// EntityData is the raw result of the fixed per-entity call sequence:
// totals, then committees, then per-committee report pages.
type EntityData struct {
	Committees []CommitteeReports
	// NoCommittees is set when the committee lookup returned a
	// well-formed empty envelope, the API's "no committee" signal.
	NoCommittees bool
}

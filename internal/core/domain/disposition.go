package domain

// DispositionStatus is the closed set of collection outcomes.
type DispositionStatus string

const (
	DispositionSuccess     DispositionStatus = "success"
	DispositionNoData      DispositionStatus = "no_data"
	DispositionRetryable   DispositionStatus = "retryable"
	DispositionRateLimited DispositionStatus = "rate_limited"
	DispositionFatal       DispositionStatus = "fatal"
)

// ErrorKind distinguishes retryable and fatal failure causes.
type ErrorKind string

const (
	ErrorKindTimeout ErrorKind = "timeout"
	ErrorKindNetwork ErrorKind = "network"
	ErrorKindServer  ErrorKind = "server"
	ErrorKindSchema  ErrorKind = "schema"
	ErrorKindFatal   ErrorKind = "fatal"
	ErrorKindNone    ErrorKind = ""
)

// Disposition is the classified outcome of one collection attempt for one
// entity. The status tag drives routing: Success and NoData are terminal,
// RateLimited is recovered same-pass via backoff, Retryable is carried into
// the next pass, Fatal goes straight to residual failures.
type Disposition struct {
	Status  DispositionStatus
	Kind    ErrorKind
	Message string
	Records []FinancialRecord
}

// Succeeded builds a Success disposition carrying the collected records.
func Succeeded(records []FinancialRecord) Disposition {
	return Disposition{Status: DispositionSuccess, Records: records}
}

// NoData builds a disposition for a confirmed absence of filings.
func NoData() Disposition {
	return Disposition{Status: DispositionNoData}
}

// Retryable builds a disposition for a transient failure.
func Retryable(kind ErrorKind, message string) Disposition {
	return Disposition{Status: DispositionRetryable, Kind: kind, Message: message}
}

// RateLimited builds a disposition for an explicit quota rejection.
func RateLimited(message string) Disposition {
	return Disposition{Status: DispositionRateLimited, Message: message}
}

// Fatal builds a disposition for a failure that will not self-heal.
func Fatal(message string) Disposition {
	return Disposition{Status: DispositionFatal, Kind: ErrorKindFatal, Message: message}
}

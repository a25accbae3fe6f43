package domain

import "time"

// FailureRecord captures the last error context for an entity that ended a
// pass without resolving, or that hit a fatal condition.
type FailureRecord struct {
	ID         string    `json:"id"`
	EntityID   string    `json:"entity_id"`
	Name       string    `json:"name"`
	Kind       ErrorKind `json:"error_kind"`
	Message    string    `json:"error_message"`
	Timestamp  time.Time `json:"timestamp"`
	RetryCount int       `json:"retry_count"`
	Pass       int       `json:"pass"`
}

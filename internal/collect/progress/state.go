// Package progress owns the durable collection state of a run.
//
// The State value is the single mutable aggregate of the pipeline. Every
// entity lives in exactly one of four buckets at any snapshot: collected,
// no-data, retry-queue, or not-yet-attempted. The routing methods below are
// the only way entities move between buckets, which keeps the partition
// disjoint by construction.
package progress

import (
	"fmt"
	"time"

	"fecharvest/internal/core/domain"
)

// RetryEntry is one entity waiting for a retry pass, with its last error
// context.
type RetryEntry struct {
	Entity      domain.Entity    `json:"entity"`
	Kind        domain.ErrorKind `json:"error_kind"`
	Message     string           `json:"error_message"`
	RetryCount  int              `json:"retry_count"`
	LastAttempt time.Time        `json:"last_attempt_time"`
}

// State is the checkpointed progress of one collection run.
type State struct {
	Cycle     int    `json:"cycle"`
	RunID     string `json:"run_id"`
	Pass      int    `json:"pass"`
	LastIndex int    `json:"last_processed_index"`

	// Entities caches the candidate sequence fetched at run start, so a
	// resumed run replays the identical order.
	Entities []domain.Entity `json:"entities"`

	Collected  []domain.FinancialRecord `json:"collected"`
	NoData     []domain.Entity          `json:"no_data"`
	RetryQueue []RetryEntry             `json:"retry_queue"`
	Failures   []domain.FailureRecord   `json:"failures"`

	UpdatedAt time.Time `json:"updated_at"`

	// seen indexes entity IDs already routed out of not-yet-attempted.
	seen map[string]struct{}
}

// NewState creates a fresh state for a cycle.
func NewState(cycle int, runID string) *State {
	return &State{
		Cycle:     cycle,
		RunID:     runID,
		LastIndex: -1,
		seen:      make(map[string]struct{}),
	}
}

// rebuildIndex reconstructs the seen set after deserialization.
func (s *State) rebuildIndex() {
	s.seen = make(map[string]struct{})
	for _, rec := range s.Collected {
		s.seen[rec.EntityID] = struct{}{}
	}
	for _, e := range s.NoData {
		s.seen[e.ID] = struct{}{}
	}
	for _, entry := range s.RetryQueue {
		s.seen[entry.Entity.ID] = struct{}{}
	}
	for _, f := range s.Failures {
		s.seen[f.EntityID] = struct{}{}
	}
}

// Attempted reports whether the entity has left the not-yet-attempted
// bucket.
func (s *State) Attempted(entityID string) bool {
	_, ok := s.seen[entityID]
	return ok
}

// MarkCollected routes an entity to the collected bucket.
func (s *State) MarkCollected(entity domain.Entity, records []domain.FinancialRecord) {
	s.removeRetry(entity.ID)
	s.Collected = append(s.Collected, records...)
	s.seen[entity.ID] = struct{}{}
}

// MarkNoData routes an entity to the confirmed-absence bucket.
func (s *State) MarkNoData(entity domain.Entity) {
	s.removeRetry(entity.ID)
	s.NoData = append(s.NoData, entity)
	s.seen[entity.ID] = struct{}{}
}

// MarkRetry places an entity in the retry queue, or refreshes its error
// context and bumps the retry count if it is already queued.
func (s *State) MarkRetry(entity domain.Entity, kind domain.ErrorKind, message string) {
	now := time.Now().UTC()
	for i := range s.RetryQueue {
		if s.RetryQueue[i].Entity.ID == entity.ID {
			s.RetryQueue[i].Kind = kind
			s.RetryQueue[i].Message = message
			s.RetryQueue[i].RetryCount++
			s.RetryQueue[i].LastAttempt = now
			return
		}
	}
	s.RetryQueue = append(s.RetryQueue, RetryEntry{
		Entity:      entity,
		Kind:        kind,
		Message:     message,
		LastAttempt: now,
	})
	s.seen[entity.ID] = struct{}{}
}

// MarkFailed routes an entity to residual failures with its error context.
func (s *State) MarkFailed(entity domain.Entity, failure domain.FailureRecord) {
	s.removeRetry(entity.ID)
	s.Failures = append(s.Failures, failure)
	s.seen[entity.ID] = struct{}{}
}

// removeRetry drops an entity from the retry queue if present.
func (s *State) removeRetry(entityID string) {
	for i := range s.RetryQueue {
		if s.RetryQueue[i].Entity.ID == entityID {
			s.RetryQueue = append(s.RetryQueue[:i], s.RetryQueue[i+1:]...)
			return
		}
	}
}

// CollectedEntities returns the distinct entity IDs with collected records.
func (s *State) CollectedEntities() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, rec := range s.Collected {
		ids[rec.EntityID] = struct{}{}
	}
	return ids
}

// Validate checks the partition invariant: no entity may appear in more
// than one terminal bucket.
func (s *State) Validate() error {
	buckets := make(map[string]string)

	note := func(id, bucket string) error {
		if prev, ok := buckets[id]; ok && prev != bucket {
			return fmt.Errorf("entity %s in both %s and %s", id, prev, bucket)
		}
		buckets[id] = bucket
		return nil
	}

	for id := range s.CollectedEntities() {
		if err := note(id, "collected"); err != nil {
			return err
		}
	}
	for _, e := range s.NoData {
		if err := note(e.ID, "no_data"); err != nil {
			return err
		}
	}
	for _, entry := range s.RetryQueue {
		if err := note(entry.Entity.ID, "retry_queue"); err != nil {
			return err
		}
	}
	for _, f := range s.Failures {
		if err := note(f.EntityID, "failures"); err != nil {
			return err
		}
	}
	return nil
}

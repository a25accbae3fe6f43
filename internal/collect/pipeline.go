// Package collect drives entities through the fetch/classify/retry cycle
// and keeps the durable checkpoint current.
package collect

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"fecharvest/internal/collect/metrics"
	"fecharvest/internal/collect/progress"
	"fecharvest/internal/collect/retry"
	"fecharvest/internal/core/domain"
	"fecharvest/internal/fec"
	"fecharvest/internal/output"
)

// Fetcher performs the single-attempt call sequence for one entity.
type Fetcher interface {
	FetchEntity(ctx context.Context, entity domain.Entity) (*fec.EntityData, error)
}

// CandidateSource supplies the entity sequence for a cycle.
type CandidateSource interface {
	ListCandidates(ctx context.Context, cycle int) ([]domain.Entity, error)
}

// Config tunes the pipeline.
type Config struct {
	MaxPasses       int           // retry passes after the main pass
	InitialBackoff  time.Duration // first rate-limit backoff step
	MaxBackoffSteps int           // consecutive backoffs before requeueing
	CommitEvery     int           // checkpoint every N entities (min 1)
}

// Summary reports the terminal partition sizes of a run.
type Summary struct {
	Cycle     int
	Entities  int
	Collected int // distinct entities with records
	Records   int
	NoData    int
	Failures  int
	Passes    int // retry passes performed after the main pass
}

// Snapshot is a point-in-time view of run progress for the status server.
type Snapshot struct {
	Cycle      int       `json:"cycle"`
	RunID      string    `json:"run_id"`
	Pass       int       `json:"pass"`
	LastIndex  int       `json:"last_processed_index"`
	Entities   int       `json:"entities"`
	Collected  int       `json:"collected_entities"`
	NoData     int       `json:"no_data"`
	RetryQueue int       `json:"retry_queue"`
	Failures   int       `json:"failures"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Pipeline is the collection orchestrator. A single worker walks the entity
// sequence; the rate limiter inside the Fetcher is the only throughput
// governor.
type Pipeline struct {
	cfg     Config
	fetcher Fetcher
	source  CandidateSource
	store   progress.Store
	writer  *output.Writer
	log     *slog.Logger

	mu   sync.RWMutex
	snap Snapshot
}

// NewPipeline wires the orchestrator.
func NewPipeline(
	cfg Config,
	fetcher Fetcher,
	source CandidateSource,
	store progress.Store,
	writer *output.Writer,
) *Pipeline {
	if cfg.MaxPasses <= 0 {
		cfg.MaxPasses = retry.DefaultMaxPasses
	}
	if cfg.CommitEvery <= 0 {
		cfg.CommitEvery = 1
	}
	return &Pipeline{
		cfg:     cfg,
		fetcher: fetcher,
		source:  source,
		store:   store,
		writer:  writer,
		log:     slog.Default(),
	}
}

// Snapshot returns the current progress view.
func (p *Pipeline) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snap
}

// Run executes a full collection for a cycle: main pass, bounded retry
// passes, drain, aggregate, emit. Individual entity failures never abort
// the run; an error return means a catastrophic condition (candidate source
// down, checkpoint or artifacts unwritable, ctx cancelled) and the last
// committed checkpoint remains valid for resume.
func (p *Pipeline) Run(ctx context.Context, cycle int, fresh bool) (*Summary, error) {
	state, err := p.prepare(ctx, cycle, fresh)
	if err != nil {
		return nil, err
	}

	p.log.Info("Collection starting",
		"cycle", cycle,
		"entities", len(state.Entities),
		"pass", state.Pass,
		"resumed_at", state.LastIndex+1,
	)

	if state.Pass == 0 {
		if err := p.mainPass(ctx, state); err != nil {
			return nil, err
		}
	}

	for state.Pass >= 1 && state.Pass <= p.cfg.MaxPasses {
		if err := p.retryPass(ctx, state); err != nil {
			return nil, err
		}
	}

	// Whatever survived every pass is a residual failure.
	p.drainQueue(state)
	if err := p.commit(state); err != nil {
		return nil, err
	}

	quarterly := AggregateQuarterly(state.Collected)
	parts := output.Partitions{
		Collected: state.Collected,
		Quarterly: quarterly,
		NoData:    state.NoData,
		Failures:  state.Failures,
	}
	if err := p.writer.Write(cycle, parts); err != nil {
		return nil, fmt.Errorf("failed to write artifacts: %w", err)
	}

	summary := &Summary{
		Cycle:     cycle,
		Entities:  len(state.Entities),
		Collected: len(state.CollectedEntities()),
		Records:   len(state.Collected),
		NoData:    len(state.NoData),
		Failures:  len(state.Failures),
		Passes:    state.Pass - 1,
	}
	p.log.Info("Collection finished",
		"cycle", cycle,
		"collected", summary.Collected,
		"records", summary.Records,
		"no_data", summary.NoData,
		"failures", summary.Failures,
	)
	return summary, nil
}

// prepare loads or initializes the checkpoint and the cached entity
// sequence.
func (p *Pipeline) prepare(ctx context.Context, cycle int, fresh bool) (*progress.State, error) {
	if fresh {
		if err := p.store.Reset(cycle); err != nil {
			return nil, fmt.Errorf("failed to reset checkpoint: %w", err)
		}
	}

	state, err := p.store.Load(cycle)
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = progress.NewState(cycle, uuid.New().String())
	}

	if len(state.Entities) == 0 {
		entities, err := p.source.ListCandidates(ctx, cycle)
		if err != nil {
			return nil, fmt.Errorf("candidate source unavailable: %w", err)
		}
		state.Entities = entities
		if err := p.commit(state); err != nil {
			return nil, err
		}
	}

	p.publish(state)
	return state, nil
}

// mainPass walks the entity sequence from the checkpointed index.
func (p *Pipeline) mainPass(ctx context.Context, state *progress.State) error {
	metrics.CurrentPass.Set(0)

	for i := state.LastIndex + 1; i < len(state.Entities); i++ {
		entity := state.Entities[i]

		if !state.Attempted(entity.ID) {
			disp, err := p.attempt(ctx, entity)
			if err != nil {
				// Cancelled mid-run; the checkpoint holds
				// everything up to the previous entity.
				return err
			}
			p.route(state, entity, disp)
		}

		state.LastIndex = i
		if (i+1)%p.cfg.CommitEvery == 0 || i == len(state.Entities)-1 {
			if err := p.commit(state); err != nil {
				return err
			}
		}
	}

	// Pass boundary.
	state.Pass = 1
	return p.commit(state)
}

// retryPass re-attempts every entity currently queued, then advances the
// pass counter.
func (p *Pipeline) retryPass(ctx context.Context, state *progress.State) error {
	metrics.CurrentPass.Set(float64(state.Pass))

	queued := make([]progress.RetryEntry, len(state.RetryQueue))
	copy(queued, state.RetryQueue)

	if len(queued) > 0 {
		p.log.Info("Retry pass starting", "pass", state.Pass, "queued", len(queued))
	}

	for _, entry := range queued {
		disp, err := p.attempt(ctx, entry.Entity)
		if err != nil {
			return err
		}
		p.route(state, entry.Entity, disp)
		if err := p.commit(state); err != nil {
			return err
		}
	}

	state.Pass++
	return p.commit(state)
}

// attempt performs one classified fetch, absorbing rate-limit backoff
// in-place: 60s, 120s, 240s, then the entity is handed back as retryable.
// Backoff state resets per entity per pass by construction, since the
// Backoff value lives only for this call.
func (p *Pipeline) attempt(ctx context.Context, entity domain.Entity) (domain.Disposition, error) {
	backoff := retry.NewBackoff(p.cfg.InitialBackoff, p.cfg.MaxBackoffSteps)

	for {
		data, err := p.fetcher.FetchEntity(ctx, entity)
		if ctx.Err() != nil {
			return domain.Disposition{}, ctx.Err()
		}

		disp := fec.Classify(entity, data, err)
		if disp.Status != domain.DispositionRateLimited {
			return disp, nil
		}

		delay, ok := backoff.Next()
		if !ok {
			// Quota pressure is not easing this pass; let the
			// next pass try again.
			return domain.Retryable(domain.ErrorKindServer, "rate limited, backoff exhausted"), nil
		}

		p.log.Warn("Rate limited, backing off",
			"entity", entity.ID,
			"wait", delay,
			"step", backoff.Steps(),
		)
		metrics.BackoffSeconds.Add(delay.Seconds())
		if err := retry.Wait(ctx, delay); err != nil {
			return domain.Disposition{}, err
		}
	}
}

// route moves an entity into its bucket according to the disposition.
func (p *Pipeline) route(state *progress.State, entity domain.Entity, disp domain.Disposition) {
	metrics.EntitiesProcessed.WithLabelValues(string(disp.Status)).Inc()

	switch disp.Status {
	case domain.DispositionSuccess:
		state.MarkCollected(entity, disp.Records)
		p.log.Debug("Entity collected", "entity", entity.ID, "records", len(disp.Records))

	case domain.DispositionNoData:
		state.MarkNoData(entity)
		p.log.Debug("Entity has no data", "entity", entity.ID)

	case domain.DispositionRetryable:
		state.MarkRetry(entity, disp.Kind, disp.Message)
		p.log.Warn("Entity queued for retry",
			"entity", entity.ID,
			"kind", disp.Kind,
			"error", disp.Message,
		)

	case domain.DispositionFatal:
		// Will not self-heal; straight to residual failures for
		// manual review, logged on first occurrence.
		state.MarkFailed(entity, p.failureRecord(state, entity, disp))
		p.log.Error("Entity failed permanently",
			"entity", entity.ID,
			"error", disp.Message,
		)
	}

	metrics.RetryQueueDepth.Set(float64(len(state.RetryQueue)))
	p.publish(state)
}

// drainQueue moves everything still queued after the final pass to residual
// failures.
func (p *Pipeline) drainQueue(state *progress.State) {
	remaining := make([]progress.RetryEntry, len(state.RetryQueue))
	copy(remaining, state.RetryQueue)

	for _, entry := range remaining {
		state.MarkFailed(entry.Entity, domain.FailureRecord{
			ID:         uuid.New().String(),
			EntityID:   entry.Entity.ID,
			Name:       entry.Entity.Name,
			Kind:       entry.Kind,
			Message:    entry.Message,
			Timestamp:  time.Now().UTC(),
			RetryCount: entry.RetryCount,
			Pass:       state.Pass,
		})
		p.log.Error("Entity exhausted all retry passes",
			"entity", entry.Entity.ID,
			"kind", entry.Kind,
			"retries", entry.RetryCount,
		)
	}
	metrics.RetryQueueDepth.Set(0)
	p.publish(state)
}

func (p *Pipeline) failureRecord(
	state *progress.State,
	entity domain.Entity,
	disp domain.Disposition,
) domain.FailureRecord {
	retryCount := 0
	for _, entry := range state.RetryQueue {
		if entry.Entity.ID == entity.ID {
			retryCount = entry.RetryCount
		}
	}
	return domain.FailureRecord{
		ID:         uuid.New().String(),
		EntityID:   entity.ID,
		Name:       entity.Name,
		Kind:       disp.Kind,
		Message:    disp.Message,
		Timestamp:  time.Now().UTC(),
		RetryCount: retryCount,
		Pass:       state.Pass,
	}
}

func (p *Pipeline) commit(state *progress.State) error {
	if err := p.store.Commit(state); err != nil {
		return fmt.Errorf("failed to commit checkpoint: %w", err)
	}
	return nil
}

// publish refreshes the snapshot read by the status server.
func (p *Pipeline) publish(state *progress.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snap = Snapshot{
		Cycle:      state.Cycle,
		RunID:      state.RunID,
		Pass:       state.Pass,
		LastIndex:  state.LastIndex,
		Entities:   len(state.Entities),
		Collected:  len(state.CollectedEntities()),
		NoData:     len(state.NoData),
		RetryQueue: len(state.RetryQueue),
		Failures:   len(state.Failures),
		UpdatedAt:  time.Now().UTC(),
	}
}

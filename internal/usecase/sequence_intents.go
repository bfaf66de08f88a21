package usecase

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/homelistingai/leadflow/internal/entity"
	"github.com/homelistingai/leadflow/internal/infra/metrics"
	"github.com/homelistingai/leadflow/internal/repository"
)

func (c *LifecycleController) CreateSequence(ctx context.Context, tenant string, in SequenceInput) (entity.Sequence, error) {
	metrics.RecordIntent("create_sequence")
	if err := validateInput(in); err != nil {
		return entity.Sequence{}, err
	}

	st, release := c.acquire(ctx, tenant)
	defer release()

	seq, err := st.sequences.CreateSequence(in.toRepository(), c.clock.Now())
	if err != nil {
		return entity.Sequence{}, sequenceErr("", err)
	}
	err = c.saveSequence(ctx, st, tenant, seq)
	c.notify(tenant, st)
	return sequenceAfter(st, seq), err
}

// UpdateSequence replaces the definition. Running follow-ups keep their
// position; the evaluator reads the new steps on its next pass.
func (c *LifecycleController) UpdateSequence(ctx context.Context, tenant, id string, in SequenceInput) (entity.Sequence, error) {
	metrics.RecordIntent("update_sequence")
	if err := validateInput(in); err != nil {
		return entity.Sequence{}, err
	}
	return c.transitionSequence(ctx, tenant, id, func(r *repository.SequenceRepository) (entity.Sequence, error) {
		return r.UpdateSequence(id, in.toRepository(), c.clock.Now())
	})
}

func (c *LifecycleController) SetSequenceActive(ctx context.Context, tenant, id string, active bool) (entity.Sequence, error) {
	metrics.RecordIntent("set_sequence_active")
	return c.transitionSequence(ctx, tenant, id, func(r *repository.SequenceRepository) (entity.Sequence, error) {
		return r.SetActive(id, active, c.clock.Now())
	})
}

// RefreshAnalytics stores an externally computed snapshot as-is.
func (c *LifecycleController) RefreshAnalytics(ctx context.Context, tenant, id string, in AnalyticsInput) (entity.Sequence, error) {
	metrics.RecordIntent("refresh_analytics")
	if err := validateInput(in); err != nil {
		return entity.Sequence{}, err
	}
	snapshot := entity.SequenceAnalytics{
		TotalLeads:   in.TotalLeads,
		OpenRate:     in.OpenRate,
		ResponseRate: in.ResponseRate,
	}
	return c.transitionSequence(ctx, tenant, id, func(r *repository.SequenceRepository) (entity.Sequence, error) {
		return r.RefreshAnalytics(id, snapshot, c.clock.Now())
	})
}

// DeleteSequence removes the definition only. Follow-ups that referenced it
// stay as history and are skipped by the scheduler.
func (c *LifecycleController) DeleteSequence(ctx context.Context, tenant, id string) error {
	metrics.RecordIntent("delete_sequence")
	st, release := c.acquire(ctx, tenant)
	defer release()

	if _, ok := st.sequences.Sequences.Find(id); !ok {
		return nil
	}
	err := persist(ctx, c, st, tenant, entity.CollectionSequences, st.sequences.Sequences,
		func(ctx context.Context) ([]json.RawMessage, error) {
			return c.remote.Delete(ctx, tenant, entity.CollectionSequences.Resource(), id)
		},
		func(items []entity.Sequence) []entity.Sequence {
			return st.sequences.Sequences.Without(items, id)
		},
	)
	c.notify(tenant, st)
	return err
}

func (c *LifecycleController) ListSequences(ctx context.Context, tenant string) []entity.Sequence {
	st, release := c.acquire(ctx, tenant)
	defer release()
	return st.sequences.ListSequences()
}

func (c *LifecycleController) GetSequence(ctx context.Context, tenant, id string) (entity.Sequence, error) {
	st, release := c.acquire(ctx, tenant)
	defer release()
	seq, err := st.sequences.GetSequence(id)
	if err != nil {
		return entity.Sequence{}, notFound("sequence", id, err)
	}
	return seq, nil
}

func (c *LifecycleController) SequenceAnalytics(ctx context.Context, tenant, id string) (SequenceAnalyticsOutput, error) {
	st, release := c.acquire(ctx, tenant)
	defer release()
	seq, err := st.sequences.GetSequence(id)
	if err != nil {
		return SequenceAnalyticsOutput{}, notFound("sequence", id, err)
	}
	return SequenceAnalyticsOutput{
		SequenceAnalytics: seq.Analytics,
		TotalDurationDays: repository.TotalDurationDays(seq),
	}, nil
}

func (c *LifecycleController) transitionSequence(ctx context.Context, tenant, id string, apply func(*repository.SequenceRepository) (entity.Sequence, error)) (entity.Sequence, error) {
	st, release := c.acquire(ctx, tenant)
	defer release()

	next, err := apply(st.sequences)
	if err != nil {
		return entity.Sequence{}, sequenceErr(id, err)
	}
	err = c.saveSequence(ctx, st, tenant, next)
	c.notify(tenant, st)
	return sequenceAfter(st, next), err
}

func (c *LifecycleController) saveSequence(ctx context.Context, st *tenantState, tenant string, seq entity.Sequence) error {
	return persist(ctx, c, st, tenant, entity.CollectionSequences, st.sequences.Sequences,
		func(ctx context.Context) ([]json.RawMessage, error) {
			return c.remote.Put(ctx, tenant, entity.CollectionSequences.Resource(), seq.ID, seq)
		},
		func(items []entity.Sequence) []entity.Sequence {
			return st.sequences.Sequences.Upsert(items, seq)
		},
	)
}

func sequenceAfter(st *tenantState, seq entity.Sequence) entity.Sequence {
	if canonical, ok := st.sequences.Sequences.Find(seq.ID); ok {
		return canonical.Clone()
	}
	return seq
}

func sequenceErr(id string, err error) error {
	switch {
	case errors.Is(err, entity.ErrEmptySteps):
		return &ValidationError{Field: "steps", Message: "must have at least 1 item(s)"}
	case errors.Is(err, entity.ErrInvalidDelay):
		return &ValidationError{Field: "steps", Message: err.Error()}
	}
	return notFound("sequence", id, err)
}

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/homelistingai/leadflow/internal/entity"
	"github.com/homelistingai/leadflow/internal/infra/metrics"
	"github.com/homelistingai/leadflow/internal/infra/queue"
	"github.com/homelistingai/leadflow/internal/repository"
	"github.com/homelistingai/leadflow/internal/scheduler"
)

func (c *LifecycleController) ListFollowUps(ctx context.Context, tenant, status string) ([]entity.FollowUp, error) {
	st, release := c.acquire(ctx, tenant)
	defer release()

	all := st.sequences.ListFollowUps()
	if strings.TrimSpace(status) == "" {
		return all, nil
	}
	want, err := entity.ParseFollowUpStatus(status)
	if err != nil {
		return nil, &ValidationError{Field: "status", Message: "must be one of: active paused completed"}
	}
	out := make([]entity.FollowUp, 0, len(all))
	for _, f := range all {
		if f.Status == want {
			out = append(out, f)
		}
	}
	return out, nil
}

// SetFollowUpStatus pauses or resumes a follow-up.
func (c *LifecycleController) SetFollowUpStatus(ctx context.Context, tenant, id, raw string) (entity.FollowUp, error) {
	metrics.RecordIntent("set_followup_status")
	status, err := entity.ParseFollowUpStatus(raw)
	if err != nil || status == entity.FollowUpCompleted {
		return entity.FollowUp{}, &ValidationError{Field: "status", Message: "must be one of: active paused"}
	}
	return c.transitionFollowUp(ctx, tenant, id, func(r *repository.SequenceRepository) (entity.FollowUp, error) {
		return r.SetFollowUpStatus(id, status, c.clock.Now())
	})
}

func (c *LifecycleController) LogManualTouch(ctx context.Context, tenant, id, note string) (entity.FollowUp, error) {
	metrics.RecordIntent("log_manual_touch")
	if err := requireText("note", note); err != nil {
		return entity.FollowUp{}, err
	}
	return c.transitionFollowUp(ctx, tenant, id, func(r *repository.SequenceRepository) (entity.FollowUp, error) {
		return r.LogManualTouch(id, note, c.clock.Now())
	})
}

// AdvanceFollowUps runs the evaluator over every follow-up of tenant and
// persists each one that moved. Executed steps are published for delivery.
// Follow-ups whose sequence no longer exists are skipped.
func (c *LifecycleController) AdvanceFollowUps(ctx context.Context, tenant string) (AdvanceReport, error) {
	st, release := c.acquire(ctx, tenant)
	defer release()

	now := c.clock.Now()
	report := AdvanceReport{Tenant: tenant, At: now}
	log := c.log.WithField("tenant", tenant)

	var errs []error
	for _, f := range st.sequences.ListFollowUps() {
		if f.Status != entity.FollowUpActive {
			continue
		}
		seq, ok := st.sequences.Sequences.Find(f.SequenceID)
		if !ok {
			report.Skipped++
			continue
		}
		next := scheduler.Advance(f, seq, now)
		if len(next.History) == len(f.History) {
			continue
		}

		if err := c.saveFollowUp(ctx, st, tenant, next); err != nil {
			errs = append(errs, err)
		}
		if next.Status == entity.FollowUpCompleted {
			report.Completed++
		} else {
			report.Advanced++
		}
		metrics.RecordFollowUpAdvanced(string(next.Status))

		if step, ok := scheduler.ExecutedStep(f, next, seq); ok {
			c.publishStepDue(ctx, tenant, st, next, seq, f.CurrentStepIndex, step, now)
		}
	}

	if report.Advanced+report.Completed > 0 {
		c.notify(tenant, st)
		log.WithFields(logrus.Fields{
			"advanced":  report.Advanced,
			"completed": report.Completed,
		}).Info("Follow-ups advanced")
	}
	return report, errors.Join(errs...)
}

func (c *LifecycleController) publishStepDue(ctx context.Context, tenant string, st *tenantState, f entity.FollowUp, seq entity.Sequence, index int, step entity.SequenceStep, now time.Time) {
	if c.events == nil {
		return
	}
	log := c.log.WithFields(logrus.Fields{"tenant": tenant, "followup_id": f.ID})
	lead, ok := st.leads.Find(f.LeadID)
	if !ok {
		log.Warn("Lead no longer exists, step not delivered")
		return
	}
	payload := queue.StepDuePayload{
		Tenant:       tenant,
		FollowUpID:   f.ID,
		LeadID:       lead.ID,
		LeadName:     lead.Name,
		LeadEmail:    lead.Email,
		SequenceID:   seq.ID,
		SequenceName: seq.Name,
		StepIndex:    index,
		Channel:      step.Type,
		Subject:      step.Subject,
		Content:      step.Content,
		DueAt:        now,
	}
	if err := c.events.PublishStepDue(ctx, payload); err != nil {
		log.WithError(err).Warn("Step not published")
	}
}

func (c *LifecycleController) transitionFollowUp(ctx context.Context, tenant, id string, apply func(*repository.SequenceRepository) (entity.FollowUp, error)) (entity.FollowUp, error) {
	st, release := c.acquire(ctx, tenant)
	defer release()

	next, err := apply(st.sequences)
	switch {
	case errors.Is(err, repository.ErrFollowUpCompleted):
		return entity.FollowUp{}, &ValidationError{Field: "status", Message: "follow-up is already completed"}
	case err != nil:
		return entity.FollowUp{}, notFound("follow-up", id, err)
	}
	err = c.saveFollowUp(ctx, st, tenant, next)
	c.notify(tenant, st)
	if canonical, ok := st.sequences.FollowUps.Find(next.ID); ok {
		return canonical.Clone(), err
	}
	return next, err
}

func (c *LifecycleController) saveFollowUp(ctx context.Context, st *tenantState, tenant string, f entity.FollowUp) error {
	return persist(ctx, c, st, tenant, entity.CollectionFollowUps, st.sequences.FollowUps,
		func(ctx context.Context) ([]json.RawMessage, error) {
			return c.remote.Put(ctx, tenant, entity.CollectionFollowUps.Resource(), f.ID, f)
		},
		func(items []entity.FollowUp) []entity.FollowUp {
			return st.sequences.FollowUps.Upsert(items, f)
		},
	)
}

package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/homelistingai/leadflow/internal/entity"
)

// SequenceRepository holds the sequence definitions and the active follow-ups
// of one tenant. Like LeadRepository, its methods return the next state of a
// record without committing it.
type SequenceRepository struct {
	Sequences *Collection[entity.Sequence]
	FollowUps *Collection[entity.FollowUp]
}

func NewSequenceRepository(sequences []entity.Sequence, followUps []entity.FollowUp) *SequenceRepository {
	return &SequenceRepository{
		Sequences: NewCollection(sequences, func(s entity.Sequence) string { return s.ID }),
		FollowUps: NewCollection(followUps, func(f entity.FollowUp) string { return f.ID }),
	}
}

type SequenceInput struct {
	Name        string
	Description string
	TriggerType entity.TriggerType
	Steps       []entity.SequenceStep
}

// ValidateSteps requires at least one step, each with a positive delay in a known unit.
func ValidateSteps(steps []entity.SequenceStep) error {
	if len(steps) == 0 {
		return entity.ErrEmptySteps
	}
	for i, step := range steps {
		if step.Delay.Value <= 0 {
			return fmt.Errorf("step %d: value must be positive: %w", i+1, entity.ErrInvalidDelay)
		}
		if !step.Delay.Unit.Valid() {
			return fmt.Errorf("step %d: unknown unit %q: %w", i+1, step.Delay.Unit, entity.ErrInvalidDelay)
		}
		if !step.Delay.InRange() {
			return fmt.Errorf("step %d: delay exceeds %d days: %w", i+1, int(entity.MaxDelay.Hours()/24), entity.ErrInvalidDelay)
		}
	}
	return nil
}

func (r *SequenceRepository) CreateSequence(input SequenceInput, now time.Time) (entity.Sequence, error) {
	if err := ValidateSteps(input.Steps); err != nil {
		return entity.Sequence{}, err
	}
	seq := entity.NewSequence(strings.TrimSpace(input.Name), input.Description, input.TriggerType, input.Steps, now)
	return *seq, nil
}

func (r *SequenceRepository) UpdateSequence(id string, input SequenceInput, now time.Time) (entity.Sequence, error) {
	seq, err := r.GetSequence(id)
	if err != nil {
		return entity.Sequence{}, err
	}
	if err := ValidateSteps(input.Steps); err != nil {
		return entity.Sequence{}, err
	}
	fresh := entity.NewSequence(input.Name, input.Description, input.TriggerType, input.Steps, now)
	seq.Name = fresh.Name
	seq.Description = fresh.Description
	seq.TriggerType = fresh.TriggerType
	seq.Steps = fresh.Steps
	seq.UpdatedAt = now
	return seq, nil
}

// SetActive toggles a sequence. An active sequence must have steps.
func (r *SequenceRepository) SetActive(id string, active bool, now time.Time) (entity.Sequence, error) {
	seq, err := r.GetSequence(id)
	if err != nil {
		return entity.Sequence{}, err
	}
	if active && len(seq.Steps) == 0 {
		return entity.Sequence{}, entity.ErrEmptySteps
	}
	seq.IsActive = active
	seq.UpdatedAt = now
	return seq, nil
}

func (r *SequenceRepository) GetSequence(id string) (entity.Sequence, error) {
	seq, ok := r.Sequences.Find(id)
	if !ok {
		return entity.Sequence{}, fmt.Errorf("sequence %s: %w", id, ErrNotFound)
	}
	return seq.Clone(), nil
}

func (r *SequenceRepository) ListSequences() []entity.Sequence {
	return r.Sequences.Items()
}

// AnalyticsFor returns the last snapshot received; nothing is derived locally.
func (r *SequenceRepository) AnalyticsFor(id string) (entity.SequenceAnalytics, error) {
	seq, err := r.GetSequence(id)
	if err != nil {
		return entity.SequenceAnalytics{}, err
	}
	return seq.Analytics, nil
}

// RefreshAnalytics stores snapshot verbatim, stamping LastUpdated when absent.
func (r *SequenceRepository) RefreshAnalytics(id string, snapshot entity.SequenceAnalytics, now time.Time) (entity.Sequence, error) {
	seq, err := r.GetSequence(id)
	if err != nil {
		return entity.Sequence{}, err
	}
	if snapshot.LastUpdated.IsZero() {
		snapshot.LastUpdated = now
	}
	seq.Analytics = snapshot
	return seq, nil
}

// TotalDurationDays sums the step delays normalised to days.
func TotalDurationDays(seq entity.Sequence) float64 {
	total := 0.0
	for _, step := range seq.Steps {
		total += step.Delay.Days()
	}
	return total
}

func (r *SequenceRepository) ListFollowUps() []entity.FollowUp {
	return r.FollowUps.Items()
}

func (r *SequenceRepository) GetFollowUp(id string) (entity.FollowUp, error) {
	f, ok := r.FollowUps.Find(id)
	if !ok {
		return entity.FollowUp{}, fmt.Errorf("follow-up %s: %w", id, ErrNotFound)
	}
	return f.Clone(), nil
}

// Enroll returns the follow-ups to create for lead on trigger: one per active
// sequence with a matching trigger, skipping sequences the lead is already
// running (any status other than completed).
func (r *SequenceRepository) Enroll(lead entity.Lead, trigger entity.TriggerType, now time.Time) []entity.FollowUp {
	running := make(map[string]bool)
	for _, f := range r.FollowUps.items {
		if f.LeadID == lead.ID && f.Status != entity.FollowUpCompleted {
			running[f.SequenceID] = true
		}
	}

	var out []entity.FollowUp
	for _, seq := range r.Sequences.items {
		if !seq.IsActive || len(seq.Steps) == 0 || running[seq.ID] {
			continue
		}
		if !strings.EqualFold(string(seq.TriggerType), string(trigger)) {
			continue
		}
		out = append(out, *entity.NewFollowUp(lead, seq, now))
	}
	return out
}

// SetFollowUpStatus pauses or resumes a follow-up. A resumed follow-up keeps
// its due date, so an overdue step runs on the next scheduler pass.
func (r *SequenceRepository) SetFollowUpStatus(id string, status entity.FollowUpStatus, now time.Time) (entity.FollowUp, error) {
	if status != entity.FollowUpActive && status != entity.FollowUpPaused {
		return entity.FollowUp{}, entity.ErrInvalidStatus
	}
	f, err := r.GetFollowUp(id)
	if err != nil {
		return entity.FollowUp{}, err
	}
	if f.Status == entity.FollowUpCompleted {
		return entity.FollowUp{}, ErrFollowUpCompleted
	}
	if f.Status == status {
		return f, nil
	}

	kind, desc := entity.EventResume, "Follow-up resumed"
	if status == entity.FollowUpPaused {
		kind, desc = entity.EventPause, "Follow-up paused"
	}
	f.Status = status
	f.History = append(f.History, entity.NewFollowUpEvent(kind, desc, now))
	return f, nil
}

func (r *SequenceRepository) LogManualTouch(id, note string, now time.Time) (entity.FollowUp, error) {
	f, err := r.GetFollowUp(id)
	if err != nil {
		return entity.FollowUp{}, err
	}
	f.History = append(f.History, entity.NewFollowUpEvent(entity.EventManualTouch, strings.TrimSpace(note), now))
	return f, nil
}

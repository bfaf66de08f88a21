// Package scheduler evaluates follow-up progression. It performs no I/O; a
// periodic driver calls Advance for every active follow-up.
package scheduler

import (
	"fmt"
	"time"

	"github.com/homelistingai/leadflow/internal/entity"
)

// Advance returns f unchanged when it is not active or its current step is not
// yet due. Otherwise the current step counts as executed and the follow-up moves
// to the next step, due one step-delay from now, or completes when none remain.
func Advance(f entity.FollowUp, seq entity.Sequence, now time.Time) entity.FollowUp {
	if f.Status != entity.FollowUpActive {
		return f
	}
	if f.CurrentStepIndex >= len(seq.Steps) {
		return complete(f, now)
	}
	if now.Before(f.NextStepDate) {
		return f
	}

	out := f.Clone()
	executed := seq.Steps[f.CurrentStepIndex]
	out.History = append(out.History, entity.FollowUpEvent{
		ID:          fmt.Sprintf("%s-step-%d", f.ID, f.CurrentStepIndex),
		Type:        entity.EventStepSent,
		Description: describe(executed, f.CurrentStepIndex),
		Date:        now,
	})

	next := f.CurrentStepIndex + 1
	if next >= len(seq.Steps) {
		return complete(out, now)
	}
	out.CurrentStepIndex = next
	out.StepEnteredAt = now
	out.NextStepDate = now.Add(seq.Steps[next].Delay.Duration())
	return out
}

// ExecutedStep reports which step of seq an Advance from before to after ran.
func ExecutedStep(before, after entity.FollowUp, seq entity.Sequence) (entity.SequenceStep, bool) {
	if before.Status != entity.FollowUpActive || len(after.History) == len(before.History) {
		return entity.SequenceStep{}, false
	}
	if before.CurrentStepIndex < 0 || before.CurrentStepIndex >= len(seq.Steps) {
		return entity.SequenceStep{}, false
	}
	return seq.Steps[before.CurrentStepIndex], true
}

// Due reports whether Advance would change f at now.
func Due(f entity.FollowUp, now time.Time) bool {
	return f.Status == entity.FollowUpActive && !now.Before(f.NextStepDate)
}

func complete(f entity.FollowUp, now time.Time) entity.FollowUp {
	out := f.Clone()
	out.Status = entity.FollowUpCompleted
	out.History = append(out.History, entity.FollowUpEvent{
		ID:          fmt.Sprintf("%s-completed", f.ID),
		Type:        entity.EventCompleted,
		Description: "Sequence completed",
		Date:        now,
	})
	return out
}

func describe(step entity.SequenceStep, index int) string {
	label := step.Type
	if label == "" {
		label = "step"
	}
	if step.Subject != "" {
		return fmt.Sprintf("Step %d (%s): %s", index+1, label, step.Subject)
	}
	return fmt.Sprintf("Step %d (%s)", index+1, label)
}

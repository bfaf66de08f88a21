package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type FollowUpStatus string

const (
	FollowUpActive    FollowUpStatus = "active"
	FollowUpPaused    FollowUpStatus = "paused"
	FollowUpCompleted FollowUpStatus = "completed"
)

func (s FollowUpStatus) Valid() bool {
	return s == FollowUpActive || s == FollowUpPaused || s == FollowUpCompleted
}

func ParseFollowUpStatus(raw string) (FollowUpStatus, error) {
	s := FollowUpStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", ErrInvalidStatus
	}
	return s, nil
}

// History event types recorded on a follow-up.
const (
	EventEnrolled    = "enrolled"
	EventStepSent    = "step_executed"
	EventCompleted   = "completed"
	EventPause       = "pause"
	EventResume      = "resume"
	EventManualTouch = "manual-touch"
)

type FollowUpEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
}

func NewFollowUpEvent(kind, description string, at time.Time) FollowUpEvent {
	return FollowUpEvent{
		ID:          uuid.New().String(),
		Type:        kind,
		Description: description,
		Date:        at,
	}
}

// FollowUp is a running instance of a sequence bound to one lead. LeadID and
// SequenceID are weak references; SequenceName is a snapshot taken at enrollment.
type FollowUp struct {
	ID               string          `json:"id"`
	LeadID           string          `json:"leadId"`
	LeadName         string          `json:"leadName,omitempty"`
	SequenceID       string          `json:"sequenceId"`
	SequenceName     string          `json:"sequenceName"`
	CurrentStepIndex int             `json:"currentStepIndex"`
	StepEnteredAt    time.Time       `json:"stepEnteredAt"`
	NextStepDate     time.Time       `json:"nextStepDate"`
	Status           FollowUpStatus  `json:"status"`
	History          []FollowUpEvent `json:"history"`
}

// NewFollowUp enrolls the lead at step 0; the first step is due after its own delay.
func NewFollowUp(lead Lead, seq Sequence, now time.Time) *FollowUp {
	next := now
	if len(seq.Steps) > 0 {
		next = now.Add(seq.Steps[0].Delay.Duration())
	}
	return &FollowUp{
		ID:               uuid.New().String(),
		LeadID:           lead.ID,
		LeadName:         lead.Name,
		SequenceID:       seq.ID,
		SequenceName:     seq.Name,
		CurrentStepIndex: 0,
		StepEnteredAt:    now,
		NextStepDate:     next,
		Status:           FollowUpActive,
		History: []FollowUpEvent{
			NewFollowUpEvent(EventEnrolled, "Enrolled in "+seq.Name, now),
		},
	}
}

func (f FollowUp) Clone() FollowUp {
	f.History = append([]FollowUpEvent(nil), f.History...)
	return f
}

func (f *FollowUp) Normalize() error {
	if !f.Status.Valid() {
		return fmt.Errorf("follow-up %s: %w %q", f.ID, ErrInvalidStatus, f.Status)
	}
	if f.CurrentStepIndex < 0 {
		return fmt.Errorf("follow-up %s: negative step index", f.ID)
	}
	return nil
}

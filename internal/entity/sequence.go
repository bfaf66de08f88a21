package entity

import (
	"time"

	"github.com/google/uuid"
)

// TriggerType names the lead event that enrolls a lead into a sequence.
// Values outside the known set are kept verbatim and treated as "other".
type TriggerType string

const (
	TriggerLeadCapture          TriggerType = "Lead Capture"
	TriggerAppointmentScheduled TriggerType = "Appointment Scheduled"
	TriggerPropertyViewed       TriggerType = "Property Viewed"
)

type DelayUnit string

const (
	DelayMinutes DelayUnit = "minutes"
	DelayHours   DelayUnit = "hours"
	DelayDays    DelayUnit = "days"
)

func (u DelayUnit) Valid() bool {
	return u == DelayMinutes || u == DelayHours || u == DelayDays
}

type Delay struct {
	Value int       `json:"value" yaml:"value"`
	Unit  DelayUnit `json:"unit" yaml:"unit"`
}

// MaxDelay bounds a single step delay to ten years.
const MaxDelay = 3650 * 24 * time.Hour

func (u DelayUnit) duration() time.Duration {
	switch u {
	case DelayMinutes:
		return time.Minute
	case DelayHours:
		return time.Hour
	case DelayDays:
		return 24 * time.Hour
	}
	return 0
}

// InRange reports whether the delay is positive and no longer than MaxDelay.
func (d Delay) InRange() bool {
	unit := d.Unit.duration()
	return unit > 0 && d.Value > 0 && int64(d.Value) <= int64(MaxDelay/unit)
}

// Duration converts the delay to wall-clock time. Unknown units count as
// zero and values past MaxDelay saturate at it.
func (d Delay) Duration() time.Duration {
	unit := d.Unit.duration()
	if unit == 0 || d.Value <= 0 {
		return 0
	}
	if int64(d.Value) > int64(MaxDelay/unit) {
		return MaxDelay
	}
	return time.Duration(d.Value) * unit
}

// Days normalises the delay to days (hours/24, minutes/1440).
func (d Delay) Days() float64 {
	switch d.Unit {
	case DelayMinutes:
		return float64(d.Value) / 1440
	case DelayHours:
		return float64(d.Value) / 24
	case DelayDays:
		return float64(d.Value)
	}
	return 0
}

type SequenceStep struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Delay   Delay  `json:"delay"`
	Subject string `json:"subject,omitempty"`
	Content string `json:"content,omitempty"`
}

// SequenceAnalytics is the last snapshot received from the backend; never computed here.
type SequenceAnalytics struct {
	TotalLeads   int       `json:"totalLeads"`
	OpenRate     float64   `json:"openRate"`
	ResponseRate float64   `json:"responseRate"`
	LastUpdated  time.Time `json:"lastUpdated,omitempty"`
}

type Sequence struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	TriggerType TriggerType       `json:"triggerType"`
	IsActive    bool              `json:"isActive"`
	Steps       []SequenceStep    `json:"steps"`
	Analytics   SequenceAnalytics `json:"analytics"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// NewSequence assigns ids to the sequence and to any step missing one.
func NewSequence(name, description string, trigger TriggerType, steps []SequenceStep, now time.Time) *Sequence {
	owned := make([]SequenceStep, len(steps))
	copy(owned, steps)
	for i := range owned {
		if owned[i].ID == "" {
			owned[i].ID = uuid.New().String()
		}
	}
	return &Sequence{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		TriggerType: trigger,
		IsActive:    true,
		Steps:       owned,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone copies the step slice so callers cannot alias the canonical collection.
func (s Sequence) Clone() Sequence {
	s.Steps = append([]SequenceStep(nil), s.Steps...)
	return s
}

package usecase

import (
	"time"

	"github.com/homelistingai/leadflow/internal/entity"
	"github.com/homelistingai/leadflow/internal/repository"
)

type AddLeadInput struct {
	Name   string `json:"name" validate:"notblank,max=200"`
	Email  string `json:"email" validate:"notblank,emailfmt"`
	Phone  string `json:"phone" validate:"max=40"`
	Status string `json:"status"`
	Source string `json:"source" validate:"max=100"`
	Notes  string `json:"notes"`
	Score  *int   `json:"score"`
}

type UpdateLeadInput struct {
	Name   *string `json:"name" validate:"omitnil,notblank,max=200"`
	Email  *string `json:"email" validate:"omitnil,notblank,emailfmt"`
	Phone  *string `json:"phone" validate:"omitnil,max=40"`
	Source *string `json:"source" validate:"omitnil,max=100"`
	Notes  *string `json:"notes"`
	Score  *int    `json:"score"`
}

func (in UpdateLeadInput) patch() repository.LeadPatch {
	return repository.LeadPatch{
		Name:   in.Name,
		Email:  in.Email,
		Phone:  in.Phone,
		Source: in.Source,
		Notes:  in.Notes,
		Score:  in.Score,
	}
}

type AppointmentInput struct {
	Date  string `json:"date" validate:"notblank,calendardate"`
	Time  string `json:"time" validate:"notblank,clocktime"`
	Notes string `json:"notes"`
}

type DelayInput struct {
	Value int    `json:"value" validate:"gt=0"`
	Unit  string `json:"unit" validate:"oneof=minutes hours days"`
}

type StepInput struct {
	ID      string     `json:"id"`
	Type    string     `json:"type" validate:"notblank"`
	Delay   DelayInput `json:"delay"`
	Subject string     `json:"subject"`
	Content string     `json:"content"`
}

type SequenceInput struct {
	Name        string      `json:"name" validate:"notblank,max=200"`
	Description string      `json:"description"`
	TriggerType string      `json:"triggerType" validate:"notblank"`
	Steps       []StepInput `json:"steps" validate:"min=1,dive"`
}

func (in SequenceInput) toRepository() repository.SequenceInput {
	steps := make([]entity.SequenceStep, 0, len(in.Steps))
	for _, s := range in.Steps {
		steps = append(steps, entity.SequenceStep{
			ID:      s.ID,
			Type:    s.Type,
			Delay:   entity.Delay{Value: s.Delay.Value, Unit: entity.DelayUnit(s.Delay.Unit)},
			Subject: s.Subject,
			Content: s.Content,
		})
	}
	return repository.SequenceInput{
		Name:        in.Name,
		Description: in.Description,
		TriggerType: entity.TriggerType(in.TriggerType),
		Steps:       steps,
	}
}

type AnalyticsInput struct {
	TotalLeads   int     `json:"totalLeads" validate:"gte=0"`
	OpenRate     float64 `json:"openRate" validate:"gte=0,lte=100"`
	ResponseRate float64 `json:"responseRate" validate:"gte=0,lte=100"`
}

type SequenceAnalyticsOutput struct {
	entity.SequenceAnalytics
	TotalDurationDays float64 `json:"totalDurationDays"`
}

type UserInput struct {
	Name  string `json:"name" validate:"notblank,max=200"`
	Email string `json:"email" validate:"notblank,emailfmt"`
	Role  string `json:"role" validate:"omitempty,oneof=admin agent viewer"`
}

type QRCodeInput struct {
	Name           string `json:"name" validate:"notblank,max=200"`
	DestinationURL string `json:"destinationUrl" validate:"notblank,url"`
}

// AdvanceReport summarises one scheduler pass over a tenant.
type AdvanceReport struct {
	Tenant    string    `json:"tenant"`
	Advanced  int       `json:"advanced"`
	Completed int       `json:"completed"`
	Skipped   int       `json:"skipped"`
	At        time.Time `json:"at"`
}

package repository

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/homelistingai/leadflow/internal/entity"
)

// LeadRepository holds the canonical lead collection of one tenant.
//
// The transition methods (MarkContacted, LogCall, ...) look the lead up and
// return it as it will be after the transition. They do not commit: the caller
// folds the result in with Upsert and adopts it with Replace, so the same
// transition can be applied either from a server response or locally.
type LeadRepository struct {
	*Collection[entity.Lead]
}

func NewLeadRepository(leads []entity.Lead) *LeadRepository {
	return &LeadRepository{NewCollection(leads, func(l entity.Lead) string { return l.ID })}
}

func (r *LeadRepository) List() []entity.Lead {
	return r.Items()
}

func (r *LeadRepository) Get(id string) (entity.Lead, error) {
	lead, ok := r.Find(id)
	if !ok {
		return entity.Lead{}, fmt.Errorf("lead %s: %w", id, ErrNotFound)
	}
	return lead, nil
}

type LeadInput struct {
	Name   string
	Email  string
	Phone  string
	Status entity.LeadStatus
	Source string
	Notes  string
	Score  *int
}

// Add builds a new lead; input is assumed validated.
func (r *LeadRepository) Add(input LeadInput, now time.Time) entity.Lead {
	lead := entity.NewLead(input.Name, input.Email, input.Phone, input.Status, input.Source, input.Notes, now)
	if input.Score != nil {
		score := entity.ClampScore(*input.Score)
		lead.Score = &score
	}
	return *lead
}

func (r *LeadRepository) MarkContacted(id, message string, now time.Time) (entity.Lead, error) {
	return r.transition(id, now, func(l *entity.Lead) {
		l.Status = entity.LeadStatusContacted
		l.LastMessage = message
	})
}

func (r *LeadRepository) LogCall(id, note string, now time.Time) (entity.Lead, error) {
	return r.transition(id, now, func(l *entity.Lead) {
		l.Status = entity.LeadStatusContacted
		l.LastMessage = "Call logged: " + note
	})
}

func (r *LeadRepository) AddNote(id, note string, now time.Time) (entity.Lead, error) {
	return r.transition(id, now, func(l *entity.Lead) {
		l.LastMessage = "Note: " + note
	})
}

func (r *LeadRepository) ScheduleAppointment(id, date, clock, notes string, now time.Time) (entity.Lead, error) {
	return r.transition(id, now, func(l *entity.Lead) {
		l.Status = entity.LeadStatusShowing
		l.LastMessage = AppointmentMessage(date, clock, notes)
	})
}

func (r *LeadRepository) SetStatus(id string, status entity.LeadStatus, now time.Time) (entity.Lead, error) {
	if !status.Valid() {
		return entity.Lead{}, entity.ErrInvalidStatus
	}
	return r.transition(id, now, func(l *entity.Lead) {
		l.Status = status
	})
}

// LeadPatch carries the editable lead fields; nil means unchanged.
type LeadPatch struct {
	Name   *string
	Email  *string
	Phone  *string
	Source *string
	Notes  *string
	Score  *int
}

func (r *LeadRepository) Update(id string, patch LeadPatch, now time.Time) (entity.Lead, error) {
	return r.transition(id, now, func(l *entity.Lead) {
		if patch.Name != nil {
			l.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Email != nil {
			l.Email = strings.ToLower(strings.TrimSpace(*patch.Email))
		}
		if patch.Phone != nil {
			l.Phone = strings.TrimSpace(*patch.Phone)
		}
		if patch.Source != nil {
			l.Source = *patch.Source
		}
		if patch.Notes != nil {
			l.Notes = *patch.Notes
		}
		if patch.Score != nil {
			score := entity.ClampScore(*patch.Score)
			l.Score = &score
		}
	})
}

func (r *LeadRepository) transition(id string, now time.Time, apply func(*entity.Lead)) (entity.Lead, error) {
	lead, err := r.Get(id)
	if err != nil {
		return entity.Lead{}, err
	}
	if lead.Score != nil {
		score := entity.ClampScore(*lead.Score)
		lead.Score = &score
	}
	apply(&lead)
	lead.UpdatedAt = now
	return lead, nil
}

func AppointmentMessage(date, clock, notes string) string {
	msg := fmt.Sprintf("Appointment scheduled for %s at %s", date, clock)
	if notes = strings.TrimSpace(notes); notes != "" {
		msg += ". Notes: " + notes
	}
	return msg
}

// Filter matches status exactly (empty means any) and search case-insensitively
// against name, email and phone.
func (r *LeadRepository) Filter(status entity.LeadStatus, search string) []entity.Lead {
	search = strings.ToLower(strings.TrimSpace(search))
	out := []entity.Lead{}
	for _, lead := range r.items {
		if status != "" && lead.Status != status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(lead.Name), search) &&
			!strings.Contains(strings.ToLower(lead.Email), search) &&
			!strings.Contains(strings.ToLower(lead.Phone), search) {
			continue
		}
		out = append(out, lead)
	}
	return out
}

type LeadStats struct {
	Total          int                       `json:"total"`
	ByStatus       map[entity.LeadStatus]int `json:"byStatus"`
	ConversionRate float64                   `json:"conversionRate"`
}

// Stats counts leads per status. ConversionRate is Showing over total, as a
// percentage rounded to one decimal.
func (r *LeadRepository) Stats() LeadStats {
	stats := LeadStats{ByStatus: make(map[entity.LeadStatus]int, len(entity.LeadStatuses))}
	for _, s := range entity.LeadStatuses {
		stats.ByStatus[s] = 0
	}
	for _, lead := range r.items {
		stats.Total++
		stats.ByStatus[lead.Status]++
	}
	if stats.Total > 0 {
		rate := float64(stats.ByStatus[entity.LeadStatusShowing]) / float64(stats.Total) * 100
		stats.ConversionRate = math.Round(rate*10) / 10
	}
	return stats
}

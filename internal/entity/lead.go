package entity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LeadStatus is the position of a lead in the sales funnel.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "New"
	LeadStatusQualified LeadStatus = "Qualified"
	LeadStatusContacted LeadStatus = "Contacted"
	LeadStatusShowing   LeadStatus = "Showing"
	LeadStatusLost      LeadStatus = "Lost"
)

// LeadStatuses lists every valid status in funnel order.
var LeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusQualified,
	LeadStatusContacted,
	LeadStatusShowing,
	LeadStatusLost,
}

func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusQualified, LeadStatusContacted, LeadStatusShowing, LeadStatusLost:
		return true
	}
	return false
}

// ParseLeadStatus accepts the canonical spelling, case-insensitively.
func ParseLeadStatus(raw string) (LeadStatus, error) {
	raw = strings.TrimSpace(raw)
	for _, s := range LeadStatuses {
		if strings.EqualFold(string(s), raw) {
			return s, nil
		}
	}
	return "", ErrInvalidStatus
}

const (
	DefaultLeadScore  = 50
	DefaultLeadSource = "Website"
	DateLayout        = "2006-01-02"
)

type Lead struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	Status      LeadStatus `json:"status"`
	Source      string     `json:"source"`
	Notes       string     `json:"notes"`
	Date        string     `json:"date"`
	LastMessage string     `json:"lastMessage,omitempty"`
	Score       *int       `json:"score,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewLead builds a lead in the New state (unless status is given) with the default score.
func NewLead(name, email, phone string, status LeadStatus, source, notes string, now time.Time) *Lead {
	if status == "" {
		status = LeadStatusNew
	}
	if strings.TrimSpace(source) == "" {
		source = DefaultLeadSource
	}
	score := DefaultLeadScore
	return &Lead{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(name),
		Email:     strings.ToLower(strings.TrimSpace(email)),
		Phone:     strings.TrimSpace(phone),
		Status:    status,
		Source:    source,
		Notes:     notes,
		Date:      now.Format(DateLayout),
		Score:     &score,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// EffectiveScore is the only place the default score is applied.
func (l Lead) EffectiveScore() int {
	if l.Score == nil {
		return DefaultLeadScore
	}
	return ClampScore(*l.Score)
}

// ScoreTier buckets the effective score the way the console badges it.
func (l Lead) ScoreTier() string {
	switch score := l.EffectiveScore(); {
	case score >= 90:
		return "Hot"
	case score >= 70:
		return "Qualified"
	case score >= 40:
		return "Warm"
	default:
		return "Cold"
	}
}

func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Normalize checks a lead that arrived from outside (remote payload or cache):
// the status must be known and the score is clamped.
func (l *Lead) Normalize() error {
	if l.ID == "" {
		return errors.New("lead without id")
	}
	if !l.Status.Valid() {
		return fmt.Errorf("lead %s: %w %q", l.ID, ErrInvalidStatus, l.Status)
	}
	if l.Score != nil {
		score := ClampScore(*l.Score)
		l.Score = &score
	}
	return nil
}

package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/homelistingai/leadflow/internal/entity"
	"github.com/homelistingai/leadflow/internal/infra/metrics"
	"github.com/homelistingai/leadflow/internal/repository"
)

// Lead event types published after an intent.
const (
	LeadEventAdded        = "lead.added"
	LeadEventContacted    = "lead.contacted"
	LeadEventCallLogged   = "lead.call_logged"
	LeadEventNoteAdded    = "lead.note_added"
	LeadEventAppointment  = "lead.appointment_scheduled"
	LeadEventStatus       = "lead.status_changed"
	LeadEventUpdated      = "lead.updated"
	LeadEventRemoved      = "lead.removed"
	LeadEventTriggerFired = "lead.trigger_fired"
)

const defaultContactMessage = "Marked as contacted"

func (c *LifecycleController) AddLead(ctx context.Context, tenant string, in AddLeadInput) (entity.Lead, error) {
	metrics.RecordIntent("add_lead")
	if err := validateInput(in); err != nil {
		return entity.Lead{}, err
	}
	var status entity.LeadStatus
	if strings.TrimSpace(in.Status) != "" {
		s, err := parseLeadStatus(in.Status)
		if err != nil {
			return entity.Lead{}, err
		}
		status = s
	}

	st, release := c.acquire(ctx, tenant)
	defer release()

	now := c.clock.Now()
	lead := st.leads.Add(repository.LeadInput{
		Name:   in.Name,
		Email:  in.Email,
		Phone:  in.Phone,
		Status: status,
		Source: in.Source,
		Notes:  in.Notes,
		Score:  in.Score,
	}, now)

	saveErr := c.saveLead(ctx, st, tenant, lead)
	lead = leadAfter(st, lead)
	_, enrollErr := c.enroll(ctx, st, tenant, lead, entity.TriggerLeadCapture)

	c.notify(tenant, st)
	c.publishLeadEvent(ctx, tenant, LeadEventAdded, lead, lead.Source)
	return lead, firstErr(saveErr, enrollErr)
}

func (c *LifecycleController) MarkContacted(ctx context.Context, tenant, id, message string) (entity.Lead, error) {
	metrics.RecordIntent("mark_contacted")
	if strings.TrimSpace(message) == "" {
		message = defaultContactMessage
	}
	return c.transitionLead(ctx, tenant, id, LeadEventContacted, func(r *repository.LeadRepository) (entity.Lead, error) {
		return r.MarkContacted(id, strings.TrimSpace(message), c.clock.Now())
	})
}

func (c *LifecycleController) LogCall(ctx context.Context, tenant, id, note string) (entity.Lead, error) {
	metrics.RecordIntent("log_call")
	if err := requireText("note", note); err != nil {
		return entity.Lead{}, err
	}
	return c.transitionLead(ctx, tenant, id, LeadEventCallLogged, func(r *repository.LeadRepository) (entity.Lead, error) {
		return r.LogCall(id, strings.TrimSpace(note), c.clock.Now())
	})
}

func (c *LifecycleController) AddNote(ctx context.Context, tenant, id, note string) (entity.Lead, error) {
	metrics.RecordIntent("add_note")
	if err := requireText("note", note); err != nil {
		return entity.Lead{}, err
	}
	return c.transitionLead(ctx, tenant, id, LeadEventNoteAdded, func(r *repository.LeadRepository) (entity.Lead, error) {
		return r.AddNote(id, strings.TrimSpace(note), c.clock.Now())
	})
}

// ScheduleAppointment moves the lead to Showing and enrolls it in every active
// "Appointment Scheduled" sequence.
func (c *LifecycleController) ScheduleAppointment(ctx context.Context, tenant, id string, in AppointmentInput) (entity.Lead, error) {
	metrics.RecordIntent("schedule_appointment")
	if err := validateInput(in); err != nil {
		return entity.Lead{}, err
	}

	st, release := c.acquire(ctx, tenant)
	defer release()

	next, err := st.leads.ScheduleAppointment(id, strings.TrimSpace(in.Date), strings.TrimSpace(in.Time), in.Notes, c.clock.Now())
	if err != nil {
		return entity.Lead{}, notFound("lead", id, err)
	}
	saveErr := c.saveLead(ctx, st, tenant, next)
	lead := leadAfter(st, next)
	_, enrollErr := c.enroll(ctx, st, tenant, lead, entity.TriggerAppointmentScheduled)

	c.notify(tenant, st)
	c.publishLeadEvent(ctx, tenant, LeadEventAppointment, lead, lead.LastMessage)
	return lead, firstErr(saveErr, enrollErr)
}

func (c *LifecycleController) SetLeadStatus(ctx context.Context, tenant, id, raw string) (entity.Lead, error) {
	metrics.RecordIntent("set_lead_status")
	status, err := parseLeadStatus(raw)
	if err != nil {
		return entity.Lead{}, err
	}
	return c.transitionLead(ctx, tenant, id, LeadEventStatus, func(r *repository.LeadRepository) (entity.Lead, error) {
		return r.SetStatus(id, status, c.clock.Now())
	})
}

func (c *LifecycleController) UpdateLead(ctx context.Context, tenant, id string, in UpdateLeadInput) (entity.Lead, error) {
	metrics.RecordIntent("update_lead")
	if err := validateInput(in); err != nil {
		return entity.Lead{}, err
	}
	return c.transitionLead(ctx, tenant, id, LeadEventUpdated, func(r *repository.LeadRepository) (entity.Lead, error) {
		return r.Update(id, in.patch(), c.clock.Now())
	})
}

// RemoveLead is idempotent: an unknown id succeeds without touching the
// remote or the store.
func (c *LifecycleController) RemoveLead(ctx context.Context, tenant, id string) error {
	metrics.RecordIntent("remove_lead")
	st, release := c.acquire(ctx, tenant)
	defer release()

	lead, ok := st.leads.Find(id)
	if !ok {
		return nil
	}
	err := persist(ctx, c, st, tenant, entity.CollectionLeads, st.leads.Collection,
		func(ctx context.Context) ([]json.RawMessage, error) {
			return c.remote.Delete(ctx, tenant, entity.CollectionLeads.Resource(), id)
		},
		func(items []entity.Lead) []entity.Lead {
			return st.leads.Without(items, id)
		},
	)
	c.notify(tenant, st)
	c.publishLeadEvent(ctx, tenant, LeadEventRemoved, lead, "")
	return err
}

// RecordTrigger enrolls an existing lead in every active sequence listening
// for trigger, e.g. "Property Viewed".
func (c *LifecycleController) RecordTrigger(ctx context.Context, tenant, id, trigger string) ([]entity.FollowUp, error) {
	metrics.RecordIntent("record_trigger")
	if err := requireText("trigger", trigger); err != nil {
		return nil, err
	}

	st, release := c.acquire(ctx, tenant)
	defer release()

	lead, err := st.leads.Get(id)
	if err != nil {
		return nil, notFound("lead", id, err)
	}
	enrolled, err := c.enroll(ctx, st, tenant, lead, entity.TriggerType(strings.TrimSpace(trigger)))
	c.notify(tenant, st)
	c.publishLeadEvent(ctx, tenant, LeadEventTriggerFired, lead, trigger)
	return enrolled, err
}

func (c *LifecycleController) ListLeads(ctx context.Context, tenant, status, search string) ([]entity.Lead, error) {
	var s entity.LeadStatus
	if strings.TrimSpace(status) != "" {
		parsed, err := parseLeadStatus(status)
		if err != nil {
			return nil, err
		}
		s = parsed
	}
	st, release := c.acquire(ctx, tenant)
	defer release()
	return st.leads.Filter(s, search), nil
}

func (c *LifecycleController) GetLead(ctx context.Context, tenant, id string) (entity.Lead, error) {
	st, release := c.acquire(ctx, tenant)
	defer release()
	lead, err := st.leads.Get(id)
	if err != nil {
		return entity.Lead{}, notFound("lead", id, err)
	}
	return lead, nil
}

func (c *LifecycleController) LeadStats(ctx context.Context, tenant string) repository.LeadStats {
	st, release := c.acquire(ctx, tenant)
	defer release()
	return st.leads.Stats()
}

func (c *LifecycleController) transitionLead(ctx context.Context, tenant, id, event string, apply func(*repository.LeadRepository) (entity.Lead, error)) (entity.Lead, error) {
	st, release := c.acquire(ctx, tenant)
	defer release()

	next, err := apply(st.leads)
	if err != nil {
		return entity.Lead{}, notFound("lead", id, err)
	}
	err = c.saveLead(ctx, st, tenant, next)
	lead := leadAfter(st, next)

	c.notify(tenant, st)
	c.publishLeadEvent(ctx, tenant, event, lead, lead.LastMessage)
	return lead, err
}

func (c *LifecycleController) saveLead(ctx context.Context, st *tenantState, tenant string, lead entity.Lead) error {
	return persist(ctx, c, st, tenant, entity.CollectionLeads, st.leads.Collection,
		func(ctx context.Context) ([]json.RawMessage, error) {
			return c.remote.Put(ctx, tenant, entity.CollectionLeads.Resource(), lead.ID, lead)
		},
		func(items []entity.Lead) []entity.Lead {
			return st.leads.Upsert(items, lead)
		},
	)
}

// leadAfter returns the canonical copy of lead once persisted, which is the
// server's version when the remote answered.
func leadAfter(st *tenantState, lead entity.Lead) entity.Lead {
	if canonical, ok := st.leads.Find(lead.ID); ok {
		return canonical
	}
	return lead
}

// enroll creates one follow-up per matching active sequence and persists them
// in a single write of the follow-up collection.
func (c *LifecycleController) enroll(ctx context.Context, st *tenantState, tenant string, lead entity.Lead, trigger entity.TriggerType) ([]entity.FollowUp, error) {
	created := st.sequences.Enroll(lead, trigger, c.clock.Now())
	if len(created) == 0 {
		return nil, nil
	}
	err := persist(ctx, c, st, tenant, entity.CollectionFollowUps, st.sequences.FollowUps,
		func(ctx context.Context) ([]json.RawMessage, error) {
			var items []json.RawMessage
			for _, f := range created {
				var err error
				if items, err = c.remote.Put(ctx, tenant, entity.CollectionFollowUps.Resource(), f.ID, f); err != nil {
					return nil, err
				}
			}
			return items, nil
		},
		func(items []entity.FollowUp) []entity.FollowUp {
			for _, f := range created {
				items = st.sequences.FollowUps.Upsert(items, f)
			}
			return items
		},
	)
	c.log.WithField("tenant", tenant).WithField("lead_id", lead.ID).
		Infof("Enrolled lead in %d sequence(s) on %q", len(created), trigger)
	return created, err
}

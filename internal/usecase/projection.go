package usecase

import (
	"context"
	"time"

	"github.com/homelistingai/leadflow/internal/entity"
	"github.com/homelistingai/leadflow/internal/repository"
)

// Projection is a read-only copy of a tenant's state. Mutating it has no
// effect on the controller.
type Projection struct {
	Tenant    string               `json:"tenant"`
	Revision  uint64               `json:"revision"`
	Leads     []entity.Lead        `json:"leads"`
	Sequences []entity.Sequence    `json:"sequences"`
	FollowUps []entity.FollowUp    `json:"followUps"`
	Users     []entity.User        `json:"users"`
	QRCodes   []entity.QRCode      `json:"qrCodes"`
	Stats     repository.LeadStats `json:"stats"`
	At        time.Time            `json:"at"`
}

const subscriberBuffer = 4

// Projection returns the current snapshot of tenant, loading it first if needed.
func (c *LifecycleController) Projection(ctx context.Context, tenant string) Projection {
	st, release := c.acquire(ctx, tenant)
	defer release()
	return c.project(tenant, st)
}

func (c *LifecycleController) project(tenant string, st *tenantState) Projection {
	return Projection{
		Tenant:    tenant,
		Revision:  st.revision,
		Leads:     st.leads.List(),
		Sequences: st.sequences.ListSequences(),
		FollowUps: st.sequences.ListFollowUps(),
		Users:     st.users.Items(),
		QRCodes:   st.qrCodes.Items(),
		Stats:     st.leads.Stats(),
		At:        c.clock.Now(),
	}
}

// Subscribe streams a projection of tenant after every intent. Slow
// subscribers miss intermediate snapshots but always get the latest.
// cancel must be called to release the subscription.
func (c *LifecycleController) Subscribe(tenant string) (<-chan Projection, func()) {
	ch := make(chan Projection, subscriberBuffer)

	c.subsMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	if c.subscribers[tenant] == nil {
		c.subscribers[tenant] = make(map[int]chan Projection)
	}
	c.subscribers[tenant][id] = ch
	c.subsMu.Unlock()

	cancel := func() {
		c.subsMu.Lock()
		defer c.subsMu.Unlock()
		if subs, ok := c.subscribers[tenant]; ok {
			if _, ok := subs[id]; ok {
				delete(subs, id)
				close(ch)
			}
			if len(subs) == 0 {
				delete(c.subscribers, tenant)
			}
		}
	}
	return ch, cancel
}

// notify must be called with the tenant lock held.
func (c *LifecycleController) notify(tenant string, st *tenantState) {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	subs := c.subscribers[tenant]
	if len(subs) == 0 {
		return
	}
	snapshot := c.project(tenant, st)
	for _, ch := range subs {
		select {
		case ch <- snapshot:
		default:
			// drop the oldest so the newest always lands
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/homelistingai/leadflow/internal/clock"
	"github.com/homelistingai/leadflow/internal/entity"
	"github.com/homelistingai/leadflow/internal/infra/logging"
	"github.com/homelistingai/leadflow/internal/infra/metrics"
	"github.com/homelistingai/leadflow/internal/infra/queue"
	"github.com/homelistingai/leadflow/internal/repository"
)

var errRemoteDisabled = errors.New("remote sync disabled")

type Options struct {
	// SeedDemoUsers fills an empty user collection on first load. Leads are never seeded.
	SeedDemoUsers bool
}

// LifecycleController turns admin intents into state transitions and runs
// every write through persist. All work for a tenant is serialised on that
// tenant's mutex, remote call included.
type LifecycleController struct {
	store  Store
	remote RemoteClient
	events EventPublisher
	clock  clock.Clock
	log    logrus.FieldLogger
	opts   Options

	mu      sync.Mutex
	tenants map[string]*tenantState

	subsMu      sync.Mutex
	subscribers map[string]map[int]chan Projection
	nextSubID   int
}

type tenantState struct {
	mu       sync.Mutex
	loaded   bool
	revision uint64

	leads     *repository.LeadRepository
	sequences *repository.SequenceRepository
	users     *repository.Collection[entity.User]
	qrCodes   *repository.Collection[entity.QRCode]
}

func newTenantState() *tenantState {
	return &tenantState{
		leads:     repository.NewLeadRepository(nil),
		sequences: repository.NewSequenceRepository(nil, nil),
		users:     repository.NewUserCollection(nil),
		qrCodes:   repository.NewQRCodeCollection(nil),
	}
}

// NewLifecycleController wires the controller. remote and events may be nil:
// without a remote every write takes the local path.
func NewLifecycleController(store Store, remote RemoteClient, events EventPublisher, clk clock.Clock, log logrus.FieldLogger, opts Options) *LifecycleController {
	if clk == nil {
		clk = clock.Real()
	}
	return &LifecycleController{
		store:       store,
		remote:      remote,
		events:      events,
		clock:       clk,
		log:         log.WithField("component", "lifecycle"),
		opts:        opts,
		tenants:     make(map[string]*tenantState),
		subscribers: make(map[string]map[int]chan Projection),
	}
}

// Tenants lists every tenant this process has served, sorted.
func (c *LifecycleController) Tenants() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.tenants))
	for t := range c.tenants {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (c *LifecycleController) state(tenant string) *tenantState {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.tenants[tenant]
	if !ok {
		st = newTenantState()
		c.tenants[tenant] = st
	}
	return st
}

// acquire locks the tenant and loads it on first use. Callers must call the
// returned release func.
func (c *LifecycleController) acquire(ctx context.Context, tenant string) (*tenantState, func()) {
	st := c.state(tenant)
	st.mu.Lock()
	if !st.loaded {
		c.load(ctx, tenant, st)
	}
	return st, st.mu.Unlock
}

// Load (re)reads every collection of tenant: remote first, then the store,
// then empty (or the demo users).
func (c *LifecycleController) Load(ctx context.Context, tenant string) {
	st := c.state(tenant)
	st.mu.Lock()
	defer st.mu.Unlock()
	c.load(ctx, tenant, st)
	c.notify(tenant, st)
}

func (c *LifecycleController) load(ctx context.Context, tenant string, st *tenantState) {
	loadCollection(ctx, c, tenant, entity.CollectionLeads, st.leads.Collection, nil)
	loadCollection(ctx, c, tenant, entity.CollectionSequences, st.sequences.Sequences, nil)
	loadCollection(ctx, c, tenant, entity.CollectionFollowUps, st.sequences.FollowUps, nil)
	loadCollection(ctx, c, tenant, entity.CollectionQRCodes, st.qrCodes, nil)

	var seed func() []entity.User
	if c.opts.SeedDemoUsers {
		seed = func() []entity.User { return entity.DemoUsers(c.clock.Now()) }
	}
	loadCollection(ctx, c, tenant, entity.CollectionUsers, st.users, seed)

	st.loaded = true
	st.revision++
}

func loadCollection[T any](ctx context.Context, c *LifecycleController, tenant string, key entity.CollectionKey, coll *repository.Collection[T], seed func() []T) {
	log := c.log.WithFields(logrus.Fields{"tenant": tenant, "collection": string(key)})

	items, err := c.callRemote(ctx, "list "+key.Resource(), func(ctx context.Context) ([]json.RawMessage, error) {
		return c.remote.List(ctx, tenant, key.Resource())
	})
	if err == nil {
		var decoded []T
		if decoded, err = decodeItems[T](items); err == nil {
			coll.Replace(decoded)
			if werr := c.writeCollection(ctx, tenant, key, decoded); werr != nil {
				logging.ReportError(log, "persistence", werr, logrus.Fields{"tenant": tenant, "collection": string(key)})
			}
			metrics.RecordRemoteSync(string(key), metrics.OutcomeRemote)
			return
		}
	}
	log.WithError(err).Warn("⚠️ Remote load failed, reading local store")
	metrics.RecordRemoteSync(string(key), metrics.OutcomeFallback)

	raw, ok, rerr := c.store.Read(ctx, tenant, string(key))
	switch {
	case rerr != nil:
		log.WithError(rerr).Error("Store read failed")
	case ok:
		cached, derr := decodeStored[T](raw)
		if derr == nil {
			coll.Replace(cached)
			return
		}
		log.WithError(derr).Error("Stored collection is corrupt, starting empty")
	}

	if seed == nil {
		coll.Replace(nil)
		return
	}
	seeded := seed()
	coll.Replace(seeded)
	if werr := c.writeCollection(ctx, tenant, key, seeded); werr != nil {
		logging.ReportError(log, "persistence", werr, logrus.Fields{"tenant": tenant, "collection": string(key)})
	}
}

// persist applies one write to a collection:
//
//  1. call the remote;
//  2. on success adopt the server's collection;
//  3. on any remote failure adopt mutate(current) instead;
//  4. write the adopted collection to the store.
//
// The in-memory collection is replaced before the store write, so a
// PersistenceError leaves the change live but not durable.
func persist[T any](
	ctx context.Context,
	c *LifecycleController,
	st *tenantState,
	tenant string,
	key entity.CollectionKey,
	coll *repository.Collection[T],
	remoteCall func(context.Context) ([]json.RawMessage, error),
	mutate func([]T) []T,
) error {
	log := c.log.WithFields(logrus.Fields{"tenant": tenant, "collection": string(key)})
	st.revision++
	rev := st.revision

	var next []T
	items, err := c.callRemote(ctx, "write "+key.Resource(), remoteCall)
	if err == nil {
		next, err = decodeItems[T](items)
		if err != nil {
			err = &RemoteUnavailableError{Op: "write " + key.Resource(), Err: err}
		}
	}

	switch {
	case err == nil && rev != st.revision:
		log.WithField("revision", rev).Warn("Discarding stale remote result")
		metrics.RecordRemoteSync(string(key), metrics.OutcomeStale)
		return nil
	case err == nil:
		metrics.RecordRemoteSync(string(key), metrics.OutcomeRemote)
	default:
		log.WithError(err).Warn("⚠️ Remote write failed, applying locally")
		metrics.RecordRemoteSync(string(key), metrics.OutcomeFallback)
		next = mutate(coll.Items())
	}

	coll.Replace(next)
	if werr := c.writeCollection(ctx, tenant, key, next); werr != nil {
		metrics.RecordPersistenceFailure(string(key))
		logging.ReportError(log, "persistence", werr, logrus.Fields{"tenant": tenant, "collection": string(key)})
		return &PersistenceError{Collection: string(key), Err: werr}
	}
	return nil
}

func (c *LifecycleController) callRemote(ctx context.Context, op string, call func(context.Context) ([]json.RawMessage, error)) ([]json.RawMessage, error) {
	if c.remote == nil {
		return nil, &RemoteUnavailableError{Op: op, Err: errRemoteDisabled}
	}
	items, err := call(ctx)
	if err != nil {
		return nil, &RemoteUnavailableError{Op: op, Err: err}
	}
	return items, nil
}

func (c *LifecycleController) writeCollection(ctx context.Context, tenant string, key entity.CollectionKey, items any) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}
	if string(data) == "null" {
		data = []byte("[]")
	}
	return c.store.Write(ctx, tenant, string(key), data)
}

type normalizer interface {
	Normalize() error
}

// decodeItems decodes each raw record into T, rejecting the whole payload if
// any record fails to decode or normalise.
func decodeItems[T any](items []json.RawMessage) ([]T, error) {
	out := make([]T, 0, len(items))
	for i, raw := range items {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		if n, ok := any(&item).(normalizer); ok {
			if err := n.Normalize(); err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
		}
		out = append(out, item)
	}
	return out, nil
}

func decodeStored[T any](raw []byte) ([]T, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	return decodeItems[T](items)
}

func notFound(collection, id string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Collection: collection, ID: id}
	}
	return err
}

// firstErr keeps the first error of a multi-write intent.
func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *LifecycleController) publishLeadEvent(ctx context.Context, tenant, kind string, lead entity.Lead, detail string) {
	if c.events == nil {
		return
	}
	event := queue.LeadEvent{
		Type:       kind,
		Tenant:     tenant,
		LeadID:     lead.ID,
		Status:     string(lead.Status),
		Detail:     detail,
		OccurredAt: c.clock.Now(),
	}
	if err := c.events.PublishLeadEvent(ctx, event); err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{"tenant": tenant, "event": kind}).Warn("Lead event not published")
	}
}

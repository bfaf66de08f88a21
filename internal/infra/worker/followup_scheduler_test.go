package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homelistingai/leadflow/internal/clock"
	"github.com/homelistingai/leadflow/internal/infra/logging"
	"github.com/homelistingai/leadflow/internal/usecase"
)

type fakeAdvancer struct {
	mu      sync.Mutex
	tenants []string
	calls   []string
	failFor string
	passes  chan struct{}
}

func (f *fakeAdvancer) Tenants() []string {
	return f.tenants
}

func (f *fakeAdvancer) AdvanceFollowUps(_ context.Context, tenant string) (usecase.AdvanceReport, error) {
	f.mu.Lock()
	f.calls = append(f.calls, tenant)
	f.mu.Unlock()

	defer func() {
		if f.passes != nil && tenant == f.tenants[len(f.tenants)-1] {
			f.passes <- struct{}{}
		}
	}()
	if tenant == f.failFor {
		return usecase.AdvanceReport{Tenant: tenant, Advanced: 1}, errors.New("store down")
	}
	return usecase.AdvanceReport{Tenant: tenant, Completed: 1}, nil
}

func (f *fakeAdvancer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestRunOnce_VisitsEveryTenant(t *testing.T) {
	adv := &fakeAdvancer{tenants: []string{"acme", "globex"}, failFor: "acme"}
	w := NewFollowUpScheduler(adv, clock.Fake(time.Now()), time.Minute, logging.Discard())

	reports := w.RunOnce(context.Background())

	require.Len(t, reports, 2)
	assert.Equal(t, "acme", reports[0].Tenant)
	assert.Equal(t, 1, reports[0].Advanced)
	assert.Equal(t, "globex", reports[1].Tenant)
	assert.Equal(t, []string{"acme", "globex"}, adv.calls)
}

func TestRunOnce_StopsOnCancelledContext(t *testing.T) {
	adv := &fakeAdvancer{tenants: []string{"acme"}}
	w := NewFollowUpScheduler(adv, clock.Fake(time.Now()), time.Minute, logging.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, w.RunOnce(ctx))
	assert.Zero(t, adv.callCount())
}

func TestStart_RunsOnEveryTick(t *testing.T) {
	clk := clock.Fake(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	adv := &fakeAdvancer{tenants: []string{"acme"}, passes: make(chan struct{}, 4)}
	w := NewFollowUpScheduler(adv, clk, 30*time.Second, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	waitPass(t, adv.passes)
	clk.Advance(30 * time.Second)
	waitPass(t, adv.passes)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, 2, adv.callCount())
}

func TestNewFollowUpScheduler_DefaultsInterval(t *testing.T) {
	w := NewFollowUpScheduler(&fakeAdvancer{}, nil, 0, logging.Discard())
	assert.Equal(t, time.Minute, w.tickInterval)
}

func waitPass(t *testing.T, passes <-chan struct{}) {
	t.Helper()
	select {
	case <-passes:
	case <-time.After(time.Second):
		t.Fatal("no scheduler pass")
	}
}

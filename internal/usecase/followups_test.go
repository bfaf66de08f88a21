package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/homelistingai/leadflow/internal/entity"
	"github.com/homelistingai/leadflow/internal/infra/queue"
	"github.com/homelistingai/leadflow/internal/infra/store"
)

func welcomeSequence(trigger string) SequenceInput {
	return SequenceInput{
		Name:        "Welcome",
		TriggerType: trigger,
		Steps: []StepInput{
			{Type: "email", Delay: DelayInput{Value: 1, Unit: "days"}, Subject: "Hi {{lead.name}}", Content: "Thanks for reaching out"},
			{Type: "email", Delay: DelayInput{Value: 2, Unit: "days"}, Subject: "Still looking?"},
		},
	}
}

func TestCreateSequence_RejectsInvalidSteps(t *testing.T) {
	ctx := context.Background()
	ctrl, _ := newController(store.NewMemoryStore(), downRemote(), quietEvents(), Options{})

	noSteps := welcomeSequence("Lead Capture")
	noSteps.Steps = nil
	_, err := ctrl.CreateSequence(ctx, tenant, noSteps)
	assert.True(t, IsValidationError(err))

	badDelay := welcomeSequence("Lead Capture")
	badDelay.Steps[1].Delay = DelayInput{Value: 0, Unit: "days"}
	_, err = ctrl.CreateSequence(ctx, tenant, badDelay)
	assert.True(t, IsValidationError(err))

	badUnit := welcomeSequence("Lead Capture")
	badUnit.Steps[0].Delay.Unit = "weeks"
	_, err = ctrl.CreateSequence(ctx, tenant, badUnit)
	assert.True(t, IsValidationError(err))

	tooLong := welcomeSequence("Lead Capture")
	tooLong.Steps[0].Delay = DelayInput{Value: 200000, Unit: "days"}
	_, err = ctrl.CreateSequence(ctx, tenant, tooLong)
	assert.True(t, IsValidationError(err))

	assert.Empty(t, ctrl.ListSequences(ctx, tenant))
}

func TestSequenceAnalytics_TotalDuration(t *testing.T) {
	ctx := context.Background()
	ctrl, clk := newController(store.NewMemoryStore(), downRemote(), quietEvents(), Options{})

	in := welcomeSequence("Lead Capture")
	in.Steps = append(in.Steps, StepInput{Type: "task", Delay: DelayInput{Value: 12, Unit: "hours"}})
	seq, err := ctrl.CreateSequence(ctx, tenant, in)
	require.NoError(t, err)
	assert.True(t, seq.IsActive)

	_, err = ctrl.RefreshAnalytics(ctx, tenant, seq.ID, AnalyticsInput{TotalLeads: 12, OpenRate: 40.5, ResponseRate: 10})
	require.NoError(t, err)

	out, err := ctrl.SequenceAnalytics(ctx, tenant, seq.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, out.TotalDurationDays, 1e-9)
	assert.Equal(t, 12, out.TotalLeads)
	assert.Equal(t, clk.Now(), out.LastUpdated)

	_, err = ctrl.SequenceAnalytics(ctx, tenant, "missing")
	assert.True(t, IsNotFoundError(err))
}

func TestAdvanceFollowUps_RunsStepsThenCompletes(t *testing.T) {
	ctx := context.Background()
	events := new(MockEvents)
	events.On("PublishLeadEvent", mock.Anything, mock.Anything).Return(nil)
	events.On("PublishStepDue", mock.Anything, mock.MatchedBy(func(p queue.StepDuePayload) bool {
		return p.StepIndex == 0 && p.LeadEmail == "jane@example.com" && p.Channel == "email"
	})).Return(nil).Once()
	events.On("PublishStepDue", mock.Anything, mock.MatchedBy(func(p queue.StepDuePayload) bool {
		return p.StepIndex == 1
	})).Return(nil).Once()
	ctrl, clk := newController(store.NewMemoryStore(), downRemote(), events, Options{})

	seq, err := ctrl.CreateSequence(ctx, tenant, welcomeSequence("lead capture"))
	require.NoError(t, err)
	lead, err := ctrl.AddLead(ctx, tenant, janeInput())
	require.NoError(t, err)

	followUps, err := ctrl.ListFollowUps(ctx, tenant, "")
	require.NoError(t, err)
	require.Len(t, followUps, 1)
	f := followUps[0]
	assert.Equal(t, lead.ID, f.LeadID)
	assert.Equal(t, seq.Name, f.SequenceName)
	assert.Equal(t, start.Add(24*time.Hour), f.NextStepDate)

	report, err := ctrl.AdvanceFollowUps(ctx, tenant)
	require.NoError(t, err)
	assert.Zero(t, report.Advanced+report.Completed, "nothing is due yet")

	clk.Advance(24 * time.Hour)
	report, err = ctrl.AdvanceFollowUps(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Advanced)

	followUps, err = ctrl.ListFollowUps(ctx, tenant, "active")
	require.NoError(t, err)
	require.Len(t, followUps, 1)
	assert.Equal(t, 1, followUps[0].CurrentStepIndex)
	assert.Equal(t, clk.Now().Add(48*time.Hour), followUps[0].NextStepDate)

	clk.Advance(48 * time.Hour)
	report, err = ctrl.AdvanceFollowUps(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Completed)

	done, err := ctrl.ListFollowUps(ctx, tenant, "completed")
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, entity.EventCompleted, done[0].History[len(done[0].History)-1].Type)

	events.AssertExpectations(t)
}

func TestEnroll_OncePerLeadAndSequence(t *testing.T) {
	ctx := context.Background()
	ctrl, _ := newController(store.NewMemoryStore(), downRemote(), quietEvents(), Options{})

	_, err := ctrl.CreateSequence(ctx, tenant, welcomeSequence("Property Viewed"))
	require.NoError(t, err)
	lead, err := ctrl.AddLead(ctx, tenant, janeInput())
	require.NoError(t, err)

	enrolled, err := ctrl.RecordTrigger(ctx, tenant, lead.ID, "Property Viewed")
	require.NoError(t, err)
	assert.Len(t, enrolled, 1)

	enrolled, err = ctrl.RecordTrigger(ctx, tenant, lead.ID, "Property Viewed")
	require.NoError(t, err)
	assert.Empty(t, enrolled)

	_, err = ctrl.RecordTrigger(ctx, tenant, "missing", "Property Viewed")
	assert.True(t, IsNotFoundError(err))
}

func TestInactiveSequence_DoesNotEnroll(t *testing.T) {
	ctx := context.Background()
	ctrl, _ := newController(store.NewMemoryStore(), downRemote(), quietEvents(), Options{})

	seq, err := ctrl.CreateSequence(ctx, tenant, welcomeSequence("Lead Capture"))
	require.NoError(t, err)
	_, err = ctrl.SetSequenceActive(ctx, tenant, seq.ID, false)
	require.NoError(t, err)

	_, err = ctrl.AddLead(ctx, tenant, janeInput())
	require.NoError(t, err)

	followUps, err := ctrl.ListFollowUps(ctx, tenant, "")
	require.NoError(t, err)
	assert.Empty(t, followUps)
}

func TestDeleteSequence_KeepsFollowUpsAndSkipsThem(t *testing.T) {
	ctx := context.Background()
	ctrl, clk := newController(store.NewMemoryStore(), downRemote(), quietEvents(), Options{})

	seq, err := ctrl.CreateSequence(ctx, tenant, welcomeSequence("Lead Capture"))
	require.NoError(t, err)
	_, err = ctrl.AddLead(ctx, tenant, janeInput())
	require.NoError(t, err)

	require.NoError(t, ctrl.DeleteSequence(ctx, tenant, seq.ID))
	require.NoError(t, ctrl.DeleteSequence(ctx, tenant, seq.ID))

	clk.Advance(72 * time.Hour)
	report, err := ctrl.AdvanceFollowUps(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)

	followUps, err := ctrl.ListFollowUps(ctx, tenant, "")
	require.NoError(t, err)
	require.Len(t, followUps, 1)
	assert.Equal(t, entity.FollowUpActive, followUps[0].Status)
}

func TestSetFollowUpStatus_PauseResume(t *testing.T) {
	ctx := context.Background()
	ctrl, clk := newController(store.NewMemoryStore(), downRemote(), quietEvents(), Options{})

	_, err := ctrl.CreateSequence(ctx, tenant, welcomeSequence("Lead Capture"))
	require.NoError(t, err)
	_, err = ctrl.AddLead(ctx, tenant, janeInput())
	require.NoError(t, err)
	followUps, err := ctrl.ListFollowUps(ctx, tenant, "")
	require.NoError(t, err)
	id := followUps[0].ID

	paused, err := ctrl.SetFollowUpStatus(ctx, tenant, id, "paused")
	require.NoError(t, err)
	assert.Equal(t, entity.FollowUpPaused, paused.Status)

	clk.Advance(30 * 24 * time.Hour)
	report, err := ctrl.AdvanceFollowUps(ctx, tenant)
	require.NoError(t, err)
	assert.Zero(t, report.Advanced)

	resumed, err := ctrl.SetFollowUpStatus(ctx, tenant, id, "active")
	require.NoError(t, err)
	assert.Equal(t, entity.EventResume, resumed.History[len(resumed.History)-1].Type)

	_, err = ctrl.SetFollowUpStatus(ctx, tenant, id, "completed")
	assert.True(t, IsValidationError(err))

	touched, err := ctrl.LogManualTouch(ctx, tenant, id, "called back")
	require.NoError(t, err)
	assert.Equal(t, entity.EventManualTouch, touched.History[len(touched.History)-1].Type)

	_, err = ctrl.LogManualTouch(ctx, tenant, "missing", "x")
	assert.True(t, IsNotFoundError(err))
}

func TestUsersAndQRCodes(t *testing.T) {
	ctx := context.Background()
	ctrl, _ := newController(store.NewMemoryStore(), downRemote(), quietEvents(), Options{})

	user, err := ctrl.AddUser(ctx, tenant, UserInput{Name: "Ana", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "agent", user.Role)

	_, err = ctrl.AddUser(ctx, tenant, UserInput{Name: "Ana 2", Email: "ANA@example.com"})
	assert.True(t, IsValidationError(err))

	require.NoError(t, ctrl.RemoveUser(ctx, tenant, user.ID))
	assert.Empty(t, ctrl.ListUsers(ctx, tenant))

	code, err := ctrl.AddQRCode(ctx, tenant, QRCodeInput{Name: "Open house", DestinationURL: "https://example.com/listing/1"})
	require.NoError(t, err)
	assert.Equal(t, "active", code.Status)

	_, err = ctrl.AddQRCode(ctx, tenant, QRCodeInput{Name: "Bad", DestinationURL: "not a url"})
	assert.True(t, IsValidationError(err))

	require.NoError(t, ctrl.DeleteQRCode(ctx, tenant, code.ID))
	assert.Empty(t, ctrl.ListQRCodes(ctx, tenant))
}

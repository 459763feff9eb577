package localagent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/botpilot/internal/engine"
)

// fakeModel returns a canned ContentResponse.
type fakeModel struct {
	resp *llms.ContentResponse
	err  error
}

func (f *fakeModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	return f.resp, f.err
}

func (f *fakeModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return "", nil
}

func toolCallResponse(args string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{
				ToolCalls: []llms.ToolCall{
					{
						ID:   "call-1",
						Type: "function",
						FunctionCall: &llms.FunctionCall{
							Name:      "propose_plan",
							Arguments: args,
						},
					},
				},
			},
		},
	}
}

func TestCreatePlanParsesProposedSteps(t *testing.T) {
	book := NewPlanBook()
	planner := NewLLMPlanner(&fakeModel{resp: toolCallResponse(`{
		"steps": [
			{"id": 1, "action": "navigate", "url": "https://example.com", "description": "open the site"},
			{"id": 2, "action": "click", "selector": "#contact", "description": "open contact form"},
			{"id": 3, "action": "extract", "description": "read the confirmation"}
		]
	}`)}, book)

	planID, err := planner.CreatePlan(context.Background(), engine.PlanRequest{
		SiteID:       "example.com",
		ActivityName: "contact-scrape",
		InstanceID:   "inst-1",
		ErrorContext: engine.ErrorContext{
			PreviousPlanID: "plan-0",
			CycleCount:     4,
			RecentSteps:    []engine.StepResult{{Cycle: 4, RawMessage: "Step 2 failed: selector stale"}},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, planID)

	plan, err := book.Get(planID)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 3)
	assert.Equal(t, "navigate", plan.Steps[0].Action)
	assert.Equal(t, "#contact", plan.Steps[1].Selector)
}

func TestCreatePlanRejectsEmptyPlan(t *testing.T) {
	planner := NewLLMPlanner(&fakeModel{resp: toolCallResponse(`{"steps": []}`)}, NewPlanBook())

	_, err := planner.CreatePlan(context.Background(), engine.PlanRequest{InstanceID: "inst-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty plan")
}

func TestCreatePlanWithoutToolCall(t *testing.T) {
	planner := NewLLMPlanner(&fakeModel{resp: &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: "I would rather chat about plans."}},
	}}, NewPlanBook())

	_, err := planner.CreatePlan(context.Background(), engine.PlanRequest{InstanceID: "inst-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to propose a plan")
}

func TestPlanBookUnknownPlan(t *testing.T) {
	book := NewPlanBook()
	_, err := book.Get("missing")
	require.Error(t, err)
}

func TestPlanProgress(t *testing.T) {
	plan := &Plan{ID: "p", Steps: []PlanStep{{ID: 1}, {ID: 2}, {ID: 3}, {ID: 4}}}

	p := planProgress(plan, 0)
	assert.Equal(t, 0.0, p.Percentage)

	p = planProgress(plan, 2)
	assert.Equal(t, 50.0, p.Percentage)
	assert.Equal(t, 2, p.CompletedSteps)
	assert.Equal(t, 4, p.TotalSteps)

	p = planProgress(plan, 4)
	assert.Equal(t, 100.0, p.Percentage)
}

func TestActorAsksForPlanWhenBookIsEmpty(t *testing.T) {
	actor := NewBrowserActor(NewPlanBook(), true)

	out, err := actor.ActOnPlan(context.Background(), engine.ActRequest{PlanID: "gone"})
	require.NoError(t, err, "a missing plan is a classifiable outcome, not a transport error")
	assert.Contains(t, out.RawMessage, "new plan required")
}

package engine

import (
	"context"
	"time"

	"github.com/rahul/botpilot/internal/classify"
	"github.com/rahul/botpilot/internal/observability"
)

// CycleExecutor performs one "ask the agent to act" round. It builds a
// value and never mutates the run state; the ControlLoop commits the
// result.
type CycleExecutor struct {
	Actor PlanActor
	Log   *observability.Logger
}

func NewCycleExecutor(actor PlanActor, logger *observability.Logger) *CycleExecutor {
	if logger == nil {
		logger = observability.NewLogger()
	}
	return &CycleExecutor{Actor: actor, Log: logger}
}

// RunCycle invokes the agent once and classifies what came back. The
// returned planCompleted flag is the agent's explicit completion signal;
// an error means the agent is unreachable and the run must abort.
func (c *CycleExecutor) RunCycle(ctx context.Context, st *State) (StepResult, bool, error) {
	req := ActRequest{
		SiteID:       st.SiteID,
		ActivityName: st.ActivityName,
		InstanceID:   st.InstanceID,
		PlanID:       st.PlanID,
		UserID:       st.UserID,
	}

	outcome, err := c.Actor.ActOnPlan(ctx, req)
	if err != nil {
		return StepResult{}, false, err
	}

	c.Log.LogAgent(st.InstanceID, st.PlanID, req, outcome.RawMessage)

	step := StepResult{
		Cycle:           st.CycleCount + 1,
		RawMessage:      outcome.RawMessage,
		Response:        classify.Classify(outcome.RawMessage),
		Progress:        outcome.Progress,
		ExecutionTimeMs: outcome.ExecutionTimeMs,
		Tokens:          outcome.Tokens,
		Timestamp:       time.Now(),
	}
	return step, outcome.PlanCompleted, nil
}

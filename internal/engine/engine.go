// Package engine drives a remote automation agent through repeated
// act/interpret cycles until its plan completes, fails, or a safety
// limit is hit.
package engine

import (
	"context"
	"errors"
)

// ErrCycleLimit is returned when a run burns through MaxCycles without
// reaching a terminal state. It is deliberately distinct from a failed
// plan: the agent never said it failed, the engine pulled the plug.
var ErrCycleLimit = errors.New("execution limit reached")

// ErrPlanCreation is returned when the planning service cannot supply a
// replacement plan. Without a usable plan the run has nothing left to
// attempt.
var ErrPlanCreation = errors.New("plan creation failed")

// ActRequest identifies the run on whose behalf the agent should act.
type ActRequest struct {
	SiteID       string
	ActivityName string
	InstanceID   string
	PlanID       string
	UserID       string
}

// ActOutcome is what one ActOnPlan invocation reports back. Optional
// fields are pointers: absent means the agent did not report them, not
// that they were zero.
type ActOutcome struct {
	RawMessage      string
	PlanCompleted   bool
	StepNumber      int
	Progress        *Progress
	ExecutionTimeMs int64
	Tokens          *TokenUsage
}

// PlanActor asks the remote agent to take its next action against the
// current plan. Implementations own their transport-level retry; an
// error here means the agent is unreachable and the run must abort.
type PlanActor interface {
	ActOnPlan(ctx context.Context, req ActRequest) (*ActOutcome, error)
}

// ErrorContext carries recent failure history to the planning service
// so the replacement plan can route around what broke.
type ErrorContext struct {
	PreviousPlanID string
	CycleCount     int
	RecentSteps    []StepResult
}

// PlanRequest asks the planning service for a fresh plan.
type PlanRequest struct {
	SiteID       string
	ActivityName string
	InstanceID   string
	UserID       string
	ErrorContext ErrorContext
}

// Planner produces a replacement plan id. Failure is fatal to the run.
type Planner interface {
	CreatePlan(ctx context.Context, req PlanRequest) (string, error)
}

// SessionStore persists authentication sessions negotiated mid-run.
// Failures are logged by the loop and never fail the run.
type SessionStore interface {
	SaveSession(ctx context.Context, instanceID, platform, domain string) error
}

// Escalation is the context handed to a human operator.
type Escalation struct {
	InstanceID   string
	SiteID       string
	ActivityName string
	Reason       string
	UserID       string
}

// Escalator notifies a human. Best-effort: the loop logs a delivery
// failure and carries on with the same terminal outcome.
type Escalator interface {
	Escalate(ctx context.Context, e Escalation) error
}

// StatusRecorder persists the final outcome of a run. Best-effort.
type StatusRecorder interface {
	RecordRun(ctx context.Context, result Result) error
}

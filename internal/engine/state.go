package engine

import (
	"time"

	"github.com/rahul/botpilot/internal/classify"
)

const (
	// MaxCycles is the hard safety valve against runaway automation.
	MaxCycles = 100
	// MaxAttentionRetries bounds how many times a run waits out a
	// "user attention required" response before escalating.
	MaxAttentionRetries = 1

	// DefaultCycleDelay paces consecutive cycles unless the previous
	// cycle completed a step.
	DefaultCycleDelay = 30 * time.Second
	// DefaultAttentionWait is how long the run suspends to give a human
	// a chance to clear an attention condition.
	DefaultAttentionWait = 5 * time.Minute
)

// TerminalState records how a run ended. It is write-once: the loop sets
// it exactly once and never revisits it.
type TerminalState string

const (
	TerminalNone      TerminalState = ""
	TerminalCompleted TerminalState = "completed"
	TerminalFailed    TerminalState = "failed"
)

// Progress is the agent's view of how far through the plan it is.
type Progress struct {
	CompletedSteps int     `json:"completed_steps"`
	TotalSteps     int     `json:"total_steps"`
	Percentage     float64 `json:"percentage"`
}

// TokenUsage counts model tokens spent by the remote agent in one cycle.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// StepResult is the immutable record of one completed cycle.
type StepResult struct {
	Cycle           int               `json:"cycle"`
	RawMessage      string            `json:"raw_message"`
	Response        classify.Response `json:"response"`
	Progress        *Progress         `json:"progress,omitempty"`
	ExecutionTimeMs int64             `json:"execution_time_ms,omitempty"`
	Tokens          *TokenUsage       `json:"tokens,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}

// State is the mutable record of one plan-execution run. It is owned by
// exactly one ControlLoop; nothing else mutates it.
type State struct {
	InstanceID   string
	PlanID       string // replaced mid-run when the planner issues a new plan
	SiteID       string
	ActivityName string
	UserID       string

	CycleCount       int
	AttentionRetries int
	History          []StepResult
	Terminal         TerminalState
}

// Append commits one cycle: the StepResult goes onto the history in
// cycle order and the counter advances. A cycle either fully commits
// here or was never applied.
func (s *State) Append(step StepResult) {
	s.History = append(s.History, step)
	s.CycleCount++
}

// RecentHistory returns up to the last n StepResults, oldest first. The
// returned slice is a copy so callers cannot disturb the history.
func (s *State) RecentHistory(n int) []StepResult {
	if n > len(s.History) {
		n = len(s.History)
	}
	out := make([]StepResult, n)
	copy(out, s.History[len(s.History)-n:])
	return out
}

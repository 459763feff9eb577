package engine

// Result is the aggregate outcome of a run, returned to the invoking
// orchestration layer. Error distinguishes a failed plan ("the agent
// told us it failed") from the Go error Run returns for conditions where
// the engine itself gave up.
type Result struct {
	Success              bool         `json:"success"`
	InstanceID           string       `json:"instance_id"`
	FinalPlanID          string       `json:"final_plan_id,omitempty"`
	History              []StepResult `json:"history"`
	TotalCycles          int          `json:"total_cycles"`
	TotalExecutionTimeMs int64        `json:"total_execution_time_ms"`
	TotalTokens          TokenUsage   `json:"total_tokens"`
	FinalProgress        *Progress    `json:"final_progress,omitempty"`
	Error                string       `json:"error,omitempty"`
}

// buildResult folds the run state into the aggregate the caller sees.
func buildResult(st *State, success bool, errMsg string) Result {
	res := Result{
		Success:     success,
		InstanceID:  st.InstanceID,
		FinalPlanID: st.PlanID,
		History:     st.History,
		TotalCycles: st.CycleCount,
		Error:       errMsg,
	}
	for _, step := range st.History {
		res.TotalExecutionTimeMs += step.ExecutionTimeMs
		if step.Tokens != nil {
			res.TotalTokens.Input += step.Tokens.Input
			res.TotalTokens.Output += step.Tokens.Output
		}
	}
	if n := len(st.History); n > 0 {
		res.FinalProgress = st.History[n-1].Progress
	}
	return res
}

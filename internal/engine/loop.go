package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rahul/botpilot/internal/backoff"
	"github.com/rahul/botpilot/internal/classify"
	"github.com/rahul/botpilot/internal/observability"
)

// Options tunes the loop's limits and pacing. Zero values fall back to
// the engine defaults.
type Options struct {
	MaxCycles           int
	MaxAttentionRetries int
	CycleDelay          time.Duration
	AttentionWait       time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxCycles == 0 {
		o.MaxCycles = MaxCycles
	}
	if o.MaxAttentionRetries == 0 {
		o.MaxAttentionRetries = MaxAttentionRetries
	}
	if o.CycleDelay == 0 {
		o.CycleDelay = DefaultCycleDelay
	}
	if o.AttentionWait == 0 {
		o.AttentionWait = DefaultAttentionWait
	}
	return o
}

// ControlLoop owns one run: it drives the CycleExecutor, applies the
// per-response policy, and decides continue/suspend/terminate. Sessions,
// Escalator and Status are optional; their failures never change the
// run's outcome.
type ControlLoop struct {
	Cycle     *CycleExecutor
	Planner   Planner
	Sessions  SessionStore
	Escalator Escalator
	Status    StatusRecorder
	Log       *observability.Logger

	opts  Options
	sleep func(ctx context.Context, d time.Duration) error
}

func NewControlLoop(cycle *CycleExecutor, planner Planner, sessions SessionStore, escalator Escalator, status StatusRecorder, logger *observability.Logger, opts Options) *ControlLoop {
	if logger == nil {
		logger = observability.NewLogger()
	}
	return &ControlLoop{
		Cycle:     cycle,
		Planner:   planner,
		Sessions:  sessions,
		Escalator: escalator,
		Status:    status,
		Log:       logger,
		opts:      opts.withDefaults(),
		sleep:     backoff.Sleep,
	}
}

// Run drives the agent until the plan completes, fails, the cycle limit
// trips, or the context is canceled. The returned error is non-nil only
// for transport exhaustion, plan-replacement failure, cancellation, or
// the cycle limit; a plan the agent reported as failed comes back as a
// Result with Success=false and a nil error.
func (l *ControlLoop) Run(ctx context.Context, st *State) (Result, error) {
	observability.SetStatus(observability.PhaseExecuting, st.InstanceID)
	defer observability.SetStatus(observability.PhaseIdle, "")

	for st.CycleCount < l.opts.MaxCycles && st.Terminal == TerminalNone {
		if err := ctx.Err(); err != nil {
			return l.finish(ctx, st, false, err.Error()), err
		}

		step, planCompleted, err := l.Cycle.RunCycle(ctx, st)
		if err != nil {
			// The agent is unreachable; nothing this engine does can
			// compensate for a broken remote connection.
			return l.finish(ctx, st, false, err.Error()), err
		}
		st.Append(step)

		resp := step.Response
		l.Log.LogCycle(st.InstanceID, st.PlanID, step.Cycle, string(resp.Kind), step.RawMessage)

		// The remote service does not always set the explicit flag, so
		// a completed step at 100% progress also counts as done.
		if planCompleted || (resp.Kind == classify.KindStepCompleted && step.Progress != nil && step.Progress.Percentage == 100) {
			st.Terminal = TerminalCompleted
			break
		}

		delay := l.opts.CycleDelay

		switch resp.Kind {
		case classify.KindPlanFailed:
			st.Terminal = TerminalFailed
			l.escalate(ctx, st, resp.Reason)
			return l.finish(ctx, st, false, resp.Reason), nil

		case classify.KindNewPlanRequired:
			newPlanID, err := l.Planner.CreatePlan(ctx, PlanRequest{
				SiteID:       st.SiteID,
				ActivityName: st.ActivityName,
				InstanceID:   st.InstanceID,
				UserID:       st.UserID,
				ErrorContext: ErrorContext{
					PreviousPlanID: st.PlanID,
					CycleCount:     st.CycleCount,
					RecentSteps:    st.RecentHistory(3),
				},
			})
			l.Log.LogReplan(st.InstanceID, st.PlanID, newPlanID, err)
			if err != nil {
				// A planning-service failure, not an agent failure:
				// reported to the caller as an error, no escalation.
				st.Terminal = TerminalFailed
				wrapped := fmt.Errorf("%w: %v", ErrPlanCreation, err)
				return l.finish(ctx, st, false, wrapped.Error()), wrapped
			}
			st.PlanID = newPlanID
			st.AttentionRetries = 0

		case classify.KindNewSessionAcquired:
			if l.Sessions != nil {
				err := l.Sessions.SaveSession(ctx, st.InstanceID, resp.Platform, resp.Domain)
				l.Log.LogSession(st.InstanceID, resp.Platform, resp.Domain, err)
				if err != nil {
					log.Printf("session save failed for %s/%s: %v", resp.Platform, resp.Domain, err)
				}
			}

		case classify.KindSessionNeeded:
			// The remote side pauses until a session is supplied
			// out-of-band; nothing for this engine to do.
			log.Printf("agent waiting on a session for %s/%s", resp.Platform, resp.Domain)

		case classify.KindUserAttentionRequired:
			if st.AttentionRetries >= l.opts.MaxAttentionRetries {
				l.escalate(ctx, st, resp.Explanation)
				st.Terminal = TerminalFailed
				return l.finish(ctx, st, false, resp.Explanation), nil
			}
			st.AttentionRetries++
			observability.SetStatus(observability.PhaseWaiting, st.InstanceID)
			if err := l.sleep(ctx, l.opts.AttentionWait); err != nil {
				return l.finish(ctx, st, false, err.Error()), err
			}
			observability.SetStatus(observability.PhaseExecuting, st.InstanceID)
			// The attention wait is the suspension for this cycle.
			delay = 0

		case classify.KindStepCompleted:
			st.AttentionRetries = 0
			// A succeeding multi-step plan is not artificially slowed.
			delay = 0

		case classify.KindStepFailed, classify.KindStepCanceled:
			st.AttentionRetries = 0

		default:
			// Unclassified: non-terminal, non-special; normal pacing.
		}

		if delay > 0 && st.CycleCount < l.opts.MaxCycles {
			if err := l.sleep(ctx, delay); err != nil {
				return l.finish(ctx, st, false, err.Error()), err
			}
		}
	}

	if st.Terminal == TerminalCompleted {
		return l.finish(ctx, st, true, ""), nil
	}

	// Ran out of cycles without the agent ever declaring an outcome.
	return l.finish(ctx, st, false, ErrCycleLimit.Error()), ErrCycleLimit
}

// escalate hands off to a human. Delivery failure is logged and
// swallowed; the plan is failed regardless of whether anyone heard.
func (l *ControlLoop) escalate(ctx context.Context, st *State, reason string) {
	if l.Escalator == nil {
		return
	}
	observability.SetStatus(observability.PhaseEscalating, st.InstanceID)
	err := l.Escalator.Escalate(ctx, Escalation{
		InstanceID:   st.InstanceID,
		SiteID:       st.SiteID,
		ActivityName: st.ActivityName,
		Reason:       reason,
		UserID:       st.UserID,
	})
	l.Log.LogEscalation(st.InstanceID, reason, err)
	if err != nil {
		log.Printf("escalation delivery failed for %s: %v", st.InstanceID, err)
	}
}

func (l *ControlLoop) finish(ctx context.Context, st *State, success bool, errMsg string) Result {
	res := buildResult(st, success, errMsg)
	l.Log.LogRun(st.InstanceID, st.PlanID, success, st.CycleCount, errMsg)
	if l.Status != nil {
		if err := l.Status.RecordRun(ctx, res); err != nil {
			log.Printf("status record failed for %s: %v", st.InstanceID, err)
		}
	}
	return res
}

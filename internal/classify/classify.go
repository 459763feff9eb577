package classify

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies the category of an agent response.
type Kind string

const (
	KindStepCompleted         Kind = "step_completed"
	KindStepFailed            Kind = "step_failed"
	KindStepCanceled          Kind = "step_canceled"
	KindPlanFailed            Kind = "plan_failed"
	KindNewPlanRequired       Kind = "new_plan_required"
	KindNewSessionAcquired    Kind = "new_session_acquired"
	KindSessionNeeded         Kind = "session_needed"
	KindUserAttentionRequired Kind = "user_attention_required"
	KindUnclassified          Kind = "unclassified"
)

// Response is the classified form of a raw agent message. Exactly one
// Kind is set; the remaining fields are populated only where the kind
// carries them.
type Response struct {
	Kind        Kind
	StepNumber  int    // step_* kinds, 0 when the message named no step
	Reason      string // plan_failed
	Platform    string // new_session_acquired, session_needed
	Domain      string // new_session_acquired, session_needed
	Explanation string // user_attention_required
}

// rule maps a message pattern to a response builder. Rules are evaluated
// in order and the first match wins, which keeps the kinds mutually
// exclusive even when phrasings overlap.
type rule struct {
	re    *regexp.Regexp
	build func(raw string, m []string) Response
}

var rules = []rule{
	{
		re: regexp.MustCompile(`(?i)\bplan\b.{0,40}\b(failed|aborted|cannot (?:be )?continued?|is unrecoverable)\b`),
		build: func(raw string, m []string) Response {
			return Response{Kind: KindPlanFailed, Reason: strings.TrimSpace(raw)}
		},
	},
	{
		re: regexp.MustCompile(`(?i)\b(new plan (?:is )?required|plan is (?:no longer |in)valid|needs? (?:a )?replan)\b`),
		build: func(raw string, m []string) Response {
			return Response{Kind: KindNewPlanRequired}
		},
	},
	{
		re: regexp.MustCompile(`(?i)\b(?:new session|session) (?:acquired|established|negotiated) (?:for|on) (\w+)(?: \(([^)]+)\))?`),
		build: func(raw string, m []string) Response {
			return Response{Kind: KindNewSessionAcquired, Platform: strings.ToLower(m[1]), Domain: m[2]}
		},
	},
	{
		re: regexp.MustCompile(`(?i)\bsession (?:needed|required|expired) (?:for|on) (\w+)(?: \(([^)]+)\))?`),
		build: func(raw string, m []string) Response {
			return Response{Kind: KindSessionNeeded, Platform: strings.ToLower(m[1]), Domain: m[2]}
		},
	},
	{
		re: regexp.MustCompile(`(?i)\b(user attention required|human intervention|needs (?:a )?human|captcha)\b`),
		build: func(raw string, m []string) Response {
			return Response{Kind: KindUserAttentionRequired, Explanation: strings.TrimSpace(raw)}
		},
	},
	{
		re: regexp.MustCompile(`(?i)\bstep\s*(\d+)?\s*(?:was\s+|has been\s+)?(completed|complete|succeeded|finished|done)\b`),
		build: func(raw string, m []string) Response {
			return Response{Kind: KindStepCompleted, StepNumber: atoi(m[1])}
		},
	},
	{
		re: regexp.MustCompile(`(?i)\bstep\s*(\d+)?\s*(?:was\s+|has been\s+)?(canceled|cancelled)\b`),
		build: func(raw string, m []string) Response {
			return Response{Kind: KindStepCanceled, StepNumber: atoi(m[1])}
		},
	},
	{
		re: regexp.MustCompile(`(?i)\bstep\s*(\d+)?\s*(?:was\s+|has been\s+)?(failed|errored|unsuccessful)\b`),
		build: func(raw string, m []string) Response {
			return Response{Kind: KindStepFailed, StepNumber: atoi(m[1])}
		},
	},
}

// Classify maps a raw agent message to exactly one Response. It is pure
// and total: the same input always yields the same output, and anything
// the rule table does not recognize comes back Unclassified.
func Classify(raw string) Response {
	for _, r := range rules {
		if m := r.re.FindStringSubmatch(raw); m != nil {
			return r.build(raw, m)
		}
	}
	return Response{Kind: KindUnclassified}
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Response
	}{
		{
			name: "step completed with number",
			raw:  "Step 3 completed: submitted the contact form",
			want: Response{Kind: KindStepCompleted, StepNumber: 3},
		},
		{
			name: "step completed without number",
			raw:  "step done, moving on",
			want: Response{Kind: KindStepCompleted},
		},
		{
			name: "step failed",
			raw:  "Step 2 failed: element not found",
			want: Response{Kind: KindStepFailed, StepNumber: 2},
		},
		{
			name: "step canceled",
			raw:  "Step 5 was cancelled by the target system",
			want: Response{Kind: KindStepCanceled, StepNumber: 5},
		},
		{
			name: "plan failed",
			raw:  "The plan failed: target page no longer exists",
			want: Response{Kind: KindPlanFailed, Reason: "The plan failed: target page no longer exists"},
		},
		{
			name: "plan failed outranks step wording",
			raw:  "Plan aborted after step 4 failed repeatedly",
			want: Response{Kind: KindPlanFailed, Reason: "Plan aborted after step 4 failed repeatedly"},
		},
		{
			name: "new plan required",
			raw:  "The current plan is no longer valid, a new plan is required",
			want: Response{Kind: KindNewPlanRequired},
		},
		{
			name: "session acquired with domain",
			raw:  "New session acquired for LinkedIn (www.linkedin.com)",
			want: Response{Kind: KindNewSessionAcquired, Platform: "linkedin", Domain: "www.linkedin.com"},
		},
		{
			name: "session acquired without domain",
			raw:  "Session established on salesforce",
			want: Response{Kind: KindNewSessionAcquired, Platform: "salesforce"},
		},
		{
			name: "session needed",
			raw:  "Session required for hubspot (app.hubspot.com) before continuing",
			want: Response{Kind: KindSessionNeeded, Platform: "hubspot", Domain: "app.hubspot.com"},
		},
		{
			name: "user attention",
			raw:  "A captcha is blocking the login page",
			want: Response{Kind: KindUserAttentionRequired, Explanation: "A captcha is blocking the login page"},
		},
		{
			name: "unclassified",
			raw:  "Scanning the page for the next actionable element",
			want: Response{Kind: KindUnclassified},
		},
		{
			name: "empty input",
			raw:  "",
			want: Response{Kind: KindUnclassified},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.raw)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyIsIdempotent(t *testing.T) {
	inputs := []string{
		"Step 1 completed",
		"Plan aborted",
		"human intervention needed to approve the purchase",
		"random chatter with no signal",
	}
	for _, raw := range inputs {
		first := Classify(raw)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, Classify(raw), "input %q", raw)
		}
	}
}

func TestClassifyIsTotal(t *testing.T) {
	// Every input lands on exactly one kind; the zero Kind never escapes.
	inputs := []string{"", " ", "\n", "???", "step", "plan", "session for"}
	for _, raw := range inputs {
		got := Classify(raw)
		assert.NotEmpty(t, got.Kind, "input %q", raw)
	}
}

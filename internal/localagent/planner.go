package localagent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/rahul/botpilot/internal/engine"
)

const plannerSystemPrompt = `You are a browser-automation planner. Produce a short,
ordered plan of concrete browser steps (navigate, click, type, wait, extract) that
accomplishes the requested activity on the target site. Always respond by calling
the propose_plan function. Keep selectors simple CSS.`

// LLMPlanner generates replacement plans with a model call, forcing a
// propose_plan function call and parsing the step list out of its
// arguments. Implements engine.Planner.
type LLMPlanner struct {
	Model llms.Model
	Book  *PlanBook
}

func NewLLMPlanner(model llms.Model, book *PlanBook) *LLMPlanner {
	return &LLMPlanner{Model: model, Book: book}
}

func (p *LLMPlanner) CreatePlan(ctx context.Context, req engine.PlanRequest) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(plannerSystemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(planningInput(req))},
		},
	}

	resp, err := p.Model.GenerateContent(ctx, messages, llms.WithTools(plannerTools))
	if err != nil {
		return "", err
	}

	choice := resp.Choices[0]
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall.Name != "propose_plan" {
			continue
		}
		var proposed struct {
			Steps []PlanStep `json:"steps"`
		}
		if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &proposed); err != nil {
			return "", fmt.Errorf("failed to parse propose_plan arguments: %v", err)
		}
		if len(proposed.Steps) == 0 {
			return "", fmt.Errorf("planner proposed an empty plan")
		}

		plan := &Plan{ID: uuid.NewString(), Steps: proposed.Steps}
		p.Book.Add(plan)
		return plan.ID, nil
	}

	return "", fmt.Errorf("planner failed to propose a plan")
}

// planningInput folds the failure context into the prompt so the model
// can route the new plan around whatever broke the old one.
func planningInput(req engine.PlanRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Site: %s\nActivity: %s\nInstance: %s\n", req.SiteID, req.ActivityName, req.InstanceID)
	if req.ErrorContext.PreviousPlanID != "" {
		fmt.Fprintf(&sb, "\nThe previous plan (%s) became unusable after %d cycles.\n",
			req.ErrorContext.PreviousPlanID, req.ErrorContext.CycleCount)
	}
	if len(req.ErrorContext.RecentSteps) > 0 {
		sb.WriteString("Recent agent output:\n")
		for _, step := range req.ErrorContext.RecentSteps {
			fmt.Fprintf(&sb, "- cycle %d: %s\n", step.Cycle, step.RawMessage)
		}
	}
	return sb.String()
}

var plannerTools = []llms.Tool{
	{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        "propose_plan",
			Description: "Submit a structured browser-automation plan consisting of ordered steps.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"steps": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"id": map[string]any{
									"type": "integer",
								},
								"action": map[string]any{
									"type": "string",
									"enum": []string{"navigate", "click", "type", "wait", "extract"},
								},
								"url": map[string]any{
									"type": "string",
								},
								"selector": map[string]any{
									"type": "string",
								},
								"text": map[string]any{
									"type": "string",
								},
								"description": map[string]any{
									"type": "string",
								},
							},
							"required": []string{"id", "action", "description"},
						},
					},
				},
				"required": []string{"steps"},
			},
		},
	},
}

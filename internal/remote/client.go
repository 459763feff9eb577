// Package remote is the HTTP client for the automation service: the
// remote agent's act endpoint, the planning service, and session
// persistence, all behind one bounded-retry transport.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rahul/botpilot/internal/backoff"
	"github.com/rahul/botpilot/internal/engine"
)

// ErrUnreachable is returned once the transport retry budget is spent.
// The engine treats it as fatal to the whole run.
var ErrUnreachable = errors.New("automation service unreachable")

const maxAttempts = 3

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	policy  backoff.Policy
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		policy:  backoff.DefaultPolicy(),
	}
}

// Wire shapes. Optional fields are pointers so an absent field is
// distinguishable from a zero one.

type actRequest struct {
	SiteID       string `json:"site_id"`
	ActivityName string `json:"activity_name"`
	InstanceID   string `json:"instance_id"`
	PlanID       string `json:"plan_id,omitempty"`
	UserID       string `json:"user_id,omitempty"`
}

type actData struct {
	Step            *stepInfo          `json:"step,omitempty"`
	Progress        *engine.Progress   `json:"progress,omitempty"`
	ExecutionTimeMs int64              `json:"execution_time_ms,omitempty"`
	TokensUsed      *engine.TokenUsage `json:"tokens_used,omitempty"`
	RawMessage      string             `json:"raw_message"`
	PlanCompleted   bool               `json:"plan_completed,omitempty"`
}

type stepInfo struct {
	Number int    `json:"number"`
	Name   string `json:"name,omitempty"`
}

type actResponse struct {
	Success bool     `json:"success"`
	Data    *actData `json:"data,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type createPlanRequest struct {
	SiteID       string       `json:"site_id"`
	ActivityName string       `json:"activity_name"`
	InstanceID   string       `json:"instance_id"`
	UserID       string       `json:"user_id,omitempty"`
	ErrorContext errorContext `json:"error_context"`
}

type errorContext struct {
	PreviousPlanID string              `json:"previous_plan_id"`
	CycleCount     int                 `json:"cycle_count"`
	RecentSteps    []engine.StepResult `json:"recent_steps"`
}

type createPlanResponse struct {
	Success bool   `json:"success"`
	PlanID  string `json:"plan_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

type saveSessionRequest struct {
	InstanceID string `json:"instance_id"`
	Platform   string `json:"platform"`
	Domain     string `json:"domain,omitempty"`
}

type saveSessionResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ActOnPlan asks the remote agent for its next action on the plan.
func (c *Client) ActOnPlan(ctx context.Context, req engine.ActRequest) (*engine.ActOutcome, error) {
	var resp actResponse
	err := c.post(ctx, "/v1/act", actRequest{
		SiteID:       req.SiteID,
		ActivityName: req.ActivityName,
		InstanceID:   req.InstanceID,
		PlanID:       req.PlanID,
		UserID:       req.UserID,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("act on plan: %s", resp.Error)
	}
	if resp.Data == nil {
		return nil, errors.New("act on plan: response carried no data")
	}

	out := &engine.ActOutcome{
		RawMessage:      resp.Data.RawMessage,
		PlanCompleted:   resp.Data.PlanCompleted,
		Progress:        resp.Data.Progress,
		ExecutionTimeMs: resp.Data.ExecutionTimeMs,
		Tokens:          resp.Data.TokensUsed,
	}
	if resp.Data.Step != nil {
		out.StepNumber = resp.Data.Step.Number
	}
	return out, nil
}

// CreatePlan requests a replacement plan carrying recent failure context.
func (c *Client) CreatePlan(ctx context.Context, req engine.PlanRequest) (string, error) {
	var resp createPlanResponse
	err := c.post(ctx, "/v1/plans", createPlanRequest{
		SiteID:       req.SiteID,
		ActivityName: req.ActivityName,
		InstanceID:   req.InstanceID,
		UserID:       req.UserID,
		ErrorContext: errorContext{
			PreviousPlanID: req.ErrorContext.PreviousPlanID,
			CycleCount:     req.ErrorContext.CycleCount,
			RecentSteps:    req.ErrorContext.RecentSteps,
		},
	}, &resp)
	if err != nil {
		return "", err
	}
	if !resp.Success || resp.PlanID == "" {
		return "", fmt.Errorf("create plan: %s", resp.Error)
	}
	return resp.PlanID, nil
}

// SaveSession pushes a newly negotiated auth session to the service.
func (c *Client) SaveSession(ctx context.Context, instanceID, platform, domain string) error {
	var resp saveSessionResponse
	err := c.post(ctx, "/v1/sessions", saveSessionRequest{
		InstanceID: instanceID,
		Platform:   platform,
		Domain:     domain,
	}, &resp)
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("save session: %s", resp.Error)
	}
	return nil
}

// post sends one JSON request with the bounded transport retry: network
// errors and 5xx responses retry, anything else surfaces immediately.
func (c *Client) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", path, err)
	}

	err = backoff.Retry(ctx, c.policy, maxAttempts, func(int) (bool, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return false, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			io.Copy(io.Discard, resp.Body)
			return true, fmt.Errorf("%s: status %d", path, resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return false, fmt.Errorf("%s: status %d", path, resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("decode %s response: %w", path, err)
		}
		return false, nil
	})
	if errors.Is(err, backoff.ErrExhausted) {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return err
}

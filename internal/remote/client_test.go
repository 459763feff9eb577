package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rahul/botpilot/internal/backoff"
	"github.com/rahul/botpilot/internal/engine"
)

func fastClient(url string) *Client {
	c := NewClient(url, "test-key", 5*time.Second)
	c.policy = backoff.Policy{Initial: time.Millisecond, Max: time.Millisecond, Factor: 1}
	return c
}

func TestActOnPlanMapsFields(t *testing.T) {
	var gotAuth string
	var gotBody actRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(actResponse{
			Success: true,
			Data: &actData{
				Step:            &stepInfo{Number: 2, Name: "fill form"},
				Progress:        &engine.Progress{CompletedSteps: 2, TotalSteps: 4, Percentage: 50},
				ExecutionTimeMs: 900,
				TokensUsed:      &engine.TokenUsage{Input: 10, Output: 5},
				RawMessage:      "Step 2 completed",
			},
		})
	}))
	defer srv.Close()

	out, err := fastClient(srv.URL).ActOnPlan(context.Background(), engine.ActRequest{
		SiteID:       "site-1",
		ActivityName: "lead-gen",
		InstanceID:   "inst-1",
		PlanID:       "plan-1",
		UserID:       "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "site-1", gotBody.SiteID)
	assert.Equal(t, "plan-1", gotBody.PlanID)

	assert.Equal(t, "Step 2 completed", out.RawMessage)
	assert.Equal(t, 2, out.StepNumber)
	assert.Equal(t, int64(900), out.ExecutionTimeMs)
	require.NotNil(t, out.Progress)
	assert.Equal(t, float64(50), out.Progress.Percentage)
	require.NotNil(t, out.Tokens)
	assert.Equal(t, 10, out.Tokens.Input)
	assert.False(t, out.PlanCompleted)
}

func TestActOnPlanRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(actResponse{
			Success: true,
			Data:    &actData{RawMessage: "ok", PlanCompleted: true},
		})
	}))
	defer srv.Close()

	out, err := fastClient(srv.URL).ActOnPlan(context.Background(), engine.ActRequest{InstanceID: "inst-1"})
	require.NoError(t, err)
	assert.True(t, out.PlanCompleted)
	assert.Equal(t, int32(3), calls.Load())
}

func TestActOnPlanGivesUpAfterThreeAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).ActOnPlan(context.Background(), engine.ActRequest{InstanceID: "inst-1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnreachable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientErrorsDoNotRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).ActOnPlan(context.Background(), engine.ActRequest{InstanceID: "inst-1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnreachable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestActOnPlanApplicationFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(actResponse{Success: false, Error: "unknown instance"})
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).ActOnPlan(context.Background(), engine.ActRequest{InstanceID: "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown instance")
}

func TestCreatePlanSendsErrorContext(t *testing.T) {
	var gotBody createPlanRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(createPlanResponse{Success: true, PlanID: "plan-9"})
	}))
	defer srv.Close()

	planID, err := fastClient(srv.URL).CreatePlan(context.Background(), engine.PlanRequest{
		SiteID:       "site-1",
		ActivityName: "lead-gen",
		InstanceID:   "inst-1",
		ErrorContext: engine.ErrorContext{
			PreviousPlanID: "plan-1",
			CycleCount:     7,
			RecentSteps:    []engine.StepResult{{Cycle: 5}, {Cycle: 6}, {Cycle: 7}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "plan-9", planID)
	assert.Equal(t, "plan-1", gotBody.ErrorContext.PreviousPlanID)
	assert.Equal(t, 7, gotBody.ErrorContext.CycleCount)
	assert.Len(t, gotBody.ErrorContext.RecentSteps, 3)
}

func TestCreatePlanFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(createPlanResponse{Success: false, Error: "no strategy available"})
	}))
	defer srv.Close()

	_, err := fastClient(srv.URL).CreatePlan(context.Background(), engine.PlanRequest{InstanceID: "inst-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no strategy available")
}

func TestSaveSession(t *testing.T) {
	var gotBody saveSessionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(saveSessionResponse{Success: true})
	}))
	defer srv.Close()

	err := fastClient(srv.URL).SaveSession(context.Background(), "inst-1", "linkedin", "www.linkedin.com")
	require.NoError(t, err)
	assert.Equal(t, saveSessionRequest{InstanceID: "inst-1", Platform: "linkedin", Domain: "www.linkedin.com"}, gotBody)
}

package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	domainDecision "github.com/AzielCF/aegisx/domains/decision"
	domainEmergency "github.com/AzielCF/aegisx/domains/emergency"
	domainRule "github.com/AzielCF/aegisx/domains/rule"
	pkgError "github.com/AzielCF/aegisx/pkg/error"
	"github.com/AzielCF/aegisx/ui/rest/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDecisionService implementa IDecisionUsecase solo para estos tests e2e.
type fakeDecisionService struct {
	lastAttempt domainDecision.Attempt
	result      domainDecision.Result
	finalizeErr error
}

func (f *fakeDecisionService) Decide(ctx context.Context, attempt domainDecision.Attempt) (domainDecision.Result, error) {
	f.lastAttempt = attempt
	return f.result, nil
}

func (f *fakeDecisionService) FinalizePin(ctx context.Context, attemptID string, pinOK bool) (domainDecision.Result, error) {
	if f.finalizeErr != nil {
		return domainDecision.Result{}, f.finalizeErr
	}
	return f.result, nil
}

func newDecisionApp(service domainDecision.IDecisionUsecase) *fiber.App {
	app := fiber.New()
	app.Use(middleware.Recovery())
	InitRestDecision(app, service)
	return app
}

func TestDecisionEndpoint_Allow(t *testing.T) {
	ruleID := "r1"
	service := &fakeDecisionService{
		result: domainDecision.Result{
			AttemptID:               "a1",
			Action:                  domainRule.ActionAllow,
			ResolvedRuleID:          &ruleID,
			EmergencyModeAtDecision: domainEmergency.ModeNormal,
			Permitted:               true,
		},
	}
	app := newDecisionApp(service)

	body := []byte(`{"school_id":"school-1","credential_id":"cred-1","reader_id":"gate-1","location_type":"gate","subject_role":"student"}`)
	req := httptest.NewRequest(http.MethodPost, "/access-decision", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Code    string                `json:"code"`
		Results domainDecision.Result `json:"results"`
	}
	raw, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(raw, &envelope))

	assert.Equal(t, "SUCCESS", envelope.Code)
	assert.True(t, envelope.Results.Permitted)
	require.NotNil(t, envelope.Results.ResolvedRuleID)
	assert.Equal(t, "r1", *envelope.Results.ResolvedRuleID)

	// Omitted entry count must arrive as "unknown" so the engine computes it
	assert.Equal(t, -1, service.lastAttempt.EntriesSoFarToday)
}

func TestDecisionEndpoint_MissingFields(t *testing.T) {
	app := newDecisionApp(&fakeDecisionService{})

	body := []byte(`{"school_id":"school-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/access-decision", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDecisionEndpoint_EntryCountPassedThrough(t *testing.T) {
	service := &fakeDecisionService{}
	app := newDecisionApp(service)

	body := []byte(`{"school_id":"school-1","credential_id":"cred-1","reader_id":"gate-1","entries_so_far_today":2}`)
	req := httptest.NewRequest(http.MethodPost, "/access-decision", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 2, service.lastAttempt.EntriesSoFarToday)
}

func TestPinEndpoint_UnknownAttempt(t *testing.T) {
	service := &fakeDecisionService{finalizeErr: pkgError.NotFoundError("pending attempt not found or expired")}
	app := newDecisionApp(service)

	body := []byte(`{"pin_ok":true}`)
	req := httptest.NewRequest(http.MethodPost, "/access-decision/nope/pin", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

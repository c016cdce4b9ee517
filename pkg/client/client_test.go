package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/persistence"
	"github.com/dukex/automations/pkg/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(Config{BaseURL: srv.URL + "/", Token: "secret"})
}

func TestClient_Create(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/automations", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var def models.WorkflowDefinition
		require.NoError(t, json.NewDecoder(r.Body).Decode(&def))
		assert.Equal(t, "Welcome", def.Name)

		writeJSON(w, http.StatusCreated, map[string]any{
			"id":    "a-1",
			"steps": []map[string]string{{"tempId": "temp_1", "permanentId": "s-1"}},
		})
	})

	res, err := c.Create(t.Context(), models.WorkflowDefinition{
		Name:  "Welcome",
		Steps: []models.Step{{ID: "temp_1", Kind: models.StepKindDelay, Delay: &models.DelayPayload{}}},
	})
	require.NoError(t, err)

	assert.Equal(t, "a-1", res.ID)
	assert.Equal(t, []models.IDMapping{{TempID: "temp_1", PermanentID: "s-1"}}, res.Steps)
}

func TestClient_UpdateAndSteps(t *testing.T) {
	var paths []string

	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)

		if r.URL.Path == "/automations/a-1/steps" {
			body, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"steps":[]}`, string(body))
		}

		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.Update(t.Context(), "a-1", models.WorkflowDefinition{Name: "x"}))
	require.NoError(t, c.UpdateStepsOnly(t.Context(), "a-1", []models.Step{}))

	assert.Equal(t, []string{"PUT /automations/a-1", "PUT /automations/a-1/steps"}, paths)
}

func TestClient_ErrorMapping(t *testing.T) {
	status := http.StatusNotFound

	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, map[string]string{"title": "Not Found", "detail": "no such automation"})
	})

	err := c.Update(t.Context(), "missing", models.WorkflowDefinition{})
	require.Error(t, err)
	assert.True(t, persistence.IsAutomationNotFound(err))
	assert.Contains(t, err.Error(), "no such automation")

	_, err = c.Template(t.Context(), "missing")
	assert.True(t, persistence.IsTemplateNotFound(err))

	status = http.StatusBadGateway
	_, err = c.AutomationByID(t.Context(), "a-1")
	assert.True(t, persistence.IsUnavailable(err))

	status = http.StatusConflict
	err = c.UpdateStepsOnly(t.Context(), "a-1", nil)
	require.Error(t, err)
	assert.False(t, persistence.IsUnavailable(err))
	assert.False(t, persistence.IsAutomationNotFound(err))
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(Config{BaseURL: url})

	err := c.HealthCheck(t.Context())
	assert.True(t, persistence.IsUnavailable(err))

	_, err = c.TestStep(t.Context(), runtime.TestRequest{AutomationID: "a", StepID: "s"})
	require.ErrorIs(t, err, runtime.ErrRuntimeUnavailable)

	require.NoError(t, c.Close(t.Context()))
}

func TestClient_Template(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/templates/welcome", r.URL.Path)

		writeJSON(w, http.StatusOK, map[string]any{
			"name":  "Welcome",
			"steps": []map[string]any{{"id": "a", "kind": "email", "order": 0, "email": map[string]string{"subject": "Hi", "body": "Hello"}}},
		})
	})

	tmpl, err := c.Template(t.Context(), "welcome")
	require.NoError(t, err)

	assert.Equal(t, "welcome", tmpl.ID)
	require.Len(t, tmpl.Steps, 1)
	assert.Equal(t, "Hi", tmpl.Steps[0].Email.Subject)
}

func TestClient_TestStep(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/automations/a-1/steps/s-1/test", r.URL.Path)

		var req runtime.TestRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.JSONEq(t, `{"email":"ada@example.com"}`, string(req.SampleContact))

		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"message": "condition matched",
			"result":  map[string]bool{"matched": true},
		})
	})

	res, err := c.TestStep(t.Context(), runtime.TestRequest{
		AutomationID:  "a-1",
		StepID:        "s-1",
		SampleContact: json.RawMessage(`{"email":"ada@example.com"}`),
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, "condition matched", res.Message)
	assert.JSONEq(t, `{"matched":true}`, string(res.Result))
}

func TestClient_TestStep_ErrorStatus(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"title": "boom"})
	})

	_, err := c.TestStep(t.Context(), runtime.TestRequest{AutomationID: "a", StepID: "s"})
	require.ErrorIs(t, err, runtime.ErrRuntimeUnavailable)
	assert.Contains(t, err.Error(), "boom")
}

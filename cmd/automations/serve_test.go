package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukex/automations/pkg/client"
	"github.com/dukex/automations/pkg/otelhelper"
	"github.com/dukex/automations/pkg/persistence/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPI_App(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := file.NewPersistence(t.TempDir())

	api := NewAPI(logger, store, nil, nil, otelhelper.NoopTracer())
	app := api.App()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Automations API", string(body))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewTester(t *testing.T) {
	store := file.NewPersistence(t.TempDir())

	assert.Nil(t, newTester(store, "", ""))
	assert.IsType(t, &client.Client{}, newTester(store, "http://runtime.local", "token"))

	api := client.New(client.Config{BaseURL: "http://api.local"})
	assert.Same(t, api, newTester(api, "", ""))
}

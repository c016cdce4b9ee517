// Package client talks to the dashboard REST API that owns automation storage,
// templates and step evaluation.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/persistence"
	"github.com/dukex/automations/pkg/runtime"
	"github.com/go-resty/resty/v2"
)

// Config holds the API client configuration.
type Config struct {
	BaseURL    string        `validate:"required,url"`
	Token      string        // bearer token, optional
	Timeout    time.Duration `validate:"gte=0"`
	MaxRetries int           `validate:"gte=0,lte=10"`
}

// Client implements persistence.Store and runtime.Tester over HTTP.
type Client struct {
	http *resty.Client
}

var (
	_ persistence.Store = (*Client)(nil)
	_ runtime.Tester    = (*Client)(nil)
)

// apiError is the problem+json body the API answers with on failure.
type apiError struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e apiError) String() string {
	if e.Detail != "" {
		return e.Detail
	}

	return e.Title
}

// New creates a client for the API at cfg.BaseURL.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(100*time.Millisecond).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})

	if cfg.Token != "" {
		c.SetAuthToken(cfg.Token)
	}

	return &Client{http: c}
}

// Close releases idle connections.
func (c *Client) Close(_ context.Context) error {
	c.http.GetClient().CloseIdleConnections()

	return nil
}

// HealthCheck calls the API health endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/health")

	return c.check("HealthCheck", "", resp, err, persistence.ErrUnavailable)
}

// Create posts a new automation and returns the permanent ids.
func (c *Client) Create(ctx context.Context, def models.WorkflowDefinition) (persistence.CreateResult, error) {
	var result persistence.CreateResult

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(def).
		SetResult(&result).
		SetError(&apiError{}).
		Post("/automations")
	if err := c.check("Create", "", resp, err, nil); err != nil {
		return persistence.CreateResult{}, err
	}

	return result, nil
}

// Update replaces an automation.
func (c *Client) Update(ctx context.Context, id string, def models.WorkflowDefinition) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetBody(def).
		SetError(&apiError{}).
		Put("/automations/{id}")

	return c.check("Update", id, resp, err, persistence.ErrAutomationNotFound)
}

// UpdateStepsOnly replaces only the steps of an automation.
func (c *Client) UpdateStepsOnly(ctx context.Context, id string, steps []models.Step) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetBody(map[string]any{"steps": steps}).
		SetError(&apiError{}).
		Put("/automations/{id}/steps")

	return c.check("UpdateStepsOnly", id, resp, err, persistence.ErrAutomationNotFound)
}

// AutomationByID fetches an automation.
func (c *Client) AutomationByID(ctx context.Context, id string) (models.WorkflowDefinition, error) {
	var def models.WorkflowDefinition

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&def).
		SetError(&apiError{}).
		Get("/automations/{id}")
	if err := c.check("AutomationByID", id, resp, err, persistence.ErrAutomationNotFound); err != nil {
		return models.WorkflowDefinition{}, err
	}

	return def, nil
}

// Template fetches a template.
func (c *Client) Template(ctx context.Context, id string) (models.Template, error) {
	var tmpl models.Template

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", id).
		SetResult(&tmpl).
		SetError(&apiError{}).
		Get("/templates/{id}")
	if err := c.check("Template", id, resp, err, persistence.ErrTemplateNotFound); err != nil {
		return models.Template{}, err
	}

	if tmpl.ID == "" {
		tmpl.ID = id
	}

	return tmpl, nil
}

// TestStep asks the API runtime to evaluate a step against a sample contact.
func (c *Client) TestStep(ctx context.Context, req runtime.TestRequest) (runtime.TestResult, error) {
	var result runtime.TestResult

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"id": req.AutomationID, "stepId": req.StepID}).
		SetBody(req).
		SetResult(&result).
		SetError(&apiError{}).
		Post("/automations/{id}/steps/{stepId}/test")
	if err != nil {
		return runtime.TestResult{}, fmt.Errorf("%w: %v", runtime.ErrRuntimeUnavailable, err)
	}

	if resp.IsError() {
		return runtime.TestResult{}, fmt.Errorf("%w: %s: %s", runtime.ErrRuntimeUnavailable, resp.Status(), describe(resp))
	}

	return result, nil
}

// check maps a transport error or an error status to a persistence error.
// notFound is used for 404 answers.
func (c *Client) check(op, id string, resp *resty.Response, err error, notFound error) error {
	if err != nil {
		return persistence.NewAutomationError(op, id, fmt.Errorf("%w: %v", persistence.ErrUnavailable, err))
	}

	if !resp.IsError() {
		return nil
	}

	e := &persistence.AutomationError{Op: op, AutomationID: id, Message: describe(resp)}

	switch {
	case resp.StatusCode() == http.StatusNotFound && notFound != nil:
		e.Err = notFound
	case resp.StatusCode() >= http.StatusInternalServerError:
		e.Err = persistence.ErrUnavailable
	default:
		e.Err = errors.New(resp.Status())
	}

	return e
}

func describe(resp *resty.Response) string {
	if e, ok := resp.Error().(*apiError); ok && e.String() != "" {
		return e.String()
	}

	return strings.TrimSpace(string(resp.Body()))
}

package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/dukex/automations/pkg/models"
	"github.com/dukex/automations/pkg/services"
	"github.com/dukex/automations/pkg/triggers"
	"github.com/dukex/automations/pkg/workflow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

var errInvalidJSON = errors.New("invalid JSON format")

type APIHandlers struct {
	service   *services.Automation
	builder   *workflow.Builder
	validator *validator.Validate
}

func NewAPIHandlers(service *services.Automation, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		service:   service,
		builder:   service.Builder(),
		validator: validator,
	}
}

// Routes registers every endpoint on r.
func (h *APIHandlers) Routes(r fiber.Router) {
	b := r.Group("/builder")
	b.Get("/kinds", h.StepKinds)
	b.Post("/new", h.NewDefinition)
	b.Post("/validate", h.Validate)
	b.Post("/steps", h.AddStep)
	b.Post("/steps/remove", h.RemoveStep)
	b.Post("/steps/duplicate", h.DuplicateStep)
	b.Post("/steps/reorder", h.ReorderStep)
	b.Post("/steps/field", h.UpdateStepField)
	b.Post("/steps/branch", h.SetBranch)
	b.Post("/steps/resolve", h.ResolveBranches)
	b.Post("/triggers", h.AddTrigger)
	b.Post("/triggers/update", h.UpdateTrigger)
	b.Post("/triggers/remove", h.RemoveTrigger)
	b.Post("/triggers/regenerate-key", h.RegenerateWebhookKey)
	b.Post("/triggers/schedule", h.PreviewSchedule)

	a := r.Group("/automations")
	a.Post("/", h.SaveAutomation)
	a.Post("/from-template", h.FromTemplate)
	a.Put("/:id/steps", h.SaveSteps)
	a.Post("/:id/steps/:stepId/test", h.TestStep)

	r.Get("/health", h.HealthCheck)
}

// bind decodes and validates the request body into req.
func (h *APIHandlers) bind(c fiber.Ctx, req any) error {
	if err := c.Bind().JSON(req); err != nil {
		return errInvalidJSON
	}

	return h.validator.Struct(req)
}

func definitionResponse(c fiber.Ctx, def models.WorkflowDefinition, err error) error {
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(DefinitionResponse{Definition: def})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	check, ok := h.service.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusServiceUnavailable

	if ok {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"persistence": check,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) StepKinds(c fiber.Ctx) error {
	return c.JSON(h.builder.Registry().Kinds())
}

func (h *APIHandlers) NewDefinition(c fiber.Ctx) error {
	var req NewDefinitionRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	return c.Status(fiber.StatusCreated).JSON(DefinitionResponse{
		Definition: h.builder.New(req.Name, req.Description),
	})
}

func (h *APIHandlers) Validate(c fiber.Ctx) error {
	var req DefinitionRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(h.builder.Validate(req.Definition))
}

func (h *APIHandlers) AddStep(c fiber.Ctx) error {
	var req AddStepRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	def, err := h.builder.AddStep(req.Definition, req.Kind)

	return definitionResponse(c, def, err)
}

func (h *APIHandlers) RemoveStep(c fiber.Ctx) error {
	var req StepRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	def, err := h.builder.RemoveStep(req.Definition, req.StepID)

	return definitionResponse(c, def, err)
}

func (h *APIHandlers) DuplicateStep(c fiber.Ctx) error {
	var req StepRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	def, err := h.builder.DuplicateStep(req.Definition, req.StepID)

	return definitionResponse(c, def, err)
}

func (h *APIHandlers) ReorderStep(c fiber.Ctx) error {
	var req ReorderStepRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	def, err := h.builder.ReorderStep(req.Definition, req.StepID, req.ToIndex)

	return definitionResponse(c, def, err)
}

func (h *APIHandlers) UpdateStepField(c fiber.Ctx) error {
	var req UpdateStepFieldRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	def, err := h.builder.UpdateStepField(req.Definition, req.StepID, req.Field, req.Value)

	return definitionResponse(c, def, err)
}

func (h *APIHandlers) SetBranch(c fiber.Ctx) error {
	var req SetBranchRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	def, err := h.builder.SetBranch(req.Definition, req.StepID, req.Outcome, req.Target)

	return definitionResponse(c, def, err)
}

func (h *APIHandlers) ResolveBranches(c fiber.Ctx) error {
	var req StepRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	resolution, err := h.builder.ResolveBranches(req.Definition, req.StepID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ResolveResponse{StepID: req.StepID, Resolution: resolution})
}

func (h *APIHandlers) AddTrigger(c fiber.Ctx) error {
	var req AddTriggerRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	def, err := h.builder.AddTrigger(req.Definition, req.Kind)

	return definitionResponse(c, def, err)
}

func (h *APIHandlers) UpdateTrigger(c fiber.Ctx) error {
	var req UpdateTriggerRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	def, err := h.builder.UpdateTrigger(req.Definition, req.Index, req.Patch)

	return definitionResponse(c, def, err)
}

func (h *APIHandlers) RemoveTrigger(c fiber.Ctx) error {
	var req TriggerRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	def, err := h.builder.RemoveTrigger(req.Definition, req.Index)

	return definitionResponse(c, def, err)
}

func (h *APIHandlers) RegenerateWebhookKey(c fiber.Ctx) error {
	var req TriggerRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	def, err := h.builder.RegenerateWebhookKey(req.Definition, req.Index)

	return definitionResponse(c, def, err)
}

func (h *APIHandlers) PreviewSchedule(c fiber.Ctx) error {
	var req SchedulePreviewRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	from := time.Now().UTC()
	if req.From != nil {
		from = *req.From
	}

	expr, err := triggers.CronExpression(req.Config)
	if err != nil {
		return handleServiceError(c, err)
	}

	next, err := triggers.NextRun(req.Config, from)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(SchedulePreviewResponse{Cron: expr, NextRun: next})
}

func (h *APIHandlers) SaveAutomation(c fiber.Ctx) error {
	var req DefinitionRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.service.Save(c.Context(), req.Definition)
	if err != nil {
		return handleServiceError(c, err)
	}

	status := fiber.StatusOK
	if result.Created {
		status = fiber.StatusCreated
	}

	return c.Status(status).JSON(result)
}

func (h *APIHandlers) SaveSteps(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Automation ID is required")
	}

	var req DefinitionRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	req.Definition.ID = id

	if err := h.service.SaveSteps(c.Context(), req.Definition); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) TestStep(c fiber.Ctx) error {
	id := c.Params("id")
	stepID := c.Params("stepId")

	if id == "" || stepID == "" {
		return badRequest(c, "Automation ID and step ID are required")
	}

	var req TestStepRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	req.Definition.ID = id

	result, err := h.service.TestStep(c.Context(), req.Definition, stepID, req.SampleContact)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) FromTemplate(c fiber.Ctx) error {
	var req FromTemplateRequest
	if err := h.bind(c, &req); err != nil {
		return badRequest(c, err.Error())
	}

	def, err := h.service.NewFromTemplate(c.Context(), req.Name, req.TemplateID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(DefinitionResponse{Definition: def})
}

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/reelforge/reelforge/internal/domain"
	"github.com/reelforge/reelforge/internal/repository"
	"github.com/reelforge/reelforge/internal/service"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
	maxPageSize     = 100
)

type WizardService interface {
	CreateProject(ctx context.Context, params service.CreateProjectParams) (*domain.Project, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjects(ctx context.Context, params repository.ListProjectsParams) ([]domain.Project, int64, error)
	DeleteProject(ctx context.Context, id string) error
	Steps(ctx context.Context, projectID string) ([]service.StepView, error)
	Next(ctx context.Context, projectID string) (*domain.Project, error)
	Back(ctx context.Context, projectID string) (*domain.Project, error)
	Jump(ctx context.Context, projectID string, stepID string) (*domain.Project, error)
	CompleteCurrent(ctx context.Context, projectID string) (*domain.Project, error)
	SavePayload(ctx context.Context, projectID string, stepID string, payload json.RawMessage) (*domain.Project, error)
	ClearDirty(ctx context.Context, projectID string, stepID string) (*domain.Project, error)
}

type ProjectHandler struct {
	service WizardService
}

func NewProjectHandler(service WizardService) (*ProjectHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("wizard service is required")
	}
	return &ProjectHandler{service: service}, nil
}

func RegisterProjectRoutes(router fiber.Router, service WizardService) error {
	h, err := NewProjectHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/projects", h.CreateProject)
	v1.Get("/projects", h.ListProjects)
	v1.Get("/projects/:id", h.GetProject)
	v1.Delete("/projects/:id", h.DeleteProject)
	v1.Get("/projects/:id/steps", h.GetSteps)
	v1.Post("/projects/:id/next", h.Next)
	v1.Post("/projects/:id/back", h.Back)
	v1.Post("/projects/:id/jump", h.Jump)
	v1.Post("/projects/:id/complete", h.CompleteCurrent)
	v1.Put("/projects/:id/steps/:stepId/payload", h.SavePayload)
	v1.Post("/projects/:id/steps/:stepId/clear-dirty", h.ClearDirty)

	return nil
}

type createProjectRequest struct {
	Title            string `json:"title"`
	Mode             string `json:"mode"`
	VoiceoverEnabled bool   `json:"voiceoverEnabled"`
	CaptionsEnabled  bool   `json:"captionsEnabled"`
}

type jumpRequest struct {
	StepID string `json:"stepId"`
}

type projectResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Mode             string    `json:"mode"`
	VoiceoverEnabled bool      `json:"voiceoverEnabled"`
	CaptionsEnabled  bool      `json:"captionsEnabled"`
	CurrentStep      string    `json:"currentStep"`
	CompletedSteps   []string  `json:"completedSteps"`
	DirtySteps       []string  `json:"dirtySteps"`
	CampaignItemID   *string   `json:"campaignItemId,omitempty"`
	AssetURL         *string   `json:"assetUrl,omitempty"`
	CreatedAt        time.Time `json:"createdAt,omitempty"`
	UpdatedAt        time.Time `json:"updatedAt,omitempty"`
}

type stepResponse struct {
	ID        string `json:"id"`
	Current   bool   `json:"current"`
	Completed bool   `json:"completed"`
	Dirty     bool   `json:"dirty"`
}

type listProjectsResponse struct {
	Data []projectResponse `json:"data"`
	Meta listMeta          `json:"meta"`
}

type listMeta struct {
	Page     int   `json:"page"`
	PageSize int   `json:"pageSize"`
	Total    int64 `json:"total"`
}

func (h *ProjectHandler) CreateProject(c *fiber.Ctx) error {
	var req createProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	mode, err := domain.ParseModeFromString(req.Mode)
	if err != nil {
		return err
	}

	project, err := h.service.CreateProject(c.Context(), service.CreateProjectParams{
		Title:            req.Title,
		Mode:             mode,
		VoiceoverEnabled: req.VoiceoverEnabled,
		CaptionsEnabled:  req.CaptionsEnabled,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(toProjectResponse(project))
}

func (h *ProjectHandler) GetProject(c *fiber.Ctx) error {
	project, err := h.service.GetProject(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toProjectResponse(project))
}

func (h *ProjectHandler) ListProjects(c *fiber.Ctx) error {
	params, err := parseListProjectsParams(c)
	if err != nil {
		return err
	}

	projects, total, err := h.service.ListProjects(c.Context(), params)
	if err != nil {
		return err
	}

	responses := make([]projectResponse, 0, len(projects))
	for i := range projects {
		responses = append(responses, toProjectResponse(&projects[i]))
	}

	return c.Status(fiber.StatusOK).JSON(listProjectsResponse{
		Data: responses,
		Meta: listMeta{
			Page:     params.Page,
			PageSize: params.PageSize,
			Total:    total,
		},
	})
}

func (h *ProjectHandler) DeleteProject(c *fiber.Ctx) error {
	if err := h.service.DeleteProject(c.Context(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ProjectHandler) GetSteps(c *fiber.Ctx) error {
	steps, err := h.service.Steps(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}

	responses := make([]stepResponse, 0, len(steps))
	for _, step := range steps {
		responses = append(responses, stepResponse{
			ID:        step.ID,
			Current:   step.Current,
			Completed: step.Completed,
			Dirty:     step.Dirty,
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"steps": responses})
}

func (h *ProjectHandler) Next(c *fiber.Ctx) error {
	project, err := h.service.Next(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toProjectResponse(project))
}

func (h *ProjectHandler) Back(c *fiber.Ctx) error {
	project, err := h.service.Back(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toProjectResponse(project))
}

func (h *ProjectHandler) Jump(c *fiber.Ctx) error {
	var req jumpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	project, err := h.service.Jump(c.Context(), c.Params("id"), req.StepID)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toProjectResponse(project))
}

func (h *ProjectHandler) CompleteCurrent(c *fiber.Ctx) error {
	project, err := h.service.CompleteCurrent(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toProjectResponse(project))
}

func (h *ProjectHandler) SavePayload(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 || !json.Valid(body) {
		return fiber.NewError(fiber.StatusBadRequest, "payload must be valid json")
	}

	payload := make(json.RawMessage, len(body))
	copy(payload, body)

	project, err := h.service.SavePayload(c.Context(), c.Params("id"), c.Params("stepId"), payload)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toProjectResponse(project))
}

func (h *ProjectHandler) ClearDirty(c *fiber.Ctx) error {
	project, err := h.service.ClearDirty(c.Context(), c.Params("id"), c.Params("stepId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toProjectResponse(project))
}

func parseListProjectsParams(c *fiber.Ctx) (repository.ListProjectsParams, error) {
	params := repository.ListProjectsParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.ListProjectsParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.ListProjectsParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawMode := strings.TrimSpace(c.Query("mode")); rawMode != "" {
		mode, err := domain.ParseModeFromString(rawMode)
		if err != nil {
			return repository.ListProjectsParams{}, err
		}
		params.Mode = &mode
	}

	return params, nil
}

func toProjectResponse(p *domain.Project) projectResponse {
	if p == nil {
		return projectResponse{}
	}

	completed := p.CompletedSteps
	if completed == nil {
		completed = []string{}
	}
	dirty := p.DirtySteps
	if dirty == nil {
		dirty = []string{}
	}

	return projectResponse{
		ID:               p.ID,
		Title:            p.Title,
		Mode:             p.Mode.String(),
		VoiceoverEnabled: p.VoiceoverEnabled,
		CaptionsEnabled:  p.CaptionsEnabled,
		CurrentStep:      p.CurrentStep,
		CompletedSteps:   completed,
		DirtySteps:       dirty,
		CampaignItemID:   p.CampaignItemID,
		AssetURL:         p.AssetURL,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/reelforge/reelforge/internal/domain"
	"github.com/reelforge/reelforge/internal/service"
)

const scheduleDateLayout = "2006-01-02"

type CampaignService interface {
	Create(ctx context.Context, params service.CreateCampaignParams) (*domain.Campaign, []domain.CampaignItem, error)
	GetByID(ctx context.Context, id string) (*domain.Campaign, error)
	ListItems(ctx context.Context, campaignID string) ([]domain.CampaignItem, error)
	GetSummary(ctx context.Context, campaignID string) (*service.CampaignSummary, error)
	RetryItem(ctx context.Context, campaignID string, index int) (*domain.CampaignItem, error)
	Reschedule(ctx context.Context, campaignID string, start, end time.Time, maxPerDay int) (*domain.Campaign, error)
}

type CampaignHandler struct {
	service CampaignService
}

func NewCampaignHandler(service CampaignService) (*CampaignHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("campaign service is required")
	}
	return &CampaignHandler{service: service}, nil
}

func RegisterCampaignRoutes(router fiber.Router, service CampaignService) error {
	h, err := NewCampaignHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/campaigns", h.CreateCampaign)
	v1.Get("/campaigns/:id", h.GetCampaign)
	v1.Get("/campaigns/:id/items", h.ListItems)
	v1.Get("/campaigns/:id/summary", h.GetSummary)
	v1.Post("/campaigns/:id/items/:index/retry", h.RetryItem)
	v1.Put("/campaigns/:id/schedule", h.Reschedule)

	return nil
}

type createCampaignRequest struct {
	Name        string   `json:"name"`
	Mode        string   `json:"mode"`
	Priority    string   `json:"priority"`
	StartDate   string   `json:"startDate"`
	EndDate     string   `json:"endDate"`
	MaxPerDay   int      `json:"maxPerDay"`
	Ideas       []string `json:"ideas"`
	MaxAttempts *int     `json:"maxAttempts,omitempty"`
}

type rescheduleRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	MaxPerDay int    `json:"maxPerDay"`
}

type campaignResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Mode       string    `json:"mode"`
	Priority   string    `json:"priority"`
	StartDate  string    `json:"startDate"`
	EndDate    string    `json:"endDate"`
	MaxPerDay  int       `json:"maxPerDay"`
	TotalCount int       `json:"totalCount"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
}

type campaignItemResponse struct {
	ID            string     `json:"id"`
	CampaignID    string     `json:"campaignId"`
	ItemIndex     int        `json:"itemIndex"`
	SourceIdea    string     `json:"sourceIdea"`
	Status        string     `json:"status"`
	ProjectID     *string    `json:"projectId,omitempty"`
	AssetURL      *string    `json:"assetUrl,omitempty"`
	Error         *string    `json:"error,omitempty"`
	AttemptCount  int        `json:"attemptCount"`
	MaxAttempts   int        `json:"maxAttempts"`
	ScheduledDate string     `json:"scheduledDate"`
	PublishedAt   *time.Time `json:"publishedAt,omitempty"`
	NextRetryAt   *time.Time `json:"nextRetryAt,omitempty"`
}

type createCampaignResponse struct {
	Campaign campaignResponse       `json:"campaign"`
	Items    []campaignItemResponse `json:"items"`
	Warning  string                 `json:"warning,omitempty"`
}

type campaignSummaryResponse struct {
	CampaignID string                `json:"campaignId"`
	Name       string                `json:"name"`
	TotalCount int                   `json:"totalCount"`
	Status     string                `json:"status"`
	Counts     []itemStatusCountItem `json:"counts"`
}

type itemStatusCountItem struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req createCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	params, err := requestToCreateParams(req)
	if err != nil {
		return err
	}

	campaign, items, err := h.service.Create(c.Context(), params)
	if err != nil {
		// Enqueue failures after the campaign row exists are reported as a
		// warning so the client still learns the campaign id.
		if campaign == nil {
			return err
		}
		return c.Status(fiber.StatusAccepted).JSON(createCampaignResponse{
			Campaign: toCampaignResponse(campaign),
			Items:    toCampaignItemResponses(items),
			Warning:  err.Error(),
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(createCampaignResponse{
		Campaign: toCampaignResponse(campaign),
		Items:    toCampaignItemResponses(items),
	})
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	campaign, err := h.service.GetByID(c.Context(), strings.TrimSpace(c.Params("id")))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toCampaignResponse(campaign))
}

func (h *CampaignHandler) ListItems(c *fiber.Ctx) error {
	items, err := h.service.ListItems(c.Context(), strings.TrimSpace(c.Params("id")))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"items": toCampaignItemResponses(items),
	})
}

func (h *CampaignHandler) GetSummary(c *fiber.Ctx) error {
	summary, err := h.service.GetSummary(c.Context(), strings.TrimSpace(c.Params("id")))
	if err != nil {
		return err
	}

	counts := make([]itemStatusCountItem, 0, len(summary.Counts))
	for _, count := range summary.Counts {
		counts = append(counts, itemStatusCountItem{
			Status: count.Status.String(),
			Count:  count.Count,
		})
	}

	return c.Status(fiber.StatusOK).JSON(campaignSummaryResponse{
		CampaignID: summary.CampaignID,
		Name:       summary.Name,
		TotalCount: summary.TotalCount,
		Status:     summary.Status.String(),
		Counts:     counts,
	})
}

func (h *CampaignHandler) RetryItem(c *fiber.Ctx) error {
	index, err := c.ParamsInt("index")
	if err != nil || index < 0 {
		return fmt.Errorf("%w: item index must be a non-negative integer", domain.ErrValidation)
	}

	item, err := h.service.RetryItem(c.Context(), strings.TrimSpace(c.Params("id")), index)
	if err != nil {
		return err
	}

	response := toCampaignItemResponses([]domain.CampaignItem{*item})
	return c.Status(fiber.StatusAccepted).JSON(response[0])
}

func (h *CampaignHandler) Reschedule(c *fiber.Ctx) error {
	var req rescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	start, err := parseScheduleDate(req.StartDate, "startDate")
	if err != nil {
		return err
	}
	end, err := parseScheduleDate(req.EndDate, "endDate")
	if err != nil {
		return err
	}

	campaign, err := h.service.Reschedule(c.Context(), strings.TrimSpace(c.Params("id")), start, end, req.MaxPerDay)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toCampaignResponse(campaign))
}

func requestToCreateParams(req createCampaignRequest) (service.CreateCampaignParams, error) {
	mode, err := domain.ParseModeFromString(req.Mode)
	if err != nil {
		return service.CreateCampaignParams{}, err
	}

	priority := domain.PriorityNormal
	if strings.TrimSpace(req.Priority) != "" {
		priority, err = domain.ParsePriorityFromString(req.Priority)
		if err != nil {
			return service.CreateCampaignParams{}, err
		}
	}

	start, err := parseScheduleDate(req.StartDate, "startDate")
	if err != nil {
		return service.CreateCampaignParams{}, err
	}
	end, err := parseScheduleDate(req.EndDate, "endDate")
	if err != nil {
		return service.CreateCampaignParams{}, err
	}

	params := service.CreateCampaignParams{
		Name:      strings.TrimSpace(req.Name),
		Mode:      mode,
		Priority:  priority,
		StartDate: start,
		EndDate:   end,
		MaxPerDay: req.MaxPerDay,
		Ideas:     req.Ideas,
	}
	if req.MaxAttempts != nil {
		params.MaxAttempts = *req.MaxAttempts
	}

	return params, nil
}

func parseScheduleDate(value string, field string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("%w: %s is required", domain.ErrValidation, field)
	}

	t, err := time.Parse(scheduleDateLayout, trimmed)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, trimmed)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be a %s date or RFC3339 timestamp", domain.ErrValidation, field, scheduleDateLayout)
	}
	return t, nil
}

func toCampaignResponse(campaign *domain.Campaign) campaignResponse {
	if campaign == nil {
		return campaignResponse{}
	}

	return campaignResponse{
		ID:         campaign.ID,
		Name:       campaign.Name,
		Mode:       campaign.Mode.String(),
		Priority:   campaign.Priority.String(),
		StartDate:  campaign.StartDate.Format(scheduleDateLayout),
		EndDate:    campaign.EndDate.Format(scheduleDateLayout),
		MaxPerDay:  campaign.MaxPerDay,
		TotalCount: campaign.TotalCount,
		Status:     campaign.Status.String(),
		CreatedAt:  campaign.CreatedAt,
		UpdatedAt:  campaign.UpdatedAt,
	}
}

func toCampaignItemResponses(items []domain.CampaignItem) []campaignItemResponse {
	responses := make([]campaignItemResponse, 0, len(items))
	for i := range items {
		item := items[i]
		responses = append(responses, campaignItemResponse{
			ID:            item.ID,
			CampaignID:    item.CampaignID,
			ItemIndex:     item.ItemIndex,
			SourceIdea:    item.SourceIdea,
			Status:        item.Status.String(),
			ProjectID:     item.ProjectID,
			AssetURL:      item.AssetURL,
			Error:         item.Error,
			AttemptCount:  item.AttemptCount,
			MaxAttempts:   item.MaxAttempts,
			ScheduledDate: item.ScheduledDate.Format(scheduleDateLayout),
			PublishedAt:   item.PublishedAt,
			NextRetryAt:   item.NextRetryAt,
		})
	}
	return responses
}

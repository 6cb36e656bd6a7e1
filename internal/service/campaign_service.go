package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/domain"
	"github.com/reelforge/reelforge/internal/queue"
	"github.com/reelforge/reelforge/internal/repository"
	"github.com/reelforge/reelforge/internal/schedule"
)

const (
	defaultMaxAttempts = 3
	maxCampaignSize    = 1000
)

// CampaignService fans campaign ideas out into scheduled items and queues
// each item for generation. Generation runs as soon as workers pick items
// up; the scheduled date only gates publishing.
type CampaignService struct {
	campaigns repository.CampaignRepository
	items     repository.CampaignItemRepository
	publisher queue.Publisher
	logger    *zap.Logger
}

type CreateCampaignParams struct {
	Name        string
	Mode        domain.Mode
	Priority    domain.Priority
	StartDate   time.Time
	EndDate     time.Time
	MaxPerDay   int
	Ideas       []string
	MaxAttempts int
}

type CampaignSummary struct {
	CampaignID string
	Name       string
	TotalCount int
	Status     domain.CampaignStatus
	Counts     []ItemStatusCount
}

type ItemStatusCount struct {
	Status domain.ItemStatus
	Count  int
}

func NewCampaignService(
	campaigns repository.CampaignRepository,
	items repository.CampaignItemRepository,
	publisher queue.Publisher,
	logger *zap.Logger,
) (*CampaignService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CampaignService{
		campaigns: campaigns,
		items:     items,
		publisher: publisher,
		logger:    logger,
	}, nil
}

func (s *CampaignService) Create(
	ctx context.Context,
	params CreateCampaignParams,
) (*domain.Campaign, []domain.CampaignItem, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := validateCreateParams(&params); err != nil {
		return nil, nil, err
	}

	dates, err := schedule.Distribute(len(params.Ideas), params.StartDate, params.EndDate, params.MaxPerDay)
	if err != nil {
		return nil, nil, err
	}

	campaign := &domain.Campaign{
		ID:         uuid.NewString(),
		Name:       params.Name,
		Mode:       params.Mode,
		Priority:   params.Priority,
		StartDate:  schedule.Day(params.StartDate),
		EndDate:    schedule.Day(params.EndDate),
		MaxPerDay:  params.MaxPerDay,
		TotalCount: len(params.Ideas),
		Status:     domain.CampaignStatusActive,
	}
	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, nil, err
	}

	items := make([]domain.CampaignItem, len(params.Ideas))
	itemPtrs := make([]*domain.CampaignItem, len(params.Ideas))
	for i, idea := range params.Ideas {
		items[i] = domain.CampaignItem{
			ID:            uuid.NewString(),
			CampaignID:    campaign.ID,
			ItemIndex:     i,
			SourceIdea:    idea,
			Status:        domain.ItemStatusPending,
			MaxAttempts:   params.MaxAttempts,
			ScheduledDate: dates[i],
		}
		itemPtrs[i] = &items[i]
	}
	if err := s.items.CreateBatch(ctx, itemPtrs); err != nil {
		_ = s.campaigns.UpdateStatus(ctx, campaign.ID, domain.CampaignStatusPartialFailure)
		return nil, nil, err
	}

	failed := 0
	for i := range itemPtrs {
		current := itemPtrs[i]
		msg := queue.GenerationMessage{
			ItemID:        current.ID,
			CampaignID:    campaign.ID,
			CorrelationID: uuid.NewString(),
			Mode:          campaign.Mode,
			Priority:      campaign.Priority,
		}
		if err := s.publisher.Publish(ctx, queue.QueueName(campaign.Mode), msg); err != nil {
			s.logger.Error("campaign: failed to enqueue item",
				zap.String("itemId", current.ID),
				zap.String("campaignId", campaign.ID),
				zap.Error(err),
			)
			failed++
			_ = s.items.MarkFailed(ctx, current.ID, fmt.Sprintf("enqueue failed: %v", err))
			current.Status = domain.ItemStatusFailed
		}
	}

	if failed > 0 {
		campaign.Status = domain.CampaignStatusPartialFailure
		if err := s.campaigns.UpdateStatus(ctx, campaign.ID, campaign.Status); err != nil {
			return nil, nil, err
		}
		s.logger.Warn("campaign created with partial failure",
			zap.String("campaignId", campaign.ID),
			zap.Int("failed", failed),
			zap.Int("total", len(items)),
		)
		return campaign, items, fmt.Errorf("campaign queued with partial failure: %d/%d failed", failed, len(items))
	}

	return campaign, items, nil
}

func (s *CampaignService) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: campaign id is required", domain.ErrValidation)
	}
	return s.campaigns.GetByID(ctx, strings.TrimSpace(id))
}

func (s *CampaignService) ListItems(ctx context.Context, campaignID string) ([]domain.CampaignItem, error) {
	if strings.TrimSpace(campaignID) == "" {
		return nil, fmt.Errorf("%w: campaign id is required", domain.ErrValidation)
	}
	return s.items.ListByCampaign(ctx, strings.TrimSpace(campaignID))
}

func (s *CampaignService) GetSummary(ctx context.Context, campaignID string) (*CampaignSummary, error) {
	if strings.TrimSpace(campaignID) == "" {
		return nil, fmt.Errorf("%w: campaign id is required", domain.ErrValidation)
	}

	campaign, err := s.campaigns.GetByID(ctx, strings.TrimSpace(campaignID))
	if err != nil {
		return nil, err
	}

	statuses, err := s.items.GetStatusSummary(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}

	counts := make([]ItemStatusCount, 0, len(statuses))
	for _, summary := range statuses {
		counts = append(counts, ItemStatusCount{
			Status: summary.Status,
			Count:  summary.Count,
		})
	}

	return &CampaignSummary{
		CampaignID: campaign.ID,
		Name:       campaign.Name,
		TotalCount: campaign.TotalCount,
		Status:     campaign.Status,
		Counts:     counts,
	}, nil
}

// RetryItem resets a failed item to pending and queues it again. Items in
// any other state are rejected so a retry can never clobber running work.
func (s *CampaignService) RetryItem(ctx context.Context, campaignID string, index int) (*domain.CampaignItem, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return nil, fmt.Errorf("%w: campaign id is required", domain.ErrValidation)
	}
	if index < 0 {
		return nil, fmt.Errorf("%w: item index must be >= 0", domain.ErrValidation)
	}

	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	if err := s.items.ResetForRetry(ctx, campaignID, index); err != nil {
		return nil, err
	}

	item, err := s.items.GetByCampaignAndIndex(ctx, campaignID, index)
	if err != nil {
		return nil, err
	}

	msg := queue.GenerationMessage{
		ItemID:        item.ID,
		CampaignID:    campaign.ID,
		CorrelationID: uuid.NewString(),
		Mode:          campaign.Mode,
		Priority:      campaign.Priority,
	}
	if err := s.publisher.Publish(ctx, queue.QueueName(campaign.Mode), msg); err != nil {
		_ = s.items.MarkFailed(ctx, item.ID, fmt.Sprintf("enqueue failed: %v", err))
		return nil, fmt.Errorf("failed to enqueue retried item: %w", err)
	}

	if campaign.Status != domain.CampaignStatusActive {
		if err := s.campaigns.UpdateStatus(ctx, campaign.ID, domain.CampaignStatusActive); err != nil {
			return nil, err
		}
	}

	s.logger.Info("campaign item queued for retry",
		zap.String("campaignId", campaignID),
		zap.Int("itemIndex", index),
		zap.String("itemId", item.ID),
	)

	return item, nil
}

// Reschedule redistributes all campaign items across a new window. The new
// window must fit the full item count, and dates are rewritten atomically.
func (s *CampaignService) Reschedule(
	ctx context.Context,
	campaignID string,
	start, end time.Time,
	maxPerDay int,
) (*domain.Campaign, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return nil, fmt.Errorf("%w: campaign id is required", domain.ErrValidation)
	}

	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	dates, err := schedule.Distribute(campaign.TotalCount, start, end, maxPerDay)
	if err != nil {
		return nil, err
	}

	if err := s.items.UpdateScheduledDates(ctx, campaign.ID, dates); err != nil {
		return nil, err
	}
	if err := s.campaigns.UpdateSchedule(ctx, campaign.ID, schedule.Day(start), schedule.Day(end), maxPerDay); err != nil {
		return nil, err
	}

	campaign.StartDate = schedule.Day(start)
	campaign.EndDate = schedule.Day(end)
	campaign.MaxPerDay = maxPerDay

	s.logger.Info("campaign rescheduled",
		zap.String("campaignId", campaign.ID),
		zap.Time("startDate", campaign.StartDate),
		zap.Time("endDate", campaign.EndDate),
		zap.Int("maxPerDay", maxPerDay),
	)

	return campaign, nil
}

func validateCreateParams(params *CreateCampaignParams) error {
	params.Name = strings.TrimSpace(params.Name)
	if params.Name == "" {
		return fmt.Errorf("%w: campaign name is required", domain.ErrValidation)
	}
	if !params.Mode.IsValid() {
		return fmt.Errorf("%w: invalid mode %q", domain.ErrValidation, params.Mode)
	}
	if params.Priority == "" {
		params.Priority = domain.PriorityNormal
	}
	if !params.Priority.IsValid() {
		return fmt.Errorf("%w: invalid priority %q", domain.ErrValidation, params.Priority)
	}
	if len(params.Ideas) == 0 {
		return fmt.Errorf("%w: campaign must include at least one idea", domain.ErrValidation)
	}
	if len(params.Ideas) > maxCampaignSize {
		return fmt.Errorf("%w: campaign size exceeds %d", domain.ErrValidation, maxCampaignSize)
	}
	for i, idea := range params.Ideas {
		params.Ideas[i] = strings.TrimSpace(idea)
		if params.Ideas[i] == "" {
			return fmt.Errorf("%w: idea at index %d is empty", domain.ErrValidation, i)
		}
	}
	if params.MaxAttempts <= 0 {
		params.MaxAttempts = defaultMaxAttempts
	}
	return nil
}

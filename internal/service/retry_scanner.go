package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/domain"
	"github.com/reelforge/reelforge/internal/queue"
	"github.com/reelforge/reelforge/internal/repository"
)

const (
	defaultRetryScanInterval = 30 * time.Second
	defaultRetryScanLimit    = 100
)

// RetryScanner periodically re-enqueues campaign items whose retry backoff
// has elapsed.
type RetryScanner struct {
	items     repository.CampaignItemRepository
	campaigns repository.CampaignRepository
	publisher queue.Publisher
	logger    *zap.Logger
	interval  time.Duration
	limit     int
}

func NewRetryScanner(
	items repository.CampaignItemRepository,
	campaigns repository.CampaignRepository,
	publisher queue.Publisher,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*RetryScanner, error) {
	if items == nil {
		return nil, fmt.Errorf("item repository is required")
	}
	if campaigns == nil {
		return nil, fmt.Errorf("campaign repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if interval <= 0 {
		interval = defaultRetryScanInterval
	}
	if limit <= 0 {
		limit = defaultRetryScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RetryScanner{
		items:     items,
		campaigns: campaigns,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		limit:     limit,
	}, nil
}

func (s *RetryScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Run an initial scan so already-due retries do not wait for the first ticker edge.
	if err := s.scanDue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("retry scanner initial scan failed", zap.Error(err))
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.scanDue(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				s.logger.Error("retry scanner scan failed", zap.Error(err))
			}
		}
	}
}

func (s *RetryScanner) scanDue(ctx context.Context) error {
	dueItems, err := s.items.GetDueForRetry(ctx, s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch due retries: %w", err)
	}

	campaigns := make(map[string]*domain.Campaign)
	for i := range dueItems {
		item := dueItems[i]

		campaign, ok := campaigns[item.CampaignID]
		if !ok {
			campaign, err = s.campaigns.GetByID(ctx, item.CampaignID)
			if err != nil {
				s.logger.Error("failed to load campaign for retry item",
					zap.String("itemId", item.ID),
					zap.String("campaignId", item.CampaignID),
					zap.Error(err),
				)
				continue
			}
			campaigns[item.CampaignID] = campaign
		}

		msg := queue.GenerationMessage{
			ItemID:        item.ID,
			CampaignID:    item.CampaignID,
			CorrelationID: uuid.NewString(),
			Mode:          campaign.Mode,
			Priority:      campaign.Priority,
		}

		queueName := queue.QueueName(campaign.Mode)
		if err := s.publisher.Publish(ctx, queueName, msg); err != nil {
			s.logger.Error("failed to enqueue retry item",
				zap.String("itemId", item.ID),
				zap.String("queue", queueName),
				zap.Error(err),
			)
			continue
		}

		if err := s.items.ClearNextRetryAt(ctx, item.ID); err != nil {
			s.logger.Error("failed to clear next retry timestamp after enqueue",
				zap.String("itemId", item.ID),
				zap.Error(err),
			)
			continue
		}
	}

	return nil
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/domain"
	"github.com/reelforge/reelforge/internal/observability"
	"github.com/reelforge/reelforge/internal/provider"
	"github.com/reelforge/reelforge/internal/repository"
)

const (
	defaultPublishScanInterval = time.Minute
	defaultPublishScanLimit    = 100
)

// PublishScanner pushes completed items to the social-publishing service
// once their scheduled date arrives. Items generated early just wait; the
// scanner only ever looks at completed, unpublished, due rows.
type PublishScanner struct {
	items     repository.CampaignItemRepository
	campaigns repository.CampaignRepository
	publisher provider.SocialPublisher
	metrics   *observability.Metrics
	logger    *zap.Logger
	interval  time.Duration
	limit     int
	now       func() time.Time
}

func NewPublishScanner(
	items repository.CampaignItemRepository,
	campaigns repository.CampaignRepository,
	publisher provider.SocialPublisher,
	interval time.Duration,
	limit int,
	logger *zap.Logger,
) (*PublishScanner, error) {
	if items == nil {
		return nil, fmt.Errorf("item repository is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("social publisher is required")
	}
	if interval <= 0 {
		interval = defaultPublishScanInterval
	}
	if limit <= 0 {
		limit = defaultPublishScanLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PublishScanner{
		items:     items,
		campaigns: campaigns,
		publisher: publisher,
		logger:    logger,
		interval:  interval,
		limit:     limit,
		now:       time.Now,
	}, nil
}

func (s *PublishScanner) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *PublishScanner) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.scanDue(ctx); err != nil && ctx.Err() == nil {
		s.logger.Error("publish scanner initial scan failed", zap.Error(err))
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
				s.logger.Error("publish scanner scan failed", zap.Error(err))
			}
		}
	}
}

func (s *PublishScanner) scanDue(ctx context.Context) error {
	dueItems, err := s.items.GetDueForPublish(ctx, s.now().UTC(), s.limit)
	if err != nil {
		return fmt.Errorf("failed to fetch items due for publish: %w", err)
	}

	modes := make(map[string]domain.Mode)
	for i := range dueItems {
		item := dueItems[i]
		if item.AssetURL == nil || strings.TrimSpace(*item.AssetURL) == "" {
			s.logger.Warn("completed item has no asset url, skipping publish",
				zap.String("itemId", item.ID),
			)
			continue
		}

		req := provider.PublishRequest{
			ItemID:   item.ID,
			AssetURL: *item.AssetURL,
			Caption:  item.SourceIdea,
		}
		if _, err := s.publisher.Publish(ctx, req); err != nil {
			s.logger.Error("failed to publish item",
				zap.String("itemId", item.ID),
				zap.Error(err),
			)
			continue
		}

		if err := s.items.MarkPublished(ctx, item.ID, s.now().UTC()); err != nil {
			s.logger.Error("failed to mark item published",
				zap.String("itemId", item.ID),
				zap.Error(err),
			)
			continue
		}

		if s.metrics != nil {
			s.metrics.IncItemPublished(strings.ToLower(s.modeFor(ctx, modes, item.CampaignID).String()))
		}
	}

	return nil
}

func (s *PublishScanner) modeFor(ctx context.Context, cache map[string]domain.Mode, campaignID string) domain.Mode {
	if mode, ok := cache[campaignID]; ok {
		return mode
	}
	if s.campaigns == nil {
		return ""
	}

	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return ""
	}
	cache[campaignID] = campaign.Mode
	return campaign.Mode
}

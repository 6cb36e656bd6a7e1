package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/reelforge/reelforge/internal/domain"
	"github.com/reelforge/reelforge/internal/observability"
	"github.com/reelforge/reelforge/internal/provider"
	"github.com/reelforge/reelforge/internal/queue"
	"github.com/reelforge/reelforge/internal/ratelimit"
	"github.com/reelforge/reelforge/internal/repository"
	"github.com/reelforge/reelforge/internal/wizard"
)

const (
	minWorkerConcurrency = 1
	maxRetryDelay        = 10 * time.Minute
	baseRetryDelay       = 30 * time.Second
	maxRetryJitterMillis = 5000

	generatorResource = "generator"
)

// WorkerService consumes mode queues and runs generation jobs against the
// provider. Each item is processed in isolation; a failed item never blocks
// or fails its campaign siblings.
type WorkerService struct {
	items       repository.CampaignItemRepository
	campaigns   repository.CampaignRepository
	projects    repository.ProjectRepository
	attempts    repository.AttemptRepository
	consumer    queue.Consumer
	generator   provider.Generator
	rateLimiter ratelimit.RateLimiter
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	now         func() time.Time
	randIntn    func(n int) int
}

func NewWorkerService(
	items repository.CampaignItemRepository,
	campaigns repository.CampaignRepository,
	projects repository.ProjectRepository,
	attempts repository.AttemptRepository,
	consumer queue.Consumer,
	generator provider.Generator,
	rateLimiter ratelimit.RateLimiter,
	concurrency int,
	logger *zap.Logger,
) (*WorkerService, error) {
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &WorkerService{
		items:       items,
		campaigns:   campaigns,
		projects:    projects,
		attempts:    attempts,
		consumer:    consumer,
		generator:   generator,
		rateLimiter: rateLimiter,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
		randIntn:    rand.Intn,
	}, nil
}

// Start consumes mode queues and processes generation messages until
// context cancellation.
func (s *WorkerService) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	queueNames := queue.WorkQueueNames()
	if len(queueNames) == 0 {
		return fmt.Errorf("no work queues configured")
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < s.concurrency; i++ {
		queueName := queueNames[i%len(queueNames)]
		workerID := i + 1

		g.Go(func() error {
			s.logger.Info("worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)

			err := s.consumer.Consume(groupCtx, queueName, s.processMessage)
			if err != nil {
				s.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.String("queue", queueName),
					zap.Error(err),
				)
				return err
			}

			s.logger.Info("worker stopped",
				zap.Int("workerId", workerID),
				zap.String("queue", queueName),
			)
			return nil
		})
	}

	return g.Wait()
}

func (s *WorkerService) processMessage(ctx context.Context, msg queue.GenerationMessage) error {
	if msg.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	}
	logger := observability.WithContextLogger(s.logger, ctx)

	item, err := s.items.LockForGeneration(ctx, msg.ItemID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Warn("item not found during lock, skipping",
				zap.String("itemId", msg.ItemID),
			)
			return nil
		}
		return fmt.Errorf("failed to lock item for generation: %w", err)
	}

	// Nil means the item is no longer pending; ack and skip.
	if item == nil {
		return nil
	}

	modeName := strings.ToLower(msg.Mode.String())
	if s.metrics != nil {
		s.metrics.IncWorkerInFlight(modeName)
		defer s.metrics.DecWorkerInFlight(modeName)
	}

	if err := s.rateLimiter.Wait(ctx, generatorResource); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	job := provider.GenerationJob{
		ItemID:     item.ID,
		CampaignID: item.CampaignID,
		Mode:       msg.Mode,
		Idea:       item.SourceIdea,
	}

	attemptNumber := item.AttemptCount + 1
	generateStart := s.now()
	result, generateErr := s.generator.Generate(ctx, job)
	if s.metrics != nil {
		s.metrics.ObserveGenerationDuration(modeName, s.now().Sub(generateStart))
	}

	if err := s.recordAttempt(ctx, item.ID, attemptNumber, result, generateErr); err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	if generateErr == nil {
		projectID := s.createProjectForItem(ctx, item, msg.Mode, result.AssetURL)
		if err := s.items.MarkCompleted(ctx, item.ID, result.AssetURL, projectID); err != nil {
			return fmt.Errorf("failed to mark item completed: %w", err)
		}
		if s.metrics != nil {
			s.metrics.IncItemGenerated(modeName)
		}
		s.refreshCampaignStatus(ctx, item.CampaignID)
		return nil
	}

	isTransient := provider.IsTransient(generateErr)
	maxAttempts := item.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	if isTransient && attemptNumber < maxAttempts {
		nextRetryAt := s.now().Add(s.computeRetryDelay(attemptNumber))
		if err := s.items.ScheduleRetry(ctx, item.ID, nextRetryAt); err != nil {
			return fmt.Errorf("failed to schedule item retry: %w", err)
		}
		if s.metrics != nil {
			s.metrics.IncRetryScheduled(modeName)
		}
		return nil
	}

	if err := s.items.MarkFailed(ctx, item.ID, generateErr.Error()); err != nil {
		return fmt.Errorf("failed to mark item failed: %w", err)
	}
	if s.metrics != nil {
		reason := "permanent_error"
		if isTransient {
			reason = "retry_exhausted"
		}
		s.metrics.IncItemFailed(modeName, reason)
	}
	s.refreshCampaignStatus(ctx, item.CampaignID)

	return nil
}

func (s *WorkerService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// createProjectForItem seeds a wizard project around the generated asset so
// the item can be reopened and edited. Failure here is logged, not fatal;
// the item still completes with its asset URL.
func (s *WorkerService) createProjectForItem(
	ctx context.Context,
	item *domain.CampaignItem,
	mode domain.Mode,
	assetURL string,
) *string {
	if s.projects == nil {
		return nil
	}

	prog, err := wizard.NewProgression(mode, wizard.Context{})
	if err != nil {
		s.logger.Warn("failed to start progression for generated item",
			zap.String("itemId", item.ID),
			zap.Error(err),
		)
		return nil
	}

	title := item.SourceIdea
	if runes := []rune(title); len(runes) > domain.MaxProjectTitle {
		title = string(runes[:domain.MaxProjectTitle])
	}

	itemID := item.ID
	project := &domain.Project{
		ID:             uuid.NewString(),
		Title:          title,
		Mode:           mode,
		CurrentStep:    prog.CurrentStep,
		CompletedSteps: prog.CompletedSteps(),
		DirtySteps:     prog.DirtySteps(),
		StepPayloads:   prog.Payloads(),
		CampaignItemID: &itemID,
		AssetURL:       &assetURL,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		s.logger.Warn("failed to create project for generated item",
			zap.String("itemId", item.ID),
			zap.Error(err),
		)
		return nil
	}

	return &project.ID
}

// refreshCampaignStatus settles the campaign once no items are pending or
// generating. Best effort: a failure here is retried on the next item.
func (s *WorkerService) refreshCampaignStatus(ctx context.Context, campaignID string) {
	if s.campaigns == nil {
		return
	}

	statuses, err := s.items.GetStatusSummary(ctx, campaignID)
	if err != nil {
		s.logger.Warn("failed to load campaign status summary",
			zap.String("campaignId", campaignID),
			zap.Error(err),
		)
		return
	}

	failed := 0
	for _, summary := range statuses {
		switch summary.Status {
		case domain.ItemStatusPending, domain.ItemStatusGenerating:
			return
		case domain.ItemStatusFailed:
			failed += summary.Count
		}
	}

	status := domain.CampaignStatusCompleted
	if failed > 0 {
		status = domain.CampaignStatusPartialFailure
	}
	if err := s.campaigns.UpdateStatus(ctx, campaignID, status); err != nil {
		s.logger.Warn("failed to update campaign status",
			zap.String("campaignId", campaignID),
			zap.String("status", status.String()),
			zap.Error(err),
		)
	}
}

func (s *WorkerService) computeRetryDelay(attemptNumber int) time.Duration {
	if attemptNumber < 1 {
		attemptNumber = 1
	}

	delay := baseRetryDelay
	for i := 1; i < attemptNumber; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			delay = maxRetryDelay
			break
		}
	}

	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}

	jitterMillis := 0
	if s.randIntn != nil && maxRetryJitterMillis > 0 {
		jitterMillis = s.randIntn(maxRetryJitterMillis + 1)
	}

	return delay + time.Duration(jitterMillis)*time.Millisecond
}

func (s *WorkerService) recordAttempt(
	ctx context.Context,
	itemID string,
	attemptNumber int,
	result *provider.GenerationResult,
	generateErr error,
) error {
	var statusCode *int
	var responseBody *string
	var attemptErr *string

	if result != nil {
		if result.StatusCode > 0 {
			value := result.StatusCode
			statusCode = &value
		}
		if body := strings.TrimSpace(result.Body); body != "" {
			value := result.Body
			responseBody = &value
		}
	}

	if generateErr != nil {
		value := generateErr.Error()
		attemptErr = &value

		var providerErr *provider.ProviderError
		if errors.As(generateErr, &providerErr) && providerErr.StatusCode > 0 && statusCode == nil {
			value := providerErr.StatusCode
			statusCode = &value
		}
	}

	attempt := &domain.GenerationAttempt{
		ID:            uuid.NewString(),
		ItemID:        itemID,
		AttemptNumber: attemptNumber,
		StatusCode:    statusCode,
		ResponseBody:  responseBody,
		Error:         attemptErr,
		CreatedAt:     s.now().UTC(),
	}

	return s.attempts.Create(ctx, attempt)
}

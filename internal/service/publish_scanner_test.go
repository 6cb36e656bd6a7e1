package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/reelforge/reelforge/internal/domain"
	"github.com/reelforge/reelforge/internal/provider"
)

func TestNewPublishScannerAppliesDefaults(t *testing.T) {
	t.Parallel()

	scanner, err := NewPublishScanner(&fakeItemRepo{}, &fakeCampaignRepo{}, &fakeSocialPublisher{}, 0, 0, nil)
	if err != nil {
		t.Fatalf("NewPublishScanner() error = %v", err)
	}
	if scanner.interval != defaultPublishScanInterval {
		t.Fatalf("interval = %s, want %s", scanner.interval, defaultPublishScanInterval)
	}
	if scanner.limit != defaultPublishScanLimit {
		t.Fatalf("limit = %d, want %d", scanner.limit, defaultPublishScanLimit)
	}
}

func TestPublishScannerScanDuePublishesAndMarks(t *testing.T) {
	t.Parallel()

	asset1 := "https://cdn.reelforge.dev/assets/i-1.mp4"
	asset2 := "https://cdn.reelforge.dev/assets/i-2.mp4"

	marked := make([]string, 0, 2)
	items := &fakeItemRepo{
		getDueForPublishFn: func(ctx context.Context, now time.Time, limit int) ([]domain.CampaignItem, error) {
			if limit != 100 {
				t.Fatalf("limit = %d, want 100", limit)
			}
			return []domain.CampaignItem{
				{ID: "i-1", CampaignID: "c-1", SourceIdea: "sunrise over the bosphorus", AssetURL: &asset1},
				{ID: "i-2", CampaignID: "c-1", SourceIdea: "street food tour", AssetURL: &asset2},
			}, nil
		},
		markPublishedFn: func(ctx context.Context, id string, at time.Time) error {
			marked = append(marked, id)
			return nil
		},
	}

	published := make([]provider.PublishRequest, 0, 2)
	social := &fakeSocialPublisher{
		publishFn: func(ctx context.Context, req provider.PublishRequest) (*provider.PublishResult, error) {
			published = append(published, req)
			return &provider.PublishResult{StatusCode: 200, PostID: "post-" + req.ItemID}, nil
		},
	}

	scanner, err := NewPublishScanner(items, &fakeCampaignRepo{}, social, 5*time.Second, 100, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPublishScanner() error = %v", err)
	}

	if err := scanner.scanDue(context.Background()); err != nil {
		t.Fatalf("scanDue() error = %v", err)
	}

	if len(published) != 2 {
		t.Fatalf("published count = %d, want 2", len(published))
	}
	if published[0].ItemID != "i-1" || published[0].AssetURL != asset1 {
		t.Fatalf("first publish = %+v, want item i-1 with its asset url", published[0])
	}
	if published[0].Caption != "sunrise over the bosphorus" {
		t.Fatalf("caption = %q, want the item's source idea", published[0].Caption)
	}
	if len(marked) != 2 || marked[0] != "i-1" || marked[1] != "i-2" {
		t.Fatalf("marked = %v, want [i-1 i-2]", marked)
	}
}

func TestPublishScannerScanDueSkipsMissingAsset(t *testing.T) {
	t.Parallel()

	blank := "   "
	items := &fakeItemRepo{
		getDueForPublishFn: func(ctx context.Context, now time.Time, limit int) ([]domain.CampaignItem, error) {
			return []domain.CampaignItem{
				{ID: "i-nil", CampaignID: "c-1"},
				{ID: "i-blank", CampaignID: "c-1", AssetURL: &blank},
			}, nil
		},
		markPublishedFn: func(ctx context.Context, id string, at time.Time) error {
			t.Fatalf("MarkPublished(%s) called for item without asset", id)
			return nil
		},
	}

	social := &fakeSocialPublisher{
		publishFn: func(ctx context.Context, req provider.PublishRequest) (*provider.PublishResult, error) {
			t.Fatalf("Publish(%s) called for item without asset", req.ItemID)
			return nil, nil
		},
	}

	scanner, err := NewPublishScanner(items, &fakeCampaignRepo{}, social, time.Second, 100, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPublishScanner() error = %v", err)
	}

	if err := scanner.scanDue(context.Background()); err != nil {
		t.Fatalf("scanDue() error = %v", err)
	}
}

func TestPublishScannerScanDueContinuesOnPublishError(t *testing.T) {
	t.Parallel()

	asset := "https://cdn.reelforge.dev/assets/a.mp4"
	marked := 0
	items := &fakeItemRepo{
		getDueForPublishFn: func(ctx context.Context, now time.Time, limit int) ([]domain.CampaignItem, error) {
			return []domain.CampaignItem{
				{ID: "i-1", CampaignID: "c-1", AssetURL: &asset},
				{ID: "i-2", CampaignID: "c-1", AssetURL: &asset},
			}, nil
		},
		markPublishedFn: func(ctx context.Context, id string, at time.Time) error {
			marked++
			return nil
		},
	}

	calls := 0
	social := &fakeSocialPublisher{
		publishFn: func(ctx context.Context, req provider.PublishRequest) (*provider.PublishResult, error) {
			calls++
			if req.ItemID == "i-1" {
				return nil, errors.New("publish failed")
			}
			return &provider.PublishResult{StatusCode: 200}, nil
		},
	}

	scanner, err := NewPublishScanner(items, &fakeCampaignRepo{}, social, time.Second, 100, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPublishScanner() error = %v", err)
	}

	if err := scanner.scanDue(context.Background()); err != nil {
		t.Fatalf("scanDue() error = %v", err)
	}

	if calls != 2 {
		t.Fatalf("publish calls = %d, want 2", calls)
	}
	if marked != 1 {
		t.Fatalf("marked count = %d, want 1", marked)
	}
}

func TestPublishScannerScanDueRepositoryError(t *testing.T) {
	t.Parallel()

	items := &fakeItemRepo{
		getDueForPublishFn: func(ctx context.Context, now time.Time, limit int) ([]domain.CampaignItem, error) {
			return nil, errors.New("db unavailable")
		},
	}

	scanner, err := NewPublishScanner(items, &fakeCampaignRepo{}, &fakeSocialPublisher{}, time.Second, 100, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPublishScanner() error = %v", err)
	}

	err = scanner.scanDue(context.Background())
	if err == nil {
		t.Fatal("expected scanDue() error")
	}
}

func TestPublishScannerStartReturnsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scanner, err := NewPublishScanner(&fakeItemRepo{}, &fakeCampaignRepo{}, &fakeSocialPublisher{}, time.Second, 100, zap.NewNop())
	if err != nil {
		t.Fatalf("NewPublishScanner() error = %v", err)
	}

	if err := scanner.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
}

type fakeSocialPublisher struct {
	publishFn func(ctx context.Context, req provider.PublishRequest) (*provider.PublishResult, error)
}

func (f *fakeSocialPublisher) Publish(ctx context.Context, req provider.PublishRequest) (*provider.PublishResult, error) {
	if f.publishFn != nil {
		return f.publishFn(ctx, req)
	}
	return &provider.PublishResult{StatusCode: 200}, nil
}

var _ provider.SocialPublisher = (*fakeSocialPublisher)(nil)

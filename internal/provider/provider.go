package provider

import (
	"context"

	"github.com/reelforge/reelforge/internal/domain"
)

// GenerationJob is the input contract for an outbound generation call.
type GenerationJob struct {
	ItemID     string
	CampaignID string
	Mode       domain.Mode
	Idea       string
}

// GenerationResult stores generation call metadata for audit and persistence.
type GenerationResult struct {
	StatusCode int
	Body       string
	JobID      string
	AssetURL   string
}

// Generator is the outbound port to a hosted AI generation endpoint.
type Generator interface {
	Generate(ctx context.Context, job GenerationJob) (*GenerationResult, error)
}

// PublishRequest is the input contract for pushing a finished asset to a
// social-publishing service.
type PublishRequest struct {
	ItemID   string
	AssetURL string
	Caption  string
}

// PublishResult stores the publish call metadata.
type PublishResult struct {
	StatusCode int
	Body       string
	PostID     string
}

// SocialPublisher is the outbound port to the social-publishing service.
type SocialPublisher interface {
	Publish(ctx context.Context, req PublishRequest) (*PublishResult, error)
}

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultGenerateTimeout = 120 * time.Second

type generateRequest struct {
	ItemID     string `json:"itemId"`
	CampaignID string `json:"campaignId"`
	Mode       string `json:"mode"`
	Idea       string `json:"idea"`
}

type generateResponse struct {
	JobID    string `json:"jobId"`
	AssetURL string `json:"assetUrl"`
}

// HTTPGenerator calls a hosted generation endpoint that accepts a mode and an
// idea and returns the finished asset's CDN URL.
type HTTPGenerator struct {
	client   *resty.Client
	endpoint string
}

func NewHTTPGenerator(endpoint string) (*HTTPGenerator, error) {
	client := resty.New()
	client.SetTimeout(defaultGenerateTimeout)
	client.SetRetryCount(0)

	return NewHTTPGeneratorWithClient(endpoint, client)
}

func NewHTTPGeneratorWithClient(endpoint string, client *resty.Client) (*HTTPGenerator, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("generator endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid generator endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultGenerateTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPGenerator{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (g *HTTPGenerator) Generate(ctx context.Context, job GenerationJob) (*GenerationResult, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("generator is not initialized")
	}
	if strings.TrimSpace(job.ItemID) == "" {
		return nil, fmt.Errorf("item id is required")
	}
	if !job.Mode.IsValid() {
		return nil, fmt.Errorf("invalid mode %q", job.Mode)
	}
	if strings.TrimSpace(job.Idea) == "" {
		return nil, fmt.Errorf("idea is required")
	}

	reqBody := generateRequest{
		ItemID:     job.ItemID,
		CampaignID: job.CampaignID,
		Mode:       strings.ToLower(job.Mode.String()),
		Idea:       job.Idea,
	}

	response, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(g.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "generation request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "generator returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		var parsed generateResponse
		if err := json.Unmarshal(response.Body(), &parsed); err != nil {
			return nil, &ProviderError{
				StatusCode: statusCode,
				Message:    "generator returned malformed body",
				Transient:  false,
				Cause:      err,
			}
		}
		if strings.TrimSpace(parsed.AssetURL) == "" {
			return nil, &ProviderError{
				StatusCode: statusCode,
				Message:    "generator response is missing assetUrl",
				Transient:  false,
			}
		}

		return &GenerationResult{
			StatusCode: statusCode,
			Body:       responseBody,
			JobID:      parsed.JobID,
			AssetURL:   parsed.AssetURL,
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    providerErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func providerErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

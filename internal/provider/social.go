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

const defaultPublishTimeout = 30 * time.Second

type publishRequestBody struct {
	AssetURL string `json:"assetUrl"`
	Caption  string `json:"caption,omitempty"`
}

type publishResponseBody struct {
	PostID string `json:"postId"`
}

// HTTPSocialPublisher pushes finished assets to a Late.dev-style
// social-publishing endpoint.
type HTTPSocialPublisher struct {
	client   *resty.Client
	endpoint string
	apiKey   string
}

func NewHTTPSocialPublisher(endpoint, apiKey string) (*HTTPSocialPublisher, error) {
	client := resty.New()
	client.SetTimeout(defaultPublishTimeout)
	client.SetRetryCount(0)

	return NewHTTPSocialPublisherWithClient(endpoint, apiKey, client)
}

func NewHTTPSocialPublisherWithClient(endpoint, apiKey string, client *resty.Client) (*HTTPSocialPublisher, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("publisher endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid publisher endpoint: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultPublishTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPSocialPublisher{
		client:   client,
		endpoint: trimmedEndpoint,
		apiKey:   strings.TrimSpace(apiKey),
	}, nil
}

func (p *HTTPSocialPublisher) Publish(ctx context.Context, req PublishRequest) (*PublishResult, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("publisher is not initialized")
	}
	if strings.TrimSpace(req.AssetURL) == "" {
		return nil, fmt.Errorf("asset url is required")
	}

	request := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(publishRequestBody{
			AssetURL: req.AssetURL,
			Caption:  req.Caption,
		})
	if p.apiKey != "" {
		request.SetHeader("Authorization", "Bearer "+p.apiKey)
	}

	response, err := request.Post(p.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message:   "publish request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message:   "publisher returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		var parsed publishResponseBody
		// A missing post id is tolerated; some platforms return it later
		// via webhook.
		_ = json.Unmarshal(response.Body(), &parsed)

		return &PublishResult{
			StatusCode: statusCode,
			Body:       responseBody,
			PostID:     parsed.PostID,
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    providerErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

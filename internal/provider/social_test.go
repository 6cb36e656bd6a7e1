package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPSocialPublisherPublishSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer test-key")
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"postId":"post-42"}`))
	}))
	defer server.Close()

	p, err := NewHTTPSocialPublisher(server.URL, "test-key")
	if err != nil {
		t.Fatalf("NewHTTPSocialPublisher() error = %v", err)
	}

	result, err := p.Publish(context.Background(), PublishRequest{
		ItemID:   "i-1",
		AssetURL: "https://cdn.example.com/v/1.mp4",
		Caption:  "day 1",
	})
	if err != nil {
		t.Fatalf("Publish() unexpected error: %v", err)
	}

	if result.PostID != "post-42" {
		t.Fatalf("PostID = %q, want %q", result.PostID, "post-42")
	}
}

func TestHTTPSocialPublisherPublishRateLimited(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer server.Close()

	p, err := NewHTTPSocialPublisher(server.URL, "test-key")
	if err != nil {
		t.Fatalf("NewHTTPSocialPublisher() error = %v", err)
	}

	_, err = p.Publish(context.Background(), PublishRequest{
		ItemID:   "i-1",
		AssetURL: "https://cdn.example.com/v/1.mp4",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransient(err) {
		t.Fatal("rate limited publish should be transient")
	}
}

func TestHTTPSocialPublisherRejectsEmptyAssetURL(t *testing.T) {
	t.Parallel()

	p, err := NewHTTPSocialPublisher("https://publish.example.com", "test-key")
	if err != nil {
		t.Fatalf("NewHTTPSocialPublisher() error = %v", err)
	}

	_, err = p.Publish(context.Background(), PublishRequest{ItemID: "i-1"})
	if err == nil {
		t.Fatal("expected validation error")
	}
}

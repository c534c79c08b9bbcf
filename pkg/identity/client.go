package identity

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/eduflow-app/eduflow-api/pkg/config"
)

// Metadata mirrors the public metadata we maintain on the provider side.
type Metadata struct {
	Role      string `json:"role"`
	Expertise string `json:"expertise,omitempty"`
	Onboarded bool   `json:"onboarded"`
}

// MetadataUpdater pushes metadata changes back to the identity provider.
type MetadataUpdater interface {
	UpdateMetadata(ctx context.Context, externalID string, meta Metadata) error
}

// Client talks to the identity provider's management API.
type Client struct {
	http *resty.Client
}

// NewClient constructs a Client from configuration. Returns nil when no
// base URL is configured; callers treat a nil client as "provider sync
// disabled" and keep only the local record.
func NewClient(cfg config.IdentityConfig) *Client {
	if cfg.BaseURL == "" {
		return nil
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")

	return &Client{http: http}
}

// UpdateMetadata replaces the user's public metadata on the provider.
func (c *Client) UpdateMetadata(ctx context.Context, externalID string, meta Metadata) error {
	if c == nil {
		return nil
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", uuid.NewString()).
		SetBody(map[string]interface{}{"public_metadata": meta}).
		Patch(fmt.Sprintf("/users/%s", externalID))
	if err != nil {
		return fmt.Errorf("update identity metadata: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("update identity metadata: provider returned %d", resp.StatusCode())
	}

	return nil
}

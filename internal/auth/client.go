package auth

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const requestTimeout = 10 * time.Second

// Client talks to the identity provider's admin API. The store keeps the
// profile rows; the provider keeps the login itself, which has to be removed
// through this API when a user is deleted.
type Client struct {
	logger    *slog.Logger
	apiURL    string
	apiKey    string
	client    *http.Client
	isEnabled bool
}

// NewClient creates the identity admin client. Missing credentials disable
// it: identity deletion becomes a logged no-op, which keeps local
// development working without provider access.
func NewClient(logger *slog.Logger, apiURL, apiKey string) *Client {
	isEnabled := apiURL != "" && apiKey != ""

	if !isEnabled {
		logger.Warn("Identity admin API is disabled due to missing credentials")
	} else {
		logger.Info("Identity admin client initialized", "api_url", apiURL)
	}

	return &Client{
		logger:    logger,
		apiURL:    strings.TrimRight(apiURL, "/"),
		apiKey:    apiKey,
		client:    &http.Client{Timeout: requestTimeout},
		isEnabled: isEnabled,
	}
}

func (c *Client) IsEnabled() bool {
	return c.isEnabled
}

// DeleteIdentity removes the user's login at the provider. An identity that
// is already gone counts as success, so retries after a partial failure are
// safe.
func (c *Client) DeleteIdentity(ctx context.Context, userID string) error {
	if !c.isEnabled {
		c.logger.Warn("Identity admin API disabled, skipping identity deletion", "user_id", userID)
		return nil
	}

	endpoint := fmt.Sprintf("%s/admin/users/%s", c.apiURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create identity deletion request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call identity admin API: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		c.logger.InfoContext(ctx, "Identity deleted", "user_id", userID)
		return nil
	case http.StatusNotFound:
		c.logger.InfoContext(ctx, "Identity already absent", "user_id", userID)
		return nil
	default:
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("identity admin API returned status %d: %s", resp.StatusCode, string(body))
	}
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexuslabs/nexus-gateway/internal/httpclient"
)

// liveStatuses are the subscription states that count as live. past_due is
// the grace period: billing retries are still running.
var liveStatuses = map[string]bool{
	"active":   true,
	"trialing": true,
	"past_due": true,
}

// BillingConfig holds billing API client configuration.
type BillingConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	ProxyURL string
}

// BillingClient checks subscription liveness against the payment provider.
type BillingClient struct {
	cfg        BillingConfig
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewBillingClient creates a billing API client.
func NewBillingClient(cfg BillingConfig, logger zerolog.Logger) (*BillingClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("billing API base URL is required")
	}

	httpClient, err := httpclient.New(httpclient.Options{
		Timeout:         cfg.Timeout,
		ProxyURL:        cfg.ProxyURL,
		FollowRedirects: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create billing http client: %w", err)
	}

	return &BillingClient{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "billing").Logger(),
	}, nil
}

type subscriptionList struct {
	Data []struct {
		Status string `json:"status"`
	} `json:"data"`
}

// HasLiveSubscription reports whether the customer has at least one
// subscription in an active or grace-period state.
func (c *BillingClient) HasLiveSubscription(ctx context.Context, customerID string) (bool, error) {
	if customerID == "" {
		return false, nil
	}

	endpoint := fmt.Sprintf("%s/v1/subscriptions?customer=%s&limit=10", c.cfg.BaseURL, url.QueryEscape(customerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("create subscription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("list subscriptions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("billing API: HTTP %d", resp.StatusCode)
	}

	var list subscriptionList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return false, fmt.Errorf("decode subscription list: %w", err)
	}

	for _, sub := range list.Data {
		if liveStatuses[sub.Status] {
			return true, nil
		}
	}
	return false, nil
}

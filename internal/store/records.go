// Package store adapts the external customer-record system to typed license
// records. The upstream API exposes untyped field bags behind a paginated
// listing endpoint; all stringly-typed decoding happens here and nowhere
// else.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/nexuslabs/nexus-gateway/internal/httpclient"
	"github.com/nexuslabs/nexus-gateway/internal/models"
)

// ErrNotFound is returned when no record matches a license key.
var ErrNotFound = errors.New("license record not found")

// pageSize is the listing page size requested from the record store.
const pageSize = 100

// Field names as they appear in the external record store.
const (
	fieldKey              = "Key"
	fieldEmail            = "Email"
	fieldPlan             = "Plan"
	fieldRevoked          = "Revoked"
	fieldCustomerID       = "Customer ID"
	fieldHardwareID       = "Hardware ID"
	fieldHardwareBoundAt  = "Hardware Bound At"
	fieldLastValidationAt = "Last Validation At"
	fieldLastAppVersion   = "Last App Version"
	fieldResetCount       = "Reset Count"
	fieldLastResetAt      = "Last Reset At"
)

// Config holds record store client configuration.
type Config struct {
	// BaseURL is the record store API root, e.g.
	// https://records.example.com/v0/appXXXX
	BaseURL string
	// APIKey is sent as a bearer token.
	APIKey string
	// Table is the license table name.
	Table string
	// Timeout bounds each upstream call.
	Timeout time.Duration
	// ProxyURL optionally routes calls through an egress proxy.
	ProxyURL string
}

// Client talks to the external record store.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a record store client.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("record store base URL is required")
	}
	if cfg.Table == "" {
		cfg.Table = "Licenses"
	}

	httpClient, err := httpclient.New(httpclient.Options{
		Timeout:         cfg.Timeout,
		ProxyURL:        cfg.ProxyURL,
		FollowRedirects: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create record store http client: %w", err)
	}

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger.With().Str("component", "record_store").Logger(),
	}, nil
}

// listResponse is one page of the record store listing API.
type listResponse struct {
	Records []rawRecord `json:"records"`
	Offset  string      `json:"offset,omitempty"`
}

// rawRecord is the untyped record shape returned by the store.
type rawRecord struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// FindByKey scans listing pages until the record with the given normalized
// key is found or pages are exhausted. The store offers no key index, so a
// scan is the only lookup available.
func (c *Client) FindByKey(ctx context.Context, key string) (*models.LicenseRecord, error) {
	offset := ""
	for {
		page, err := c.listPage(ctx, offset)
		if err != nil {
			return nil, err
		}

		for _, raw := range page.Records {
			rec := decodeRecord(raw)
			if rec.Key == key {
				return rec, nil
			}
		}

		if page.Offset == "" {
			return nil, ErrNotFound
		}
		offset = page.Offset
	}
}

// Ping verifies the record store is reachable and the API key is accepted.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.listPage(ctx, "")
	return err
}

func (c *Client) listPage(ctx context.Context, offset string) (*listResponse, error) {
	q := url.Values{}
	q.Set("pageSize", strconv.Itoa(pageSize))
	if offset != "" {
		q.Set("offset", offset)
	}

	endpoint := fmt.Sprintf("%s/%s?%s", c.cfg.BaseURL, url.PathEscape(c.cfg.Table), q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create list request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("record store list: HTTP %d", resp.StatusCode)
	}

	var page listResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decode record page: %w", err)
	}
	return &page, nil
}

// Update writes the mutable validation fields back to the store. Identity
// fields (key, plan, email) are owned by the purchase flow and never written
// from here.
func (c *Client) Update(ctx context.Context, rec *models.LicenseRecord) error {
	if rec.ID == "" {
		return errors.New("record id is required for update")
	}

	body, err := json.Marshal(map[string]any{
		"fields": encodeMutableFields(rec),
	})
	if err != nil {
		return fmt.Errorf("marshal record update: %w", err)
	}

	endpoint := fmt.Sprintf("%s/%s/%s", c.cfg.BaseURL, url.PathEscape(c.cfg.Table), url.PathEscape(rec.ID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create update request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("record store update: HTTP %d", resp.StatusCode)
	}

	c.logger.Debug().Str("record_id", rec.ID).Msg("license record updated")
	return nil
}

// decodeRecord converts the store's untyped field bag into a typed record.
func decodeRecord(raw rawRecord) *models.LicenseRecord {
	f := raw.Fields
	return &models.LicenseRecord{
		ID:               raw.ID,
		Key:              models.NormalizeKey(stringField(f, fieldKey)),
		Email:            stringField(f, fieldEmail),
		Plan:             models.ParsePlan(stringField(f, fieldPlan)),
		Revoked:          boolField(f, fieldRevoked),
		CustomerID:       stringField(f, fieldCustomerID),
		HardwareID:       models.NormalizeHardwareID(stringField(f, fieldHardwareID)),
		HardwareBoundAt:  timeField(f, fieldHardwareBoundAt),
		LastValidationAt: timeField(f, fieldLastValidationAt),
		LastAppVersion:   stringField(f, fieldLastAppVersion),
		ResetCount:       intField(f, fieldResetCount),
		LastResetAt:      timeField(f, fieldLastResetAt),
	}
}

// encodeMutableFields produces the field bag for a validation-side update.
func encodeMutableFields(rec *models.LicenseRecord) map[string]any {
	fields := map[string]any{
		fieldHardwareID:     rec.HardwareID,
		fieldLastAppVersion: rec.LastAppVersion,
	}
	if !rec.HardwareBoundAt.IsZero() {
		fields[fieldHardwareBoundAt] = rec.HardwareBoundAt.UTC().Format(time.RFC3339)
	}
	if !rec.LastValidationAt.IsZero() {
		fields[fieldLastValidationAt] = rec.LastValidationAt.UTC().Format(time.RFC3339)
	}
	return fields
}

func stringField(f map[string]any, name string) string {
	if v, ok := f[name].(string); ok {
		return v
	}
	return ""
}

func boolField(f map[string]any, name string) bool {
	switch v := f[name].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "checked" || v == "1"
	default:
		return false
	}
}

func intField(f map[string]any, name string) int {
	switch v := f[name].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

func timeField(f map[string]any, name string) time.Time {
	s := stringField(f, name)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

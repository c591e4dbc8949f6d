// Package registry provides a client for the external company registry,
// which resolves a supplier's tax identifier (CNPJ) to descriptive
// metadata: corporate name, trade name, sector codes and the headquarters
// municipality. The registry is a public service with aggressive rate
// limits, so the client throttles and retries on its own.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"golang.org/x/time/rate"

	"github.com/licitaware/procura/pkg/match"
	"github.com/licitaware/procura/pkg/retry"
)

// ErrNotFound is returned when the registry has no record for the CNPJ.
var ErrNotFound = errors.New("supplier not found in registry")

// Config holds configuration for the registry client
type Config struct {
	BaseURL   string        `json:"base_url" yaml:"base_url"`
	APIKey    string        `json:"api_key,omitempty" yaml:"api_key"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
	UserAgent string        `json:"user_agent,omitempty" yaml:"user_agent"`

	// RatePerMinute throttles outgoing lookups; the public registry
	// tolerates very few requests per minute per client.
	RatePerMinute int `json:"rate_per_minute" yaml:"rate_per_minute"`
}

// Client is an HTTP client for the company registry. It implements the
// supplier registry interface consumed by the search engine.
type Client struct {
	config     *Config
	httpClient *http.Client
	limiter    *rate.Limiter
	policy     retry.Policy
}

// NewClient creates a new registry client
func NewClient(config *Config) (*Client, error) {
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(float64(config.RatePerMinute)/60.0), 1),
		policy:  retry.DefaultPolicy(),
	}, nil
}

// validateConfig validates the client configuration
func validateConfig(config *Config) error {
	if config.BaseURL == "" {
		return fmt.Errorf("registry base URL is required")
	}
	if _, err := url.Parse(config.BaseURL); err != nil {
		return fmt.Errorf("invalid registry base URL: %w", err)
	}

	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RatePerMinute <= 0 {
		config.RatePerMinute = 3
	}
	if config.UserAgent == "" {
		config.UserAgent = "procura/1.0"
	}

	return nil
}

// lookupResponse mirrors the registry's JSON payload.
type lookupResponse struct {
	CNPJ         string `json:"cnpj"`
	Name         string `json:"razao_social"`
	TradeName    string `json:"nome_fantasia"`
	Municipality struct {
		IBGECode string `json:"codigo_ibge"`
	} `json:"municipio"`
	MainActivity struct {
		Code string `json:"codigo"`
	} `json:"atividade_principal"`
	SecondaryActivities []struct {
		Code string `json:"codigo"`
	} `json:"atividades_secundarias"`
}

// Lookup fetches supplier metadata by normalized CNPJ. A missing record is
// reported as ErrNotFound without retrying; transport and server errors are
// retried with backoff.
func (c *Client) Lookup(ctx context.Context, supplierID string) (*match.SupplierInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	var payload lookupResponse
	err := retry.Do(ctx, c.policy, func(ctx context.Context) error {
		return c.fetch(ctx, supplierID, &payload)
	})
	if err != nil {
		return nil, err
	}

	info := &match.SupplierInfo{
		SupplierID:       supplierID,
		Name:             payload.Name,
		TradeName:        payload.TradeName,
		HeadquartersCode: payload.Municipality.IBGECode,
	}
	if payload.MainActivity.Code != "" {
		info.SectorCodes = append(info.SectorCodes, payload.MainActivity.Code)
	}
	for _, a := range payload.SecondaryActivities {
		if a.Code != "" {
			info.SectorCodes = append(info.SectorCodes, a.Code)
		}
	}
	return info, nil
}

// fetch performs one lookup attempt.
func (c *Client) fetch(ctx context.Context, supplierID string, result *lookupResponse) error {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return retry.Permanent(err)
	}
	u.Path = path.Join(u.Path, "cnpj", supplierID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return retry.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.config.APIKey))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return retry.Permanent(ErrNotFound)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("registry rate limit exceeded")
	case resp.StatusCode >= 500:
		return fmt.Errorf("registry returned HTTP %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return retry.Permanent(fmt.Errorf("registry rejected request: HTTP %d: %s", resp.StatusCode, string(body)))
	}

	if err := json.Unmarshal(body, result); err != nil {
		return retry.Permanent(fmt.Errorf("failed to decode registry response: %w", err))
	}
	return nil
}

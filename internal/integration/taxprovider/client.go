// Package taxprovider is the client for the external tax calculation
// service used for US merchants with extended tax support enabled.
package taxprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/shopspring/decimal"

	"github.com/streamforge/billing/internal/config"
	ierr "github.com/streamforge/billing/internal/errors"
	"github.com/streamforge/billing/internal/logger"
	"github.com/streamforge/billing/internal/types"
)

// TaxLine is one line of a tax calculation request.
type TaxLine struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// CalculationRequest asks the provider to price tax for a set of lines at
// an address. Lines are matched to response lines by position.
type CalculationRequest struct {
	Currency string        `json:"currency"`
	Address  types.Address `json:"address"`
	Lines    []TaxLine     `json:"lines"`
}

// TaxLineResult is the provider's answer for one request line.
type TaxLineResult struct {
	TaxAmount    decimal.Decimal `json:"tax_amount"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	Jurisdiction string          `json:"jurisdiction"`
}

// CalculationResponse carries per-line results in request order.
type CalculationResponse struct {
	Lines []TaxLineResult `json:"lines"`
}

// Client is the external tax provider contract. Implementations may fail;
// the tax engine falls back to the standard strategy on any error.
type Client interface {
	CalculateTax(ctx context.Context, req CalculationRequest) (*CalculationResponse, error)
}

type httpClient struct {
	baseURL string
	apiKey  string
	client  *retryablehttp.Client
	logger  *logger.Logger
}

// NewHTTPClient builds the provider client from configuration.
func NewHTTPClient(cfg *config.Configuration, log *logger.Logger) Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.TaxService.MaxRetries
	rc.HTTPClient.Timeout = time.Duration(cfg.TaxService.TimeoutSeconds) * time.Second
	rc.Logger = nil

	return &httpClient{
		baseURL: cfg.TaxService.BaseURL,
		apiKey:  cfg.TaxService.APIKey,
		client:  rc,
		logger:  log,
	}
}

func (c *httpClient) CalculateTax(ctx context.Context, req CalculationRequest) (*CalculationResponse, error) {
	if c.baseURL == "" {
		return nil, ierr.NewError("tax service base url is not configured").
			WithHint("Configure tax_service.base_url to enable the external provider").
			Mark(ierr.ErrHTTPClient)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to marshal tax calculation request").
			Mark(ierr.ErrSystem)
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/v1/tax/calculate", c.baseURL), bytes.NewReader(body))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to build tax calculation request").
			Mark(ierr.ErrSystem)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Tax provider request failed").
			Mark(ierr.ErrHTTPClient)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		c.logger.Warnw("tax provider returned non-200 response",
			"status_code", resp.StatusCode,
			"body", string(payload))
		return nil, ierr.NewErrorf("tax provider returned status %d", resp.StatusCode).
			WithHint("Tax provider request failed").
			Mark(ierr.ErrHTTPClient)
	}

	var out CalculationResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to decode tax provider response").
			Mark(ierr.ErrHTTPClient)
	}
	return &out, nil
}

// Package ebay provides an eBay Browse API client abstracted behind interfaces
// for testability, plus the pagination and listing filters that turn search
// results into price samples.
package ebay

import (
	"context"
	"errors"
	"fmt"
	"time"

	domain "github.com/donaldgifford/game-price-tracker/pkg/types"
)

const (
	defaultAPIBase        = "https://api.ebay.com"
	sandboxAPIBase        = "https://api.sandbox.ebay.com"
	defaultRequestTimeout = 10 * time.Second
)

// ErrTimeout is returned when a marketplace call exceeds its deadline.
var ErrTimeout = errors.New("eBay request timed out")

// APIError is a fatal, non-retryable HTTP status from the marketplace.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("eBay API error (status %d): %s", e.StatusCode, e.Body)
}

// SearchRequest defines the parameters for an eBay item search.
type SearchRequest struct {
	Query            string
	Currency         domain.Currency
	Condition        domain.ConditionClass
	RequireCondition bool
	Limit            int
	Offset           int
}

// SearchResponse holds the results of an eBay search.
type SearchResponse struct {
	Items   []ItemSummary
	Total   int
	Offset  int
	Limit   int
	HasMore bool
}

// EbayClient defines the interface for interacting with the eBay API.
type EbayClient interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

// TokenProvider defines the interface for obtaining OAuth2 tokens.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	// Invalidate discards stale if it is still the cached token.
	Invalidate(stale string)
}

// APIBase returns the API host for an EBAY_ENV value.
func APIBase(env string) string {
	if env == "sandbox" {
		return sandboxAPIBase
	}
	return defaultAPIBase
}

// DefaultMarketplace returns the marketplace id for an EBAY_ENV value.
func DefaultMarketplace(env string) string {
	if env == "sandbox" {
		return "EBAY_US"
	}
	return MarketplaceFR
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// classifyTransportErr maps a per-call deadline expiry onto ErrTimeout while
// keeping caller cancellation distinct.
func classifyTransportErr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return err
}

package ebay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/donaldgifford/game-price-tracker/internal/metrics"
	domain "github.com/donaldgifford/game-price-tracker/pkg/types"
)

const (
	browsePath = "/buy/browse/v1/item_summary/search"

	// MarketplaceFR is the marketplace served by the simplified search strategy.
	MarketplaceFR = "EBAY_FR"
	// MarketplaceUS prices in USD; every other marketplace prices in EUR.
	MarketplaceUS = "EBAY_US"

	defaultLimit = 50
	// MaxPageSize is the Browse API page-size ceiling.
	MaxPageSize = 200
)

// BrowseClient implements EbayClient using the eBay Browse API.
type BrowseClient struct {
	tokens      TokenProvider
	browseURL   string
	marketplace string
	client      *http.Client
	timeout     time.Duration
	rateLimiter *RateLimiter
	log         *slog.Logger
}

// BrowseOption configures the BrowseClient.
type BrowseOption func(*BrowseClient)

// WithBrowseURL overrides the full search endpoint URL.
func WithBrowseURL(u string) BrowseOption {
	return func(c *BrowseClient) {
		c.browseURL = u
	}
}

// WithBrowseAPIBase points the search endpoint at {base}/buy/browse/v1/item_summary/search.
func WithBrowseAPIBase(base string) BrowseOption {
	return func(c *BrowseClient) {
		c.browseURL = strings.TrimRight(base, "/") + browsePath
	}
}

// WithMarketplace overrides the default marketplace.
func WithMarketplace(m string) BrowseOption {
	return func(c *BrowseClient) {
		c.marketplace = m
	}
}

// WithBrowseHTTPClient overrides the default HTTP client.
func WithBrowseHTTPClient(hc *http.Client) BrowseOption {
	return func(c *BrowseClient) {
		c.client = hc
	}
}

// WithRequestTimeout sets the deadline applied to each search call.
func WithRequestTimeout(d time.Duration) BrowseOption {
	return func(c *BrowseClient) {
		c.timeout = d
	}
}

// WithRateLimiter injects a rate limiter that controls per-second and daily
// API call limits. When set, every HTTP call goes through Wait() first.
func WithRateLimiter(r *RateLimiter) BrowseOption {
	return func(c *BrowseClient) {
		c.rateLimiter = r
	}
}

// WithBrowseLogger sets the logger.
func WithBrowseLogger(l *slog.Logger) BrowseOption {
	return func(c *BrowseClient) {
		c.log = l
	}
}

// NewBrowseClient creates a new eBay Browse API client.
func NewBrowseClient(tokens TokenProvider, opts ...BrowseOption) *BrowseClient {
	c := &BrowseClient{
		tokens:      tokens,
		browseURL:   defaultAPIBase + browsePath,
		marketplace: MarketplaceFR,
		client:      &http.Client{},
		timeout:     defaultRequestTimeout,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Marketplace returns the marketplace id sent with every search.
func (c *BrowseClient) Marketplace() string {
	return c.marketplace
}

type browseAPIResponse struct {
	ItemSummaries []ItemSummary `json:"itemSummaries"`
	Total         int           `json:"total"`
	Offset        int           `json:"offset"`
	Limit         int           `json:"limit"`
	Next          string        `json:"next"`
}

// Search implements EbayClient.Search by querying the Browse API.
//
// 400 and 404 mean "no usable results" and yield an empty response. A 401
// invalidates the token and retries exactly once; a second 401 also yields
// an empty response. Any other non-2xx status is an *APIError.
func (c *BrowseClient) Search(
	ctx context.Context,
	req SearchRequest,
) (*SearchResponse, error) {
	u := c.buildSearchURL(req)

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting auth token: %w", err)
	}

	status, body, err := c.do(ctx, u, token)
	if err != nil {
		return nil, err
	}

	if status == http.StatusUnauthorized {
		c.log.Debug("eBay token rejected, refreshing", "query", req.Query)
		c.tokens.Invalidate(token)

		token, err = c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("refreshing auth token: %w", err)
		}

		status, body, err = c.do(ctx, u, token)
		if err != nil {
			return nil, err
		}
	}

	metrics.EbaySearchResponsesTotal.WithLabelValues(statusClass(status)).Inc()

	switch {
	case status == http.StatusOK:
	case status == http.StatusBadRequest,
		status == http.StatusNotFound,
		status == http.StatusUnauthorized:
		c.log.Debug("eBay search returned no usable results",
			"query", req.Query,
			"status", status,
		)
		return &SearchResponse{Offset: req.Offset, Limit: req.Limit}, nil
	default:
		return nil, &APIError{StatusCode: status, Body: string(body)}
	}

	var apiResp browseAPIResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	return &SearchResponse{
		Items:   apiResp.ItemSummaries,
		Total:   apiResp.Total,
		Offset:  apiResp.Offset,
		Limit:   apiResp.Limit,
		HasMore: apiResp.Next != "",
	}, nil
}

// do performs one GET under the per-call deadline.
func (c *BrowseClient) do(
	ctx context.Context,
	u, token string,
) (int, []byte, error) {
	if c.rateLimiter != nil {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			if errors.Is(err, ErrDailyLimitReached) {
				metrics.EbayDailyLimitHits.Inc()
			}
			return 0, nil, fmt.Errorf("rate limit: %w", err)
		}
		metrics.EbayDailyUsage.Set(float64(c.rateLimiter.DailyCount()))
	}
	metrics.EbayAPICallsTotal.Inc()

	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return 0, nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("X-EBAY-C-MARKETPLACE-ID", c.marketplace)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return 0, nil, fmt.Errorf("executing search request: %w", classifyTransportErr(ctx, err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading response body: %w", classifyTransportErr(ctx, err))
	}

	return resp.StatusCode, body, nil
}

func (c *BrowseClient) buildSearchURL(req SearchRequest) string {
	params := url.Values{}
	params.Set("q", req.Query)

	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(max(req.Offset, 0)))

	if f := buildFilter(req); f != "" {
		params.Set("filter", f)
	}

	return c.browseURL + "?" + params.Encode()
}

func buildFilter(req SearchRequest) string {
	var parts []string
	if req.Currency != "" {
		parts = append(parts, "priceCurrency:"+string(req.Currency))
	}
	if req.RequireCondition && req.Condition != "" && req.Condition != domain.ClassAny {
		parts = append(parts, "conditions:{"+string(req.Condition)+"}")
	}
	return strings.Join(parts, ",")
}

func statusClass(status int) string {
	switch status {
	case http.StatusOK:
		return "ok"
	case http.StatusBadRequest, http.StatusNotFound:
		return "empty"
	case http.StatusUnauthorized:
		return "unauthorized"
	default:
		return "error"
	}
}

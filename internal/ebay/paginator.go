package ebay

import (
	"context"
	"fmt"
	"log/slog"

	domain "github.com/donaldgifford/game-price-tracker/pkg/types"
)

const (
	defaultPageSize = MaxPageSize
	defaultMaxPages = 5
)

// Stop reasons reported by Paginate.
const (
	StoppedNoMoreResults = "no_more_results"
	StoppedTargetReached = "target_reached"
	StoppedMaxPages      = "max_pages"
)

// Paginator walks eBay search result pages and collects price samples.
type Paginator struct {
	client   EbayClient
	log      *slog.Logger
	pageSize int
	maxPages int
}

// PaginatorOption configures the Paginator.
type PaginatorOption func(*Paginator)

// WithPageSize overrides the default page size. Values above the API
// ceiling are capped.
func WithPageSize(size int) PaginatorOption {
	return func(p *Paginator) {
		p.pageSize = min(size, MaxPageSize)
	}
}

// WithMaxPages overrides the default max pages.
func WithMaxPages(n int) PaginatorOption {
	return func(p *Paginator) {
		p.maxPages = n
	}
}

// WithPaginatorLogger sets the logger.
func WithPaginatorLogger(l *slog.Logger) PaginatorOption {
	return func(p *Paginator) {
		p.log = l
	}
}

// NewPaginator creates a new Paginator.
func NewPaginator(client EbayClient, opts ...PaginatorOption) *Paginator {
	p := &Paginator{
		client:   client,
		log:      slog.Default(),
		pageSize: defaultPageSize,
		maxPages: defaultMaxPages,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.pageSize <= 0 {
		p.pageSize = defaultPageSize
	}
	return p
}

// SampleSearch is one query shape: the raw query text and the filter that
// turns its results into samples.
type SampleSearch struct {
	Query  string
	Filter SampleFilter
}

// PaginateResult holds the result of a paginated search.
type PaginateResult struct {
	Samples   []domain.PriceSample
	TotalSeen int
	PagesUsed int
	StoppedAt string
}

// Paginate fetches pages for a search, stopping when:
// - a page returns fewer items than the page size
// - target > 0 samples have been collected
// - max pages reached
// Samples are deduplicated by value-currency key. Errors from any page abort
// the whole search.
func (p *Paginator) Paginate(
	ctx context.Context,
	search SampleSearch,
	target int,
) (*PaginateResult, error) {
	req := SearchRequest{
		Query:            search.Query,
		Currency:         search.Filter.Currency,
		Condition:        search.Filter.Condition,
		RequireCondition: search.Filter.RequireCondition,
		Limit:            p.pageSize,
	}

	result := &PaginateResult{StoppedAt: StoppedMaxPages}
	var collected []domain.PriceSample

	for page := range p.maxPages {
		resp, err := p.client.Search(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("searching page %d: %w", page, err)
		}

		result.PagesUsed++
		result.TotalSeen += len(resp.Items)

		collected = DedupeByKey(append(collected, ToSamples(resp.Items, search.Filter)...))

		if len(resp.Items) < p.pageSize {
			result.StoppedAt = StoppedNoMoreResults
			break
		}
		if target > 0 && len(collected) >= target {
			result.StoppedAt = StoppedTargetReached
			break
		}

		req.Offset += len(resp.Items)
	}

	result.Samples = collected

	p.log.Debug("paginated search complete",
		"query", search.Query,
		"pages_used", result.PagesUsed,
		"total_seen", result.TotalSeen,
		"samples", len(result.Samples),
		"stopped_at", result.StoppedAt,
	)

	return result, nil
}

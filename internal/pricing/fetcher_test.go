package pricing_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/donaldgifford/game-price-tracker/internal/ebay"
	"github.com/donaldgifford/game-price-tracker/internal/pricing"
	domain "github.com/donaldgifford/game-price-tracker/pkg/types"
)

type mockEbayClient struct {
	mock.Mock
}

func (m *mockEbayClient) Search(
	ctx context.Context,
	req ebay.SearchRequest,
) (*ebay.SearchResponse, error) {
	args := m.Called(ctx, req)
	if fn, ok := args.Get(0).(func(context.Context, ebay.SearchRequest) *ebay.SearchResponse); ok {
		return fn(ctx, req), args.Error(1)
	}
	resp, _ := args.Get(0).(*ebay.SearchResponse)
	return resp, args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// listings builds one page of items with the given condition text, priced
// in currency at the given values.
func listings(condition string, currency domain.Currency, values ...float64) *ebay.SearchResponse {
	items := make([]ebay.ItemSummary, len(values))
	for i, v := range values {
		items[i] = ebay.ItemSummary{
			ItemID:    fmt.Sprintf("v1|%d|0", i),
			Title:     "Zelda complet",
			Condition: condition,
			Price:     ebay.ItemPrice{Value: fmt.Sprintf("%.2f", v), Currency: string(currency)},
		}
	}
	return &ebay.SearchResponse{Items: items}
}

func series(start float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)
	}
	return out
}

func conditionIs(class domain.ConditionClass) any {
	return mock.MatchedBy(func(req ebay.SearchRequest) bool {
		return req.Condition == class
	})
}

func newFetcher(client ebay.EbayClient, marketplace string, opts ...pricing.FetcherOption) *pricing.Fetcher {
	p := ebay.NewPaginator(client, ebay.WithPaginatorLogger(discardLogger()))
	opts = append([]pricing.FetcherOption{pricing.WithLogger(discardLogger())}, opts...)
	return pricing.NewFetcher(p, marketplace, opts...)
}

func TestFetcher_FetchSamples_ShortCircuit(t *testing.T) {
	t.Parallel()

	client := &mockEbayClient{}
	client.On("Search", mock.Anything, conditionIs(domain.ClassUsed)).
		Return(listings("Occasion", domain.CurrencyEUR, series(10, 25)...), nil).Once()
	client.On("Search", mock.Anything, conditionIs(domain.ClassNew)).
		Return(listings("Neuf", domain.CurrencyEUR, series(40, 25)...), nil).Once()

	f := newFetcher(client, ebay.MarketplaceFR)

	got, err := f.FetchSamples(context.Background(), domain.SearchParams{
		Title:        "Zelda Ocarina of Time",
		PlatformName: "Nintendo 64",
	})
	require.NoError(t, err)

	assert.Len(t, got.Used, 25)
	assert.Len(t, got.New, 25)
	// One used step and one new step; no laxer step ran.
	client.AssertNumberOfCalls(t, "Search", 2)
	client.AssertExpectations(t)
}

func TestFetcher_FetchSamples_SimplifiedQueries(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		requests []string
	)
	client := &mockEbayClient{}
	client.On("Search", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			req := args.Get(1).(ebay.SearchRequest)
			mu.Lock()
			defer mu.Unlock()
			requests = append(requests, fmt.Sprintf("%s|%s|%t", req.Query, req.Condition, req.RequireCondition))
		}).
		Return(&ebay.SearchResponse{}, nil)

	f := newFetcher(client, ebay.MarketplaceFR)
	_, err := f.FetchSamples(context.Background(), domain.SearchParams{
		Title:        "Zelda",
		PlatformName: "Nintendo 64",
	})
	require.NoError(t, err)

	// Four used steps and two new steps.
	client.AssertNumberOfCalls(t, "Search", 6)
	assert.ElementsMatch(t, []string{
		"Zelda N64|USED|true",
		"Zelda N64|ANY|false",
		"Zelda Nintendo 64|ANY|false",
		"Zelda|ANY|false",
		"Zelda N64|NEW|true",
		"Zelda N64|ANY|false",
	}, requests)
}

// cascadeStep reads the strategy and step name from the span runStep starts
// around each paginated search.
func cascadeStep(ctx context.Context) (strategy, step string) {
	span, ok := trace.SpanFromContext(ctx).(sdktrace.ReadOnlySpan)
	if !ok {
		return "", ""
	}
	for _, kv := range span.Attributes() {
		switch kv.Key {
		case "cascade.strategy":
			strategy = kv.Value.AsString()
		case "cascade.step":
			step = kv.Value.AsString()
		}
	}
	return strategy, step
}

func TestFetcher_FetchSamples_FullCascade(t *testing.T) {
	t.Parallel()

	const (
		expandedCIB = `(complet,cib,"boite notice")`
		console     = "Nintendo 64"
	)

	// Every used step answers with one loose (not complete) listing priced
	// by step, so only steps without RequireComplete contribute samples.
	stepPrice := map[string]float64{
		"region_cib_used":       10,
		"cib_used":              20,
		"console_any":           30,
		"cib_word_any":          40,
		"short_console_any":     50,
		"short_console_any_eur": 60,
	}

	tests := []struct {
		name        string
		marketplace string
		wantUsed    []string
		wantNew     []string
		wantSamples []domain.PriceSample
	}{
		{
			name:        "USD target runs all six steps",
			marketplace: ebay.MarketplaceUS,
			wantUsed: []string{
				"region_cib_used|Zelda " + console + " PAL " + expandedCIB + "|USD|USED|true",
				"cib_used|Zelda " + console + " " + expandedCIB + "|USD|USED|true",
				"console_any|Zelda " + console + "|USD|ANY|false",
				"cib_word_any|Zelda complet|USD|ANY|false",
				"short_console_any|Zelda N64|USD|ANY|false",
				"short_console_any_eur|Zelda N64|EUR|ANY|false",
			},
			wantNew: []string{
				"console_new|Zelda " + console + "|USD|NEW|true",
				"console_any_ambiguous|Zelda " + console + "|USD|ANY|false",
			},
			wantSamples: []domain.PriceSample{
				{Value: 30, Currency: domain.CurrencyUSD},
				{Value: 50, Currency: domain.CurrencyUSD},
				{Value: 60, Currency: domain.CurrencyEUR},
			},
		},
		{
			name:        "EUR target skips the fallback step",
			marketplace: "EBAY_DE",
			wantUsed: []string{
				"region_cib_used|Zelda " + console + " PAL " + expandedCIB + "|EUR|USED|true",
				"cib_used|Zelda " + console + " " + expandedCIB + "|EUR|USED|true",
				"console_any|Zelda " + console + "|EUR|ANY|false",
				"cib_word_any|Zelda complet|EUR|ANY|false",
				"short_console_any|Zelda N64|EUR|ANY|false",
			},
			wantNew: []string{
				"console_new|Zelda " + console + "|EUR|NEW|true",
				"console_any_ambiguous|Zelda " + console + "|EUR|ANY|false",
			},
			wantSamples: eur(30, 50),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var (
				mu       sync.Mutex
				requests = map[string][]string{}
			)

			client := &mockEbayClient{}
			client.On("Search", mock.Anything, mock.Anything).
				Return(func(ctx context.Context, req ebay.SearchRequest) *ebay.SearchResponse {
					strategy, step := cascadeStep(ctx)

					mu.Lock()
					requests[strategy] = append(requests[strategy], fmt.Sprintf("%s|%s|%s|%s|%t",
						step, req.Query, req.Currency, req.Condition, req.RequireCondition))
					mu.Unlock()

					price, ok := stepPrice[step]
					if strategy != pricing.StrategyFull || !ok {
						return &ebay.SearchResponse{}
					}
					return &ebay.SearchResponse{Items: []ebay.ItemSummary{{
						ItemID: "v1|" + step + "|0",
						Title:  "Zelda Nintendo 64 loose cartridge",
						Price:  ebay.ItemPrice{Value: fmt.Sprintf("%.2f", price), Currency: string(req.Currency)},
					}}}
				}, nil)

			provider := sdktrace.NewTracerProvider()
			f := newFetcher(client, tt.marketplace, pricing.WithTracer(provider.Tracer("test")))

			got, err := f.FetchSamples(context.Background(), domain.SearchParams{
				Title:        "Zelda",
				PlatformName: console,
				RegionHint:   domain.RegionPAL,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantUsed, requests[pricing.StrategyFull])
			assert.Equal(t, tt.wantNew, requests[pricing.StrategyNew])
			assert.Equal(t, tt.wantSamples, got.Used)
			assert.Empty(t, got.New)
		})
	}
}

func TestFetcher_FetchSamples_SkipsRepeatedSteps(t *testing.T) {
	t.Parallel()

	client := &mockEbayClient{}
	client.On("Search", mock.Anything, mock.Anything).Return(&ebay.SearchResponse{}, nil)

	f := newFetcher(client, ebay.MarketplaceFR)
	got, err := f.FetchSamples(context.Background(), domain.SearchParams{Title: "Zelda"})
	require.NoError(t, err)

	// Without a platform every simplified query is "Zelda": USED then ANY
	// run, the full-console and title-only steps repeat step 2. The new
	// cascade adds NEW and ANY.
	client.AssertNumberOfCalls(t, "Search", 4)
	assert.Empty(t, got.Used)
	assert.Empty(t, got.New)
	assert.NotNil(t, got.Used)
	assert.NotNil(t, got.New)
}

func TestFetcher_FetchSamples_PromotesAmbiguous(t *testing.T) {
	t.Parallel()

	client := &mockEbayClient{}
	client.On("Search", mock.Anything, conditionIs(domain.ClassUsed)).
		Return(listings("Occasion", domain.CurrencyEUR, 18, 19, 20, 21, 22), nil).Once()
	client.On("Search", mock.Anything, conditionIs(domain.ClassNew)).
		Return(&ebay.SearchResponse{}, nil).Once()
	client.On("Search", mock.Anything, conditionIs(domain.ClassAny)).
		Return(listings("", domain.CurrencyEUR, 35, 25, 50), nil).Once()

	f := newFetcher(client, ebay.MarketplaceFR, pricing.WithSampleTarget(5))

	got, err := f.FetchSamples(context.Background(), domain.SearchParams{
		Title:        "Zelda",
		PlatformName: "Nintendo 64",
	})
	require.NoError(t, err)

	assert.Equal(t, eur(18, 19, 20, 21, 22), got.Used)
	assert.Equal(t, eur(35, 50), got.New)
	client.AssertExpectations(t)
}

func TestFetcher_FetchSamples_CurrencyFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		marketplace string
		wantCalls   int
		wantUsed    []domain.PriceSample
	}{
		{
			name:        "USD target falls back to EUR listings",
			marketplace: ebay.MarketplaceUS,
			wantCalls:   8,
			wantUsed:    eur(30, 31, 32),
		},
		{
			name:        "EUR target has no fallback step",
			marketplace: "EBAY_DE",
			wantCalls:   7,
			wantUsed:    eur(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			eurFallback := mock.MatchedBy(func(req ebay.SearchRequest) bool {
				return req.Currency == domain.CurrencyEUR && req.Query == "Zelda N64"
			})

			client := &mockEbayClient{}
			if tt.marketplace == ebay.MarketplaceUS {
				client.On("Search", mock.Anything, eurFallback).
					Return(listings("", domain.CurrencyEUR, 30, 31, 32), nil).Once()
			}
			client.On("Search", mock.Anything, mock.Anything).Return(&ebay.SearchResponse{}, nil)

			f := newFetcher(client, tt.marketplace)
			got, err := f.FetchSamples(context.Background(), domain.SearchParams{
				Title:        "Zelda",
				PlatformName: "Nintendo 64",
				RegionHint:   domain.RegionPAL,
			})
			require.NoError(t, err)

			assert.Equal(t, tt.wantUsed, got.Used)
			client.AssertNumberOfCalls(t, "Search", tt.wantCalls)
		})
	}
}

func TestFetcher_FetchSamples_Errors(t *testing.T) {
	t.Parallel()

	t.Run("invalid params make no calls", func(t *testing.T) {
		t.Parallel()

		client := &mockEbayClient{}
		f := newFetcher(client, ebay.MarketplaceFR)

		_, err := f.FetchSamples(context.Background(), domain.SearchParams{Title: "  "})
		require.ErrorIs(t, err, domain.ErrEmptyTitle)
		client.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	})

	t.Run("fatal marketplace error propagates", func(t *testing.T) {
		t.Parallel()

		client := &mockEbayClient{}
		client.On("Search", mock.Anything, conditionIs(domain.ClassUsed)).
			Return(nil, &ebay.APIError{StatusCode: http.StatusTooManyRequests}).Once()
		client.On("Search", mock.Anything, mock.Anything).
			Return(&ebay.SearchResponse{}, nil).Maybe()

		f := newFetcher(client, ebay.MarketplaceFR)

		got, err := f.FetchSamples(context.Background(), domain.SearchParams{Title: "Zelda"})
		require.Error(t, err)
		assert.Nil(t, got)

		var apiErr *ebay.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
		assert.Contains(t, err.Error(), "simplified cascade step short_console_used")
	})

	t.Run("timeout propagates", func(t *testing.T) {
		t.Parallel()

		client := &mockEbayClient{}
		client.On("Search", mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("executing search request: %w", ebay.ErrTimeout))

		f := newFetcher(client, "EBAY_DE")

		_, err := f.FetchSamples(context.Background(), domain.SearchParams{Title: "Zelda"})
		require.ErrorIs(t, err, ebay.ErrTimeout)
	})
}

func TestFetcher_FetchSamples_Spans(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	client := &mockEbayClient{}
	client.On("Search", mock.Anything, mock.Anything).Return(&ebay.SearchResponse{}, nil)

	f := newFetcher(client, ebay.MarketplaceFR, pricing.WithTracer(provider.Tracer("test")))
	_, err := f.FetchSamples(context.Background(), domain.SearchParams{Title: "Zelda"})
	require.NoError(t, err)

	names := make(map[string]int)
	for _, s := range recorder.Ended() {
		names[s.Name()]++
	}
	assert.Equal(t, 1, names["pricing.FetchSamples"])
	assert.Equal(t, 4, names["pricing.cascade_step"])
}

func TestStrategy(t *testing.T) {
	t.Parallel()

	name, steps, console := pricing.Strategy(ebay.MarketplaceFR)
	assert.Equal(t, pricing.StrategySimplified, name)
	assert.Len(t, steps, 4)
	assert.Equal(t, pricing.ConsoleShort, console)

	name, steps, console = pricing.Strategy("EBAY_GB")
	assert.Equal(t, pricing.StrategyFull, name)
	assert.Len(t, steps, 6)
	assert.Equal(t, pricing.ConsoleFull, console)

	assert.Equal(t, domain.CurrencyUSD, pricing.TargetCurrency(ebay.MarketplaceUS))
	assert.Equal(t, domain.CurrencyEUR, pricing.TargetCurrency(ebay.MarketplaceFR))
	assert.Equal(t, domain.CurrencyEUR, pricing.TargetCurrency("EBAY_DE"))
}

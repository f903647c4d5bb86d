package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/game-price-tracker/internal/metrics"
	"github.com/donaldgifford/game-price-tracker/pkg/pricestats"
	domain "github.com/donaldgifford/game-price-tracker/pkg/types"
)

// Price lookup outcomes, used as the PriceSummariesTotal label.
const (
	resultSummary     = "summary"
	resultNoSummary   = "no_summary"
	resultUnavailable = "unavailable"
)

// SampleFetcher collects the used and new price samples for a game.
type SampleFetcher interface {
	FetchSamples(ctx context.Context, params domain.SearchParams) (*domain.Samples, error)
}

// PriceHandler serves resale price summaries.
type PriceHandler struct {
	fetcher     SampleFetcher
	marketplace string
	log         *slog.Logger
}

// NewPriceHandler creates a new PriceHandler.
func NewPriceHandler(f SampleFetcher, marketplace string, log *slog.Logger) *PriceHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PriceHandler{fetcher: f, marketplace: marketplace, log: log}
}

// GetPriceInput holds the query parameters of the price endpoint.
type GetPriceInput struct {
	Title          string `query:"title"           required:"true" minLength:"1" doc:"Game title" example:"Zelda Ocarina of Time"`
	Platform       string `query:"platform"        doc:"Platform name, abbreviated automatically" example:"Nintendo 64"`
	Region         string `query:"region"          enum:"EUR,PAL" doc:"Release region hint"`
	IncludeSamples bool   `query:"include_samples" doc:"Include the cleaned samples in the response"`
}

// GetPriceOutput is the response body of the price endpoint.
type GetPriceOutput struct {
	Body struct {
		Summary     *domain.PriceSummary `json:"summary"          doc:"EUR-normalized summary; null when no used sample survived cleaning"`
		Marketplace string               `json:"marketplace"      example:"EBAY_FR"`
		UsedCount   int                  `json:"used_samples"     example:"20"`
		NewCount    int                  `json:"new_samples"      example:"4"`
		Samples     *domain.Samples      `json:"samples,omitempty" doc:"Cleaned samples, when requested"`
	}
}

// GetPrice fetches samples for a game and summarizes them. Marketplace
// failures surface as 502 "price unavailable".
func (h *PriceHandler) GetPrice(ctx context.Context, input *GetPriceInput) (*GetPriceOutput, error) {
	params := domain.SearchParams{
		Title:        input.Title,
		PlatformName: input.Platform,
		RegionHint:   domain.RegionHint(input.Region),
	}

	samples, err := h.fetcher.FetchSamples(ctx, params)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyTitle) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		metrics.PriceSummariesTotal.WithLabelValues(resultUnavailable).Inc()
		h.log.Error("price lookup failed", "title", params.Title, "error", err)
		return nil, huma.Error502BadGateway("price unavailable")
	}

	summary := pricestats.Summarize(samples.Used, samples.New)
	if summary != nil {
		metrics.PriceSummariesTotal.WithLabelValues(resultSummary).Inc()
	} else {
		metrics.PriceSummariesTotal.WithLabelValues(resultNoSummary).Inc()
	}

	out := &GetPriceOutput{}
	out.Body.Summary = summary
	out.Body.Marketplace = h.marketplace
	out.Body.UsedCount = len(samples.Used)
	out.Body.NewCount = len(samples.New)
	if input.IncludeSamples {
		out.Body.Samples = samples
	}
	return out, nil
}

// RegisterPriceRoutes registers the price endpoint with the Huma API.
func RegisterPriceRoutes(api huma.API, h *PriceHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-price",
		Method:      http.MethodGet,
		Path:        "/api/v1/prices",
		Summary:     "Get the resale price of a game",
		Description: "Searches eBay listings for the game and returns an EUR-normalized used price summary plus the average new price.",
		Tags:        []string{"prices"},
		Errors:      []int{http.StatusUnprocessableEntity, http.StatusBadGateway},
	}, h.GetPrice)
}

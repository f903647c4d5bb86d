// Package main implements a mock eBay API server for local development.
// It generates a deterministic catalog per search query so the price
// cascades can run end to end without real eBay credentials.
package main

import (
	"flag"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/donaldgifford/game-price-tracker/internal/ebay"
	domain "github.com/donaldgifford/game-price-tracker/pkg/types"
)

const (
	defaultLimit = 50
	searchPath   = "/buy/browse/v1/item_summary/search"
)

type browseAPIResponse struct {
	ItemSummaries []ebay.ItemSummary `json:"itemSummaries"`
	Total         int                `json:"total"`
	Offset        int                `json:"offset"`
	Limit         int                `json:"limit"`
	Next          string             `json:"next"`
}

type tokenError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// searchFilter is the subset of the Browse filter grammar the price
// cascades send.
type searchFilter struct {
	currency  string
	condition domain.ConditionClass
}

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	items := flag.Int("items", 60, "maximum catalog size per query")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	e := newServer(logger, *items)
	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock eBay server", "addr", addr, "items", *items)

	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 10 * time.Second
	if err := e.Start(addr); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func newServer(logger *slog.Logger, catalogSize int) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			r := c.Request()
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "query", r.URL.RawQuery)
			return next(c)
		}
	})

	e.POST("/identity/v1/oauth2/token", tokenHandler(logger))
	e.GET(searchPath, searchHandler(logger, catalogSize))
	return e
}

func tokenHandler(logger *slog.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, _, ok := c.Request().BasicAuth(); !ok {
			logger.Warn("token request missing Basic Auth header")
			return c.JSON(http.StatusUnauthorized, tokenError{
				Error:            "invalid_client",
				ErrorDescription: "client authentication failed",
			})
		}

		logger.Info("issued mock token")
		return c.JSON(http.StatusOK, map[string]any{
			"access_token": "mock-token-v1-" + strconv.FormatInt(int64(os.Getpid()), 16),
			"expires_in":   7200,
			"token_type":   "Application Access Token",
		})
	}
}

func searchHandler(logger *slog.Logger, catalogSize int) echo.HandlerFunc {
	return func(c echo.Context) error {
		q := c.QueryParam("q")
		if strings.TrimSpace(q) == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "q is required"})
		}

		limit := queryInt(c, "limit", defaultLimit)
		if limit <= 0 || limit > ebay.MaxPageSize {
			limit = defaultLimit
		}
		offset := max(queryInt(c, "offset", 0), 0)
		filter := parseFilter(c.QueryParam("filter"))

		matched := make([]ebay.ItemSummary, 0)
		for _, item := range catalog(q, catalogSize, filter.currency) {
			if filter.condition == "" || conditionClass(item.ConditionID) == filter.condition {
				matched = append(matched, item)
			}
		}
		total := len(matched)

		page := []ebay.ItemSummary{}
		if offset < total {
			page = matched[offset:min(offset+limit, total)]
		}

		next := ""
		if offset+limit < total {
			next = fmt.Sprintf("%s?q=%s&offset=%d&limit=%d", searchPath, q, offset+limit, limit)
		}

		logger.Info("search",
			"query", q,
			"filter", c.QueryParam("filter"),
			"matched", total,
			"returned", len(page),
			"offset", offset,
		)
		return c.JSON(http.StatusOK, browseAPIResponse{
			ItemSummaries: page,
			Total:         total,
			Offset:        offset,
			Limit:         limit,
			Next:          next,
		})
	}
}

func queryInt(c echo.Context, name string, def int) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return def
	}
	return v
}

// parseFilter reads priceCurrency:X and conditions:{X} clauses.
func parseFilter(raw string) searchFilter {
	var f searchFilter
	for part := range strings.SplitSeq(raw, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			continue
		}
		switch key {
		case "priceCurrency":
			f.currency = value
		case "conditions":
			f.condition = domain.ConditionClass(strings.Trim(value, "{}"))
		}
	}
	return f
}

var titleSuffixes = []string{"", " complet", " loose", " boite notice", " PAL"}

// catalog returns the listings for a query. The same query always yields
// the same listings: roughly a third new, the rest used, with the odd
// misplaced accessory or sealed collector copy priced far off the rest.
func catalog(query string, maxItems int, currency string) []ebay.ItemSummary {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(query)))
	seed := h.Sum64()
	r := rand.New(rand.NewPCG(seed, seed>>1)) //nolint:gosec // deterministic fixture data

	if currency == "" {
		currency = string(domain.CurrencyEUR)
	}

	size := 0
	if maxItems > 0 {
		size = maxItems/2 + int(seed%uint64(maxItems/2+1))
	}
	base := 15 + r.Float64()*60

	out := make([]ebay.ItemSummary, 0, size)
	for i := range size {
		condition, conditionID, factor := "Used", "3000", 0.7+r.Float64()*0.6
		switch {
		case i%3 == 0:
			condition, conditionID, factor = "New", "1000", 1.8+r.Float64()*0.5
		case i%4 == 1:
			condition, conditionID = "Very Good", "4000"
		}
		switch i % 17 {
		case 5:
			factor *= 6
		case 11:
			factor = 0.1
		}

		out = append(out, ebay.ItemSummary{
			ItemID: fmt.Sprintf("v1|%016x|%d", seed, i),
			Title:  query + titleSuffixes[i%len(titleSuffixes)],
			Price: ebay.ItemPrice{
				Value:    strconv.FormatFloat(float64(int(base*factor*100))/100, 'f', 2, 64),
				Currency: currency,
			},
			ItemWebURL:    fmt.Sprintf("https://www.ebay.fr/itm/%d", seed%1_000_000_000+uint64(i)),
			Condition:     condition,
			ConditionID:   conditionID,
			BuyingOptions: []string{"FIXED_PRICE"},
		})
	}
	return out
}

func conditionClass(conditionID string) domain.ConditionClass {
	if conditionID == "1000" {
		return domain.ClassNew
	}
	return domain.ClassUsed
}

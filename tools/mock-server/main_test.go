package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/donaldgifford/game-price-tracker/pkg/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func search(t *testing.T, target string) (int, browseAPIResponse) {
	t.Helper()

	e := newServer(testLogger(), 40)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, http.NoBody))

	var resp browseAPIResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	}
	return rec.Code, resp
}

func TestTokenHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		basicAuth  bool
		wantStatus int
		wantKey    string
	}{
		{name: "issues token", basicAuth: true, wantStatus: http.StatusOK, wantKey: "access_token"},
		{name: "missing basic auth", wantStatus: http.StatusUnauthorized, wantKey: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := newServer(testLogger(), 10)
			req := httptest.NewRequest(http.MethodPost, "/identity/v1/oauth2/token", http.NoBody)
			if tt.basicAuth {
				req.SetBasicAuth("app-id", "cert-id")
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			require.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body[tt.wantKey])
		})
	}
}

func TestSearchHandler_Deterministic(t *testing.T) {
	t.Parallel()

	_, first := search(t, searchPath+"?q=zelda+N64&limit=200")
	_, second := search(t, searchPath+"?q=zelda+N64&limit=200")

	require.NotEmpty(t, first.ItemSummaries)
	assert.Equal(t, first, second)
	assert.Equal(t, first.Total, len(first.ItemSummaries))
}

func TestSearchHandler_Filters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		filter        string
		wantCurrency  string
		wantCondition domain.ConditionClass
	}{
		{name: "no filter defaults to EUR", wantCurrency: "EUR"},
		{name: "currency", filter: "priceCurrency:USD", wantCurrency: "USD"},
		{name: "used only", filter: "priceCurrency:EUR,conditions:{USED}", wantCurrency: "EUR", wantCondition: domain.ClassUsed},
		{name: "new only", filter: "priceCurrency:EUR,conditions:{NEW}", wantCurrency: "EUR", wantCondition: domain.ClassNew},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			target := searchPath + "?q=mario&limit=200"
			if tt.filter != "" {
				target += "&filter=" + tt.filter
			}
			status, resp := search(t, target)
			require.Equal(t, http.StatusOK, status)
			require.NotEmpty(t, resp.ItemSummaries)

			for _, item := range resp.ItemSummaries {
				assert.Equal(t, tt.wantCurrency, item.Price.Currency)
				if tt.wantCondition != "" {
					assert.Equal(t, tt.wantCondition, conditionClass(item.ConditionID))
				}
			}
		})
	}
}

func TestSearchHandler_Pagination(t *testing.T) {
	t.Parallel()

	_, all := search(t, searchPath+"?q=sonic&limit=200")
	_, page := search(t, searchPath+"?q=sonic&limit=3&offset=0")
	_, rest := search(t, searchPath+"?q=sonic&limit=200&offset=3")

	require.Len(t, page.ItemSummaries, 3)
	assert.NotEmpty(t, page.Next)
	assert.Equal(t, all.ItemSummaries[:3], page.ItemSummaries)
	assert.Len(t, rest.ItemSummaries, all.Total-3)
	assert.Empty(t, rest.Next)
}

func TestSearchHandler_EmptyQuery(t *testing.T) {
	t.Parallel()

	status, _ := search(t, searchPath+"?q=")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestParseFilter(t *testing.T) {
	t.Parallel()

	f := parseFilter("priceCurrency:USD,conditions:{NEW}")
	assert.Equal(t, "USD", f.currency)
	assert.Equal(t, domain.ClassNew, f.condition)

	assert.Equal(t, searchFilter{}, parseFilter(""))
}

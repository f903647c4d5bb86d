package ebay_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/donaldgifford/game-price-tracker/internal/ebay"
)

type mockTokenProvider struct {
	mock.Mock
}

func (m *mockTokenProvider) Token(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *mockTokenProvider) Invalidate(stale string) {
	m.Called(stale)
}

type mockEbayClient struct {
	mock.Mock
}

func (m *mockEbayClient) Search(
	ctx context.Context,
	req ebay.SearchRequest,
) (*ebay.SearchResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*ebay.SearchResponse)
	return resp, args.Error(1)
}

package handlers_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	domain "github.com/donaldgifford/game-price-tracker/pkg/types"
)

type mockTokenSource struct {
	mock.Mock
}

func (m *mockTokenSource) Token(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type mockSampleFetcher struct {
	mock.Mock
}

func (m *mockSampleFetcher) FetchSamples(
	ctx context.Context,
	params domain.SearchParams,
) (*domain.Samples, error) {
	args := m.Called(ctx, params)
	s, _ := args.Get(0).(*domain.Samples)
	return s, args.Error(1)
}

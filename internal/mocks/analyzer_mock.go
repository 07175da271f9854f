package mocks

import (
	"context"

	"improbable-love/internal/models"

	"github.com/stretchr/testify/mock"
)

// Analyzer mock
type Analyzer struct {
	mock.Mock
}

func (m *Analyzer) Analyze(ctx context.Context, req models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*models.AnalyzeResponse)
	return resp, args.Error(1)
}

func (m *Analyzer) AnalyzeStory(ctx context.Context, input models.StoryInput) (*models.AnalyzeResponse, error) {
	args := m.Called(ctx, input)
	resp, _ := args.Get(0).(*models.AnalyzeResponse)
	return resp, args.Error(1)
}

// CitySearcher mock
type CitySearcher struct {
	mock.Mock
}

func (m *CitySearcher) Search(ctx context.Context, query string) ([]models.City, error) {
	args := m.Called(ctx, query)
	cities, _ := args.Get(0).([]models.City)
	return cities, args.Error(1)
}

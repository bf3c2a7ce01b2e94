package mocks

import (
	"context"

	"answerapi/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockPredictionService struct {
	mock.Mock
}

func (m *MockPredictionService) Predict(ctx context.Context, req *model.PredictionRequest) (*model.PredictionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PredictionResponse), args.Error(1)
}

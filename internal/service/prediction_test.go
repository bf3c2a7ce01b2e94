package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	llmMocks "answerapi/internal/llm/mocks"
	"answerapi/internal/model"
	"answerapi/internal/search"
	searchMocks "answerapi/internal/search/mocks"
)

const testQuery = "В каком году Университет ИТМО был включён в число Национальных исследовательских университетов России?\n1. 2007\n2. 2009\n3. 2011\n4. 2015"

func intPtr(v int) *int { return &v }

func TestPredictionService_Predict(t *testing.T) {
	answerPrompt := fmt.Sprintf(answerPromptFormat, testQuery)

	tests := []struct {
		name       string
		setupMocks func(mSearch *searchMocks.MockSearcher, mGen *llmMocks.MockGenerator)
		want       *model.PredictionResponse
		wantWarn   string
	}{
		{
			name: "happy path",
			setupMocks: func(mSearch *searchMocks.MockSearcher, mGen *llmMocks.MockGenerator) {
				mSearch.On("Search", mock.Anything, testQuery).Return([]search.Result{
					{URL: "https://itmo.ru/ru/"},
					{URL: "https://abit.itmo.ru/"},
				}, nil)
				mGen.On("Generate", mock.Anything, testQuery).Return("ИТМО получил статус НИУ в 2009 году.", nil)
				mGen.On("Generate", mock.Anything, answerPrompt).Return("2", nil)
			},
			want: &model.PredictionResponse{
				ID:        7,
				Answer:    intPtr(2),
				Reasoning: "ИТМО получил статус НИУ в 2009 году.",
				Sources:   []string{"https://itmo.ru/ru/", "https://abit.itmo.ru/"},
			},
		},
		{
			name: "search failure yields empty sources",
			setupMocks: func(mSearch *searchMocks.MockSearcher, mGen *llmMocks.MockGenerator) {
				mSearch.On("Search", mock.Anything, testQuery).Return(nil, errors.New("search down"))
				mGen.On("Generate", mock.Anything, testQuery).Return("reasoning", nil)
				mGen.On("Generate", mock.Anything, answerPrompt).Return("3.", nil)
			},
			want: &model.PredictionResponse{
				ID:        7,
				Answer:    intPtr(3),
				Reasoning: "reasoning",
				Sources:   []string{},
			},
			wantWarn: "search failed",
		},
		{
			name: "no search results",
			setupMocks: func(mSearch *searchMocks.MockSearcher, mGen *llmMocks.MockGenerator) {
				mSearch.On("Search", mock.Anything, testQuery).Return([]search.Result{}, nil)
				mGen.On("Generate", mock.Anything, testQuery).Return("reasoning", nil)
				mGen.On("Generate", mock.Anything, answerPrompt).Return("1", nil)
			},
			want: &model.PredictionResponse{
				ID:        7,
				Answer:    intPtr(1),
				Reasoning: "reasoning",
				Sources:   []string{},
			},
			wantWarn: "no search results found",
		},
		{
			name: "llm failure yields fallback reasoning and nil answer",
			setupMocks: func(mSearch *searchMocks.MockSearcher, mGen *llmMocks.MockGenerator) {
				mSearch.On("Search", mock.Anything, testQuery).Return([]search.Result{{URL: "https://itmo.ru/"}}, nil)
				mGen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("llm down"))
			},
			want: &model.PredictionResponse{
				ID:        7,
				Answer:    nil,
				Reasoning: ReasoningFallback,
				Sources:   []string{"https://itmo.ru/"},
			},
			wantWarn: "reasoning generation failed",
		},
		{
			name: "empty reasoning and unparseable answer",
			setupMocks: func(mSearch *searchMocks.MockSearcher, mGen *llmMocks.MockGenerator) {
				mSearch.On("Search", mock.Anything, testQuery).Return([]search.Result{}, nil)
				mGen.On("Generate", mock.Anything, testQuery).Return("   ", nil)
				mGen.On("Generate", mock.Anything, answerPrompt).Return("Правильный ответ: второй", nil)
			},
			want: &model.PredictionResponse{
				ID:        7,
				Answer:    nil,
				Reasoning: ReasoningFallback,
				Sources:   []string{},
			},
			wantWarn: "answer is not an option number",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mSearch := new(searchMocks.MockSearcher)
			mGen := new(llmMocks.MockGenerator)
			core, logs := observer.New(zapcore.InfoLevel)
			svc := NewPredictionService(mSearch, mGen, zap.New(core))

			tt.setupMocks(mSearch, mGen)

			res, err := svc.Predict(context.Background(), &model.PredictionRequest{ID: intPtr(7), Query: testQuery})

			require.NoError(t, err)
			assert.Equal(t, tt.want, res)
			if tt.wantWarn != "" {
				assert.Equal(t, 1, logs.FilterMessage(tt.wantWarn).FilterLevelExact(zapcore.WarnLevel).Len())
			}

			mSearch.AssertExpectations(t)
			mGen.AssertExpectations(t)
		})
	}
}

func TestPredictionService_PredictValidation(t *testing.T) {
	tests := []struct {
		name string
		req  *model.PredictionRequest
	}{
		{name: "nil request", req: nil},
		{name: "missing id", req: &model.PredictionRequest{Query: "q"}},
		{name: "blank query", req: &model.PredictionRequest{ID: intPtr(1), Query: " \t\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mSearch := new(searchMocks.MockSearcher)
			mGen := new(llmMocks.MockGenerator)
			svc := NewPredictionService(mSearch, mGen, nil)

			res, err := svc.Predict(context.Background(), tt.req)

			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Nil(t, res)
			mSearch.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
			mGen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
		})
	}
}

func TestPredictionService_PredictCancelled(t *testing.T) {
	mSearch := new(searchMocks.MockSearcher)
	mGen := new(llmMocks.MockGenerator)
	svc := NewPredictionService(mSearch, mGen, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mSearch.On("Search", mock.Anything, "q").Return(nil, context.Canceled)
	mGen.On("Generate", mock.Anything, mock.Anything).Return("", context.Canceled)

	res, err := svc.Predict(ctx, &model.PredictionRequest{ID: intPtr(1), Query: "q"})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		wantOK bool
	}{
		{in: "2", want: 2, wantOK: true},
		{in: " 4\n", want: 4, wantOK: true},
		{in: "3.", want: 3, wantOK: true},
		{in: "10", want: 10, wantOK: true},
		{in: "0", wantOK: false},
		{in: "11", wantOK: false},
		{in: "-1", wantOK: false},
		{in: "два", wantOK: false},
		{in: "", wantOK: false},
		{in: "Ответ: 2", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAnswer(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

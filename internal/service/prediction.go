package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"answerapi/internal/llm"
	"answerapi/internal/logger"
	"answerapi/internal/model"
	"answerapi/internal/search"
)

var ErrInvalidRequest = errors.New("invalid prediction request")

// ReasoningFallback replaces the reasoning when the language model produced nothing.
const ReasoningFallback = "Не удалось сгенерировать ответ с использованием языковой модели."

const answerPromptFormat = "Вопрос: %s\n\nВыбери правильный вариант ответа (1, 2, 3 или 4) и верни только номер."

const (
	minAnswer = 1
	maxAnswer = 10
)

// PredictionService composes search results and language model output into an answer.
type PredictionService interface {
	// Predict answers the request. Upstream failures never fail the call: they degrade
	// to empty sources, fallback reasoning or a nil answer. Errors are returned only for
	// invalid input (ErrInvalidRequest) or a cancelled context.
	Predict(ctx context.Context, req *model.PredictionRequest) (*model.PredictionResponse, error)
}

type predictionService struct {
	searcher search.Searcher
	gen      llm.Generator
	log      *zap.Logger
	tracer   trace.Tracer
}

// NewPredictionService constructs a new PredictionService.
func NewPredictionService(searcher search.Searcher, gen llm.Generator, log *zap.Logger) PredictionService {
	if log == nil {
		log = zap.NewNop()
	}
	return &predictionService{
		searcher: searcher,
		gen:      gen,
		log:      log.Named("prediction"),
		tracer:   otel.Tracer("answerapi/internal/service"),
	}
}

func (s *predictionService) Predict(ctx context.Context, req *model.PredictionRequest) (*model.PredictionResponse, error) {
	if req == nil || req.ID == nil {
		return nil, fmt.Errorf("%w: id is required", ErrInvalidRequest)
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidRequest)
	}

	id := *req.ID
	log := logger.FromContext(ctx, s.log).With(zap.Int("id", id))

	ctx, span := s.tracer.Start(ctx, "PredictionService.Predict", trace.WithAttributes(attribute.Int("prediction.id", id)))
	defer span.End()

	log.Info("processing prediction request")

	var (
		sources   []string
		reasoning string
		answer    *int
	)

	// Each step swallows its own failure, so the group never returns an error.
	var g errgroup.Group
	g.Go(func() error {
		sources = s.collectSources(ctx, log, query)
		return nil
	})
	g.Go(func() error {
		reasoning = s.reason(ctx, log, query)
		return nil
	})
	g.Go(func() error {
		answer = s.chooseAnswer(ctx, log, query)
		return nil
	})
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request cancelled")
		log.Error("prediction aborted", zap.Error(err))
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("prediction.sources", len(sources)),
		attribute.Bool("prediction.answered", answer != nil),
	)
	log.Info("prediction completed", zap.Int("sources", len(sources)), zap.Bool("answered", answer != nil))

	return &model.PredictionResponse{
		ID:        id,
		Answer:    answer,
		Reasoning: reasoning,
		Sources:   sources,
	}, nil
}

// collectSources always returns a non-nil slice.
func (s *predictionService) collectSources(ctx context.Context, log *zap.Logger, query string) []string {
	ctx, span := s.tracer.Start(ctx, "search")
	defer span.End()

	results, err := s.searcher.Search(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		log.Warn("search failed", zap.Error(err))
		return []string{}
	}
	if len(results) == 0 {
		log.Warn("no search results found", zap.String("query", query))
		return []string{}
	}

	span.SetAttributes(attribute.Int("search.results", len(results)))
	return search.URLs(results)
}

func (s *predictionService) reason(ctx context.Context, log *zap.Logger, query string) string {
	ctx, span := s.tracer.Start(ctx, "llm.reasoning")
	defer span.End()

	text, err := s.gen.Generate(ctx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		log.Warn("reasoning generation failed", zap.Error(err))
		return ReasoningFallback
	}
	if strings.TrimSpace(text) == "" {
		log.Warn("reasoning generation returned empty text")
		return ReasoningFallback
	}
	return text
}

func (s *predictionService) chooseAnswer(ctx context.Context, log *zap.Logger, query string) *int {
	ctx, span := s.tracer.Start(ctx, "llm.answer")
	defer span.End()

	text, err := s.gen.Generate(ctx, fmt.Sprintf(answerPromptFormat, query))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation failed")
		log.Warn("answer generation failed", zap.Error(err))
		return nil
	}

	answer, ok := ParseAnswer(text)
	if !ok {
		log.Warn("answer is not an option number", zap.String("text", text))
		return nil
	}
	span.SetAttributes(attribute.Int("prediction.answer", answer))
	return &answer
}

// ParseAnswer extracts an option number from a model reply such as "2" or " 3.\n".
func ParseAnswer(text string) (int, bool) {
	text = strings.TrimSuffix(strings.TrimSpace(text), ".")
	n, err := strconv.Atoi(text)
	if err != nil || n < minAnswer || n > maxAnswer {
		return 0, false
	}
	return n, true
}

// Package analyzer runs one assignment through prompt, model, normalizer and cache.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"equity-lens/api/internal/analysis"
	"equity-lens/api/internal/cache"
	"equity-lens/api/internal/llm"
	"equity-lens/api/internal/metrics"
	"equity-lens/api/internal/prompt"
)

var ErrInvalidRequest = errors.New("invalid request")

// StrategyCached marks a result served from the cache.
const StrategyCached analysis.Strategy = "cached"

type Request struct {
	AssignmentText string
	LLMName        string
	GradeLevel     string
	Subject        string
	StudentContext string
	IncludeRewrite bool
}

type Result struct {
	Record   analysis.Record
	Engine   string
	Model    string
	Cached   bool
	Strategy analysis.Strategy
}

// Service is safe for concurrent use.
type Service struct {
	engs     *llm.Engines
	prompts  *prompt.Builder
	norm     *analysis.Normalizer
	cache    cache.AnalysisCache // nil disables caching
	metrics  *metrics.Metrics
	log      *zap.Logger
	maxChars int
}

type Deps struct {
	Engines    *llm.Engines
	Prompts    *prompt.Builder
	Normalizer *analysis.Normalizer
	Cache      cache.AnalysisCache
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	MaxChars   int
}

func New(d Deps) *Service {
	s := &Service{
		engs:     d.Engines,
		prompts:  d.Prompts,
		norm:     d.Normalizer,
		cache:    d.Cache,
		metrics:  d.Metrics,
		log:      d.Logger,
		maxChars: d.MaxChars,
	}
	if s.norm == nil {
		s.norm = analysis.NewNormalizer()
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Analyze resolves the engine from req.LLMName.
func (s *Service) Analyze(ctx context.Context, req Request) (Result, error) {
	if err := s.validate(req); err != nil {
		return Result{}, err
	}
	eng, err := s.engs.GetEngine(req.LLMName)
	if err != nil {
		return Result{}, err
	}
	return s.AnalyzeWith(ctx, eng, req)
}

// AnalyzeWith uses eng regardless of req.LLMName. The bot calls it with the
// per-chat engine.
func (s *Service) AnalyzeWith(ctx context.Context, eng llm.Engine, req Request) (Result, error) {
	if err := s.validate(req); err != nil {
		return Result{}, err
	}
	req.AssignmentText = strings.TrimSpace(req.AssignmentText)
	res := Result{Engine: eng.Name(), Model: eng.GetModel()}
	log := s.log.With(zap.String("engine", res.Engine), zap.String("model", res.Model))

	key := s.cacheKey(res.Engine, res.Model, req)
	if rec := s.lookup(ctx, key, log); rec != nil {
		res.Record = *rec
		res.Cached = true
		res.Strategy = StrategyCached
		return res, nil
	}

	p, err := s.prompts.Build(prompt.Input{
		AssignmentText: req.AssignmentText,
		GradeLevel:     req.GradeLevel,
		Subject:        req.Subject,
		StudentContext: req.StudentContext,
		IncludeRewrite: req.IncludeRewrite,
	})
	if err != nil {
		return Result{}, fmt.Errorf("build prompt: %w", err)
	}

	start := time.Now()
	raw, err := eng.Complete(ctx, p)
	s.metrics.ObserveUpstream(res.Engine, time.Since(start), err)
	if err != nil {
		log.Error("completion failed", zap.Error(err), zap.Duration("took", time.Since(start)))
		return Result{}, err
	}

	rec, out := s.norm.Inspect(raw, req.AssignmentText)
	s.metrics.ObserveNormalization(string(out.Strategy), string(rec.Shape), string(out.Failure))
	res.Record = rec
	res.Strategy = out.Strategy

	if s.cache != nil && !rec.IsFallback() {
		if err := s.cache.Set(ctx, key, rec); err != nil {
			log.Warn("cache store failed", zap.Error(err))
		}
	}
	log.Info("assignment analyzed",
		zap.String("strategy", string(out.Strategy)),
		zap.String("shape", string(rec.Shape)),
		zap.Int("overall_score", rec.OverallScore),
		zap.Duration("took", time.Since(start)))
	return res, nil
}

func (s *Service) validate(req Request) error {
	text := strings.TrimSpace(req.AssignmentText)
	if text == "" {
		return fmt.Errorf("%w: assignmentText is required", ErrInvalidRequest)
	}
	if s.maxChars > 0 && utf8.RuneCountInString(text) > s.maxChars {
		return fmt.Errorf("%w: assignmentText exceeds %d characters", ErrInvalidRequest, s.maxChars)
	}
	return nil
}

func (s *Service) cacheKey(engine, model string, req Request) string {
	return cache.Key(engine, model, s.prompts.Version(),
		req.AssignmentText, req.GradeLevel, req.Subject, req.StudentContext,
		strconv.FormatBool(req.IncludeRewrite))
}

// lookup treats cache failures as misses.
func (s *Service) lookup(ctx context.Context, key string, log *zap.Logger) *analysis.Record {
	if s.cache == nil {
		return nil
	}
	rec, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.metrics.ObserveCache("error")
		log.Warn("cache lookup failed", zap.Error(err))
		return nil
	case rec == nil:
		s.metrics.ObserveCache("miss")
		return nil
	default:
		s.metrics.ObserveCache("hit")
		return rec
	}
}

// Ready pings the cache when one is configured.
func (s *Service) Ready(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Ping(ctx)
}

// Engines exposes the registry for callers that pick an engine themselves.
func (s *Service) Engines() *llm.Engines { return s.engs }

// Package app assembles the services shared by the HTTP API and the bot.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"equity-lens/api/internal/analysis"
	"equity-lens/api/internal/analyzer"
	"equity-lens/api/internal/cache"
	"equity-lens/api/internal/config"
	"equity-lens/api/internal/llm"
	"equity-lens/api/internal/llm/gemini"
	"equity-lens/api/internal/llm/gpt"
	"equity-lens/api/internal/metrics"
	"equity-lens/api/internal/prompt"
)

type App struct {
	Config     *config.Config
	Engines    *llm.Engines
	Normalizer *analysis.Normalizer
	Analyzer   *analyzer.Service
	Metrics    *metrics.Metrics
	Registry   *prometheus.Registry

	redis *redis.Client
}

// New wires engines, prompts, cache and metrics from cfg. When Redis is
// configured it must answer a ping.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	engs := &llm.Engines{Default: cfg.DefaultEngine}
	if cfg.GeminiAPIKey != "" {
		engs.Gemini = gemini.New(cfg.GeminiAPIKey, cfg.GeminiModel, log.Named("gemini"))
	}
	if cfg.OpenAIAPIKey != "" {
		engs.OpenAI = gpt.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, log.Named("gpt"))
	}
	if _, err := engs.GetEngine(""); err != nil {
		return nil, fmt.Errorf("default engine: %w", err)
	}

	prompts, err := prompt.NewBuilder(cfg.PromptDir)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	norm := analysis.NewNormalizer(
		analysis.WithFallbackSource(cfg.FallbackSource()),
		analysis.WithLogger(log.Named("normalizer")),
	)

	a := &App{
		Config:     cfg,
		Engines:    engs,
		Normalizer: norm,
		Metrics:    m,
		Registry:   reg,
	}

	var store cache.AnalysisCache
	if cfg.CacheEnabled() {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store = cache.NewRedis(a.redis, cfg.CacheTTL)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			_ = a.redis.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		log.Info("analysis cache enabled", zap.String("addr", cfg.RedisAddr), zap.Duration("ttl", cfg.CacheTTL))
	}

	a.Analyzer = analyzer.New(analyzer.Deps{
		Engines:    engs,
		Prompts:    prompts,
		Normalizer: norm,
		Cache:      store,
		Metrics:    m,
		Logger:     log.Named("analyzer"),
		MaxChars:   cfg.MaxAssignmentChars,
	})
	log.Info("services ready",
		zap.Strings("engines", engs.Available()),
		zap.String("default_engine", cfg.DefaultEngine),
		zap.String("prompt_version", prompts.Version()))
	return a, nil
}

func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}

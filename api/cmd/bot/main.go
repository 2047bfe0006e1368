package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"equity-lens/api/internal/app"
	"equity-lens/api/internal/config"
	"equity-lens/api/internal/handle"
	"equity-lens/api/internal/httpserver"
	"equity-lens/api/internal/llm"
	"equity-lens/api/internal/logger"
	"equity-lens/api/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.TelegramBotToken) == "" {
		return errors.New("telegram_bot_token is empty: set EQUITY_TELEGRAM_BOT_TOKEN or TELEGRAM_BOT_TOKEN")
	}
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	bot.Debug = false

	def, err := a.Engines.GetEngine("")
	if err != nil {
		return err
	}
	r := &telegram.Router{
		Bot:        bot,
		Analyzer:   a.Analyzer,
		Engines:    a.Engines,
		EngManager: llm.NewManager(def),
		Log:        log.Named("telegram"),
		Timeout:    cfg.RequestTimeout,
	}

	opts := httpserver.Options{
		CORSOrigins: cfg.CORSOrigins,
		Metrics:     a.Metrics,
		Logger:      log.Named("http"),
	}
	addr := "0.0.0.0:" + cfg.Port

	if webhookURL := strings.TrimSpace(cfg.WebhookURL); webhookURL != "" {
		path := telegram.WebhookPath(bot.Token)
		wh, err := tgbotapi.NewWebhook(strings.TrimRight(webhookURL, "/") + path)
		if err != nil {
			return fmt.Errorf("webhook: %w", err)
		}
		wh.DropPendingUpdates = true
		if _, err := bot.Request(wh); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		opts.Webhook = r.WebhookHandler(ctx)
		opts.WebhookPath = path
		log.Info("webhook mode", zap.String("bot", bot.Self.UserName))
	} else {
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			log.Warn("delete webhook failed", zap.Error(err))
		}
		go telegram.RunPolling(ctx, bot, telegram.PollOptions{}, log.Named("polling"), func(upd tgbotapi.Update) {
			r.HandleUpdate(ctx, upd)
		})
		log.Info("polling mode", zap.String("bot", bot.Self.UserName))
	}

	h := handle.New(a.Analyzer, a.Normalizer, cfg.RequestTimeout, log.Named("handle"))
	return httpserver.Serve(ctx, addr, httpserver.NewRouter(h, opts), log)
}

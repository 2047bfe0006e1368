// Package telegram serves the equity analysis over a Telegram bot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"equity-lens/api/internal/analyzer"
	"equity-lens/api/internal/llm"
	"equity-lens/api/internal/report"
)

// Sender is the part of *tgbotapi.BotAPI the router needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Router struct {
	Bot        Sender
	Analyzer   *analyzer.Service
	Engines    *llm.Engines
	EngManager *llm.Manager
	Log        *zap.Logger
	// Timeout bounds one analysis; zero means three minutes.
	Timeout time.Duration
}

func (r *Router) logger() *zap.Logger {
	if r.Log == nil {
		return zap.NewNop()
	}
	return r.Log
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	msg := upd.Message
	if msg.IsCommand() {
		r.HandleCommand(msg)
		return
	}
	if strings.TrimSpace(msg.Text) == "" {
		r.send(msg.Chat.ID, "Send the assignment as a text message.")
		return
	}
	r.analyze(ctx, msg.Chat.ID, msg.Text)
}

func (r *Router) analyze(ctx context.Context, chatID int64, text string) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	eng := r.EngManager.Get(chatID)
	if eng == nil {
		r.send(chatID, "No model engine is configured.")
		return
	}
	r.sendAction(chatID, tgbotapi.ChatTyping)

	res, err := r.Analyzer.AnalyzeWith(ctx, eng, analyzer.Request{AssignmentText: text})
	if err != nil {
		r.logger().Warn("analysis failed", zap.Int64("chat_id", chatID), zap.Error(err))
		r.send(chatID, userError(err))
		return
	}
	for _, part := range report.Split(report.Markdown(res.Record), report.MaxMessageRunes) {
		r.sendMarkdown(chatID, part)
	}
}

func userError(err error) string {
	switch {
	case errors.Is(err, analyzer.ErrInvalidRequest):
		return "Cannot analyze this text: " + strings.TrimPrefix(err.Error(), analyzer.ErrInvalidRequest.Error()+": ")
	case errors.Is(err, context.DeadlineExceeded):
		return "The model took too long to answer. Try again later."
	default:
		return fmt.Sprintf("Analysis failed: %v", err)
	}
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.logger().Warn("send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// sendMarkdown falls back to plain text when Telegram rejects the markup.
func (r *Router) sendMarkdown(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := r.Bot.Send(msg); err != nil {
		r.logger().Debug("markdown rejected, resending as plain text", zap.Error(err))
		r.send(chatID, text)
	}
}

func (r *Router) sendAction(chatID int64, action string) {
	_, _ = r.Bot.Send(tgbotapi.NewChatAction(chatID, action))
}

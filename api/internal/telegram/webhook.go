package telegram

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// WebhookPath derives a stable secret path from the bot token.
func WebhookPath(token string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	return "/webhook/" + strconv.FormatUint(h.Sum64(), 16)
}

// WebhookHandler acknowledges each update immediately and handles it on its
// own goroutine under ctx.
func (r *Router) WebhookHandler(ctx context.Context) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var upd tgbotapi.Update
		if err := json.NewDecoder(req.Body).Decode(&upd); err != nil {
			r.logger().Warn("bad webhook payload", zap.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
		go r.HandleUpdate(ctx, upd)
	})
}

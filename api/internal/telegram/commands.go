package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = "Send an assignment as text and I will check it for equity barriers.\n" +
	"Commands: /health, /engine"

func (r *Router) HandleCommand(msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "health":
		r.send(cid, "✅ OK")
	case "engine":
		r.handleEngineCommand(cid, msg.CommandArguments())
	default:
		r.send(cid, "Unknown command")
	}
}

// handleEngineCommand switches the chat's engine.
//
//	/engine
//	/engine gemini [model]
//	/engine gpt [model]
//	/engine reset
func (r *Router) handleEngineCommand(chatID int64, argLine string) {
	args := strings.Fields(argLine)
	if len(args) == 0 {
		cur := r.EngManager.Get(chatID)
		name := "none"
		if cur != nil {
			name = cur.Name() + " (" + cur.GetModel() + ")"
		}
		r.send(chatID, "Current engine: "+name+
			"\nUsage:\n/engine gemini [model]\n/engine gpt [model]\n/engine reset")
		return
	}
	name := strings.ToLower(args[0])
	if name == "reset" {
		r.EngManager.Reset(chatID)
		r.send(chatID, "✅ Engine reset to default.")
		return
	}

	eng, err := r.Engines.GetEngine(name)
	if err != nil {
		r.send(chatID, "Unknown engine. Available: "+strings.Join(r.Engines.Available(), " | "))
		return
	}
	if len(args) > 1 {
		eng = eng.WithModel(strings.TrimSpace(args[1]))
	}
	r.EngManager.Set(chatID, eng)
	r.send(chatID, "✅ Engine: "+eng.Name()+" ("+eng.GetModel()+").")
}

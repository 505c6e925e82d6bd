package telegram

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/KrishnarajT/remindarr/internal/dialog"
)

// Router wires Telegram updates into the dialog engine and sends replies.
// It is transport only; all conversational logic lives in dialog.Engine.
type Router struct {
	bot    *tgbotapi.BotAPI
	log    *zap.Logger
	engine *dialog.Engine
}

func NewRouter(bot *tgbotapi.BotAPI, log *zap.Logger, engine *dialog.Engine) *Router {
	return &Router{bot: bot, log: log, engine: engine}
}

// HandleUpdate routes a single update. Updates without a text message are
// ignored; everything else goes through the state machine, which always
// produces exactly one reply.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || strings.TrimSpace(msg.Text) == "" {
		return
	}

	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	var firstName, lastName string
	if msg.From != nil {
		firstName = msg.From.FirstName
		lastName = msg.From.LastName
	}

	reply := r.engine.HandleMessage(ctx, chatID, firstName, lastName, msg.Text)
	if err := r.SendMessage(chatID, reply); err != nil {
		r.log.Error("send reply failed", zap.Error(err), zap.String("chatID", chatID))
	}
}

// SendMessage sends a plain text message to the given chat.
// This makes Router satisfy scheduler.Sender.
func (r *Router) SendMessage(chatID string, text string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return err
	}
	_, err = r.bot.Send(tgbotapi.NewMessage(id, text))
	return err
}

package bot

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"notteru/internal/config"
	"notteru/internal/datastore"
	"notteru/internal/models"
)

const usageMessage = `Bad command format. Quote the parameters with double quotes. For example, /register "name" "url" "selector" "filter word".`

var quotedTokenPattern = regexp.MustCompile(`"[^"]*"`)

// Replier answers a chat message in its originating chat.
type Replier interface {
	Reply(ctx context.Context, chatID, messageID int64, text string) error
}

// CommandHandler processes the register/ping chat commands. Only the
// configured admin may use them; anyone else is silently ignored.
type CommandHandler struct {
	store    datastore.WatchStore
	replier  Replier
	adminID  int64
	instance string
	logger   zerolog.Logger
}

// NewCommandHandler creates a CommandHandler.
func NewCommandHandler(cfg *config.TelegramConfig, store datastore.WatchStore, replier Replier, logger zerolog.Logger) *CommandHandler {
	return &CommandHandler{
		store:    store,
		replier:  replier,
		adminID:  cfg.AdminID,
		instance: cfg.Instance,
		logger:   logger.With().Str("component", "CommandHandler").Logger(),
	}
}

// HandleUpdate dispatches an inbound update to the matching command.
// Unknown commands and non-command messages are ignored. The returned error
// covers transport failures only (a reply that could not be sent); user
// errors are answered in-channel and are not errors here.
func (h *CommandHandler) HandleUpdate(ctx context.Context, update Update) error {
	msg := update.Message
	if msg == nil || msg.Text == "" {
		h.logger.Debug().Int64("update_id", update.UpdateID).Msg("Update carries no message text, ignoring")
		return nil
	}

	switch msg.Command() {
	case "/ping":
		return h.handlePing(ctx, msg)
	case "/register":
		return h.handleRegister(ctx, msg)
	default:
		h.logger.Debug().Str("text", msg.Text).Msg("Not a recognized command, ignoring")
		return nil
	}
}

// isAdmin reports whether the message comes from the configured admin.
// Non-admin senders get no reply at all.
func (h *CommandHandler) isAdmin(msg *Message) bool {
	if msg.From == nil || msg.From.ID != h.adminID {
		var senderID int64
		if msg.From != nil {
			senderID = msg.From.ID
		}
		h.logger.Info().Int64("sender_id", senderID).Str("command", msg.Command()).Msg("Command from non-admin sender, ignoring")
		return false
	}
	return true
}

func (h *CommandHandler) handlePing(ctx context.Context, msg *Message) error {
	if !h.isAdmin(msg) {
		return nil
	}

	reply := "pong"
	if h.instance != "" {
		reply = "pong from " + h.instance
	}
	h.logger.Info().Msg("Replying to ping")
	return h.replier.Reply(ctx, msg.Chat.ID, msg.MessageID, reply)
}

func (h *CommandHandler) handleRegister(ctx context.Context, msg *Message) error {
	if !h.isAdmin(msg) {
		return nil
	}

	matches := quotedTokenPattern.FindAllString(strings.TrimSpace(msg.Text), -1)
	if len(matches) != 4 {
		h.logger.Info().Int("tokens", len(matches)).Msg("Register command with wrong token count")
		return h.replier.Reply(ctx, msg.Chat.ID, msg.MessageID, usageMessage)
	}

	unquote := func(s string) string { return strings.Trim(s, `"`) }
	watch := models.NewWatch(unquote(matches[0]), unquote(matches[1]), unquote(matches[2]), unquote(matches[3]))

	h.logger.Info().
		Str("name", watch.Name).
		Str("url", watch.URL).
		Str("selector", watch.Selector).
		Str("filter", watch.FilterString).
		Msg("Registering watch")

	if err := h.store.Put(ctx, watch); err != nil {
		h.logger.Error().Err(err).Str("name", watch.Name).Msg("Failed to store watch")
		return h.replier.Reply(ctx, msg.Chat.ID, msg.MessageID, "Internal error")
	}

	return h.replier.Reply(ctx, msg.Chat.ID, msg.MessageID, "Registered")
}

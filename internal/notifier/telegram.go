package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"notteru/internal/config"
	"notteru/internal/models"
)

const defaultAPIBaseURL = "https://api.telegram.org"

// TelegramNotifier sends messages through the Telegram bot API. Change
// notifications go to the configured channel; Reply is used by the command
// handler to answer the admin in the originating chat.
type TelegramNotifier struct {
	httpClient *http.Client
	logger     zerolog.Logger
	apiBaseURL string
	botToken   string
	channelID  int64
}

// Option configures a TelegramNotifier.
type Option func(*TelegramNotifier)

// WithAPIBaseURL overrides the Telegram API endpoint, mainly for tests.
func WithAPIBaseURL(baseURL string) Option {
	return func(n *TelegramNotifier) { n.apiBaseURL = baseURL }
}

// NewTelegramNotifier creates a TelegramNotifier.
func NewTelegramNotifier(cfg *config.TelegramConfig, logger zerolog.Logger, httpClient *http.Client, opts ...Option) *TelegramNotifier {
	n := &TelegramNotifier{
		httpClient: httpClient,
		logger:     logger.With().Str("component", "TelegramNotifier").Logger(),
		apiBaseURL: defaultAPIBaseURL,
		botToken:   cfg.BotToken,
		channelID:  cfg.ChannelID,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// sendMessageRequest is the subset of the Telegram sendMessage payload the
// bot uses.
type sendMessageRequest struct {
	ChatID                int64  `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview,omitempty"`
	ReplyToMessageID      int64  `json:"reply_to_message_id,omitempty"`
}

// NotifyChange announces an updated watch to the notification channel as an
// HTML-formatted link with the preview disabled.
func (n *TelegramNotifier) NotifyChange(ctx context.Context, watch models.Watch) error {
	n.logger.Info().Str("name", watch.Name).Msg("Sending notify message")
	return n.send(ctx, sendMessageRequest{
		ChatID:                n.channelID,
		Text:                  fmt.Sprintf(`<a href="%s">【喜】%s が載ってる</a>`, watch.URL, watch.Name),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
}

// Reply answers a chat message, quoting the message that triggered it.
func (n *TelegramNotifier) Reply(ctx context.Context, chatID, messageID int64, text string) error {
	return n.send(ctx, sendMessageRequest{
		ChatID:           chatID,
		Text:             text,
		ReplyToMessageID: messageID,
	})
}

func (n *TelegramNotifier) send(ctx context.Context, msg sendMessageRequest) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling sendMessage payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBaseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.logger.Error().Err(err).Int64("chat_id", msg.ChatID).Msg("Failed to call sendMessage")
		return fmt.Errorf("sending message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		n.logger.Error().Int("status_code", resp.StatusCode).Str("response", string(body)).Msg("sendMessage rejected")
		return fmt.Errorf("sendMessage returned status %d: %s", resp.StatusCode, string(body))
	}

	n.logger.Debug().Int64("chat_id", msg.ChatID).Msg("Message sent")
	return nil
}

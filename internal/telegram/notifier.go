package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/kitbuilder587/stock-agent/internal/domain"
	"github.com/kitbuilder587/stock-agent/internal/llm"
)

type Config struct {
	Token  string
	ChatID int64
	// APIEndpoint is a tgbotapi endpoint format, empty means the public API.
	APIEndpoint string
	Timeout     time.Duration
}

// Notifier posts finished analyses to a single chat.
type Notifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

func NewNotifier(cfg Config, logger *zap.Logger) (*Notifier, error) {
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.APIEndpoint, &http.Client{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info("telegram notifier authorized",
		zap.String("username", api.Self.UserName),
		zap.Int64("chat_id", cfg.ChatID),
	)

	return &Notifier{api: api, chatID: cfg.ChatID, logger: logger}, nil
}

// Send posts text as HTML, split into as many messages as needed.
func (n *Notifier) Send(ctx context.Context, text string) error {
	parts := SplitMessage(text, MaxMessageLength)

	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg := tgbotapi.NewMessage(n.chatID, part)
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true

		if _, err := n.api.Send(msg); err != nil {
			return fmt.Errorf("send message part %d/%d: %w", i+1, len(parts), err)
		}
	}

	n.logger.Debug("telegram message sent", zap.Int("parts", len(parts)))
	return nil
}

func (n *Notifier) NotifyRun(ctx context.Context, run domain.Run) error {
	return n.Send(ctx, FormatRunReport(run, llm.Label(run.Provider)))
}

package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Bot sends notifications from the long running scripts.
type Bot struct {
	api      *tgbotapi.BotAPI
	chatID   int64
	dryRun   bool
	disabled bool
	logger   *zap.Logger
}

// NewBot creates a new Telegram bot instance.
// If token is empty, returns a no-op bot that logs messages instead of sending.
func NewBot(token, chatID string, logger *zap.Logger) (*Bot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("telegram")

	if token == "" {
		logger.Info("no token provided, running in disabled mode (logging only)")
		return &Bot{disabled: true, logger: logger}, nil
	}

	parsedChatID, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID %q: %w", chatID, err)
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	logger.Info("authorized", zap.String("user", api.Self.UserName))

	return &Bot{
		api:    api,
		chatID: parsedChatID,
		logger: logger,
	}, nil
}

// SetDryRun sets the dry run mode flag for notifications.
func (b *Bot) SetDryRun(dryRun bool) {
	b.dryRun = dryRun
}

// SendMessage sends a plain text message.
func (b *Bot) SendMessage(text string) error {
	return b.send(text, false)
}

// SendAlert sends a formatted alert with bold title.
func (b *Bot) SendAlert(title, message string) error {
	formatted := fmt.Sprintf("*%s*\n\n%s", escapeMarkdown(title), message)
	return b.send(formatted, true)
}

// NotifyStarted reports that a script has started.
func (b *Bot) NotifyStarted(script string) error {
	mode := "LIVE"
	if b.dryRun {
		mode = "DRY_RUN"
	}
	return b.SendAlert("Started", fmt.Sprintf("`%s` is running in `%s` mode", script, mode))
}

// NotifyStopped reports that a script has stopped.
func (b *Bot) NotifyStopped(script string) error {
	return b.SendAlert("Stopped", fmt.Sprintf("`%s` has been shut down", script))
}

// NotifyIteration summarises one loop iteration of a strategy.
func (b *Bot) NotifyIteration(script string, iteration int, price float64, opened, cancelled, failed int, took time.Duration) error {
	return b.SendAlert(fmt.Sprintf("%s #%d", script, iteration),
		fmt.Sprintf("Price: `%.2f`\nOpened: `%d`\nCancelled: `%d`\nFailed: `%d`\nTook: `%s`",
			price, opened, cancelled, failed, formatDuration(took),
		),
	)
}

// NotifyBatch reports a mined multicall.
func (b *Bot) NotifyBatch(script string, calls int, txHash string) error {
	return b.SendAlert("Batch Mined",
		fmt.Sprintf("Script: `%s`\nCalls: `%d`\nTx: `%s`", script, calls, txHash),
	)
}

// NotifyError sends an error notification.
func (b *Bot) NotifyError(err error) error {
	return b.SendAlert("Error", fmt.Sprintf("`%s`", err.Error()))
}

// send handles the actual message sending with graceful error handling.
func (b *Bot) send(text string, useMarkdown bool) error {
	if b.disabled {
		b.logger.Debug("(disabled)", zap.String("text", text))
		return nil
	}

	msg := tgbotapi.NewMessage(b.chatID, text)
	if useMarkdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}

	_, err := b.api.Send(msg)
	if err != nil {
		b.logger.Warn("failed to send message", zap.Error(err))
		return fmt.Errorf("telegram send failed: %w", err)
	}

	return nil
}

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"]", "\\]",
	"(", "\\(",
	")", "\\)",
	"~", "\\~",
	"`", "\\`",
	">", "\\>",
	"#", "\\#",
	"+", "\\+",
	"-", "\\-",
	"=", "\\=",
	"|", "\\|",
	"{", "\\{",
	"}", "\\}",
	".", "\\.",
	"!", "\\!",
)

// escapeMarkdown escapes special Markdown characters in text.
func escapeMarkdown(text string) string {
	return markdownEscaper.Replace(text)
}

// formatDuration formats a duration in a human-readable format.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0s"
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}

package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/semmidev/archivist/internal/config"
	"github.com/semmidev/archivist/internal/domain"
)

type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func NewTelegram(cfg *config.TelegramConfig) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:    bot,
		chatID: cfg.ChatID,
	}, nil
}

func (t *TelegramNotifier) Notify(_ context.Context, report *domain.Report) error {
	msg := tgbotapi.NewMessage(t.chatID, FormatReport(report))
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram notification: %w", err)
	}
	return nil
}

// FormatReport renders a report as a plain text message.
func FormatReport(report *domain.Report) string {
	var b strings.Builder

	if report.State == domain.StateDone {
		fmt.Fprintf(&b, "✅ Backup of %s completed\n\n", report.DatabaseName)
	} else {
		fmt.Fprintf(&b, "❌ Backup of %s failed\n\n", report.DatabaseName)
	}

	if report.ArchiveFile != "" {
		fmt.Fprintf(&b, "📁 File: %s\n", report.ArchiveFile)
	}
	if report.DumpSize > 0 {
		fmt.Fprintf(&b, "📊 Size: %.2f MB -> %.2f MB (%d%%)\n",
			float64(report.DumpSize)/(1024*1024),
			float64(report.ArchiveSize)/(1024*1024),
			report.Ratio)
	}
	if report.State == domain.StateDone {
		fmt.Fprintf(&b, "🧹 Pruned: %d\n", report.Pruned.Deleted)
	}
	fmt.Fprintf(&b, "🕐 Duration: %s", report.Duration.Round(time.Second))
	if report.Err != nil {
		fmt.Fprintf(&b, "\n\n⚠️ %v", report.Err)
	}

	return b.String()
}

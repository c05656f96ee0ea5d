// Command validate-telegram checks the forecast notification settings and,
// with -send, posts a test message to the configured chat.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/irfndi/forecast-ai-go/internal/config"
)

type telegramClient interface {
	GetMe(ctx context.Context) (*models.User, error)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

func main() {
	send := flag.Bool("send", false, "send a test message to the configured chat")
	flag.Parse()

	fmt.Println("🔧 Validating Telegram notification configuration...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := checkConfig(cfg.Telegram, os.Stdout); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	b, err := bot.New(cfg.Telegram.BotToken, bot.WithSkipGetMe())
	if err != nil {
		fmt.Printf("❌ Failed to create Telegram bot: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := validate(ctx, b, cfg.Telegram.ChatID, *send, os.Stdout); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\n🎉 All Telegram notification checks passed!")
}

// checkConfig verifies the settings without calling the API.
func checkConfig(cfg config.TelegramConfig, out io.Writer) error {
	if cfg.BotToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is not configured")
	}
	fmt.Fprintf(out, "✅ TELEGRAM_BOT_TOKEN is configured (length: %d)\n", len(cfg.BotToken))

	if cfg.ChatID == 0 {
		return errors.New("TELEGRAM_CHAT_ID is not configured, forecast notifications stay disabled")
	}
	fmt.Fprintf(out, "✅ TELEGRAM_CHAT_ID is configured: %d\n", cfg.ChatID)
	return nil
}

func validate(ctx context.Context, client telegramClient, chatID int64, send bool, out io.Writer) error {
	fmt.Fprintln(out, "🔍 Testing bot API connection...")
	me, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bot info: %w", err)
	}
	fmt.Fprintf(out, "✅ Bot API connection successful!\n")
	fmt.Fprintf(out, "   Bot Name: %s\n", me.FirstName)
	fmt.Fprintf(out, "   Bot Username: @%s\n", me.Username)
	fmt.Fprintf(out, "   Bot ID: %d\n", me.ID)

	if !send {
		return nil
	}

	if _, err := client.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "📈 Forecast notifications are configured correctly.",
	}); err != nil {
		return fmt.Errorf("failed to send test message: %w", err)
	}
	fmt.Fprintf(out, "✅ Test message sent to chat %d\n", chatID)
	return nil
}

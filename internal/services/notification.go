package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/forecast-ai-go/internal/config"
	"github.com/irfndi/forecast-ai-go/internal/insights"
	"github.com/irfndi/forecast-ai-go/internal/models"
)

const notificationTimeout = 10 * time.Second

// MessageSender is the part of *bot.Bot used for notifications.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*tgmodels.Message, error)
}

// NotificationService posts forecast summaries to a Telegram chat.
type NotificationService struct {
	sender  MessageSender
	chatID  int64
	breaker *CircuitBreaker
	logger  *logrus.Logger
}

// NewNotificationService builds a Telegram-backed notifier. Without a bot
// token or chat id every call is a no-op.
func NewNotificationService(cfg config.TelegramConfig, logger *logrus.Logger) *NotificationService {
	if cfg.BotToken == "" || cfg.ChatID == 0 {
		logger.Info("Telegram notifications disabled")
		return NewNotificationServiceWithSender(nil, 0, logger)
	}

	b, err := bot.New(cfg.BotToken, bot.WithSkipGetMe())
	if err != nil {
		logger.WithError(err).Warn("Failed to create Telegram bot, notifications disabled")
		return NewNotificationServiceWithSender(nil, 0, logger)
	}
	return NewNotificationServiceWithSender(b, cfg.ChatID, logger)
}

// NewNotificationServiceWithSender wires an existing sender.
func NewNotificationServiceWithSender(sender MessageSender, chatID int64, logger *logrus.Logger) *NotificationService {
	return &NotificationService{
		sender: sender,
		chatID: chatID,
		breaker: NewCircuitBreaker("telegram", CircuitBreakerConfig{
			FailureThreshold: 3,
			Timeout:          5 * time.Minute,
		}, logger),
		logger: logger,
	}
}

// Enabled reports whether messages are actually sent.
func (ns *NotificationService) Enabled() bool {
	return ns != nil && ns.sender != nil && ns.chatID != 0
}

// NotifyForecastCompleted sends the run summary. Errors are logged only.
func (ns *NotificationService) NotifyForecastCompleted(ctx context.Context, job *models.Job, rec *models.ForecastRecord) {
	if !ns.Enabled() || rec == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, notificationTimeout)
	defer cancel()

	err := ns.breaker.Execute(ctx, func(ctx context.Context) error {
		_, err := ns.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    ns.chatID,
			Text:      formatForecastMessage(job, rec),
			ParseMode: tgmodels.ParseModeMarkdown,
		})
		return err
	})
	if err != nil {
		ns.logger.WithFields(logrus.Fields{
			"job_id": rec.JobID,
			"error":  err,
		}).Warn("Failed to send forecast notification")
		return
	}
	ns.logger.WithField("job_id", rec.JobID).Debug("Sent forecast notification")
}

// formatForecastMessage renders a legacy-Markdown summary. Free text is kept
// inside code spans so underscores in names do not break parsing.
func formatForecastMessage(job *models.Job, rec *models.ForecastRecord) string {
	var b strings.Builder

	b.WriteString("📈 *Forecast ready*\n\n")
	if job != nil && job.OriginalFilename != "" {
		fmt.Fprintf(&b, "Dataset: `%s`\n", codeSpan(job.OriginalFilename))
	}
	fmt.Fprintf(&b, "Job: `%s`\n", codeSpan(rec.JobID))
	fmt.Fprintf(&b, "Model: `%s` (%s, %d months)\n", rec.ModelType, rec.Aggregation, rec.Horizon)

	if len(rec.Forecast) > 0 {
		var total float64
		for _, p := range rec.Forecast {
			total += p.Predicted
		}
		first := rec.Forecast[0]
		fmt.Fprintf(&b, "Next period: *%s* (%s)\n", insights.FormatNumber(first.Predicted), first.Date)
		fmt.Fprintf(&b, "Horizon total: *%s*\n", insights.FormatNumber(total))
	}

	m := rec.Metrics
	fmt.Fprintf(&b, "\nMAPE: %.1f%% | Confidence: %.1f | Risk: %s\n", m.MAPE, m.ConfidenceScore, m.RiskLevel)

	if len(rec.TopProducts) > 0 {
		top := rec.TopProducts[0]
		fmt.Fprintf(&b, "Top product: `%s` (%s)\n", codeSpan(top.Group), insights.FormatNumber(top.Total))
	}
	if len(rec.TopRegions) > 0 {
		top := rec.TopRegions[0]
		fmt.Fprintf(&b, "Top region: `%s` (%s)\n", codeSpan(top.Group), insights.FormatNumber(top.Total))
	}
	return b.String()
}

func codeSpan(s string) string {
	return strings.ReplaceAll(s, "`", "'")
}

// Package telegram delivers the daily digest and operational notices via the
// Telegram Bot API.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/marketpress/marketpress/internal/models"
	"github.com/marketpress/marketpress/internal/sections"
)

// Client handles Telegram notifications.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// sendMarkdownV2 sends a MarkdownV2 message with linear-backoff retry.
func (c *Client) sendMarkdownV2(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// SendError sends a refresh error notification.
// Call this only on the first occurrence of a consecutive error sequence.
func (c *Client) SendError(cycleErr error) error {
	text := fmt.Sprintf("⚠️ *Refresh error*\n`%s`", escapeMarkdownV2(cycleErr.Error()))
	return c.sendMarkdownV2(text)
}

// SendRecovery sends a recovery notification after consecutive failures.
func (c *Client) SendRecovery(failureCount int) error {
	text := fmt.Sprintf("✅ *Refresh recovered* after %d consecutive failure\\(s\\)", failureCount)
	return c.sendMarkdownV2(text)
}

// SendDigest sends the edition digest: lead story plus developing stories.
func (c *Client) SendDigest(secs map[string][]models.Market, demoMode bool, updatedAt time.Time) error {
	return c.sendMarkdownV2(formatDigest(secs, demoMode, updatedAt))
}

// formatDigest formats an edition into a Telegram MarkdownV2 message.
func formatDigest(secs map[string][]models.Market, demoMode bool, updatedAt time.Time) string {
	message := "📰 *MarketPress Digest*\n\n"

	dateStr := escapeMarkdownV2(updatedAt.Format("2006-01-02 15:04"))
	message += fmt.Sprintf("📅 %s\n", dateStr)
	if demoMode {
		message += "🧪 demo data\n"
	}
	message += "\n"

	if top := secs[sections.SectionTopStories]; len(top) > 0 {
		lead := top[0]
		message += fmt.Sprintf("🏆 *Lead story*\n%s\n", escapeMarkdownV2(lead.Title))
		message += fmt.Sprintf("   %s %s\n\n", probLine(lead.YesPrice), deltaLine(lead.Delta24h))
	}

	developing := secs[sections.SectionDeveloping]
	if len(developing) == 0 {
		message += "No developing stories this cycle\\.\n"
		return message
	}

	message += "🚨 *Developing stories*\n"
	for i, m := range developing {
		if i == 5 {
			break
		}
		message += fmt.Sprintf("%d\\. %s\n", i+1, escapeMarkdownV2(m.Title))
		message += fmt.Sprintf("   %s %s\n", probLine(m.YesPrice), deltaLine(m.Delta24h))
	}

	return message
}

func probLine(prob float64) string {
	if models.IsMissing(prob) {
		return escapeMarkdownV2("N/A")
	}
	return fmt.Sprintf("*%s*", escapeMarkdownV2(fmt.Sprintf("%.0f%%", prob*100)))
}

func deltaLine(delta float64) string {
	if models.IsMissing(delta) {
		return ""
	}
	emoji := "📈"
	if delta < 0 {
		emoji = "📉"
	}
	sign := ""
	if delta >= 0 {
		sign = "+"
	}
	return fmt.Sprintf("%s \\(%s 24h\\)", emoji, escapeMarkdownV2(fmt.Sprintf("%s%.1f%%", sign, delta*100)))
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4) // pre-allocate with room for escapes
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

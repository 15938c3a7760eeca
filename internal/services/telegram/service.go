// Package telegram reports run results through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fgeck/backuprat/internal/models"
	"github.com/rs/zerolog"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	// Keeps the whole message below Telegram's 4096 character limit.
	maxErrorLength = 3000
)

// Service defines the interface for Telegram notification operations.
type Service interface {
	SendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error)
}

// HTTPClient allows mocking HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Impl implements the Telegram Service interface.
type Impl struct {
	httpClient HTTPClient
	logger     zerolog.Logger
	baseURL    string
}

// New creates a new Telegram service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
		baseURL:    defaultBaseURL,
	}
}

// NewWithClient creates a new Telegram service with a custom HTTP client (for testing).
func NewWithClient(logger zerolog.Logger, httpClient HTTPClient, baseURL string) *Impl {
	return &Impl{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    baseURL,
	}
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendNotification posts the run summary to the configured chat.
func (s *Impl) SendNotification(ctx context.Context, cfg models.TelegramConfig, msg models.TelegramMessage) (*models.TelegramResult, error) {
	result := &models.TelegramResult{}

	s.logger.Info().
		Str("chat_id", cfg.ChatID).
		Bool("success", msg.Success).
		Msg("sending Telegram notification")

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    cfg.ChatID,
		Text:      formatMessage(msg),
		ParseMode: "HTML",
	})
	if err != nil {
		result.Error = errors.Wrap(err, "failed to marshal request")
		return result, nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		result.Error = errors.Wrap(err, "failed to create request")
		return result, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// The URL carries the bot token, keep it out of the error.
		result.Error = errors.Newf("failed to send request: %s", redact(err.Error(), cfg.BotToken))
		return result, nil
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		result.Error = apiError(resp)
		return result, nil
	}

	result.MessageSent = true
	s.logger.Info().Msg("Telegram notification sent successfully")

	return result, nil
}

func apiError(resp *http.Response) error {
	var decoded apiResponse
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(raw, &decoded) == nil && decoded.Description != "" {
		return errors.Newf("telegram API returned status %d: %s", resp.StatusCode, decoded.Description)
	}
	return errors.Newf("telegram API returned status %d", resp.StatusCode)
}

func formatMessage(msg models.TelegramMessage) string {
	var b strings.Builder

	switch {
	case msg.Success:
		b.WriteString("✅ <b>Backup Successful</b>\n\n")
	case msg.FailedStep == "backup":
		b.WriteString("⚠️ <b>Backup Finished With Errors</b>\n\n")
	default:
		b.WriteString("❌ <b>Backup Failed</b>\n\n")
	}

	fmt.Fprintf(&b, "🖥 <b>Host:</b> %s\n", escapeHTML(msg.Host))
	fmt.Fprintf(&b, "🎯 <b>Selector:</b> %s\n", escapeHTML(msg.Selector))
	fmt.Fprintf(&b, "⏰ <b>Started:</b> %s\n", msg.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "⏱ <b>Duration:</b> %s\n", msg.Duration.Round(time.Second))

	if msg.Targets > 0 {
		b.WriteString("\n<b>📊 Statistics:</b>\n")
		fmt.Fprintf(&b, "  • Targets: %d (%d failed)\n", msg.Targets, msg.FailedTargets)
		fmt.Fprintf(&b, "  • Files scanned: %d\n", msg.FilesScanned)
		fmt.Fprintf(&b, "  • Files copied: %d\n", msg.FilesCopied)
		fmt.Fprintf(&b, "  • Files unchanged: %d\n", msg.FilesUnchanged)
		fmt.Fprintf(&b, "  • Files ignored: %d\n", msg.FilesIgnored)
		if msg.FilesFailed > 0 {
			fmt.Fprintf(&b, "  • Files failed: %d\n", msg.FilesFailed)
		}
		fmt.Fprintf(&b, "  • Data copied: %s\n", models.FormatBytes(msg.BytesCopied))

		if msg.SnapshotsRemoved > 0 {
			fmt.Fprintf(&b, "\n<b>🗑 Retention:</b> %d snapshot(s) removed\n", msg.SnapshotsRemoved)
		}
	}

	if !msg.Success {
		b.WriteString("\n<b>⚠️ Error Details:</b>\n")
		fmt.Fprintf(&b, "  • Failed step: %s\n", escapeHTML(msg.FailedStep))
		fmt.Fprintf(&b, "  • Error: <code>%s</code>\n", escapeHTML(truncate(msg.ErrorMessage, maxErrorLength)))
	}

	return b.String()
}

func escapeHTML(s string) string {
	return html.EscapeString(s)
}

// truncate shortens s to at most limit runes.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "<redacted>")
}

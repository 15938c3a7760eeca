//go:build e2e

package e2e

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fgeck/backuprat/internal/models"
	"github.com/fgeck/backuprat/internal/services/telegram"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTelegramConfig(t *testing.T) models.TelegramConfig {
	t.Helper()

	botToken := os.Getenv("TEST_TELEGRAM_BOT_TOKEN")
	if botToken == "" {
		t.Skip("TEST_TELEGRAM_BOT_TOKEN not set")
	}

	chatID := os.Getenv("TEST_TELEGRAM_CHAT_ID")
	if chatID == "" {
		t.Skip("TEST_TELEGRAM_CHAT_ID not set")
	}

	return models.TelegramConfig{
		BotToken: botToken,
		ChatID:   chatID,
	}
}

func TestTelegramSendSuccessNotification_E2E(t *testing.T) {
	cfg := getTelegramConfig(t)

	svc := telegram.New(testLogger())

	msg := models.TelegramMessage{
		Success:          true,
		Host:             "e2e-test-host",
		Selector:         "all",
		Status:           models.StatusSuccess,
		StartTime:        time.Now().Add(-5 * time.Minute),
		Duration:         5 * time.Minute,
		Targets:          3,
		FilesScanned:     5150,
		FilesCopied:      150,
		FilesUnchanged:   4900,
		FilesIgnored:     100,
		BytesCopied:      1024 * 1024 * 50,
		SnapshotsRemoved: 2,
	}

	result, err := svc.SendNotification(context.Background(), cfg, msg)

	require.NoError(t, err)
	assert.True(t, result.MessageSent)
	assert.Nil(t, result.Error)
}

func TestTelegramSendPartialFailureNotification_E2E(t *testing.T) {
	cfg := getTelegramConfig(t)

	svc := telegram.New(testLogger())

	msg := models.TelegramMessage{
		Success:       false,
		Host:          "e2e-test-host",
		Selector:      "photos",
		Status:        models.StatusPartialFailure,
		StartTime:     time.Now().Add(-2 * time.Minute),
		Duration:      2 * time.Minute,
		Targets:       2,
		FailedTargets: 1,
		FilesFailed:   4,
		FailedStep:    "backup",
		ErrorMessage:  "photos: destination <D:\\> is unavailable; docs: 4 file(s) failed",
	}

	result, err := svc.SendNotification(context.Background(), cfg, msg)

	require.NoError(t, err)
	assert.True(t, result.MessageSent)
	assert.Nil(t, result.Error)
}

func TestTelegramInvalidToken_E2E(t *testing.T) {
	cfg := models.TelegramConfig{
		BotToken: "invalid:token",
		ChatID:   "-100123456789",
	}

	svc := telegram.New(testLogger())

	result, err := svc.SendNotification(context.Background(), cfg, models.TelegramMessage{Success: true, Host: "test"})

	require.NoError(t, err)
	assert.False(t, result.MessageSent)
	require.NotNil(t, result.Error)
	assert.NotContains(t, result.Error.Error(), "invalid:token")
}

func TestTelegramInvalidChatID_E2E(t *testing.T) {
	cfg := getTelegramConfig(t)
	cfg.ChatID = "invalid-chat-id"

	svc := telegram.New(testLogger())

	result, err := svc.SendNotification(context.Background(), cfg, models.TelegramMessage{Success: true, Host: "test"})

	require.NoError(t, err)
	assert.False(t, result.MessageSent)
	assert.NotNil(t, result.Error)
}

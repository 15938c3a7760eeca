package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// TelegramMessage holds the data for a run notification.
type TelegramMessage struct {
	Success   bool
	Host      string
	Selector  string
	Status    RunStatus
	StartTime time.Time
	Duration  time.Duration

	Targets       int
	FailedTargets int

	// File stats.
	FilesScanned   int
	FilesCopied    int
	FilesUnchanged int
	FilesIgnored   int
	FilesFailed    int
	BytesCopied    int64

	// Retention stats.
	SnapshotsRemoved int

	// Error info (if the run could not start or finish).
	ErrorMessage string
	FailedStep   string
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}

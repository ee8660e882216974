package models

import "time"

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}

// Device event kinds reported through notifications.
const (
	EventShutdown = "shutdown"
	EventWake     = "wake"
)

// DeviceEvent holds the data for a device notification.
type DeviceEvent struct {
	Kind    string
	Host    string
	At      time.Time
	Success bool
	Detail  string // command output or wake summary
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}

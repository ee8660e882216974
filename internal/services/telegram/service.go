// Package telegram provides Telegram notification services.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fgeck/pumpkin-control/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for Telegram notification operations.
type Service interface {
	SendNotification(ctx context.Context, cfg models.TelegramConfig, event models.DeviceEvent) (*models.TelegramResult, error)
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
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger:  logger,
		baseURL: "https://api.telegram.org",
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

// sendMessageRequest is the request body for Telegram sendMessage API.
type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// apiResponse is the envelope of every Bot API reply.
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// maxDetailLen caps the command output quoted in a message.
const maxDetailLen = 512

// SendNotification reports a device event via Telegram.
func (s *Impl) SendNotification(ctx context.Context, cfg models.TelegramConfig, event models.DeviceEvent) (*models.TelegramResult, error) {
	result := &models.TelegramResult{}

	s.logger.Info().
		Str("chat_id", cfg.ChatID).
		Str("event", event.Kind).
		Bool("success", event.Success).
		Msg("sending Telegram notification")

	reqBody := sendMessageRequest{
		ChatID:    cfg.ChatID,
		Text:      formatMessage(event),
		ParseMode: "HTML",
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		result.Error = fmt.Errorf("failed to marshal request: %w", err)
		return result, nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, cfg.BotToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		result.Error = fmt.Errorf("failed to create request: %w", err)
		return result, nil
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		result.Error = fmt.Errorf("failed to send request: %w", err)
		return result, nil
	}
	defer func() { _ = resp.Body.Close() }()

	var apiResp apiResponse
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&apiResp)

	if resp.StatusCode != http.StatusOK || !apiResp.OK {
		switch {
		case apiResp.Description != "":
			result.Error = fmt.Errorf("telegram API returned status %d: %s", resp.StatusCode, apiResp.Description)
		case decodeErr != nil && resp.StatusCode == http.StatusOK:
			result.Error = fmt.Errorf("failed to decode response: %w", decodeErr)
		default:
			result.Error = fmt.Errorf("telegram API returned status %d", resp.StatusCode)
		}
		return result, nil
	}

	result.MessageSent = true
	s.logger.Info().Msg("Telegram notification sent successfully")

	return result, nil
}

func formatMessage(event models.DeviceEvent) string {
	var b bytes.Buffer

	switch event.Kind {
	case models.EventShutdown:
		if event.Success {
			b.WriteString("🛑 <b>Shutdown Sent</b>\n\n")
		} else {
			b.WriteString("❌ <b>Shutdown Failed</b>\n\n")
		}
	case models.EventWake:
		if event.Success {
			b.WriteString("⚡ <b>Device Awake</b>\n\n")
		} else {
			b.WriteString("❌ <b>Wake Failed</b>\n\n")
		}
	default:
		b.WriteString(fmt.Sprintf("ℹ️ <b>%s</b>\n\n", escapeHTML(event.Kind)))
	}

	if event.Host != "" {
		b.WriteString(fmt.Sprintf("🖥 <b>Host:</b> %s\n", escapeHTML(event.Host)))
	}
	if !event.At.IsZero() {
		b.WriteString(fmt.Sprintf("⏰ <b>At:</b> %s\n", event.At.Format("2006-01-02 15:04:05")))
	}

	if event.Detail != "" {
		detail := event.Detail
		if len(detail) > maxDetailLen {
			detail = detail[:maxDetailLen] + "..."
		}
		b.WriteString(fmt.Sprintf("\n<code>%s</code>\n", escapeHTML(detail)))
	}

	return b.String()
}

// escapeHTML escapes HTML special characters.
func escapeHTML(s string) string {
	var b bytes.Buffer
	for _, r := range s {
		switch r {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

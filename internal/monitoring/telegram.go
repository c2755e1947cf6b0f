package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/your-username/pihole-log-viewer/internal/settings"
)

// ErrTelegramDisabled is returned when notifications are off or incomplete
var ErrTelegramDisabled = errors.New("telegram notifications are not enabled")

// TelegramError is a rejection reported by the Bot API
type TelegramError struct {
	StatusCode  int
	Description string
}

func (e *TelegramError) Error() string {
	return fmt.Sprintf("telegram api: %d %s", e.StatusCode, e.Description)
}

// Telegram sends messages through the Bot API sendMessage method
type Telegram struct {
	baseURL    string
	httpClient *http.Client
}

func NewTelegram(baseURL string) *Telegram {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	return &Telegram{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *Telegram) Send(ctx context.Context, cfg settings.Settings, text string) error {
	if !cfg.TelegramReady() {
		return ErrTelegramDisabled
	}

	form := url.Values{}
	form.Set("chat_id", cfg.TelegramChatID)
	form.Set("text", text)
	form.Set("parse_mode", "Markdown")

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, cfg.TelegramBotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// the URL carries the bot token
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return fmt.Errorf("telegram request failed: %w", err)
	}
	defer resp.Body.Close()

	var body struct {
		OK          bool   `json:"ok"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return &TelegramError{StatusCode: resp.StatusCode, Description: "unreadable response"}
	}
	if resp.StatusCode != http.StatusOK || !body.OK {
		return &TelegramError{StatusCode: resp.StatusCode, Description: body.Description}
	}
	return nil
}

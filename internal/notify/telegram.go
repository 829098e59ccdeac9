package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultAPIBase = "https://api.telegram.org"

// SendError is a messaging transport failure. The loop logs and swallows
// it; the next transition-worthy event tries again.
type SendError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *SendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("telegram send: %v", e.Err)
	}
	return fmt.Sprintf("telegram send: HTTP %d: %s", e.StatusCode, e.Body)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// TelegramConfig carries the bot credentials and target chat.
type TelegramConfig struct {
	APIBase string
	Token   string
	ChatID  string
	Timeout time.Duration
}

// Telegram posts sendMessage calls to the Bot API.
type Telegram struct {
	cfg    TelegramConfig
	client *http.Client
	logger *zap.Logger
}

// NewTelegram builds a Telegram notifier. With empty credentials the
// notifier reports Enabled() == false and Send is a no-op.
func NewTelegram(cfg TelegramConfig, logger *zap.Logger) *Telegram {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Telegram{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// Enabled reports whether both token and chat id are configured.
func (t *Telegram) Enabled() bool {
	return t.cfg.Token != "" && t.cfg.ChatID != ""
}

// Send delivers the formatted event text. Disabled notifiers succeed
// silently so the loop does not special-case them.
func (t *Telegram) Send(ctx context.Context, evt Event) error {
	return t.SendText(ctx, FormatMessage(evt))
}

// SendText posts an arbitrary text line, used for the debug test ping.
func (t *Telegram) SendText(ctx context.Context, text string) error {
	if !t.Enabled() {
		t.logger.Debug("telegram disabled, dropping message")
		return nil
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimSuffix(t.cfg.APIBase, "/"), t.cfg.Token)
	form := url.Values{
		"chat_id": {t.cfg.ChatID},
		"text":    {text},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &SendError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return &SendError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &SendError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	t.logger.Info("telegram notification sent", zap.String("text", text))
	return nil
}

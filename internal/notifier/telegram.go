package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kosench/go-url-tracker/internal/model"
)

const (
	DefaultTelegramAPIBaseURL = "https://api.telegram.org"

	// Telegram limits a message to 4096 characters.
	maxMessageLength = 4096
	truncationSuffix = "..."
)

type TelegramConfig struct {
	Enabled  bool
	BotToken string
	ChatID   string

	// APIBaseURL is overridable so tests can point at httptest servers.
	APIBaseURL string

	// Timeout bounds every HTTP call to the Bot API.
	Timeout time.Duration

	RequestsPerSecond float64
	Burst             int

	MaxAttempts int
	RetryDelay  time.Duration
}

func (c TelegramConfig) withDefaults() TelegramConfig {
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultTelegramAPIBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 1
	}
	if c.Burst <= 0 {
		c.Burst = 5
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 2
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	return c
}

// NotifyBudget is the longest a single NotifyExpired call can take when
// every attempt hits Timeout and every backoff runs in full.
func (c TelegramConfig) NotifyBudget() time.Duration {
	c = c.withDefaults()

	budget := c.Timeout * time.Duration(c.MaxAttempts)
	for attempt := 1; attempt < c.MaxAttempts; attempt++ {
		budget += c.RetryDelay * time.Duration(attempt)
	}
	return budget
}

// TelegramNotifier sends expiry alerts through the Telegram Bot API sendMessage method.
type TelegramNotifier struct {
	config      TelegramConfig
	httpClient  *http.Client
	rateLimiter *RateLimiter
	log         *zap.Logger
}

func NewTelegramNotifier(config TelegramConfig, log *zap.Logger) *TelegramNotifier {
	config = config.withDefaults()

	return &TelegramNotifier{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(config.RequestsPerSecond, config.Burst),
		log:         log.Named("telegram"),
	}
}

type sendMessagePayload struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// FormatExpiredMessage renders the alert text for an expired record.
func FormatExpiredMessage(record *model.URLRecord) string {
	var b strings.Builder
	b.WriteString("URL expired\n")
	fmt.Fprintf(&b, "ID: %d\n", record.ID)
	fmt.Fprintf(&b, "URL: %s\n", record.URL)
	fmt.Fprintf(&b, "Expired at: %s", record.ExpireDateTime.UTC().Format(time.RFC3339))

	return truncate(b.String(), maxMessageLength, truncationSuffix)
}

func (t *TelegramNotifier) endpoint() string {
	return fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.config.APIBaseURL, "/"), t.config.BotToken)
}

func (t *TelegramNotifier) sendMessage(ctx context.Context, text string) error {
	payload, err := json.Marshal(sendMessagePayload{
		ChatID:                t.config.ChatID,
		Text:                  text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal sendMessage payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint(), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// The request URL carries the bot token, so *url.Error is not returned as is.
		return fmt.Errorf("execute telegram request: %s", redact(err.Error(), t.config.BotToken))
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var parsed telegramResponse
	_ = json.Unmarshal(body, &parsed)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 && parsed.OK {
		return nil
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			Message:    "Telegram rate limit exceeded",
			RetryAfter: extractRetryAfter(resp, parsed),
		}
	}

	if resp.StatusCode >= 500 {
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("Telegram API server error: %s", parsed.Description),
		}
	}

	return &ClientError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("Telegram API client error (%d): %s", resp.StatusCode, parsed.Description),
	}
}

func extractRetryAfter(resp *http.Response, parsed telegramResponse) time.Duration {
	if parsed.Parameters.RetryAfter > 0 {
		return time.Duration(parsed.Parameters.RetryAfter) * time.Second
	}

	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}

	return 5 * time.Second
}

func (t *TelegramNotifier) sendWithRetry(ctx context.Context, record *model.URLRecord, text string) error {
	requestID, _ := ctx.Value(requestIDKey).(string)
	log := t.log.With(zap.String("request_id", requestID), zap.Int64("record_id", record.ID))

	var lastErr error
	for attempt := 1; attempt <= t.config.MaxAttempts; attempt++ {
		err := t.sendMessage(ctx, text)
		if err == nil {
			log.Info("Expiry notification sent", zap.Int("attempt", attempt))
			return nil
		}
		lastErr = err

		delay := t.config.RetryDelay * time.Duration(attempt)
		if rateLimitErr, ok := is429Error(err); ok {
			delay = rateLimitErr.RetryAfter
		} else if !isRetryableError(err) {
			log.Error("Expiry notification rejected", zap.Error(err), zap.Int("attempt", attempt))
			return err
		}

		if attempt == t.config.MaxAttempts {
			break
		}

		log.Warn("Expiry notification failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay))

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("context canceled during retry backoff: %w", ctx.Err())
		}
	}

	return fmt.Errorf("telegram notification failed after %d attempts: %w", t.config.MaxAttempts, lastErr)
}

func (t *TelegramNotifier) NotifyExpired(ctx context.Context, record *model.URLRecord) error {
	ctx = context.WithValue(ctx, requestIDKey, uuid.New().String())

	if err := t.rateLimiter.Allow(ctx); err != nil {
		return fmt.Errorf("rate limiter error: %w", err)
	}

	return t.sendWithRetry(ctx, record, FormatExpiredMessage(record))
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "***")
}

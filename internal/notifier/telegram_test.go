package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kosench/go-url-tracker/internal/model"
)

func expiredRecord() *model.URLRecord {
	expire := time.Date(2024, 5, 1, 10, 1, 0, 0, time.UTC)
	return &model.URLRecord{
		ID:             3,
		URL:            "https://x.com/a",
		InputDateTime:  model.NewTimestamp(expire.Add(-time.Minute)),
		ExpireDateTime: model.NewTimestamp(expire),
		ActiveStatus:   model.StatusInactive,
	}
}

func newTestTelegram(t *testing.T, handler http.HandlerFunc) (*TelegramNotifier, *int32) {
	t.Helper()
	var calls int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	n := NewTelegramNotifier(TelegramConfig{
		Enabled:     true,
		BotToken:    "123:secret",
		ChatID:      "-100500",
		APIBaseURL:  server.URL,
		Timeout:     time.Second,
		MaxAttempts: 2,
		RetryDelay:  time.Millisecond,
	}, zap.NewNop())

	return n, &calls
}

func TestFormatExpiredMessage(t *testing.T) {
	msg := FormatExpiredMessage(expiredRecord())

	assert.Contains(t, msg, "ID: 3")
	assert.Contains(t, msg, "URL: https://x.com/a")
	assert.Contains(t, msg, "Expired at: 2024-05-01T10:01:00Z")

	long := expiredRecord()
	long.URL = "https://x.com/" + strings.Repeat("a", 5000)
	assert.Len(t, FormatExpiredMessage(long), maxMessageLength)

	wide := expiredRecord()
	wide.URL = "https://x.com/" + strings.Repeat("ж", 5000)
	msg = FormatExpiredMessage(wide)
	assert.True(t, utf8.ValidString(msg))
	assert.Equal(t, maxMessageLength, utf8.RuneCountInString(msg))
	assert.True(t, strings.HasSuffix(msg, truncationSuffix))
}

func TestTelegramConfig_NotifyBudget(t *testing.T) {
	assert.Equal(t, 22*time.Second, TelegramConfig{}.NotifyBudget())

	cfg := TelegramConfig{Timeout: time.Second, MaxAttempts: 3, RetryDelay: time.Second}
	assert.Equal(t, 6*time.Second, cfg.NotifyBudget())
}

func TestTelegramNotifier_RetriesWithinNotifyBudget(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			time.Sleep(200 * time.Millisecond)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(server.Close)

	cfg := TelegramConfig{
		Enabled:     true,
		BotToken:    "123:secret",
		ChatID:      "-100500",
		APIBaseURL:  server.URL,
		Timeout:     50 * time.Millisecond,
		MaxAttempts: 2,
		RetryDelay:  time.Millisecond,
	}
	n := NewTelegramNotifier(cfg, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.NotifyBudget())
	defer cancel()

	require.NoError(t, n.NotifyExpired(ctx, expiredRecord()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestTelegramNotifier_Success(t *testing.T) {
	n, calls := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bot123:secret/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload sendMessagePayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "-100500", payload.ChatID)
		assert.Contains(t, payload.Text, "https://x.com/a")

		_, _ = w.Write([]byte(`{"ok":true,"result":{}}`))
	})

	require.NoError(t, n.NotifyExpired(context.Background(), expiredRecord()))
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestTelegramNotifier_ClientErrorNotRetried(t *testing.T) {
	n, calls := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	})

	err := n.NotifyExpired(context.Background(), expiredRecord())

	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	assert.Equal(t, http.StatusBadRequest, clientErr.StatusCode)
	assert.Contains(t, clientErr.Error(), "chat not found")
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestTelegramNotifier_ServerErrorRetried(t *testing.T) {
	n, calls := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":502,"description":"Bad Gateway"}`))
	})

	err := n.NotifyExpired(context.Background(), expiredRecord())

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestTelegramNotifier_RecoversAfterServerError(t *testing.T) {
	var attempts int32
	n, calls := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	require.NoError(t, n.NotifyExpired(context.Background(), expiredRecord()))
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestTelegramNotifier_RateLimited(t *testing.T) {
	n, _ := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests","parameters":{"retry_after":7}}`))
	})
	n.config.MaxAttempts = 1

	err := n.NotifyExpired(context.Background(), expiredRecord())

	rateLimitErr, ok := is429Error(err)
	require.True(t, ok)
	assert.Equal(t, 7*time.Second, rateLimitErr.RetryAfter)
}

func TestTelegramNotifier_ContextCanceledDuringBackoff(t *testing.T) {
	n, _ := newTestTelegram(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	n.config.RetryDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := n.NotifyExpired(ctx, expiredRecord())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTelegramNotifier_NetworkErrorHidesToken(t *testing.T) {
	n := NewTelegramNotifier(TelegramConfig{
		BotToken:    "123:secret",
		ChatID:      "1",
		APIBaseURL:  "http://127.0.0.1:1",
		Timeout:     200 * time.Millisecond,
		MaxAttempts: 1,
	}, zap.NewNop())

	err := n.NotifyExpired(context.Background(), expiredRecord())
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")
}

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) NotifyExpired(ctx context.Context, record *model.URLRecord) error {
	s.calls++
	return s.err
}

func TestBreakerNotifier_OpensAfterFailures(t *testing.T) {
	stub := &stubNotifier{err: errors.New("sink down")}
	cfg := DefaultBreakerConfig("telegram-test")
	b := NewBreakerNotifier(stub, cfg, zap.NewNop())

	for i := 0; i < int(cfg.MinRequests); i++ {
		assert.Error(t, b.NotifyExpired(context.Background(), expiredRecord()))
	}

	err := b.NotifyExpired(context.Background(), expiredRecord())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int(cfg.MinRequests), stub.calls)
}

func TestNoOpNotifier(t *testing.T) {
	assert.NoError(t, NewNoOpNotifier().NotifyExpired(context.Background(), expiredRecord()))
}

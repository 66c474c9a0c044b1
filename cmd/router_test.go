package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kosench/go-url-tracker/internal/config"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)

	t.Setenv("URLTRACKER_APP_STORAGE", config.StorageMemory)
	t.Setenv("URLTRACKER_APP_RATE_LIMIT_REQUESTS", "0")

	cfg, err := config.Load("")
	require.NoError(t, err)

	a, err := newApp(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func request(router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRouter_Preflight(t *testing.T) {
	router := newRouter(newTestApp(t))

	w := request(router, http.MethodOptions, "/save-data", "", map[string]string{
		"Origin":                        "https://example.com",
		"Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodDelete)

	w = request(router, http.MethodOptions, "/anything", "", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_CORSOnRegularRequests(t *testing.T) {
	router := newRouter(newTestApp(t))

	w := request(router, http.MethodGet, "/", "", map[string]string{"Origin": "https://example.com"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"message":"URL Tracker is running"}`, w.Body.String())
}

func TestRouter_RecordLifecycle(t *testing.T) {
	router := newRouter(newTestApp(t))

	w := request(router, http.MethodPost, "/save-data", `{"url":"https://x.com/a"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Data saved successfully","id":1}`, w.Body.String())

	w = request(router, http.MethodPost, "/save-data", `{"url":"https://x.com/a"}`, nil)
	assert.JSONEq(t, `{"message":"URL exists","id":1}`, w.Body.String())

	w = request(router, http.MethodPost, "/submit-embed", `{"embedCode":"<iframe src=\"https://x.com/b\"></iframe>"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var submitted map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &submitted))
	assert.Equal(t, 2.0, submitted["id"])

	w = request(router, http.MethodPost, "/update-active-status", `[{"id":1,"activeStatus":0}]`, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(router, http.MethodGet, "/get-expired", "", nil)
	var expired []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &expired))
	require.Len(t, expired, 1)
	assert.Equal(t, 1.0, expired[0]["id"])

	w = request(router, http.MethodDelete, "/delete-data/1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = request(router, http.MethodDelete, "/delete-data/1", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = request(router, http.MethodGet, "/get-data", "", nil)
	var all []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 1)

	w = request(router, http.MethodPost, "/reconcile", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"scanned":1`)
}

func TestRouter_RejectsUnknownStatus(t *testing.T) {
	router := newRouter(newTestApp(t))

	w := request(router, http.MethodPost, "/save-data", `{"url":"https://x.com/a","activeStatus":2}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"field":"activeStatus"`)

	w = request(router, http.MethodPost, "/save-data", `{"url":"https://x.com/a"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = request(router, http.MethodPost, "/update-data/1", `{"url":"https://x.com/a","activeStatus":2}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(router, http.MethodGet, "/get-data", "", nil)
	assert.Contains(t, w.Body.String(), `"activeStatus":1`)
}

func TestRouter_SubmitEmbedKeepsRelativeSrc(t *testing.T) {
	router := newRouter(newTestApp(t))

	w := request(router, http.MethodPost, "/submit-embed", `{"embedCode":"<iframe src=\"/embed/video/1\"></iframe>"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"url":"/embed/video/1"`)
}

func TestRouter_Operational(t *testing.T) {
	router := newRouter(newTestApp(t))

	w := request(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","services":{"database":"disabled","cache":"disabled"}}`, w.Body.String())

	request(router, http.MethodGet, "/get-data", "", nil)
	w = request(router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "urltracker_http_requests_total")
}

func TestCorsConfig(t *testing.T) {
	all := corsConfig([]string{"*"})
	assert.True(t, all.AllowAllOrigins)
	assert.Empty(t, all.AllowOrigins)

	some := corsConfig([]string{"https://a.example"})
	assert.False(t, some.AllowAllOrigins)
	assert.Equal(t, []string{"https://a.example"}, some.AllowOrigins)
}

func TestRouter_InfoShowsNotifierState(t *testing.T) {
	router := newRouter(newTestApp(t))

	w := request(router, http.MethodGet, "/info", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"notifier":"disabled"`)

	t.Setenv("URLTRACKER_TELEGRAM_ENABLED", "true")
	t.Setenv("URLTRACKER_TELEGRAM_BOT_TOKEN", "123:secret")
	t.Setenv("URLTRACKER_TELEGRAM_CHAT_ID", "-100500")

	w = request(newRouter(newTestApp(t)), http.MethodGet, "/info", "", nil)
	assert.Contains(t, w.Body.String(), `"notifier":"closed"`)
}

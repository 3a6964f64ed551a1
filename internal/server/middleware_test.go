package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/philippkemmeter/mvcfun/internal/controller"
	"github.com/philippkemmeter/mvcfun/internal/logging"
	"github.com/philippkemmeter/mvcfun/internal/request"
	"github.com/philippkemmeter/mvcfun/internal/response"
	"github.com/philippkemmeter/mvcfun/internal/router"
)

type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRateLimiterWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	t.Cleanup(rl.Stop)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("1.2.3.4"))
	assert.False(t, rl.Allow("1.2.3.4"))
	assert.True(t, rl.Allow("5.6.7.8"))

	now = now.Add(time.Minute)
	assert.True(t, rl.Allow("1.2.3.4"))

	now = now.Add(3 * time.Minute)
	rl.sweep()
	rl.mu.Lock()
	assert.Empty(t, rl.buckets)
	rl.mu.Unlock()
}

func TestRateLimiterStopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, 0)
	rl.Stop()
	rl.Stop()
}

func parseRequest(t *testing.T, raw string) *request.Request {
	t.Helper()
	req, err := request.RequestFromReader(strings.NewReader(raw))
	require.NoError(t, err)
	return req
}

func TestShouldCloseConnection(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"http/1.1 default", "GET / HTTP/1.1\r\nHost: x\r\n\r\n", false},
		{"http/1.1 close", "GET / HTTP/1.1\r\nHost: x\r\nConnection: close\r\n\r\n", true},
		{"http/1.0 default", "GET / HTTP/1.0\r\n\r\n", true},
		{"http/1.0 keep-alive", "GET / HTTP/1.0\r\nConnection: keep-alive\r\n\r\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := response.NewWriter(io.Discard)
			require.NoError(t, w.End([]byte("ok")))
			assert.Equal(t, tt.want, shouldCloseConnection(parseRequest(t, tt.raw), w))
		})
	}
}

func TestShouldCloseWithoutContentLength(t *testing.T) {
	w := response.NewWriter(io.Discard)
	require.NoError(t, w.WriteStatusLine(response.StatusOK))
	assert.True(t, shouldCloseConnection(parseRequest(t, "GET / HTTP/1.1\r\nHost: x\r\n\r\n"), w))
}

func TestRecoveryKeepsStartedResponse(t *testing.T) {
	var buf bytes.Buffer
	w := response.NewWriter(&buf)
	ctx := &controller.Context{
		Request:  request.FromRequest(parseRequest(t, "GET / HTTP/1.1\r\nHost: x\r\n\r\n")),
		Response: w,
		Managers: response.NewSet(),
	}
	logger := &countingLogger{}
	h := Recovery(logger)(HandlerFunc(func(ctx *controller.Context) {
		_ = ctx.Manager().Write(ctx.Response, "done", "")
		panic("late")
	}))
	h.ServeMVC(ctx)

	assert.Equal(t, 1, logger.errors)
	assert.Equal(t, response.StatusOK, w.StatusCode())
	assert.True(t, strings.HasSuffix(buf.String(), "\r\n\r\ndone"))
}

type failingConn struct{}

func (failingConn) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestRateLimitLogsWriteFailure(t *testing.T) {
	limiter := NewRateLimiter(0, time.Minute)
	t.Cleanup(limiter.Stop)

	logger := &countingLogger{}
	ctx := &controller.Context{
		Request:    request.FromRequest(parseRequest(t, "GET / HTTP/1.1\r\nHost: x\r\n\r\n")),
		Response:   response.NewWriter(failingConn{}),
		Managers:   response.NewSet(),
		Logger:     logger,
		RequestID:  "req-1",
		RemoteAddr: "10.0.0.1:5000",
	}
	called := false
	RateLimit(limiter)(HandlerFunc(func(*controller.Context) { called = true })).ServeMVC(ctx)

	assert.False(t, called)
	assert.Equal(t, 1, logger.errors)
}

type countingLogger struct{ errors int }

func (l *countingLogger) Debug(string, ...logging.Field) {}
func (l *countingLogger) Info(string, ...logging.Field)  {}
func (l *countingLogger) Warn(string, ...logging.Field)  {}
func (l *countingLogger) Error(string, ...logging.Field) { l.errors++ }

type stubStats struct{ snap MetricsSnapshot }

func (s stubStats) Stats() MetricsSnapshot { return s.snap }

func TestAdminHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := router.New(router.WithMetrics(router.NewMetrics(reg)))
	c, err := controller.NewFunc(controller.Exact("/"), func(*controller.Context) error { return nil })
	require.NoError(t, err)
	require.NoError(t, r.Register(c))

	h := NewAdminHandler(stubStats{MetricsSnapshot{RequestsTotal: 7}}, r, reg)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	var snap map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snap))
	assert.Equal(t, 7.0, snap["requests_total"])

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/controllers", nil))
	assert.JSONEq(t, `["host=* port=* path=/"]`, rr.Body.String())

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "mvcfun_router_controllers 1")

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

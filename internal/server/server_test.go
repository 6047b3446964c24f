package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kryta-backend/internal/ai"
	"kryta-backend/internal/analytics"
	"kryta-backend/internal/config"
	"kryta-backend/internal/db/dbtest"
	"kryta-backend/internal/settings"
	"kryta-backend/internal/verify"
)

type stubLLM struct{ reply string }

func (s stubLLM) JudgeText(context.Context, string, string, string) (string, error) {
	return s.reply, nil
}

func (s stubLLM) JudgeImage(context.Context, string, string, string, *ai.Image) (string, error) {
	return s.reply, nil
}

func (s stubLLM) Reward(context.Context, string, int, int, int) (string, error) {
	return `{"xp_awarded":10}`, nil
}

func (s stubLLM) Plan(context.Context, string, int, ai.Profile) (string, error) {
	return `{"tasks":[{"title":"Warm up","estimated_minutes":5}]}`, nil
}

func (s stubLLM) Debrief(context.Context, string, string, int) (string, error) {
	return `{"headline":"Steady"}`, nil
}

func testConfig() *config.Config {
	return &config.Config{
		HTTPAddr:        "127.0.0.1:0",
		AllowedOrigins:  []string{"http://localhost:5173"},
		JudgmentTimeout: time.Second,
		RewardTimeout:   time.Second,
		TokenTTL:        time.Hour,
		LocalMode:       true,
		VerifyPerMinute: 1,
		VerifyBurst:     2,
	}
}

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	d := dbtest.New(t)
	logger := zap.NewNop()
	llm := stubLLM{reply: `{"verdict":"retry","reason":"no detail"}`}
	rec := analytics.NewRecorder(d, nil, logger)
	machine := verify.NewMachine(
		verify.NewAdapter(llm, time.Second, logger),
		verify.NewDispatcher(llm, time.Second, logger),
	)

	return NewHandler(Deps{
		Config:    testConfig(),
		DB:        d,
		Logger:    logger,
		Secret:    []byte("test-secret"),
		Verify:    verify.NewService(d, machine, rec, logger),
		Planner:   llm,
		Reflector: llm,
		Recorder:  rec,
		Settings:  settings.NewStore(d),
	})
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "192.0.2.1:4000"
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestRoutes(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		method string
		target string
		body   string
		code   int
	}{
		{http.MethodGet, "/health", "", http.StatusOK},
		{http.MethodGet, "/dashboard", "", http.StatusOK},
		{http.MethodGet, "/goal", "", http.StatusNotFound},
		{http.MethodPost, "/plan", `{"goal":"Tidy desk","available_time":20}`, http.StatusOK},
		{http.MethodGet, "/goal", "", http.StatusOK},
		{http.MethodGet, "/tasks", "", http.StatusOK},
		{http.MethodGet, "/tasks/missing", "", http.StatusNotFound},
		{http.MethodGet, "/settings/key", "", http.StatusOK},
		{http.MethodGet, "/analytics", "", http.StatusOK},
		{http.MethodGet, "/debrief", "", http.StatusOK},
		{http.MethodGet, "/auth/me", "", http.StatusOK},
		{http.MethodDelete, "/dashboard", "", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		rr := do(h, tt.method, tt.target, tt.body)
		assert.Equal(t, tt.code, rr.Code, "%s %s: %s", tt.method, tt.target, rr.Body.String())
	}
}

func TestVerifyIsRateLimited(t *testing.T) {
	h := newTestHandler(t)

	body := `{"task_id":"missing","proof_content":"done"}`
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/verify", body).Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/verify", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(h, http.MethodPost, "/verify", body).Code)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodOptions, "/verify", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:5173", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/verify", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	cfg := testConfig()
	cfg.HTTPAddr = addr
	srv := New(cfg, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv, zap.NewNop()) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

// Package server assembles the HTTP routes and runs the listener.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"kryta-backend/internal/analytics"
	"kryta-backend/internal/auth"
	"kryta-backend/internal/config"
	"kryta-backend/internal/db"
	"kryta-backend/internal/goals"
	"kryta-backend/internal/middleware"
	"kryta-backend/internal/settings"
	"kryta-backend/internal/tasks"
	"kryta-backend/internal/verify"
)

const shutdownTimeout = 15 * time.Second

type Deps struct {
	Config    *config.Config
	DB        *db.DB
	Logger    *zap.Logger
	Secret    []byte
	Verify    *verify.Service
	Planner   goals.Planner
	Reflector analytics.Reflector
	Recorder  *analytics.Recorder
	Settings  *settings.Store
}

// NewHandler returns the full route table wrapped in CORS and panic recovery.
func NewHandler(d Deps) http.Handler {
	cfg := d.Config
	mw := auth.New(d.Secret, d.DB, cfg.LocalMode, d.Logger)
	limiter := middleware.NewRateLimiter(cfg.VerifyPerMinute, cfg.VerifyBurst)
	accounts := auth.Handlers{DB: d.DB, Secret: d.Secret, TokenTTL: cfg.TokenTTL, Logger: d.Logger}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", healthHandler(d.DB))

	// ----- ACCOUNTS -----
	mux.HandleFunc("POST /auth/register", accounts.Register())
	mux.HandleFunc("POST /auth/login", accounts.Login())
	mux.HandleFunc("POST /auth/logout", auth.LogoutHandler())
	mux.HandleFunc("GET /auth/me", mw.Wrap(accounts.Me()))
	mux.HandleFunc("DELETE /auth/account", mw.Wrap(accounts.DeleteAccount()))
	mux.HandleFunc("POST /user/onboard", mw.Wrap(accounts.Onboard()))

	// ----- PLAN / GOALS -----
	mux.HandleFunc("POST /plan", mw.Wrap(goals.PlanHandler(d.DB, d.Planner, d.Recorder, d.Logger)))
	mux.HandleFunc("GET /goal", mw.Wrap(goals.GetGoalHandler(d.DB)))
	mux.HandleFunc("POST /goal/reset", mw.Wrap(goals.ResetGoalHandler(d.DB, d.Recorder)))

	// ----- TASKS -----
	mux.HandleFunc("GET /dashboard", mw.Wrap(tasks.DashboardHandler(d.DB)))
	mux.HandleFunc("GET /tasks", mw.Wrap(tasks.GetTasksHandler(d.DB)))
	mux.HandleFunc("POST /tasks", mw.Wrap(tasks.CreateTaskHandler(d.DB)))
	mux.HandleFunc("GET /tasks/{id}", mw.Wrap(tasks.GetTaskHandler(d.DB)))

	// ----- VERIFICATION -----
	mux.HandleFunc("POST /verify", mw.Wrap(limiter.Wrap(verify.VerifyHandler(d.Verify, d.Logger))))

	// ----- SETTINGS -----
	mux.HandleFunc("GET /settings/key", mw.Wrap(settings.KeyStatusHandler(d.Settings, cfg.LLMAPIKey)))
	mux.HandleFunc("POST /settings/key", mw.Wrap(settings.SetKeyHandler(d.Settings, cfg.LLMAPIKey, d.Logger)))

	// ----- HISTORY / ANALYTICS -----
	mux.HandleFunc("GET /analytics", mw.Wrap(analytics.SummaryHandler(d.DB)))
	mux.HandleFunc("GET /debrief", mw.Wrap(analytics.DebriefHandler(d.DB, d.Reflector, d.Logger)))
	mux.HandleFunc("POST /analytics/app_opened", mw.Wrap(analytics.AppOpenedHandler(d.Recorder)))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Session-Id", "X-Platform", "X-App-Version", "X-Device-Locale", "Idempotency-Key", "X-Source-Event-Key"},
		AllowCredentials: true,
	})

	return middleware.Recovery(d.Logger, c.Handler(mux))
}

func healthHandler(d *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.Ping(ctx); err != nil {
			http.Error(w, "db unavailable", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("OK"))
	}
}

// New builds the http.Server. Write timeout leaves room for a judgment plus a reward call.
func New(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.JudgmentTimeout + cfg.RewardTimeout + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("api server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("api server shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"kryta-backend/internal/db"
	"kryta-backend/internal/users"
)

// app_opened: client reports the app was opened
func AppOpenedHandler(rec *Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			ColdStart bool   `json:"cold_start"`
			From      string `json:"from"` // shortcut/tray/icon/unknown
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		env := FromRequest(r)
		env.UserID = uid

		rec.Record(r.Context(), env, EventAppOpened, map[string]any{
			"cold_start": body.ColdStart,
			"from":       body.From,
		}, SourceEventKeyFromRequest(r))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

// SummaryHandler: GET /analytics
func SummaryHandler(d db.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		s, err := Summarize(r.Context(), d, uid, time.Now())
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s)
	}
}

type Reflector interface {
	Debrief(ctx context.Context, userName, history string, trustScore int) (string, error)
}

// DebriefHandler: GET /debrief
func DebriefHandler(d db.Runner, reflector Reflector, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		u, err := users.Get(r.Context(), d, uid)
		if errors.Is(err, users.ErrNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		s, err := Summarize(r.Context(), d, uid, time.Now())
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		raw, err := reflector.Debrief(r.Context(), u.Name, s.HistoryText(), s.Stats.TrustScore)
		if err != nil {
			logger.Warn("reflector call failed", zap.String("user_id", uid), zap.Error(err))
			http.Error(w, "debrief unavailable", http.StatusBadGateway)
			return
		}

		debrief, err := ParseDebrief(raw)
		if err != nil {
			logger.Warn("reflector reply unusable", zap.String("user_id", uid), zap.Error(err))
			http.Error(w, "debrief unavailable", http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"debrief":     debrief,
			"trust_score": s.Stats.TrustScore,
			"stats":       s.Stats,
		})
	}
}

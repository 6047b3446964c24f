package tasks

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"kryta-backend/internal/auth"
	"kryta-backend/internal/db"
	"kryta-backend/internal/users"
)

var validate = validator.New()

// -------------------------------
// HANDLERS
// -------------------------------

func GetTasksHandler(d db.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		result, err := List(r.Context(), d, uid)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"tasks": result})
	}
}

func GetTaskHandler(d db.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		t, err := Get(r.Context(), d, uid, r.PathValue("id"))
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(t)
	}
}

// CreateTaskHandler adds a single hand-written task in pending state.
func CreateTaskHandler(d db.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body CreateTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		body.Title = strings.TrimSpace(body.Title)
		if body.EstimatedMinutes == 0 {
			body.EstimatedMinutes = DefaultEstimatedMinutes
		}
		if err := validate.Struct(body); err != nil {
			http.Error(w, "title required, estimated_time 1-240", http.StatusBadRequest)
			return
		}

		t := body.toTask(uid)
		if err := InsertMany(r.Context(), d, []*Task{t}); err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(t)
	}
}

// DashboardHandler: today's tasks plus the caller's ledger and cooldown state.
func DashboardHandler(d db.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
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

		now := time.Now()
		y, m, day := now.Date()
		todayStart := time.Date(y, m, day, 0, 0, 0, 0, now.Location())

		today, err := ListSince(r.Context(), d, uid, todayStart)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(DashboardResponse{
			User:  u,
			Tasks: today,
			Lockout: LockoutStatus{
				Locked:           u.IsLocked(now),
				MinutesRemaining: u.LockoutMinutesRemaining(now),
				Until:            u.LockoutUntil,
			},
		})
	}
}

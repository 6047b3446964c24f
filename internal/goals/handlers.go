package goals

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"kryta-backend/internal/ai"
	"kryta-backend/internal/analytics"
	"kryta-backend/internal/auth"
	"kryta-backend/internal/db"
	"kryta-backend/internal/tasks"
	"kryta-backend/internal/users"
)

// Planner is the plan-generation collaborator. It returns the raw model reply.
type Planner interface {
	Plan(ctx context.Context, goal string, availableMinutes int, profile ai.Profile) (string, error)
}

type PlanResponse struct {
	Status string        `json:"status"`
	Goal   *Goal         `json:"goal"`
	Tasks  []*tasks.Task `json:"tasks"`
}

func writeNoTasks(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadGateway)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":  "error",
		"message": "No tasks generated",
	})
}

// PlanHandler: POST /plan
func PlanHandler(d *db.DB, planner Planner, rec *analytics.Recorder, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body PlanRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		body.Goal = strings.TrimSpace(body.Goal)
		if err := validate.Struct(body); err != nil {
			http.Error(w, "goal and available_time required", http.StatusBadRequest)
			return
		}

		u, err := users.Get(r.Context(), d, uid)
		if err != nil {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}

		raw, err := planner.Plan(r.Context(), body.Goal, body.AvailableTime, ai.Profile{
			Name:      u.Name,
			WorkHours: u.WorkHours,
			CoreGoals: u.CoreGoals,
			BadHabits: u.BadHabits,
		})
		if err != nil {
			logger.Warn("planner unavailable", zap.String("user_id", uid), zap.Error(err))
			writeNoTasks(w)
			return
		}

		goal := &Goal{UserID: uid, Title: body.Goal, AvailableMinutes: body.AvailableTime}
		list := ParsePlan(raw, uid, nil)
		if len(list) == 0 {
			logger.Warn("planner returned no usable tasks", zap.String("user_id", uid), zap.Int("reply_len", len(raw)))
			writeNoTasks(w)
			return
		}

		err = d.WithTx(r.Context(), func(tx *db.Tx) error {
			if _, err := Deactivate(r.Context(), tx, uid); err != nil {
				return err
			}
			if err := Insert(r.Context(), tx, goal); err != nil {
				return err
			}
			for _, t := range list {
				t.GoalID = &goal.ID
			}
			return tasks.InsertMany(r.Context(), tx, list)
		})
		if err != nil {
			logger.Error("plan not stored", zap.String("user_id", uid), zap.Error(err))
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		env := analytics.FromRequest(r)
		env.UserID = uid
		rec.Record(r.Context(), env, analytics.EventPlanCreated, map[string]any{
			"goal_id":        goal.ID,
			"task_count":     len(list),
			"available_time": body.AvailableTime,
			"goal_len":       len(body.Goal),
		}, analytics.SourceEventKeyFromRequest(r))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(PlanResponse{Status: "success", Goal: goal, Tasks: list})
	}
}

// GetGoalHandler: GET /goal
func GetGoalHandler(d db.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		g, err := Active(r.Context(), d, uid)
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "no goal", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(g)
	}
}

// ResetGoalHandler: POST /goal/reset
// Deactivates the current goal. Its tasks and their verification history stay.
func ResetGoalHandler(d db.Runner, rec *analytics.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		n, err := Deactivate(r.Context(), d, uid)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		env := analytics.FromRequest(r)
		env.UserID = uid
		rec.Record(r.Context(), env, analytics.EventGoalReset, map[string]any{
			"goals_deactivated": n,
		}, analytics.SourceEventKeyFromRequest(r))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":                true,
			"goals_deactivated": n,
		})
	}
}

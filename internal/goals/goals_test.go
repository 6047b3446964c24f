package goals

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kryta-backend/internal/ai"
	"kryta-backend/internal/analytics"
	"kryta-backend/internal/auth"
	"kryta-backend/internal/db"
	"kryta-backend/internal/db/dbtest"
	"kryta-backend/internal/tasks"
	"kryta-backend/internal/users"
)

type stubPlanner struct {
	reply   string
	err     error
	goal    string
	minutes int
	profile ai.Profile
}

func (s *stubPlanner) Plan(_ context.Context, goal string, minutes int, profile ai.Profile) (string, error) {
	s.goal, s.minutes, s.profile = goal, minutes, profile
	return s.reply, s.err
}

func TestParsePlan(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		titles []string
	}{
		{"object with tasks", `{"tasks":[{"title":"Outline"},{"title":"Draft"}]}`, []string{"Outline", "Draft"}},
		{"bare list", `[{"title":"Outline"}]`, []string{"Outline"}},
		{"other list key", `{"note":"x","steps":[{"title":"Stretch"}]}`, []string{"Stretch"}},
		{"fenced", "Here you go:\n```json\n{\"tasks\":[{\"title\":\"Read\"}]}\n```", []string{"Read"}},
		{"missing title gets default", `{"tasks":[{"estimated_minutes":5}]}`, []string{tasks.DefaultTitle}},
		{"invalid entries dropped", `{"tasks":[{"title":"Too long","estimated_minutes":500},"junk",{"title":"Ok"}]}`, []string{"Ok"}},
		{"empty tasks", `{"tasks":[]}`, nil},
		{"no list", `{"message":"cannot help"}`, nil},
		{"prose", "I could not plan that.", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePlan(tt.raw, "u1", nil)
			var titles []string
			for _, task := range got {
				titles = append(titles, task.Title)
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}

func TestParsePlan_Defaults(t *testing.T) {
	got := ParsePlan(`[{"title":"Write intro","estimated_time":"15","priority":3,"is_urgent":true},{}]`, "u1", nil)
	require.Len(t, got, 2)

	assert.Equal(t, 15, got[0].EstimatedMinutes)
	assert.Equal(t, 3, got[0].Priority)
	assert.True(t, got[0].IsUrgent)
	assert.Equal(t, 1, got[0].StepOrder)
	assert.Equal(t, "u1", got[0].UserID)

	assert.Equal(t, tasks.DefaultTitle, got[1].Title)
	assert.Equal(t, tasks.DefaultEstimatedMinutes, got[1].EstimatedMinutes)
	assert.Equal(t, tasks.DefaultSuccessCriteria, got[1].SuccessCriteria)
	assert.Equal(t, tasks.DefaultMinimumViableDone, got[1].MinimumViableDone)
	assert.Equal(t, 2, got[1].StepOrder)
}

func setup(t *testing.T) (*db.DB, *users.User) {
	t.Helper()
	d := dbtest.New(t)
	u, err := users.EnsureLocal(context.Background(), d)
	require.NoError(t, err)
	return d, u
}

func call(h http.HandlerFunc, method, body, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req = req.WithContext(auth.WithUserID(req.Context(), userID))
	rr := httptest.NewRecorder()
	h(rr, req)
	return rr
}

func TestPlanHandler(t *testing.T) {
	d, u := setup(t)
	ctx := context.Background()
	logger := zap.NewNop()
	rec := analytics.NewRecorder(d, nil, logger)

	planner := &stubPlanner{reply: `{"tasks":[{"title":"Outline","estimated_minutes":10},{"title":"Draft","estimated_minutes":20}]}`}
	h := PlanHandler(d, planner, rec, logger)

	rr := call(h, http.MethodPost, `{"goal":"Write a blog post","available_time":60}`, u.ID)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Write a blog post", planner.goal)
	assert.Equal(t, 60, planner.minutes)
	assert.Equal(t, users.LocalUserName, planner.profile.Name)

	var first PlanResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &first))
	assert.Equal(t, "success", first.Status)
	require.Len(t, first.Tasks, 2)

	stored, err := tasks.List(ctx, d, u.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, task := range stored {
		assert.Equal(t, tasks.StatusPending, task.Status)
		require.NotNil(t, task.GoalID)
		assert.Equal(t, first.Goal.ID, *task.GoalID)
	}

	// a second plan replaces the active goal
	rr = call(h, http.MethodPost, `{"goal":"Clean the garage","available_time":30}`, u.ID)
	require.Equal(t, http.StatusOK, rr.Code)

	active, err := Active(ctx, d, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Clean the garage", active.Title)

	var n int
	require.NoError(t, d.QueryRowContext(ctx, `SELECT COUNT(*) FROM goals WHERE user_id = ? AND is_active = ?`, u.ID, true).Scan(&n))
	assert.Equal(t, 1, n)
	require.NoError(t, d.QueryRowContext(ctx, `SELECT COUNT(*) FROM analytics_events WHERE event_name = ?`, analytics.EventPlanCreated).Scan(&n))
	assert.Equal(t, 2, n)
}

func TestPlanHandler_NoTasks(t *testing.T) {
	d, u := setup(t)
	logger := zap.NewNop()

	for name, planner := range map[string]*stubPlanner{
		"unusable reply": {reply: "Sorry, I can't plan that."},
		"planner error":  {err: errors.New("timeout")},
	} {
		t.Run(name, func(t *testing.T) {
			rr := call(PlanHandler(d, planner, nil, logger), http.MethodPost, `{"goal":"Learn piano","available_time":45}`, u.ID)
			assert.Equal(t, http.StatusBadGateway, rr.Code)
			assert.JSONEq(t, `{"status":"error","message":"No tasks generated"}`, rr.Body.String())
		})
	}

	_, err := Active(context.Background(), d, u.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPlanHandler_Validation(t *testing.T) {
	d, u := setup(t)
	h := PlanHandler(d, &stubPlanner{}, nil, zap.NewNop())

	for _, body := range []string{`{`, `{"goal":"  ","available_time":30}`, `{"goal":"Run","available_time":0}`} {
		assert.Equal(t, http.StatusBadRequest, call(h, http.MethodPost, body, u.ID).Code, body)
	}
}

func TestGetAndResetGoal(t *testing.T) {
	d, u := setup(t)
	ctx := context.Background()

	assert.Equal(t, http.StatusNotFound, call(GetGoalHandler(d), http.MethodGet, "", u.ID).Code)

	require.NoError(t, Insert(ctx, d, &Goal{UserID: u.ID, Title: "Ship v1", AvailableMinutes: 90}))

	rr := call(GetGoalHandler(d), http.MethodGet, "", u.ID)
	require.Equal(t, http.StatusOK, rr.Code)
	var g Goal
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &g))
	assert.Equal(t, "Ship v1", g.Title)
	assert.Equal(t, 90, g.AvailableMinutes)
	assert.True(t, g.IsActive)

	rr = call(ResetGoalHandler(d, nil), http.MethodPost, "", u.ID)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true,"goals_deactivated":1}`, rr.Body.String())

	assert.Equal(t, http.StatusNotFound, call(GetGoalHandler(d), http.MethodGet, "", u.ID).Code)
}

package goals

import (
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"kryta-backend/internal/ai"
	"kryta-backend/internal/tasks"
)

var validate = validator.New()

// draft is one planner task after defaults were applied.
type draft struct {
	Title             string `validate:"required,max=200"`
	EstimatedMinutes  int    `validate:"min=1,max=240"`
	SuccessCriteria   string `validate:"max=1000"`
	MinimumViableDone string `validate:"max=1000"`
	ProofInstruction  string `validate:"max=1000"`
	Priority          int    `validate:"min=0,max=10"`
	IsUrgent          bool
}

// ParsePlan reads planner output into ordered tasks for userID.
// Accepted shapes: a JSON list, an object with "tasks", or an object with any
// non-empty list value. Entries that fail validation are dropped.
func ParsePlan(raw, userID string, goalID *string) []*tasks.Task {
	v, err := ai.ExtractValue(raw)
	if err != nil {
		return nil
	}

	var out []*tasks.Task
	for _, item := range planItems(v) {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		d := newDraft(obj)
		if err := validate.Struct(d); err != nil {
			continue
		}
		out = append(out, &tasks.Task{
			UserID:            userID,
			GoalID:            goalID,
			Title:             d.Title,
			EstimatedMinutes:  d.EstimatedMinutes,
			SuccessCriteria:   d.SuccessCriteria,
			MinimumViableDone: d.MinimumViableDone,
			ProofInstruction:  d.ProofInstruction,
			Priority:          d.Priority,
			IsUrgent:          d.IsUrgent,
			StepOrder:         len(out) + 1,
		})
	}
	return out
}

func planItems(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		if list, ok := t["tasks"].([]any); ok {
			return list
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if list, ok := t[k].([]any); ok && len(list) > 0 {
				return list
			}
		}
	}
	return nil
}

func newDraft(obj map[string]any) draft {
	d := draft{
		Title:             tasks.DefaultTitle,
		EstimatedMinutes:  tasks.DefaultEstimatedMinutes,
		SuccessCriteria:   tasks.DefaultSuccessCriteria,
		MinimumViableDone: tasks.DefaultMinimumViableDone,
	}

	if s, ok := ai.String(obj, "title", "name", "task"); ok && strings.TrimSpace(s) != "" {
		d.Title = strings.TrimSpace(s)
	}
	if n, ok := ai.Int(obj, "estimated_minutes", "estimated_time", "minutes", "duration"); ok {
		d.EstimatedMinutes = n
	}
	if s, ok := ai.String(obj, "success_criteria"); ok && strings.TrimSpace(s) != "" {
		d.SuccessCriteria = strings.TrimSpace(s)
	}
	if s, ok := ai.String(obj, "minimum_viable_done"); ok && strings.TrimSpace(s) != "" {
		d.MinimumViableDone = strings.TrimSpace(s)
	}
	d.ProofInstruction, _ = ai.String(obj, "proof_instruction")
	if n, ok := ai.Int(obj, "priority"); ok && n >= 0 && n <= 10 {
		d.Priority = n
	}
	d.IsUrgent, _ = obj["is_urgent"].(bool)
	return d
}

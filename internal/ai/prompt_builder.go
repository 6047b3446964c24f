package ai

import (
	"encoding/json"
	"strings"
)

// BuildSystemPrompt appends the role context as a CONTEXT: {json} block.
func BuildSystemPrompt(rolePrompt string, context map[string]any) string {
	var b strings.Builder

	b.WriteString(strings.TrimSpace(rolePrompt))
	b.WriteString("\n\nCONTEXT: ")

	if len(context) == 0 {
		b.WriteString("{}")
		return b.String()
	}

	raw, err := json.Marshal(context)
	if err != nil {
		// context values are plain strings, numbers and string lists
		b.WriteString("{}")
		return b.String()
	}
	b.Write(raw)

	return b.String()
}

// Profile is the planning context taken from the user's onboarding answers.
type Profile struct {
	Name      string
	WorkHours string
	CoreGoals string
	BadHabits string
}

func (p Profile) contextMap() map[string]any {
	out := map[string]any{}
	if p.Name != "" {
		out["name"] = p.Name
	}
	if p.WorkHours != "" {
		out["work_hours"] = p.WorkHours
	}
	if p.CoreGoals != "" {
		out["core_goals"] = p.CoreGoals
	}
	if p.BadHabits != "" {
		out["bad_habits"] = p.BadHabits
	}
	return out
}

package ai

import (
	"context"
	"fmt"
	"strings"
)

// Completer is what the role agents need from Client.
type Completer interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Each agent returns the raw model reply. Callers own normalization.

// -----------------------------------------------------------------------------
// Verifier
// -----------------------------------------------------------------------------

type Verifier struct {
	llm Completer
}

func NewVerifier(llm Completer) *Verifier { return &Verifier{llm: llm} }

func (v *Verifier) JudgeText(ctx context.Context, title, criteria, proof string) (string, error) {
	return v.llm.Complete(ctx, Prompt{
		System: BuildSystemPrompt(verifierSystemPrompt, verifierContext(title, criteria, proof)),
		User:   "Verify this work: " + proof,
	})
}

func (v *Verifier) JudgeImage(ctx context.Context, title, criteria, proof string, img *Image) (string, error) {
	if img == nil {
		return v.JudgeText(ctx, title, criteria, proof)
	}
	return v.llm.Complete(ctx, Prompt{
		System: BuildSystemPrompt(verifierSystemPrompt+verifierImageInstruction, verifierContext(title, criteria, proof)),
		User:   "Verify this work (image attached): " + proof,
		Image:  img,
	})
}

func verifierContext(title, criteria, proof string) map[string]any {
	return map[string]any{
		"task_title":          title,
		"required_criteria":   criteria,
		"user_provided_proof": proof,
	}
}

// -----------------------------------------------------------------------------
// Motivator
// -----------------------------------------------------------------------------

type Motivator struct {
	llm Completer
}

func NewMotivator(llm Completer) *Motivator { return &Motivator{llm: llm} }

func (m *Motivator) Reward(ctx context.Context, title string, minutes, quality, streak int) (string, error) {
	return m.llm.Complete(ctx, Prompt{
		System: BuildSystemPrompt(motivatorSystemPrompt, map[string]any{
			"task":               title,
			"difficulty_minutes": minutes,
			"quality_score":      quality,
			"current_streak":     streak,
		}),
		User: "Task completed successfully. Calculate rewards.",
	})
}

// -----------------------------------------------------------------------------
// Planner
// -----------------------------------------------------------------------------

type Planner struct {
	llm Completer
}

func NewPlanner(llm Completer) *Planner { return &Planner{llm: llm} }

func (p *Planner) Plan(ctx context.Context, goal string, availableMinutes int, profile Profile) (string, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return "", fmt.Errorf("empty goal")
	}

	planCtx := map[string]any{
		"available_minutes": availableMinutes,
		"rules":             planRules,
	}
	if prof := profile.contextMap(); len(prof) > 0 {
		planCtx["user_profile"] = prof
	}

	return p.llm.Complete(ctx, Prompt{
		System: BuildSystemPrompt(plannerSystemPrompt, planCtx),
		User:   goal,
	})
}

// -----------------------------------------------------------------------------
// Reflector
// -----------------------------------------------------------------------------

type Reflector struct {
	llm Completer
}

func NewReflector(llm Completer) *Reflector { return &Reflector{llm: llm} }

func (r *Reflector) Debrief(ctx context.Context, userName, history string, trustScore int) (string, error) {
	return r.llm.Complete(ctx, Prompt{
		System: BuildSystemPrompt(reflectorSystemPrompt, map[string]any{
			"user":        userName,
			"history":     history,
			"trust_score": trustScore,
			"rules":       debriefRules,
		}),
		User: fmt.Sprintf("Generate weekly tactical debrief for Operator %s.", userName),
	})
}

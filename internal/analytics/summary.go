package analytics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"kryta-backend/internal/ai"
	"kryta-backend/internal/db"
)

const SummaryWindowDays = 7

type Stats struct {
	TotalCompleted int `json:"total_completed"`
	TotalPartial   int `json:"total_partial"`
	TotalFailed    int `json:"total_failed"`
	TotalAttempts  int `json:"total_attempts"`
	XPGained       int `json:"xp_gained"`
	Lockouts       int `json:"lockouts"`
	TasksCreated   int `json:"tasks_created"`
	CompletionRate int `json:"completion_rate"`
	TrustScore     int `json:"trust_score"`
}

type Day struct {
	Date    string `json:"date"`
	Passed  int    `json:"passed"`
	Partial int    `json:"partial"`
	Failed  int    `json:"failed"`
}

type Summary struct {
	Since time.Time `json:"since"`
	Stats Stats     `json:"stats"`
	Daily []Day     `json:"daily"`
}

// TrustScore is the pass share of all verification attempts, 100 with no history.
func TrustScore(passes, total int) int {
	if total <= 0 {
		return 100
	}
	return passes * 100 / total
}

// Summarize aggregates the last SummaryWindowDays of verification history (UTC days).
func Summarize(ctx context.Context, r db.Runner, userID string, now time.Time) (*Summary, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	since := today.AddDate(0, 0, -(SummaryWindowDays - 1))

	s := &Summary{Since: since, Daily: make([]Day, SummaryWindowDays)}
	index := map[string]int{}
	for i := range s.Daily {
		date := since.AddDate(0, 0, i).Format(time.DateOnly)
		s.Daily[i].Date = date
		index[date] = i
	}

	rows, err := r.QueryContext(ctx, `
		SELECT verdict, xp_awarded, lockout_triggered, created_at
		FROM verification_events
		WHERE user_id = ? AND created_at >= ?
	`, userID, since)
	if err != nil {
		return nil, fmt.Errorf("query verification events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			verdict string
			xp      int
			locked  bool
			at      time.Time
		)
		if err := rows.Scan(&verdict, &xp, &locked, &at); err != nil {
			return nil, err
		}

		s.Stats.TotalAttempts++
		s.Stats.XPGained += xp
		if locked {
			s.Stats.Lockouts++
		}

		i, ok := index[at.UTC().Format(time.DateOnly)]
		switch verdict {
		case "pass":
			s.Stats.TotalCompleted++
			if ok {
				s.Daily[i].Passed++
			}
		case "partial":
			s.Stats.TotalPartial++
			if ok {
				s.Daily[i].Partial++
			}
		default:
			s.Stats.TotalFailed++
			if ok {
				s.Daily[i].Failed++
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var created, completed int
	err = r.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0)
		FROM tasks
		WHERE user_id = ? AND created_at >= ?
	`, userID, since).Scan(&created, &completed)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	s.Stats.TasksCreated = created
	if created > 0 {
		s.Stats.CompletionRate = completed * 100 / created
	}
	s.Stats.TrustScore = TrustScore(s.Stats.TotalCompleted, s.Stats.TotalAttempts)
	return s, nil
}

// HistoryText renders the summary as plain text for the reflector.
func (s *Summary) HistoryText() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Last %d days: %d completed, %d partial, %d failed (%d attempts), %d lockouts, %d xp.\n",
		SummaryWindowDays, s.Stats.TotalCompleted, s.Stats.TotalPartial, s.Stats.TotalFailed,
		s.Stats.TotalAttempts, s.Stats.Lockouts, s.Stats.XPGained)

	for _, d := range s.Daily {
		fmt.Fprintf(&b, "%s: %d pass, %d partial, %d fail\n", d.Date, d.Passed, d.Partial, d.Failed)
	}
	return b.String()
}

// -----------------------------------------------------------------------------
// Debrief
// -----------------------------------------------------------------------------

var ErrEmptyDebrief = errors.New("reflector returned no debrief")

type Debrief struct {
	Headline       string `json:"headline"`
	Analysis       string `json:"analysis"`
	TrustComment   string `json:"trust_comment"`
	Recommendation string `json:"recommendation"`
}

// ParseDebrief normalizes a reflector reply.
func ParseDebrief(raw string) (*Debrief, error) {
	obj, err := ai.ExtractObject(raw)
	if err != nil {
		return nil, err
	}

	d := &Debrief{}
	d.Headline, _ = ai.String(obj, "headline", "title")
	d.Analysis, _ = ai.String(obj, "analysis", "summary", "debrief")
	d.TrustComment, _ = ai.String(obj, "trust_comment", "trust")
	d.Recommendation, _ = ai.String(obj, "recommendation", "strategy")

	if d.Headline == "" && d.Analysis == "" && d.Recommendation == "" {
		return nil, ErrEmptyDebrief
	}
	return d, nil
}

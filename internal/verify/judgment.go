package verify

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"kryta-backend/internal/ai"
)

type Verdict string

const (
	VerdictPass    Verdict = "pass"
	VerdictPartial Verdict = "partial"
	VerdictRetry   Verdict = "retry"
)

// FallbackReason is what the user sees when the judgment could not be obtained or read.
const FallbackReason = "Verification analysis failed. Please resubmit your proof."

// Judgment is the normalized verifier reply. Verdict is always one of the three values.
type Judgment struct {
	Verdict      Verdict `json:"verdict"`
	Reason       string  `json:"reason"`
	QualityScore int     `json:"quality_score"`
}

func FallbackJudgment() Judgment {
	return Judgment{Verdict: VerdictRetry, Reason: FallbackReason, QualityScore: 0}
}

// ParseJudgment normalizes a raw verifier reply. It never fails: anything unreadable
// becomes FallbackJudgment.
func ParseJudgment(raw string) Judgment {
	j, err := parseJudgment(raw)
	if err != nil {
		return FallbackJudgment()
	}
	return j
}

func parseJudgment(raw string) (Judgment, error) {
	obj, err := ai.ExtractObject(raw)
	if err != nil {
		return Judgment{}, err
	}

	j := Judgment{Verdict: VerdictRetry}

	if v, ok := ai.String(obj, "verdict", "status"); ok {
		j.Verdict = normalizeVerdict(v)
	}
	j.Reason, _ = ai.String(obj, "reason", "feedback", "explanation")
	if q, ok := ai.Int(obj, "quality_score", "quality", "score"); ok && q > 0 {
		j.QualityScore = q
	}
	return j, nil
}

func normalizeVerdict(v string) Verdict {
	switch Verdict(strings.ToLower(strings.TrimSpace(v))) {
	case VerdictPass:
		return VerdictPass
	case VerdictPartial:
		return VerdictPartial
	default:
		return VerdictRetry
	}
}

// Judge is the verifier collaborator. It returns the raw model reply.
type Judge interface {
	JudgeText(ctx context.Context, title, criteria, proof string) (string, error)
	JudgeImage(ctx context.Context, title, criteria, proof string, img *ai.Image) (string, error)
}

// Adapter calls the Judge under a timeout and normalizes its reply.
// Transport errors, timeouts and unreadable replies all become FallbackJudgment.
type Adapter struct {
	judge   Judge
	timeout time.Duration
	logger  *zap.Logger
}

func NewAdapter(judge Judge, timeout time.Duration, logger *zap.Logger) *Adapter {
	return &Adapter{judge: judge, timeout: timeout, logger: logger}
}

type Proof struct {
	Text  string
	Image *ai.Image
}

func (a *Adapter) Judge(ctx context.Context, title, criteria string, proof Proof) Judgment {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	var (
		raw string
		err error
	)
	if proof.Image != nil {
		raw, err = a.judge.JudgeImage(ctx, title, criteria, proof.Text, proof.Image)
	} else {
		raw, err = a.judge.JudgeText(ctx, title, criteria, proof.Text)
	}
	if err != nil {
		a.logger.Warn("judgment unavailable, using fallback verdict", zap.Error(err))
		return FallbackJudgment()
	}

	j, err := parseJudgment(raw)
	if err != nil {
		a.logger.Warn("judgment reply unreadable, using fallback verdict", zap.Int("reply_len", len(raw)))
		return FallbackJudgment()
	}
	return j
}

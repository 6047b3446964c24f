package verify

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"kryta-backend/internal/ai"
	"kryta-backend/internal/analytics"
	"kryta-backend/internal/auth"
	"kryta-backend/internal/tasks"
	"kryta-backend/internal/users"
)

// maxProofBytes bounds the request body; images arrive base64-encoded inside it.
const maxProofBytes = 10 << 20

var validate = validator.New()

type Request struct {
	TaskID       string `json:"task_id" validate:"required,max=64"`
	ProofContent string `json:"proof_content" validate:"max=5000"`
	ProofImage   string `json:"proof_image"`
}

type verificationBody struct {
	Verdict      Verdict `json:"verdict"`
	Reason       string  `json:"reason"`
	QualityScore int     `json:"quality_score"`
}

type rewardBody struct {
	XPGained      int    `json:"xp_gained"`
	Message       string `json:"message"`
	TotalUserXP   int    `json:"total_user_xp"`
	CurrentStreak int    `json:"current_streak"`
}

type Response struct {
	Status           OutcomeStatus    `json:"status"`
	TaskStatus       tasks.Status     `json:"task_status"`
	Verification     verificationBody `json:"verification"`
	Reward           *rewardBody      `json:"reward"`
	Task             tasks.Task       `json:"task"`
	LockoutTriggered bool             `json:"lockout_triggered"`
	MinutesRemaining int              `json:"minutes_remaining"`
}

func newResponse(res *Result) Response {
	out := res.Outcome
	resp := Response{
		Status:     out.Status,
		TaskStatus: res.Task.Status,
		Verification: verificationBody{
			Verdict:      out.Verdict,
			Reason:       out.Reason,
			QualityScore: out.QualityScore,
		},
		Task:             res.Task,
		LockoutTriggered: out.LockoutTriggered,
		MinutesRemaining: out.MinutesRemaining,
	}
	if out.Reward != nil {
		resp.Reward = &rewardBody{
			XPGained:      out.Reward.XPAwarded,
			Message:       out.Reward.Message,
			TotalUserXP:   res.User.XP,
			CurrentStreak: res.User.Streak,
		}
	}
	return resp
}

// VerifyHandler: POST /verify
func VerifyHandler(svc *Service, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxProofBytes)

		var body Request
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				http.Error(w, "proof too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		body.TaskID = strings.TrimSpace(body.TaskID)
		if err := validate.Struct(body); err != nil {
			http.Error(w, "task_id required", http.StatusBadRequest)
			return
		}

		img, err := ai.DecodeImage(body.ProofImage)
		if err != nil {
			http.Error(w, "invalid proof_image", http.StatusBadRequest)
			return
		}
		if strings.TrimSpace(body.ProofContent) == "" && img == nil {
			http.Error(w, "proof_content or proof_image required", http.StatusBadRequest)
			return
		}

		res, err := svc.Verify(r.Context(), uid, body.TaskID, Proof{Text: body.ProofContent, Image: img}, analytics.FromRequest(r))
		switch {
		case err == nil:
		case errors.Is(err, tasks.ErrNotFound), errors.Is(err, users.ErrNotFound):
			http.Error(w, "task not found", http.StatusNotFound)
			return
		case errors.Is(err, ErrTaskCompleted):
			http.Error(w, "task already completed", http.StatusConflict)
			return
		case IsConflict(err):
			http.Error(w, "verification conflict, retry", http.StatusConflict)
			return
		case r.Context().Err() != nil:
			// client went away while waiting for the user's lock
			return
		default:
			logger.Error("verification failed", zap.String("user_id", uid), zap.String("task_id", body.TaskID), zap.Error(err))
			http.Error(w, "verification failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(newResponse(res))
	}
}

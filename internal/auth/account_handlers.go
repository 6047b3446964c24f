package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"kryta-backend/internal/db"
	"kryta-backend/internal/users"
)

// Onboard: POST /user/onboard. Profile fields only; the ledger is never touched here.
func (h Handlers) Onboard() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body users.Profile
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		body.Name = strings.TrimSpace(body.Name)
		if err := validate.Struct(body); err != nil {
			http.Error(w, "name required", http.StatusBadRequest)
			return
		}

		err := users.UpdateProfile(r.Context(), h.DB, uid, body)
		if errors.Is(err, users.ErrNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		u, err := users.Get(r.Context(), h.DB, uid)
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "success",
			"user":   u,
		})
	}
}

func LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// stateless JWT: the client drops the token
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
		})
	}
}

// DeleteAccount removes the caller and everything they own in one transaction.
func (h Handlers) DeleteAccount() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		// children first so the order also holds without ON DELETE CASCADE
		statements := []string{
			`DELETE FROM verification_events WHERE user_id = ?`,
			`DELETE FROM tasks WHERE user_id = ?`,
			`DELETE FROM goals WHERE user_id = ?`,
			`DELETE FROM analytics_events WHERE user_id = ?`,
			`DELETE FROM users WHERE id = ?`,
		}

		err := h.DB.WithTx(r.Context(), func(tx *db.Tx) error {
			for _, stmt := range statements {
				if _, err := tx.ExecContext(r.Context(), stmt, uid); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			h.Logger.Error("delete account failed", zap.String("user_id", uid), zap.Error(err))
			http.Error(w, "delete account failed", http.StatusInternalServerError)
			return
		}

		h.Logger.Info("account deleted", zap.String("user_id", uid))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
		})
	}
}

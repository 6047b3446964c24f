package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"kryta-backend/internal/db"
	"kryta-backend/internal/users"
)

var validate = validator.New()

type credentials struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name" validate:"max=100"`
}

// Handlers serves account endpoints.
type Handlers struct {
	DB       *db.DB
	Secret   []byte
	TokenTTL time.Duration
	Logger   *zap.Logger
}

func (h Handlers) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body credentials
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		body.Email = strings.TrimSpace(body.Email)
		if err := validate.Struct(body); err != nil {
			http.Error(w, "email & password (8+ chars) required", http.StatusBadRequest)
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "hash failed", http.StatusInternalServerError)
			return
		}

		name := strings.TrimSpace(body.Name)
		if name == "" {
			name, _, _ = strings.Cut(body.Email, "@")
		}

		u := &users.User{Name: name, Email: body.Email, PasswordHash: string(hash)}
		err = users.Create(r.Context(), h.DB, u)
		if errors.Is(err, users.ErrEmailTaken) {
			http.Error(w, "user exists", http.StatusConflict)
			return
		}
		if err != nil {
			h.Logger.Error("register failed", zap.Error(err))
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		h.writeToken(w, u.ID)
	}
}

func (h Handlers) Login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body credentials
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		u, err := users.GetByEmail(r.Context(), h.DB, body.Email)
		if err != nil || u.PasswordHash == "" {
			http.Error(w, "invalid login", http.StatusUnauthorized)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(body.Password)) != nil {
			http.Error(w, "invalid login", http.StatusUnauthorized)
			return
		}

		h.writeToken(w, u.ID)
	}
}

func (h Handlers) writeToken(w http.ResponseWriter, userID string) {
	token, err := GenerateToken(h.Secret, userID, h.TokenTTL)
	if err != nil {
		http.Error(w, "token failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"user_id": userID,
		"token":   token,
	})
}

func (h Handlers) Me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		u, err := users.Get(r.Context(), h.DB, uid)
		if errors.Is(err, users.ErrNotFound) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(u)
	}
}

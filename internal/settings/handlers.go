package settings

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var validate = validator.New()

type setKeyRequest struct {
	APIKey string `json:"api_key" validate:"max=512"`
}

// KeyStatus never carries the key itself.
type KeyStatus struct {
	Configured bool   `json:"configured"`
	Source     string `json:"source"`
}

func keyStatus(stored, configKey string) KeyStatus {
	switch {
	case stored != "":
		return KeyStatus{Configured: true, Source: "settings"}
	case configKey != "":
		return KeyStatus{Configured: true, Source: "config"}
	default:
		return KeyStatus{Configured: false, Source: "none"}
	}
}

// KeyStatusHandler: GET /settings/key
func KeyStatusHandler(store *Store, configKey string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stored, err := store.LLMAPIKey(r.Context())
		if err != nil {
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(keyStatus(stored, configKey))
	}
}

// SetKeyHandler: POST /settings/key. An empty api_key removes the stored key.
func SetKeyHandler(store *Store, configKey string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body setKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		body.APIKey = strings.TrimSpace(body.APIKey)
		if err := validate.Struct(body); err != nil {
			http.Error(w, "api_key too long", http.StatusBadRequest)
			return
		}

		var err error
		if body.APIKey == "" {
			err = store.Delete(r.Context(), KeyLLMAPIKey)
		} else {
			err = store.Set(r.Context(), KeyLLMAPIKey, body.APIKey)
		}
		if err != nil {
			logger.Error("api key not saved", zap.Error(err))
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		logger.Info("llm api key updated", zap.Bool("cleared", body.APIKey == ""))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(keyStatus(body.APIKey, configKey))
	}
}

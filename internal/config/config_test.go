package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, "kryta.db", cfg.DSN())
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, 30*time.Second, cfg.JudgmentTimeout)
	assert.Equal(t, 15*time.Second, cfg.RewardTimeout)
	assert.True(t, cfg.LocalMode)
	assert.Equal(t, 6, cfg.VerifyPerMinute)
	assert.Equal(t, 3, cfg.VerifyBurst)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("KRYTA_HTTP_ADDR", ":9090")
	t.Setenv("KRYTA_LLM_PROVIDER", "Anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "  sk-ant-test ")
	t.Setenv("KRYTA_VERIFY_JUDGMENT_TIMEOUT", "5s")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, "sk-ant-test", cfg.LLMAPIKey)
	assert.Equal(t, 5*time.Second, cfg.JudgmentTimeout)
}

func TestLoad_PostgresConnString(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("KRYTA_DB_DRIVER", "postgres")
	t.Setenv("KRYTA_DB_HOST", "localhost")
	t.Setenv("KRYTA_DB_USER", "kryta")
	t.Setenv("KRYTA_DB_PASSWORD", "secret")
	t.Setenv("KRYTA_DB_NAME", "kryta")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "host=localhost port=5432 user=kryta password=secret dbname=kryta sslmode=disable", cfg.DSN())
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "kryta.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm:\n  provider: ollama\n  model: llama3.2\nrate:\n  burst: 10\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.LLMProvider)
	assert.Equal(t, "llama3.2", cfg.LLMModel)
	assert.Equal(t, 10, cfg.VerifyBurst)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "unknown driver", env: map[string]string{"KRYTA_DB_DRIVER": "mysql"}},
		{name: "unknown provider", env: map[string]string{"KRYTA_LLM_PROVIDER": "groq"}},
		{name: "zero judgment timeout", env: map[string]string{"KRYTA_VERIFY_JUDGMENT_TIMEOUT": "0s"}},
		{name: "remote mode without secret", env: map[string]string{"KRYTA_AUTH_LOCAL_MODE": "false"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load("")
			assert.Error(t, err)
		})
	}
}

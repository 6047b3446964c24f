package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

const (
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"

	DefaultOllamaURL = "http://localhost:11434"
)

// ErrNoAPIKey is returned when the provider needs a key and neither settings nor config has one.
var ErrNoAPIKey = errors.New("API key missing, set it in settings")

type Config struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}

// DefaultModel returns the chat model used when llm.model is not set.
func DefaultModel(provider string) string {
	switch provider {
	case ProviderOllama:
		return "llama3.2-vision"
	case ProviderAnthropic:
		return "claude-3-5-haiku-latest"
	case ProviderGemini:
		return "gemini-2.0-flash"
	default:
		return "gpt-4o-mini"
	}
}

// NewChatModel builds the eino chat model for the configured provider.
func NewChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = DefaultModel(cfg.Provider)
	}
	var temperature float32

	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, ErrNoAPIKey
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey:      cfg.APIKey,
			Model:       modelName,
			BaseURL:     cfg.BaseURL,
			Temperature: &temperature,
		})

	case ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOllamaURL
		}
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: baseURL,
			Model:   modelName,
		})

	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, ErrNoAPIKey
		}
		claudeCfg := &claude.Config{
			APIKey:      cfg.APIKey,
			Model:       modelName,
			MaxTokens:   1024,
			Temperature: &temperature,
		}
		if cfg.BaseURL != "" {
			claudeCfg.BaseURL = &cfg.BaseURL
		}
		return claude.NewChatModel(ctx, claudeCfg)

	case ProviderGemini:
		if cfg.APIKey == "" {
			return nil, ErrNoAPIKey
		}
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini client: %w", err)
		}
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client:      client,
			Model:       modelName,
			Temperature: &temperature,
		})

	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

// KeySource returns a user-provided API key, or "" to fall back to config.
type KeySource func(ctx context.Context) (string, error)

// ModelFactory is swapped out in tests.
type ModelFactory func(ctx context.Context, cfg Config) (model.BaseChatModel, error)

// Client sends role prompts to the configured chat model.
// The key is resolved per call so a key saved through settings takes effect without a restart.
type Client struct {
	cfg     Config
	keys    KeySource
	factory ModelFactory

	mu       sync.Mutex
	model    model.BaseChatModel
	modelKey string
}

func New(cfg Config, keys KeySource) *Client {
	return NewWithFactory(cfg, keys, NewChatModel)
}

func NewWithFactory(cfg Config, keys KeySource, factory ModelFactory) *Client {
	return &Client{cfg: cfg, keys: keys, factory: factory}
}

// Provider reports the configured provider name.
func (c *Client) Provider() string { return c.cfg.Provider }

// Image is a proof artifact attached to a prompt.
type Image struct {
	Data     []byte
	MIMEType string
}

// DecodeImage accepts raw base64 or a data: URL.
func DecodeImage(encoded string) (*Image, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}

	mimeType := ""
	if strings.HasPrefix(encoded, "data:") {
		header, payload, ok := strings.Cut(encoded, ",")
		if !ok {
			return nil, fmt.Errorf("malformed data URL")
		}
		mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		encoded = payload
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode base64 image: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}

	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return &Image{Data: data, MIMEType: mimeType}, nil
}

func (img *Image) dataURL() string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

type Prompt struct {
	System string
	User   string
	Image  *Image
}

// Complete runs one system+user exchange and returns the raw reply text.
func (c *Client) Complete(ctx context.Context, p Prompt) (string, error) {
	chatModel, err := c.chatModel(ctx)
	if err != nil {
		return "", err
	}

	messages := []*schema.Message{
		schema.SystemMessage(p.System),
		userMessage(p),
	}

	out, err := chatModel.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if out == nil {
		return "", fmt.Errorf("generate: empty reply")
	}
	return out.Content, nil
}

func userMessage(p Prompt) *schema.Message {
	if p.Image == nil {
		return schema.UserMessage(p.User)
	}
	return &schema.Message{
		Role: schema.User,
		MultiContent: []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: p.User},
			{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL:      p.Image.dataURL(),
					MIMEType: p.Image.MIMEType,
				},
			},
		},
	}
}

// chatModel returns the cached model, rebuilding it when the resolved key changes.
func (c *Client) chatModel(ctx context.Context) (model.BaseChatModel, error) {
	key := c.cfg.APIKey
	if c.keys != nil {
		stored, err := c.keys(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve API key: %w", err)
		}
		if stored != "" {
			key = stored
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.model != nil && c.modelKey == key {
		return c.model, nil
	}

	cfg := c.cfg
	cfg.APIKey = key
	m, err := c.factory(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.model = m
	c.modelKey = key
	return m, nil
}

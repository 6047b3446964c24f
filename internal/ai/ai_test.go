package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChatModel records the last input and replies with a fixed message.
type fakeChatModel struct {
	reply string
	err   error
	last  []*schema.Message
	calls int
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.calls++
	f.last = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func newTestClient(fake *fakeChatModel, keys KeySource, builds *[]string) *Client {
	return NewWithFactory(Config{Provider: ProviderOpenAI, APIKey: "config-key"}, keys,
		func(_ context.Context, cfg Config) (model.BaseChatModel, error) {
			if builds != nil {
				*builds = append(*builds, cfg.APIKey)
			}
			return fake, nil
		})
}

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    map[string]any
		wantErr bool
	}{
		{
			name: "plain object",
			raw:  `{"verdict":"pass","quality_score":8}`,
			want: map[string]any{"verdict": "pass", "quality_score": float64(8)},
		},
		{
			name: "fenced block",
			raw:  "Sure, here it is:\n```json\n{\"verdict\": \"partial\", \"reason\": \"half\"}\n```\nGood luck!",
			want: map[string]any{"verdict": "partial", "reason": "half"},
		},
		{
			name: "fenced block without language",
			raw:  "```\n{\"verdict\": \"retry\"}\n```",
			want: map[string]any{"verdict": "retry"},
		},
		{
			name: "prose around braces",
			raw:  `The result is {"verdict":"pass","reason":"ok"} as requested.`,
			want: map[string]any{"verdict": "pass", "reason": "ok"},
		},
		{
			name: "trailing data after valid prefix",
			raw:  `{"verdict":"pass","reason":"done"} extra } junk {`,
			want: map[string]any{"verdict": "pass", "reason": "done"},
		},
		{
			name: "two objects keeps the first",
			raw:  `{"verdict":"pass"} {"verdict":"retry"}`,
			want: map[string]any{"verdict": "pass"},
		},
		{
			name:    "no json",
			raw:     "I cannot evaluate this proof.",
			wantErr: true,
		},
		{
			name:    "broken json",
			raw:     `{"verdict": "pass", "reason": `,
			wantErr: true,
		},
		{
			name:    "empty",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractObject(tt.raw)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoJSON)
				return
			}
			require.NoError(t, err)

			// numbers may come back as float64 or json.Number depending on the strategy
			for k, v := range tt.want {
				if f, ok := v.(float64); ok {
					n, ok := Int(got, k)
					require.True(t, ok, k)
					assert.Equal(t, int(f), n)
					continue
				}
				assert.Equal(t, v, got[k], k)
			}
			assert.Len(t, got, len(tt.want))
		})
	}
}

func TestExtractValue_List(t *testing.T) {
	got, err := ExtractValue("```json\n[{\"title\":\"a\"},{\"title\":\"b\"}]\n```")
	require.NoError(t, err)

	list, ok := got.([]any)
	require.True(t, ok)
	assert.Len(t, list, 2)

	got, err = ExtractValue(`[{"title":"a"}] that's all`)
	require.NoError(t, err)
	assert.IsType(t, []any{}, got)

	got, err = ExtractValue(`Plan [v2]: {"tasks":[{"title":"a"}]}`)
	require.NoError(t, err)
	assert.IsType(t, map[string]any{}, got)

	_, err = ExtractValue("nothing here")
	assert.ErrorIs(t, err, ErrNoJSON)
}

func TestInt(t *testing.T) {
	obj := map[string]any{
		"float":  float64(7.9),
		"string": " 12 ",
		"bad":    "high",
		"bool":   true,
	}

	n, ok := Int(obj, "float")
	assert.True(t, ok)
	assert.Equal(t, 7, n)

	n, ok = Int(obj, "string")
	assert.True(t, ok)
	assert.Equal(t, 12, n)

	_, ok = Int(obj, "bad", "bool", "missing")
	assert.False(t, ok)

	n, ok = Int(obj, "missing", "string")
	assert.True(t, ok)
	assert.Equal(t, 12, n)
}

func TestDecodeImage(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n0000")
	encoded := base64.StdEncoding.EncodeToString(png)

	img, err := DecodeImage(encoded)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, png, img.Data)

	img, err = DecodeImage("data:image/jpeg;base64," + encoded)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MIMEType)

	img, err = DecodeImage("   ")
	require.NoError(t, err)
	assert.Nil(t, img)

	_, err = DecodeImage("not base64!!")
	assert.Error(t, err)

	_, err = DecodeImage("data:image/png;base64")
	assert.Error(t, err)
}

func TestClient_CompleteText(t *testing.T) {
	fake := &fakeChatModel{reply: "hello"}
	c := newTestClient(fake, nil, nil)

	out, err := c.Complete(context.Background(), Prompt{System: "sys", User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)

	require.Len(t, fake.last, 2)
	assert.Equal(t, schema.System, fake.last[0].Role)
	assert.Equal(t, "sys", fake.last[0].Content)
	assert.Equal(t, schema.User, fake.last[1].Role)
	assert.Equal(t, "hi", fake.last[1].Content)
}

func TestClient_CompleteImage(t *testing.T) {
	fake := &fakeChatModel{reply: "{}"}
	c := newTestClient(fake, nil, nil)

	img := &Image{Data: []byte{1, 2, 3}, MIMEType: "image/png"}
	_, err := c.Complete(context.Background(), Prompt{System: "sys", User: "look", Image: img})
	require.NoError(t, err)

	user := fake.last[1]
	require.Len(t, user.MultiContent, 2)
	assert.Equal(t, schema.ChatMessagePartTypeText, user.MultiContent[0].Type)
	assert.Equal(t, "look", user.MultiContent[0].Text)
	assert.Equal(t, schema.ChatMessagePartTypeImageURL, user.MultiContent[1].Type)
	require.NotNil(t, user.MultiContent[1].ImageURL)
	assert.True(t, strings.HasPrefix(user.MultiContent[1].ImageURL.URL, "data:image/png;base64,"))
}

func TestClient_KeyResolution(t *testing.T) {
	fake := &fakeChatModel{reply: "ok"}
	stored := ""
	var builds []string
	c := newTestClient(fake, func(context.Context) (string, error) { return stored, nil }, &builds)

	ctx := context.Background()
	_, err := c.Complete(ctx, Prompt{})
	require.NoError(t, err)
	_, err = c.Complete(ctx, Prompt{})
	require.NoError(t, err)
	assert.Equal(t, []string{"config-key"}, builds, "model cached while key unchanged")

	stored = "settings-key"
	_, err = c.Complete(ctx, Prompt{})
	require.NoError(t, err)
	assert.Equal(t, []string{"config-key", "settings-key"}, builds, "settings key wins and rebuilds")
}

func TestClient_Errors(t *testing.T) {
	boom := errors.New("boom")

	c := newTestClient(&fakeChatModel{err: boom}, nil, nil)
	_, err := c.Complete(context.Background(), Prompt{})
	assert.ErrorIs(t, err, boom)

	c = newTestClient(&fakeChatModel{}, func(context.Context) (string, error) { return "", boom }, nil)
	_, err = c.Complete(context.Background(), Prompt{})
	assert.ErrorIs(t, err, boom)
}

func TestNewChatModel_MissingKey(t *testing.T) {
	for _, provider := range []string{ProviderOpenAI, ProviderAnthropic, ProviderGemini} {
		_, err := NewChatModel(context.Background(), Config{Provider: provider})
		assert.ErrorIs(t, err, ErrNoAPIKey, provider)
	}

	_, err := NewChatModel(context.Background(), Config{Provider: "groq", APIKey: "x"})
	assert.Error(t, err)
}

func TestBuildSystemPrompt(t *testing.T) {
	got := BuildSystemPrompt("  ROLE  ", nil)
	assert.Equal(t, "ROLE\n\nCONTEXT: {}", got)

	got = BuildSystemPrompt("ROLE", map[string]any{"task_title": "Run"})
	assert.Equal(t, `ROLE`+"\n\n"+`CONTEXT: {"task_title":"Run"}`, got)
}

// stubCompleter captures prompts sent by the role agents.
type stubCompleter struct {
	prompts []Prompt
}

func (s *stubCompleter) Complete(_ context.Context, p Prompt) (string, error) {
	s.prompts = append(s.prompts, p)
	return "{}", nil
}

func TestAgents_Prompts(t *testing.T) {
	ctx := context.Background()
	stub := &stubCompleter{}

	_, err := NewVerifier(stub).JudgeText(ctx, "Run", "Run 1 mile", "ran it")
	require.NoError(t, err)
	assert.Contains(t, stub.prompts[0].System, `"required_criteria":"Run 1 mile"`)
	assert.Equal(t, "Verify this work: ran it", stub.prompts[0].User)
	assert.Nil(t, stub.prompts[0].Image)

	img := &Image{Data: []byte{1}, MIMEType: "image/png"}
	_, err = NewVerifier(stub).JudgeImage(ctx, "Run", "Run 1 mile", "photo", img)
	require.NoError(t, err)
	assert.Same(t, img, stub.prompts[1].Image)
	assert.Contains(t, stub.prompts[1].System, "unrelated to the task")

	_, err = NewMotivator(stub).Reward(ctx, "Run", 20, 8, 3)
	require.NoError(t, err)
	assert.Contains(t, stub.prompts[2].System, `"current_streak":3`)

	_, err = NewPlanner(stub).Plan(ctx, "learn go", 60, Profile{Name: "Ana"})
	require.NoError(t, err)
	assert.Contains(t, stub.prompts[3].System, `"available_minutes":60`)
	assert.Contains(t, stub.prompts[3].System, `"name":"Ana"`)

	_, err = NewPlanner(stub).Plan(ctx, "  ", 60, Profile{})
	assert.Error(t, err)

	_, err = NewReflector(stub).Debrief(ctx, "Ana", "3 pass", 75)
	require.NoError(t, err)
	assert.Equal(t, "Generate weekly tactical debrief for Operator Ana.", stub.prompts[4].User)
}

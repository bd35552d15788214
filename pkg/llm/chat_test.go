package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeModel struct {
	reply    string
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, opt := range options {
		opt(&f.opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func textOf(t *testing.T, m llms.MessageContent) string {
	t.Helper()
	require.Len(t, m.Parts, 1)
	part, ok := m.Parts[0].(llms.TextContent)
	require.True(t, ok)
	return part.Text
}

func TestNewWithConfig(t *testing.T) {
	engine, err := NewWithConfig(ChatConfig{
		Model:       "testmodel",
		Temperature: 0.5,
		MaxTokens:   1000,
		BaseURL:     "http://localhost:1234",
	})
	assert.NoError(t, err)
	assert.NotNil(t, engine)

	_, err = NewWithConfig(ChatConfig{Temperature: 3})
	assert.Error(t, err)

	_, err = NewWithConfig(ChatConfig{Provider: "bogus"})
	assert.Error(t, err)
}

func TestAnswer(t *testing.T) {
	model := &fakeModel{reply: "  The rated load is 40 kN.\n"}
	engine, err := NewWithModel(ChatConfig{Temperature: 0.2, MaxTokens: 300}, model)
	require.NoError(t, err)

	answer, err := engine.Answer(context.Background(), "Answer ONLY from CONTEXT below", "what is the load rating")
	require.NoError(t, err)
	assert.Equal(t, "The rated load is 40 kN.", answer)

	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, "Answer ONLY from CONTEXT below", textOf(t, model.messages[0]))
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, 300, model.opts.MaxTokens)
	assert.InDelta(t, 0.2, model.opts.Temperature, 1e-9)
}

func TestAnswerError(t *testing.T) {
	engine, err := NewWithModel(ChatConfig{}, &fakeModel{err: errors.New("unavailable")})
	require.NoError(t, err)

	_, err = engine.Answer(context.Background(), "sys", "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
}

func TestExtractMetadata(t *testing.T) {
	model := &fakeModel{reply: "```json\n" + `{
		"projectName": "Route 9 Bridge Rehabilitation",
		"clientName": "County DOT",
		"engineeringFirm": "Acme Structural",
		"documentType": "Inspection Report",
		"designPhase": "Preliminary",
		"keyMetrics": [{"name": "Load rating", "value": "40", "unit": "kN"}],
		"deliverables": ["Inspection photos"]
	}` + "\n```"}
	engine, err := NewWithModel(ChatConfig{MaxMetadataChars: 10}, model)
	require.NoError(t, err)

	meta, err := engine.ExtractMetadata(context.Background(), strings.Repeat("x", 50))
	require.NoError(t, err)

	assert.Equal(t, "Route 9 Bridge Rehabilitation", meta.ProjectName)
	assert.Equal(t, "Inspection Report", meta.DocumentType)
	assert.Equal(t, "Other", meta.DesignPhase)
	require.Len(t, meta.KeyMetrics, 1)
	assert.Equal(t, "kN", meta.KeyMetrics[0].Unit)

	assert.True(t, model.opts.JSONMode)
	assert.Equal(t, "DOCUMENT:\n"+strings.Repeat("x", 10), textOf(t, model.messages[1]))
}

func TestParseMetadataRejectsGarbage(t *testing.T) {
	_, err := parseMetadata("I cannot help with that.")
	assert.Error(t, err)

	meta, err := parseMetadata(`{"documentType": "Novel"}`)
	require.NoError(t, err)
	assert.Equal(t, "Other", meta.DocumentType)
}

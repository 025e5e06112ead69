package tagger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	raw json.RawMessage
	err error
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

func TestGenerateUsesLLM(t *testing.T) {
	llm := &fakeLLM{raw: json.RawMessage(`{"title": "Beach - Woman in Red Dress", "tags": ["Beach", "Woman"]}`)}
	tg := New(llm, nil)

	title, tags := tg.Generate(context.Background(), "some tweet text", "a prompt")
	assert.Equal(t, "Beach - Woman in Red Dress", title)
	assert.Equal(t, []string{"Beach", "Woman"}, tags)
}

func TestGenerateFallsBackOnLLMError(t *testing.T) {
	llm := &fakeLLM{err: errors.New("quota exceeded")}
	tg := New(llm, nil)

	title, tags := tg.Generate(context.Background(), "", "a woman in a bikini at the beach, blonde, selfie")
	assert.Equal(t, "Beach - Woman in Bikini", title)
	assert.Contains(t, tags, "Beach")
	assert.Contains(t, tags, "Woman")
	assert.Contains(t, tags, "Blonde")
	assert.Contains(t, tags, "Bikini")
	assert.Contains(t, tags, "Selfie")
}

func TestGenerateFallsBackOnEmptyLLMResult(t *testing.T) {
	llm := &fakeLLM{raw: json.RawMessage(`{"title": "", "tags": []}`)}
	tg := New(llm, nil)

	title, tags := tg.Generate(context.Background(), "a man at the gym", "")
	assert.Equal(t, "Gym - Man", title)
	assert.Contains(t, tags, "Gym")
	assert.Contains(t, tags, "Man")
}

func TestGenerateEmptyInput(t *testing.T) {
	tg := New(&fakeLLM{}, nil)
	title, tags := tg.Generate(context.Background(), "", "")
	assert.Equal(t, "", title)
	assert.Nil(t, tags)
}

func TestFallbackDefaults(t *testing.T) {
	title, tags := Fallback("completely unrelated text about weather patterns")
	assert.Equal(t, "Photo", title)
	assert.Equal(t, []string{"AI Generated", "Photorealistic"}, tags)
}

func TestFallbackTagCap(t *testing.T) {
	ctx := "bedroom woman girl blonde bikini lingerie dress jeans shorts tank top selfie mirror portrait"
	_, tags := Fallback(ctx)
	require.LessOrEqual(t, len(tags), 8)
}

func TestFallbackEmptyContext(t *testing.T) {
	title, tags := Fallback("")
	assert.Equal(t, "Untitled", title)
	assert.Empty(t, tags)
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "Living Room", titleCase("living room"))
	assert.Equal(t, "T-Shirt", titleCase("t-shirt"))
	assert.Equal(t, "Bedroom", titleCase("bedroom"))
}

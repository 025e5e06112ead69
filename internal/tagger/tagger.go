// Package tagger derives a display title and category tags for a record.
// It asks the configured LLM first and falls back to deterministic keyword
// matching so ingestion never stalls on an LLM outage.
package tagger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pcarling/advault/internal/analyzer"
)

const (
	llmTimeout = 30 * time.Second
	maxTags    = 8
	// The prompt context is truncated so a pathological tweet cannot
	// blow the token budget.
	maxContextLen = 4000
)

// Tagger generates titles and tags.
type Tagger struct {
	llm analyzer.Provider
	log *zap.Logger
}

func New(llm analyzer.Provider, log *zap.Logger) *Tagger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tagger{llm: llm, log: log}
}

const promptTemplate = `Based on this AI image generation prompt, generate a title and tags.

PROMPT:
%s

Generate:
1. A descriptive title (5-10 words) in format: "[Setting] - [Subject Description]"
   Example: "Cozy Bedroom - Young Woman in Pink Loungewear"

2. 5-10 relevant tags for categorization (setting, appearance, clothing, mood, style)

Respond with ONLY this JSON:
{
  "title": "<generated title>",
  "tags": ["tag1", "tag2", ...]
}`

// Generate produces a title and tag list from the post text and extracted
// prompt. The raw prompt is the preferred context when present.
func (t *Tagger) Generate(ctx context.Context, text, rawPrompt string) (string, []string) {
	if text == "" && rawPrompt == "" {
		return "", nil
	}

	promptContext := rawPrompt
	if promptContext == "" {
		promptContext = text
	}
	if len(promptContext) > maxContextLen {
		promptContext = promptContext[:maxContextLen]
	}

	if t.llm != nil {
		if title, tags, err := t.generateLLM(ctx, promptContext); err == nil {
			return title, tags
		} else {
			t.log.Debug("LLM title/tags failed, using fallback", zap.Error(err))
		}
	}
	return Fallback(promptContext)
}

func (t *Tagger) generateLLM(ctx context.Context, promptContext string) (string, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	raw, err := t.llm.GenerateJSON(ctx, fmt.Sprintf(promptTemplate, promptContext))
	if err != nil {
		return "", nil, err
	}

	var out struct {
		Title string   `json:"title"`
		Tags  []string `json:"tags"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", nil, fmt.Errorf("malformed title/tags response: %w", err)
	}
	if out.Title == "" || len(out.Tags) == 0 {
		return "", nil, fmt.Errorf("LLM returned empty title or tags")
	}
	return out.Title, out.Tags, nil
}

// Package analyzer wraps the LLM services behind a single JSON-in,
// JSON-out interface. The rest of the system never sees which vendor is
// configured.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pcarling/advault/internal/config"
)

// Provider sends one prompt to an LLM and returns the JSON payload of its
// reply, with any markdown fencing already stripped.
type Provider interface {
	GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error)
}

// New creates a provider from config. When exchange caching is enabled
// every prompt/response pair is written under dataDir for debugging.
func New(cfg config.AnalysisConfig, dataDir string) (Provider, error) {
	var p Provider
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		p = NewGemini(cfg.APIKey, cfg.Model)
	case config.ProviderAnthropic:
		p = NewAnthropic(cfg.APIKey, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}
	if cfg.CacheExchanges && dataDir != "" {
		p = &cachingProvider{inner: p, provider: cfg.LLMProvider, model: cfg.Model, dir: dataDir}
	}
	return p, nil
}

var fenceRe = regexp.MustCompile("```(?:json)?\\n?")

// stripFences removes markdown code fencing that models wrap JSON in.
func stripFences(text string) string {
	return strings.TrimSpace(fenceRe.ReplaceAllString(text, ""))
}

// Package reconcile merges the partial views returned by the tweet data
// providers into one canonical record. Providers are consulted in a fixed
// priority order and each one's contribution is governed by its own merge
// rule, so the chain stays deterministic no matter which subset of
// providers happens to be up.
package reconcile

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/pcarling/advault/internal/prompt"
	"github.com/pcarling/advault/internal/providers"
	"github.com/pcarling/advault/internal/types"
	"github.com/pcarling/advault/internal/xurl"
)

// ErrNoProviderData means every provider in the chain failed or returned
// an empty payload for the post.
var ErrNoProviderData = errors.New("no data from any provider")

// merged is the accumulator threaded through the consultation chain.
type merged struct {
	text    string
	images  []string
	creator string
	hasData bool
}

// step pairs one provider with the gate deciding whether it is consulted
// and the rule for folding its result into the accumulator.
type step struct {
	provider providers.Provider
	consult  func(m *merged) bool
	merge    func(m *merged, r *types.ProviderResult)
}

// Engine runs the provider chain and produces canonical records.
type Engine struct {
	steps []step
	log   *zap.Logger
}

// New builds the consultation chain. The order and thresholds must not
// change: records already persisted were produced under this exact policy.
//
//   - primary seeds text and images; it preserves long-tweet text best.
//   - backstop runs only when text is still empty or under 500 chars, and
//     its text wins only when strictly longer.
//   - syndication always runs; it may replace text under 200 chars when
//     strictly longer, and is the main image source.
//   - lastResort runs only when no image has been found yet.
func New(primary, backstop, syndication, lastResort providers.Provider, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		log: log,
		steps: []step{
			{
				provider: primary,
				consult:  func(*merged) bool { return true },
				merge: func(m *merged, r *types.ProviderResult) {
					m.text = r.Text
					m.images = append(m.images, r.Images...)
				},
			},
			{
				provider: backstop,
				consult:  func(m *merged) bool { return len(m.text) < 500 },
				merge: func(m *merged, r *types.ProviderResult) {
					if len(r.Text) > len(m.text) {
						m.text = r.Text
					}
					if len(m.images) == 0 {
						m.images = append(m.images, r.Images...)
					}
				},
			},
			{
				provider: syndication,
				consult:  func(*merged) bool { return true },
				merge: func(m *merged, r *types.ProviderResult) {
					if len(m.text) < 200 && len(r.Text) > len(m.text) {
						m.text = r.Text
					}
					if len(m.images) == 0 {
						m.images = append(m.images, r.Images...)
					}
				},
			},
			{
				provider: lastResort,
				consult:  func(m *merged) bool { return len(m.images) == 0 },
				merge: func(m *merged, r *types.ProviderResult) {
					if m.text == "" {
						m.text = r.Text
					}
					m.images = append(m.images, r.Images...)
				},
			},
		},
	}
}

// WithFallbacks appends providers consulted only when the main chain has
// produced no payload at all. They seed text and images like the primary.
func (e *Engine) WithFallbacks(ps ...providers.Provider) *Engine {
	for _, p := range ps {
		if p == nil {
			continue
		}
		e.steps = append(e.steps, step{
			provider: p,
			consult:  func(m *merged) bool { return !m.hasData },
			merge: func(m *merged, r *types.ProviderResult) {
				if m.text == "" {
					m.text = r.Text
				}
				if len(m.images) == 0 {
					m.images = append(m.images, r.Images...)
				}
			},
		})
	}
	return e
}

// Reconcile fetches the post from every eligible provider and merges the
// results. A provider failure is logged and skipped; the call fails only
// when no provider produced any payload at all.
func (e *Engine) Reconcile(ctx context.Context, ref xurl.Ref) (*types.CanonicalRecord, error) {
	var m merged
	for _, s := range e.steps {
		if s.provider == nil || !s.consult(&m) {
			continue
		}
		result, err := s.provider.Fetch(ctx, ref)
		if err != nil {
			e.log.Debug("provider unavailable",
				zap.String("provider", s.provider.Name()),
				zap.String("tweet_id", ref.ID),
				zap.Error(err))
			continue
		}
		if !result.HasPayload() {
			continue
		}
		m.hasData = true
		if m.creator == "" {
			m.creator = result.Handle
		}
		s.merge(&m, result)
	}

	if !m.hasData {
		return nil, ErrNoProviderData
	}

	rec := &types.CanonicalRecord{
		ID:      ref.ID,
		URL:     ref.URL,
		Text:    m.text,
		Images:  DedupImages(m.images),
		Creator: resolveCreator(m.creator, ref),
		Source:  ref.URL,
	}

	raw, structured := prompt.Extract(m.text)
	rec.RawPrompt = raw
	rec.IsStructured = structured
	if raw != "" {
		if structured {
			if parsed, err := prompt.Parse(raw); err == nil {
				rec.Prompt = parsed
			} else {
				e.log.Debug("structured prompt failed to parse",
					zap.String("tweet_id", ref.ID), zap.Error(err))
			}
		} else {
			rec.Prompt = raw
		}
	}
	return rec, nil
}

// resolveCreator prefers the handle reported by the first responsive
// provider and falls back to the handle segment of the post URL.
func resolveCreator(handle string, ref xurl.Ref) string {
	if handle == "" {
		handle = ref.Handle
	}
	if handle == "" {
		return ""
	}
	return "@" + handle
}

// DedupImages removes duplicate image URLs, keyed by the URL with its
// query string stripped, preserving first-seen order. The first occurrence
// keeps its full URL, so the normalized large-format variant survives.
func DedupImages(images []string) []string {
	seen := make(map[string]struct{}, len(images))
	out := make([]string, 0, len(images))
	for _, img := range images {
		key := img
		if i := strings.IndexByte(key, '?'); i >= 0 {
			key = key[:i]
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, img)
	}
	return out
}

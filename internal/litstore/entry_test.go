package litstore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pcarling/advault/internal/types"
)

func TestEscapeTemplateLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`plain text`, `plain text`},
		{`back\slash`, `back\\slash`},
		{"tick`inside", "tick\\`inside"},
		{`interp ${x}`, `interp \${x}`},
		{"all \\ ` ${", "all \\\\ \\` \\${"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapeTemplateLiteral(tt.in))
	}
}

func TestFormatImageEntryNaturalLanguagePrompt(t *testing.T) {
	entry := FormatImageEntry(types.ImageEntry{
		ID:        "img-1",
		Title:     "Beach - Woman",
		ImageSrc:  "/images/vault/img-1.jpg",
		Source:    "https://x.com/a/status/1",
		Creator:   "@a",
		RawPrompt: "a woman on a beach with `ticks` and ${vars}",
		Tags:      []string{"Beach", "Woman"},
		DateAdded: "2025-01-01",
	})

	assert.Contains(t, entry, "prompt: `a woman on a beach with \\`ticks\\` and \\${vars}`")
	assert.Contains(t, entry, "rawPrompt: `a woman on a beach with \\`ticks\\` and \\${vars}`")
	assert.Contains(t, entry, `tags: ["Beach", "Woman"]`)
	// Entry shape: opens with a brace, fields indented four spaces,
	// closes at two spaces so it nests inside the array.
	assert.True(t, strings.HasPrefix(entry, "{\n    id: \"img-1\""))
	assert.True(t, strings.HasSuffix(entry, "\n  }"))
}

func TestFormatImageEntryJSONPrompt(t *testing.T) {
	raw := "{\n  \"style\": \"cinematic\",\n  \"subject\": \"fox\"\n}"
	entry := FormatImageEntry(types.ImageEntry{
		ID:        "img-2",
		Title:     "T",
		ImageSrc:  "/images/vault/img-2.jpg",
		Source:    "https://x.com/a/status/2",
		Creator:   "@a",
		RawPrompt: raw,
		Tags:      []string{"X"},
		DateAdded: "2025-01-01",
	})

	// JSON prompts are embedded as object literals with continuation
	// lines re-indented to sit inside the entry.
	assert.Contains(t, entry, "prompt: {\n        \"style\": \"cinematic\",\n        \"subject\": \"fox\"\n      }")
	// rawPrompt keeps the original text inside a template literal.
	assert.Contains(t, entry, "rawPrompt: `"+raw+"`")
}

func TestFormatImageEntryRoundTripsThroughStore(t *testing.T) {
	s := tempStore(t, "images", "")
	entry := FormatImageEntry(types.ImageEntry{
		ID:        "img-3",
		Title:     "T",
		ImageSrc:  "/images/vault/img-3.jpg",
		Source:    "https://x.com/a/status/3",
		Creator:   "@a",
		RawPrompt: "natural language prompt",
		Tags:      []string{"X"},
		DateAdded: "2025-01-01",
	})
	require.NoError(t, s.Insert(entry))

	entries, err := s.Entries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, entry, entries[0])
}

func TestFormatImageEntryKeepsHTMLCharacters(t *testing.T) {
	entry := FormatImageEntry(types.ImageEntry{
		ID:        "img-4",
		Title:     "Cats & Dogs <shortlist>",
		ImageSrc:  "/images/vault/img-4.jpg",
		Source:    "https://x.com/a/status/4?s=20&t=abc",
		Creator:   "@a",
		RawPrompt: "natural language prompt",
		Tags:      []string{"R&D"},
		DateAdded: "2025-01-01",
	})

	assert.Contains(t, entry, `title: "Cats & Dogs <shortlist>"`)
	assert.Contains(t, entry, `source: "https://x.com/a/status/4?s=20&t=abc"`)
	assert.Contains(t, entry, `tags: ["R&D"]`)
	assert.NotContains(t, entry, "\\u0026")
	assert.NotContains(t, entry, "\\u003c")
}

func TestFormatTweetEntry(t *testing.T) {
	entry := FormatTweetEntry(types.TweetEntry{
		ID:      "tweet-123",
		URL:     "https://x.com/a/status/123",
		Tags:    []string{"Hooks", "UGC"},
		AddedAt: "2025-02-03",
	})
	want := "{\n" +
		"    id: \"tweet-123\",\n" +
		"    url: \"https://x.com/a/status/123\",\n" +
		"    tags: [\"Hooks\", \"UGC\"],\n" +
		"    addedAt: \"2025-02-03\"\n" +
		"  }"
	assert.Equal(t, want, entry)
}

func TestFormatAdEntryUnquotesKeys(t *testing.T) {
	entry, err := FormatAdEntry(types.Ad{
		ID:       "123",
		Title:    "A Title",
		VideoSrc: "/videos/123.mp4",
		Source:   "https://x.com/a/status/123",
		Creator:  "@a",
		Product:  "Widgets & Co",
		Hook:     types.Hook{TextOverlay: "STOP", Spoken: "wait"},
		Shots: []types.Shot{
			{ID: 1, Timestamp: "0:00-0:03", Type: "video", Description: "open"},
		},
		Tags:      []string{"Finance"},
		DateAdded: "2025-02-03",
	})
	require.NoError(t, err)

	assert.Contains(t, entry, `id: "123"`)
	assert.Contains(t, entry, `hook: {`)
	assert.Contains(t, entry, `textOverlay: "STOP"`)
	// Values keep their quoting and are not HTML-escaped.
	assert.Contains(t, entry, `product: "Widgets & Co"`)
	assert.NotContains(t, entry, `"id":`)
}

package litstore

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pcarling/advault/internal/types"
)

// EscapeTemplateLiteral escapes a string for embedding inside a JS
// template literal: backslashes, backticks and interpolation starts.
func EscapeTemplateLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "`", "\\`")
	s = strings.ReplaceAll(s, "${", "\\${")
	return s
}

// quote serializes a string as a double-quoted JS string literal.
// HTML escaping is off so '&' and angle brackets survive verbatim.
func quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return `""`
	}
	return strings.TrimRight(buf.String(), "\n")
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = quote(item)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// FormatImageEntry serializes an image record the way the hand-authored
// entries are written: a JSON prompt is embedded as an object literal with
// continuation lines re-indented, a natural-language prompt becomes a
// template literal. rawPrompt is always stored as a template literal so
// the exact tweet text survives round trips.
func FormatImageEntry(e types.ImageEntry) string {
	rawEscaped := EscapeTemplateLiteral(e.RawPrompt)

	var promptField string
	if e.RawPrompt != "" && json.Valid([]byte(e.RawPrompt)) {
		lines := strings.Split(strings.TrimSpace(e.RawPrompt), "\n")
		promptField = lines[0]
		for _, line := range lines[1:] {
			promptField += "\n      " + line
		}
	} else {
		promptField = "`" + rawEscaped + "`"
	}

	var b strings.Builder
	b.WriteString("{\n")
	b.WriteString("    id: " + quote(e.ID) + ",\n")
	b.WriteString("    title: " + quote(e.Title) + ",\n")
	b.WriteString("    imageSrc: " + quote(e.ImageSrc) + ",\n")
	b.WriteString("    source: " + quote(e.Source) + ",\n")
	b.WriteString("    creator: " + quote(e.Creator) + ",\n")
	b.WriteString("    prompt: " + promptField + ",\n")
	b.WriteString("    rawPrompt: `" + rawEscaped + "`,\n")
	b.WriteString("    tags: " + quoteList(e.Tags) + ",\n")
	b.WriteString("    dateAdded: " + quote(e.DateAdded) + "\n")
	b.WriteString("  }")
	return b.String()
}

// FormatTweetEntry serializes a tagged-tweet record.
func FormatTweetEntry(e types.TweetEntry) string {
	var b strings.Builder
	b.WriteString("{\n")
	b.WriteString("    id: " + quote(e.ID) + ",\n")
	b.WriteString("    url: " + quote(e.URL) + ",\n")
	b.WriteString("    tags: " + quoteList(e.Tags) + ",\n")
	b.WriteString("    addedAt: " + quote(e.AddedAt) + "\n")
	b.WriteString("  }")
	return b.String()
}

var jsKeyRe = regexp.MustCompile(`"([a-zA-Z_][a-zA-Z0-9_]*)":`)

// FormatAdEntry serializes an ad record as indented JSON with the quotes
// stripped from identifier-shaped keys, matching the hand-written entries.
func FormatAdEntry(ad types.Ad) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ad); err != nil {
		return "", err
	}
	adJSON := strings.TrimRight(buf.String(), "\n")
	return jsKeyRe.ReplaceAllString(adJSON, "$1:"), nil
}

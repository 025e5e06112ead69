// Package prompt extracts an embedded AI-image prompt from raw post text.
// Prompts show up either as a JSON object pasted into the post (often
// truncated by the platform) or as natural language under a "Prompt:" line.
package prompt

import (
	"encoding/json"
	"regexp"
	"strings"
)

const minNaturalLanguageLen = 50

var (
	citeStartRe    = regexp.MustCompile(`\[cite_start\]`)
	citeNumRe      = regexp.MustCompile(`\[cite:\s*\d+\]`)
	trailingComma  = regexp.MustCompile(`,\s*$`)
	commasInBlock  = regexp.MustCompile(`,(\s*[}\]])`)
	promptHeaderRe = regexp.MustCompile(`(?is)prompt[!?:]?\s*[^\n]*\n+(.*)`)
	trailingTagRe  = regexp.MustCompile(`\s*#\w+\s*$`)
	trailingAtRe   = regexp.MustCompile(`\s*@\w+\s*$`)
)

// Extract pulls a prompt payload out of post text. It returns the raw
// payload and whether it is structured JSON. An empty raw string means no
// payload was found.
func Extract(text string) (raw string, structured bool) {
	if text == "" {
		return "", false
	}

	// X indents pasted JSON with non-breaking spaces, which breaks parsing.
	text = strings.ReplaceAll(text, " ", " ")

	// Some AI tools leave citation annotations behind.
	text = citeStartRe.ReplaceAllString(text, "")
	text = citeNumRe.ReplaceAllString(text, "")

	if block := extractJSONBlock(text); block != "" {
		return block, true
	}

	if nl := extractNaturalLanguage(text); nl != "" {
		return nl, false
	}

	return "", false
}

// extractJSONBlock scans for the first top-level {...} block that parses as
// JSON. The first valid block wins, not the largest. A block left open at
// the end of the text is repaired by closing its braces.
func extractJSONBlock(text string) string {
	depth := 0
	start := -1

	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			// A stray closer drives depth negative, poisoning anything
			// after it. Blocks behind unbalanced closers are not rescued.
			depth--
			if depth == 0 && start >= 0 {
				candidate := text[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate
				}
				start = -1
			}
		}
	}

	// Truncated block: the post ended mid-object. Close the braces and see
	// if the result parses.
	if start >= 0 && depth > 0 {
		candidate := strings.TrimRight(text[start:], " \t\r\n")
		candidate = trailingComma.ReplaceAllString(candidate, "")
		candidate += "\n" + strings.Repeat("}", depth)

		if json.Valid([]byte(candidate)) {
			return candidate
		}

		// One more repair pass: trailing commas before any closer.
		fixed := commasInBlock.ReplaceAllString(candidate, "$1")
		if json.Valid([]byte(fixed)) {
			return fixed
		}
	}

	return ""
}

// extractNaturalLanguage looks for a "Prompt:" style header and takes
// everything after the line break as the candidate.
func extractNaturalLanguage(text string) string {
	m := promptHeaderRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}

	candidate := strings.TrimSpace(m[1])
	candidate = trailingTagRe.ReplaceAllString(candidate, "")
	candidate = trailingAtRe.ReplaceAllString(candidate, "")

	if len(candidate) > minNaturalLanguageLen {
		return candidate
	}
	return ""
}

// Parse decodes a structured raw payload into a generic value. The raw
// string remains the source of truth for key order and formatting.
func Parse(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}

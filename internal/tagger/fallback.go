package tagger

import (
	"slices"
	"strings"
)

// Fixed vocabularies for the deterministic fallback. Matching is plain
// substring search over the lowercased context, same as the title casing
// below: crude, but stable and dependency-free.
var (
	settings = []string{
		"bedroom", "bathroom", "kitchen", "living room", "hotel", "beach", "pool",
		"gym", "studio", "office", "car", "outdoor", "street", "club", "sauna",
		"yacht", "restaurant", "bar", "balcony", "rooftop", "garden",
	}
	hairColors = []string{
		"blonde", "brunette", "redhead", "black hair", "brown hair", "platinum",
	}
	clothing = []string{
		"bikini", "lingerie", "dress", "jeans", "shorts", "tank top", "bodysuit",
		"swimsuit", "bra", "underwear", "t-shirt", "blouse", "skirt",
	}
	styles = []string{"selfie", "mirror", "candid", "portrait", "full body"}
)

// Fallback assembles a title and tags by keyword matching when the LLM is
// unavailable or returned nothing usable.
func Fallback(promptContext string) (string, []string) {
	if promptContext == "" {
		return "Untitled", nil
	}

	lower := strings.ToLower(promptContext)
	var titleParts []string
	var tags []string

	for _, setting := range settings {
		if strings.Contains(lower, setting) {
			titleParts = append(titleParts, titleCase(setting))
			tags = append(tags, titleCase(setting))
			break
		}
	}

	if strings.Contains(lower, "woman") || strings.Contains(lower, "female") || strings.Contains(lower, "girl") {
		tags = append(tags, "Woman")
	}
	if strings.Contains(lower, "man") || strings.Contains(lower, "male") {
		tags = append(tags, "Man")
	}

	for _, hair := range hairColors {
		if strings.Contains(lower, hair) {
			tags = append(tags, titleCase(hair))
			break
		}
	}

	for _, item := range clothing {
		if strings.Contains(lower, item) {
			tags = append(tags, titleCase(item))
		}
	}

	for _, style := range styles {
		if strings.Contains(lower, style) {
			tags = append(tags, titleCase(style))
		}
	}

	if len(titleParts) == 0 {
		titleParts = append(titleParts, "Photo")
	}
	if slices.Contains(tags, "Woman") {
		titleParts = append(titleParts, "- Woman")
	} else if slices.Contains(tags, "Man") {
		titleParts = append(titleParts, "- Man")
	}
	for _, tag := range tags {
		if containsLower(clothing, tag) {
			titleParts = append(titleParts, "in "+tag)
			break
		}
	}

	title := strings.Join(titleParts, " ")
	if title == "" {
		title = "AI Generated Image"
	}
	if len(tags) == 0 {
		tags = []string{"AI Generated", "Photorealistic"}
	}
	if len(tags) > maxTags {
		tags = tags[:maxTags]
	}
	return title, tags
}

// titleCase capitalizes the first letter of every word, where any
// non-letter is a word boundary.
func titleCase(s string) string {
	out := []rune(s)
	prevLetter := false
	for i, r := range out {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if isLetter && !prevLetter && r >= 'a' && r <= 'z' {
			out[i] = r - ('a' - 'A')
		}
		prevLetter = isLetter
	}
	return string(out)
}

func containsLower(list []string, s string) bool {
	return slices.Contains(list, strings.ToLower(s))
}

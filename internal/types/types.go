package types

import "encoding/json"

// Ref identifies one X post. Two Refs with the same ID denote the same post
// regardless of URL formatting.
type Ref struct {
	URL    string `json:"url"`
	ID     string `json:"id"`
	Handle string `json:"handle,omitempty"`
}

// ProviderResult is one provider's partial view of a post. It is never
// mutated after the adapter returns it.
type ProviderResult struct {
	Text   string          `json:"text,omitempty"`
	Images []string        `json:"images,omitempty"`
	Handle string          `json:"handle,omitempty"`
	Raw    json.RawMessage `json:"raw,omitempty"`
}

// HasPayload reports whether the provider returned anything usable.
func (r *ProviderResult) HasPayload() bool {
	return r != nil && (r.Text != "" || len(r.Images) > 0 || len(r.Raw) > 0)
}

// CanonicalRecord is the single merged view of a post after reconciliation.
type CanonicalRecord struct {
	ID        string   `json:"tweet_id"`
	URL       string   `json:"url"`
	Text      string   `json:"text"`
	Images    []string `json:"images"`
	Creator   string   `json:"creator,omitempty"`
	RawPrompt string   `json:"rawPrompt,omitempty"`
	// Prompt is the parsed JSON object when the extracted payload is
	// structured, or the raw string when it is natural language.
	Prompt       any      `json:"prompt,omitempty"`
	IsStructured bool     `json:"-"`
	Title        string   `json:"title"`
	Tags         []string `json:"tags"`
	Source       string   `json:"source"`
}

// ImageEntry is one record in the images collection.
type ImageEntry struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	ImageSrc  string   `json:"imageSrc"`
	Source    string   `json:"source"`
	Creator   string   `json:"creator"`
	RawPrompt string   `json:"rawPrompt"`
	Tags      []string `json:"tags"`
	DateAdded string   `json:"dateAdded"`
}

// TweetEntry is one record in the tagged-tweets collection.
type TweetEntry struct {
	ID      string   `json:"id"`
	URL     string   `json:"url"`
	Tags    []string `json:"tags"`
	AddedAt string   `json:"addedAt"`
}

// Transcript is the output of the speech-to-text collaborator.
type Transcript struct {
	FullText string    `json:"fullTranscript"`
	Segments []Segment `json:"segments"`
}

// Segment is one time-aligned transcript segment.
type Segment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Timestamp  string  `json:"timestamp"`
	Transcript string  `json:"transcript"`
}

// Shot is one analyzed segment of a video ad.
type Shot struct {
	ID          int     `json:"id"`
	StartTime   float64 `json:"startTime"`
	EndTime     float64 `json:"endTime"`
	Timestamp   string  `json:"timestamp"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	TextOverlay string  `json:"textOverlay"`
	Transcript  string  `json:"transcript"`
	Purpose     string  `json:"purpose"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
}

// Hook is the attention-grabbing open of an ad.
type Hook struct {
	TextOverlay string `json:"textOverlay"`
	Spoken      string `json:"spoken"`
}

// Tactic is one advertising tactic identified by analysis.
type Tactic struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// WhyItWorked is the analysis summary block of an ad.
type WhyItWorked struct {
	Summary   string   `json:"summary"`
	Tactics   []Tactic `json:"tactics"`
	KeyLesson string   `json:"keyLesson"`
}

// Ad is one fully assembled video ad record.
type Ad struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	VideoSrc       string      `json:"videoSrc"`
	Source         string      `json:"source"`
	Creator        string      `json:"creator"`
	Product        string      `json:"product"`
	Vertical       string      `json:"vertical"`
	Type           string      `json:"type"`
	Hook           Hook        `json:"hook"`
	FullTranscript string      `json:"fullTranscript"`
	WhyItWorked    WhyItWorked `json:"whyItWorked"`
	Shots          []Shot      `json:"shots"`
	Tags           []string    `json:"tags"`
	DateAdded      string      `json:"dateAdded"`
}

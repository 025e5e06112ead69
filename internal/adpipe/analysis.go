package adpipe

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pcarling/advault/internal/types"
)

const analysisTimeout = 60 * time.Second

// Placeholder values used when AI analysis fails or omits a field.
const (
	placeholderDescription = "[Describe what's shown]"
	placeholderPurpose     = "[Why this works]"
	placeholderProduct     = "[Unknown Product]"
	placeholderVertical    = "[Unknown Vertical]"
	placeholderType        = "Unknown"
	placeholderSummary     = "[Analysis pending]"
	placeholderFailed      = "[AI analysis failed - please add manually]"
	placeholderLesson      = "[Key lesson pending]"
)

// adAnalysis is the structure the LLM is asked to return.
type adAnalysis struct {
	Title       string             `json:"title"`
	Product     string             `json:"product"`
	Vertical    string             `json:"vertical"`
	Type        string             `json:"type"`
	Hook        *types.Hook        `json:"hook"`
	WhyItWorked *types.WhyItWorked `json:"whyItWorked"`
	Shots       []struct {
		ID          int    `json:"id"`
		Description string `json:"description"`
		TextOverlay string `json:"textOverlay"`
		Purpose     string `json:"purpose"`
	} `json:"shots"`
	Tags []string `json:"tags"`
}

const analysisPromptTemplate = `Analyze this video ad transcript and generate structured analysis.

TWEET TEXT (context about the ad):
%s

FULL TRANSCRIPT:
%s

SHOT SEGMENTS (with timestamps and spoken words):
%s

Generate a complete ad analysis in this EXACT JSON format:
{
  "title": "Catchy 5-10 word title describing the ad concept",
  "product": "Product/Service being advertised (e.g. 'Personal Loans', 'Weight Loss App')",
  "vertical": "Industry vertical (e.g. 'Finance/Loans', 'Health/Fitness', 'E-commerce')",
  "type": "Ad type: 'Affiliate', 'Paid', or 'Organic'",
  "hook": {
    "textOverlay": "The attention-grabbing text shown on screen in first 3 seconds (ALL CAPS typical)",
    "spoken": "First sentence spoken that hooks the viewer"
  },
  "whyItWorked": {
    "summary": "2-3 sentence explanation of why this ad is effective",
    "tactics": [
      {"name": "Tactic Name", "description": "How this tactic is used in the ad"},
      {"name": "Another Tactic", "description": "Description of the tactic"}
    ],
    "keyLesson": "One sentence key takeaway for other advertisers"
  },
  "shots": [
    {
      "id": 1,
      "description": "Visual description of what's shown on screen",
      "textOverlay": "Text shown on screen during this segment (or empty string if none)",
      "purpose": "Why this shot works / its role in the ad"
    }
  ],
  "tags": ["tag1", "tag2", "tag3"]
}

Important:
- For shots, provide analysis for EACH shot ID from the input
- Be specific about visual descriptions based on what's likely shown
- Identify real advertising tactics being used
- Generate 5-8 relevant tags

Respond with ONLY the JSON, no other text.`

// analyze asks the LLM for the ad analysis. A nil result means analysis
// failed and placeholders should be used.
func (p *Pipeline) analyze(ctx context.Context, transcript, tweetText string, shots []types.Shot) *adAnalysis {
	if p.llm == nil {
		return nil
	}

	if tweetText == "" {
		tweetText = "N/A"
	} else if len(tweetText) > 2000 {
		tweetText = tweetText[:2000]
	}

	type shotContext struct {
		ID         int    `json:"id"`
		Timestamp  string `json:"timestamp"`
		Transcript string `json:"transcript"`
	}
	shotCtx := make([]shotContext, len(shots))
	for i, s := range shots {
		shotCtx[i] = shotContext{ID: s.ID, Timestamp: s.Timestamp, Transcript: s.Transcript}
	}
	shotsJSON, _ := json.MarshalIndent(shotCtx, "", "  ")

	ctx, cancel := context.WithTimeout(ctx, analysisTimeout)
	defer cancel()

	raw, err := p.llm.GenerateJSON(ctx, fmt.Sprintf(analysisPromptTemplate, tweetText, transcript, shotsJSON))
	if err != nil {
		p.log.Debug("ad analysis call failed", zap.Error(err))
		return nil
	}

	var analysis adAnalysis
	if err := json.Unmarshal(raw, &analysis); err != nil {
		p.log.Debug("ad analysis response malformed", zap.Error(err))
		return nil
	}
	return &analysis
}

// assemble merges the analysis (or placeholders) with the transcript and
// thumbnails into the final record.
func (p *Pipeline) assemble(acq *acquisition, transcript *types.Transcript, shots []types.Shot, analysis *adAnalysis) *types.Ad {
	creator := "@unknown"
	if acq.meta.Handle != "" {
		creator = "@" + acq.meta.Handle
	}

	firstSpoken := ""
	if len(transcript.Segments) > 0 {
		firstSpoken = transcript.Segments[0].Transcript
	}

	ad := &types.Ad{
		ID:             acq.ref.ID,
		Title:          fmt.Sprintf("Ad from %s", creator),
		VideoSrc:       acq.videoWeb,
		Source:         acq.ref.URL,
		Creator:        creator,
		Product:        placeholderProduct,
		Vertical:       placeholderVertical,
		Type:           placeholderType,
		Hook:           types.Hook{Spoken: firstSpoken},
		FullTranscript: transcript.FullText,
		WhyItWorked: types.WhyItWorked{
			Summary:   placeholderFailed,
			Tactics:   []types.Tactic{},
			KeyLesson: placeholderLesson,
		},
		Tags:      []string{},
		DateAdded: p.now().Format("2006-01-02"),
	}

	if analysis != nil {
		if analysis.Title != "" {
			ad.Title = analysis.Title
		}
		if analysis.Product != "" {
			ad.Product = analysis.Product
		}
		if analysis.Vertical != "" {
			ad.Vertical = analysis.Vertical
		}
		if analysis.Type != "" {
			ad.Type = analysis.Type
		}
		if analysis.Hook != nil {
			ad.Hook = *analysis.Hook
		}
		if analysis.WhyItWorked != nil {
			ad.WhyItWorked = *analysis.WhyItWorked
		} else {
			ad.WhyItWorked.Summary = placeholderSummary
		}
		if len(analysis.Tags) > 0 {
			ad.Tags = analysis.Tags
		}

		byID := make(map[int]int, len(analysis.Shots))
		for i, s := range analysis.Shots {
			byID[s.ID] = i
		}
		for i := range shots {
			if j, ok := byID[shots[i].ID]; ok {
				aiShot := analysis.Shots[j]
				shots[i].Description = orPlaceholder(aiShot.Description, placeholderDescription)
				shots[i].TextOverlay = aiShot.TextOverlay
				shots[i].Purpose = orPlaceholder(aiShot.Purpose, placeholderPurpose)
			} else {
				shots[i].Description = placeholderDescription
				shots[i].Purpose = placeholderPurpose
			}
		}
	} else {
		for i := range shots {
			shots[i].Description = placeholderDescription
			shots[i].Purpose = placeholderPurpose
		}
	}

	ad.Shots = shots
	return ad
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}

package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/pcarling/advault/internal/types"
	"github.com/pcarling/advault/internal/xurl"
)

const oEmbedBaseURL = "https://publish.twitter.com"

// OEmbed fetches tweet text from the public oEmbed endpoint. It only ever
// yields text (no media), so the ad pipeline uses it as a context source
// when the richer providers come back empty.
type OEmbed struct {
	BaseURL string
	client  *http.Client
}

func NewOEmbed() *OEmbed {
	return &OEmbed{
		BaseURL: oEmbedBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *OEmbed) Name() string { return "oembed" }

type oEmbedResponse struct {
	HTML       string `json:"html"`
	AuthorName string `json:"author_name"`
	AuthorURL  string `json:"author_url"`
}

func (p *OEmbed) Fetch(ctx context.Context, ref xurl.Ref) (*types.ProviderResult, error) {
	endpoint := fmt.Sprintf("%s/oembed?url=%s&omit_script=true", p.BaseURL, url.QueryEscape(ref.URL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("oembed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("oembed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var oe oEmbedResponse
	if err := json.Unmarshal(body, &oe); err != nil {
		return nil, fmt.Errorf("oembed: malformed response: %w", err)
	}

	handle := ""
	if i := strings.LastIndex(oe.AuthorURL, "/"); i >= 0 {
		handle = oe.AuthorURL[i+1:]
	}

	return &types.ProviderResult{
		Text:   stripOEmbedHTML(oe.HTML),
		Handle: handle,
		Raw:    body,
	}, nil
}

var (
	blockquoteRe = regexp.MustCompile(`(?i)</?blockquote[^>]*>`)
	anchorRe     = regexp.MustCompile(`(?is)<a[^>]*>(.*?)</a>`)
	paraRe       = regexp.MustCompile(`(?is)<p[^>]*>(.*?)</p>`)
	brRe         = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagRe        = regexp.MustCompile(`<[^>]+>`)
)

// stripOEmbedHTML reduces the oEmbed blockquote markup to plain tweet text.
func stripOEmbedHTML(html string) string {
	text := blockquoteRe.ReplaceAllString(html, "")
	text = anchorRe.ReplaceAllString(text, "$1")
	text = paraRe.ReplaceAllString(text, "$1\n")
	text = brRe.ReplaceAllString(text, "\n")

	replacer := strings.NewReplacer(
		"&mdash;", "—",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
	text = replacer.Replace(text)
	text = tagRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pcarling/advault/internal/types"
	"github.com/pcarling/advault/internal/xurl"
)

const syndicationBaseURL = "https://cdn.syndication.twimg.com"

// Syndication hits Twitter's public embed endpoint. It is primarily an
// image source; its text is often truncated.
type Syndication struct {
	BaseURL string
	client  *http.Client
}

func NewSyndication() *Syndication {
	return &Syndication{
		BaseURL: syndicationBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *Syndication) Name() string { return "syndication" }

type syndicationResponse struct {
	Text string `json:"text"`
	User struct {
		ScreenName string `json:"screen_name"`
	} `json:"user"`
	MediaDetails []struct {
		Type          string `json:"type"`
		MediaURLHTTPS string `json:"media_url_https"`
	} `json:"mediaDetails"`
	Photos []struct {
		URL string `json:"url"`
	} `json:"photos"`
}

func (p *Syndication) Fetch(ctx context.Context, ref xurl.Ref) (*types.ProviderResult, error) {
	url := fmt.Sprintf("%s/tweet-result?id=%s&token=0", p.BaseURL, ref.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("syndication: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("syndication: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var sy syndicationResponse
	if err := json.Unmarshal(body, &sy); err != nil {
		return nil, fmt.Errorf("syndication: malformed response: %w", err)
	}

	result := &types.ProviderResult{
		Text:   sy.Text,
		Handle: sy.User.ScreenName,
		Raw:    body,
	}
	for _, m := range sy.MediaDetails {
		if m.Type == "photo" && m.MediaURLHTTPS != "" {
			result.Images = append(result.Images, m.MediaURLHTTPS+"?format=jpg&name=large")
		}
	}
	for _, photo := range sy.Photos {
		if photo.URL != "" {
			result.Images = append(result.Images, photo.URL)
		}
	}
	return result, nil
}

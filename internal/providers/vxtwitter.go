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

const vxTwitterBaseURL = "https://api.vxtwitter.com"

// VXTwitter is the backstop text source, consulted when the primary's text
// looks truncated.
type VXTwitter struct {
	BaseURL string
	client  *http.Client
}

func NewVXTwitter() *VXTwitter {
	return &VXTwitter{
		BaseURL: vxTwitterBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *VXTwitter) Name() string { return "vxtwitter" }

type vxResponse struct {
	Text          string `json:"text"`
	UserScreen    string `json:"user_screen_name"`
	MediaExtended []struct {
		Type string `json:"type"`
		URL  string `json:"url"`
	} `json:"media_extended"`
}

func (p *VXTwitter) Fetch(ctx context.Context, ref xurl.Ref) (*types.ProviderResult, error) {
	url := fmt.Sprintf("%s/status/%s", p.BaseURL, ref.ID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vxtwitter: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vxtwitter: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var vx vxResponse
	if err := json.Unmarshal(body, &vx); err != nil {
		return nil, fmt.Errorf("vxtwitter: malformed response: %w", err)
	}

	result := &types.ProviderResult{
		Text:   vx.Text,
		Handle: vx.UserScreen,
		Raw:    body,
	}
	for _, m := range vx.MediaExtended {
		if m.Type == "image" && m.URL != "" {
			result.Images = append(result.Images, m.URL)
		}
	}
	return result, nil
}

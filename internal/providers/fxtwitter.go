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

const fxTwitterBaseURL = "https://api.fxtwitter.com"

// FXTwitter is the richest text source: it preserves the full text of long
// tweets, which is where embedded prompts usually live.
type FXTwitter struct {
	BaseURL string
	client  *http.Client
}

func NewFXTwitter() *FXTwitter {
	return &FXTwitter{
		BaseURL: fxTwitterBaseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *FXTwitter) Name() string { return "fxtwitter" }

type fxResponse struct {
	Code    int     `json:"code"`
	Message string  `json:"message"`
	Tweet   fxTweet `json:"tweet"`
}

type fxTweet struct {
	Text   string `json:"text"`
	Author struct {
		Name       string `json:"name"`
		ScreenName string `json:"screen_name"`
	} `json:"author"`
	Media struct {
		Photos []struct {
			URL string `json:"url"`
		} `json:"photos"`
		Videos []fxVideo `json:"videos"`
	} `json:"media"`
}

type fxVideo struct {
	URL     string `json:"url"`
	Formats []struct {
		URL       string `json:"url"`
		Container string `json:"container"`
		Bitrate   int    `json:"bitrate"`
	} `json:"formats"`
}

func (p *FXTwitter) Fetch(ctx context.Context, ref xurl.Ref) (*types.ProviderResult, error) {
	body, err := p.get(ctx, fmt.Sprintf("%s/status/%s", p.BaseURL, ref.ID))
	if err != nil {
		return nil, err
	}

	var fx fxResponse
	if err := json.Unmarshal(body, &fx); err != nil {
		return nil, fmt.Errorf("fxtwitter: malformed response: %w", err)
	}
	if fx.Code != 200 {
		return nil, fmt.Errorf("fxtwitter: %s", fx.Message)
	}

	result := &types.ProviderResult{
		Text:   fx.Tweet.Text,
		Handle: fx.Tweet.Author.ScreenName,
		Raw:    body,
	}
	for _, photo := range fx.Tweet.Media.Photos {
		if photo.URL != "" {
			result.Images = append(result.Images, photo.URL)
		}
	}
	return result, nil
}

// VideoMeta is the minimal metadata the ad pipeline needs alongside the
// downloadable video URL.
type VideoMeta struct {
	TweetID  string
	URL      string
	VideoURL string
	Uploader string
	Handle   string
	Text     string
}

// FetchVideo resolves the best-quality mp4 URL for a video tweet. FXTwitter
// lists every transcode; the highest-bitrate mp4 wins.
func (p *FXTwitter) FetchVideo(ctx context.Context, ref xurl.Ref) (*VideoMeta, error) {
	handle := ref.Handle
	if handle == "" {
		handle = "i"
	}
	body, err := p.get(ctx, fmt.Sprintf("%s/%s/status/%s", p.BaseURL, handle, ref.ID))
	if err != nil {
		return nil, err
	}

	var fx fxResponse
	if err := json.Unmarshal(body, &fx); err != nil {
		return nil, fmt.Errorf("fxtwitter: malformed response: %w", err)
	}
	if fx.Code != 200 {
		return nil, fmt.Errorf("fxtwitter: %s", fx.Message)
	}
	if len(fx.Tweet.Media.Videos) == 0 {
		return nil, fmt.Errorf("fxtwitter: no video found in tweet %s", ref.ID)
	}

	video := fx.Tweet.Media.Videos[0]
	videoURL := video.URL
	best := -1
	for _, f := range video.Formats {
		if f.Container == "mp4" && f.Bitrate > best {
			best = f.Bitrate
			videoURL = f.URL
		}
	}
	if videoURL == "" {
		return nil, fmt.Errorf("fxtwitter: no video URL in tweet %s", ref.ID)
	}

	return &VideoMeta{
		TweetID:  ref.ID,
		URL:      ref.URL,
		VideoURL: videoURL,
		Uploader: fx.Tweet.Author.Name,
		Handle:   fx.Tweet.Author.ScreenName,
		Text:     fx.Tweet.Text,
	}, nil
}

func (p *FXTwitter) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fxtwitter: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fxtwitter: status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

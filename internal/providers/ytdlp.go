package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/pcarling/advault/internal/types"
	"github.com/pcarling/advault/internal/xurl"
)

// YTDLP shells out to yt-dlp as the last-resort source for both text and
// images. It is the most expensive adapter, so it sits at the end of the
// consultation chain.
type YTDLP struct {
	Bin     string
	Timeout time.Duration
}

func NewYTDLP(bin string) *YTDLP {
	if bin == "" {
		bin = "yt-dlp"
	}
	return &YTDLP{Bin: bin, Timeout: 30 * time.Second}
}

func (p *YTDLP) Name() string { return "yt-dlp" }

type ytdlpDump struct {
	Description string `json:"description"`
	Uploader    string `json:"uploader"`
	UploaderID  string `json:"uploader_id"`
	URL         string `json:"url"`
	Thumbnails  []struct {
		URL string `json:"url"`
	} `json:"thumbnails"`
}

func (p *YTDLP) Fetch(ctx context.Context, ref xurl.Ref) (*types.ProviderResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Bin, "--dump-json", "--no-download", ref.URL)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	raw := stdout.Bytes()
	var dump ytdlpDump
	if err := json.Unmarshal(raw, &dump); err != nil {
		return nil, fmt.Errorf("yt-dlp: malformed dump: %w", err)
	}

	result := &types.ProviderResult{
		Text:   dump.Description,
		Handle: strings.TrimPrefix(dump.UploaderID, "@"),
		Raw:    raw,
	}
	for _, thumb := range dump.Thumbnails {
		if strings.Contains(thumb.URL, "pbs.twimg.com/media") {
			result.Images = append(result.Images, normalizeMediaURL(thumb.URL))
		}
	}
	return result, nil
}

// FetchVideo resolves the direct media URL from the yt-dlp dump.
func (p *YTDLP) FetchVideo(ctx context.Context, ref xurl.Ref) (*VideoMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Bin, "--dump-json", "--no-download", ref.URL)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("yt-dlp: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	var dump ytdlpDump
	if err := json.Unmarshal(stdout.Bytes(), &dump); err != nil {
		return nil, fmt.Errorf("yt-dlp: malformed dump: %w", err)
	}
	if dump.URL == "" {
		return nil, fmt.Errorf("yt-dlp: no media URL for tweet %s", ref.ID)
	}

	return &VideoMeta{
		TweetID:  ref.ID,
		URL:      ref.URL,
		VideoURL: dump.URL,
		Uploader: dump.Uploader,
		Handle:   strings.TrimPrefix(dump.UploaderID, "@"),
		Text:     dump.Description,
	}, nil
}

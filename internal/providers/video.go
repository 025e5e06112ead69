package providers

import (
	"context"
	"fmt"

	"github.com/pcarling/advault/internal/xurl"
)

// VideoResolver tries the FXTwitter API first and falls back to yt-dlp
// when the API cannot produce a downloadable URL.
type VideoResolver struct {
	Primary  *FXTwitter
	Fallback *YTDLP
}

func NewVideoResolver(primary *FXTwitter, fallback *YTDLP) *VideoResolver {
	return &VideoResolver{Primary: primary, Fallback: fallback}
}

func (r *VideoResolver) FetchVideo(ctx context.Context, ref xurl.Ref) (*VideoMeta, error) {
	meta, primaryErr := r.Primary.FetchVideo(ctx, ref)
	if primaryErr == nil {
		return meta, nil
	}
	if r.Fallback == nil {
		return nil, primaryErr
	}
	meta, err := r.Fallback.FetchVideo(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("video fetch failed: %v; %v", primaryErr, err)
	}
	return meta, nil
}

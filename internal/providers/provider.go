// Package providers wraps each unofficial tweet data source behind a
// uniform adapter. Every adapter issues one outbound call with a fixed
// timeout and normalizes whatever partial view the source returns; a
// failure from any single adapter is never fatal to the overall fetch.
package providers

import (
	"context"
	"regexp"
	"strings"

	"github.com/pcarling/advault/internal/types"
	"github.com/pcarling/advault/internal/xurl"
)

// Provider is one independent tweet data source.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, ref xurl.Ref) (*types.ProviderResult, error)
}

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

var queryRe = regexp.MustCompile(`\?.*$`)

// normalizeMediaURL strips the query string from a pbs.twimg.com media URL
// and re-appends the large-format parameters so every source yields the
// highest quality variant under a stable URL.
func normalizeMediaURL(url string) string {
	if !strings.Contains(url, "pbs.twimg.com/media") {
		return url
	}
	url = queryRe.ReplaceAllString(url, "")
	return url + "?format=jpg&name=large"
}

package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/pcarling/advault/internal/browser"
	"github.com/pcarling/advault/internal/types"
	"github.com/pcarling/advault/internal/xurl"
)

// X.com DOM selectors. Isolated here because X changes their DOM
// frequently; update these when extraction breaks.
const (
	tweetArticle = `article[data-testid="tweet"]`
	tweetText    = `[data-testid="tweetText"]`
)

// Browser renders the tweet page in headless Chrome and reads the DOM
// directly. It is the slowest source and only runs when explicitly enabled
// in config; public tweets usually render without authentication, and a
// cookie file can be supplied for ones that do not.
type Browser struct {
	headless   bool
	cookieFile string
	timeout    time.Duration
}

func NewBrowser(headless bool, cookieFile string) *Browser {
	return &Browser{
		headless:   headless,
		cookieFile: cookieFile,
		timeout:    60 * time.Second,
	}
}

func (p *Browser) Name() string { return "browser" }

type domTweet struct {
	Text      string   `json:"text"`
	Handle    string   `json:"handle"`
	MediaURLs []string `json:"mediaUrls"`
}

func (p *Browser) Fetch(ctx context.Context, ref xurl.Ref) (*types.ProviderResult, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, browser.Options(p.headless)...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	browserCtx, timeoutCancel := context.WithTimeout(browserCtx, p.timeout)
	defer timeoutCancel()

	if p.cookieFile != "" {
		if err := p.injectCookies(browserCtx); err != nil {
			return nil, fmt.Errorf("browser: inject cookies: %w", err)
		}
	}

	if err := chromedp.Run(browserCtx,
		chromedp.Navigate(ref.URL),
		chromedp.WaitVisible(tweetArticle, chromedp.ByQuery),
	); err != nil {
		return nil, fmt.Errorf("browser: load tweet: %w", err)
	}

	// Pull the first (focal) tweet out of the DOM.
	extractJS := `
		(function() {
			const el = document.querySelector('article[data-testid="tweet"]');
			if (!el) return null;

			const textEl = el.querySelector('[data-testid="tweetText"]');
			const text = textEl?.textContent || '';

			const handleLink = el.querySelector('[data-testid="User-Name"] a[href^="/"]');
			const handle = handleLink?.getAttribute('href')?.replace('/', '') || '';

			const mediaUrls = [];
			el.querySelectorAll('[data-testid="tweetPhoto"] img').forEach(m => {
				if (m.src) mediaUrls.push(m.src);
			});

			return { text, handle, mediaUrls };
		})()
	`

	var dom *domTweet
	if err := chromedp.Run(browserCtx,
		chromedp.Evaluate(extractJS, &dom),
	); err != nil {
		return nil, fmt.Errorf("browser: extract tweet: %w", err)
	}
	if dom == nil {
		return nil, fmt.Errorf("browser: no tweet found at %s", ref.URL)
	}

	result := &types.ProviderResult{
		Text:   dom.Text,
		Handle: dom.Handle,
	}
	for _, u := range dom.MediaURLs {
		result.Images = append(result.Images, normalizeMediaURL(u))
	}
	if raw, err := json.Marshal(dom); err == nil {
		result.Raw = raw
	}
	return result, nil
}

// injectCookies loads cookies from a JSON file and sets them in the browser
// context before navigation.
func (p *Browser) injectCookies(ctx context.Context) error {
	data, err := os.ReadFile(p.cookieFile)
	if err != nil {
		return err
	}

	var cookies []*network.Cookie
	if err := json.Unmarshal(data, &cookies); err != nil {
		return fmt.Errorf("parse cookie file: %w", err)
	}

	return chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			for _, c := range cookies {
				err := network.SetCookie(c.Name, c.Value).
					WithDomain(c.Domain).
					WithPath(c.Path).
					WithSecure(c.Secure).
					WithHTTPOnly(c.HTTPOnly).
					WithSameSite(c.SameSite).
					Do(ctx)
				if err != nil {
					return err
				}
			}
			return nil
		}),
	)
}

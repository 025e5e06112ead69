package reconcile

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/pcarling/advault/internal/types"
	"github.com/pcarling/advault/internal/xurl"
)

// maxInFlight caps concurrent reconciliations regardless of batch size.
const maxInFlight = 5

// Result is the outcome for one URL in a batch fetch.
type Result struct {
	URL    string
	Record *types.CanonicalRecord
	Err    error
}

// FetchMany reconciles every URL in the batch concurrently, at most
// maxInFlight at a time. Blank URLs are dropped before dispatch. Each
// surviving URL gets exactly one Result, in input order, and one URL's
// failure never cancels its siblings. The call returns only after all
// dispatched work has finished.
func (e *Engine) FetchMany(ctx context.Context, urls []string) []Result {
	kept := make([]string, 0, len(urls))
	for _, u := range urls {
		if strings.TrimSpace(u) != "" {
			kept = append(kept, u)
		}
	}

	results := make([]Result, len(kept))
	var g errgroup.Group
	g.SetLimit(maxInFlight)
	for i, u := range kept {
		g.Go(func() error {
			ref, err := xurl.Parse(u)
			if err != nil {
				results[i] = Result{URL: u, Err: err}
				return nil
			}
			rec, err := e.Reconcile(ctx, ref)
			results[i] = Result{URL: u, Record: rec, Err: err}
			return nil
		})
	}
	g.Wait()
	return results
}

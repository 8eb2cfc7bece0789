package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prospectus/catalog-source/internal/domain"
	domainerrors "github.com/prospectus/catalog-source/internal/errors"
	"github.com/prospectus/catalog-source/internal/fetch"
)

// Getter issues one credentialed GET.
type Getter interface {
	Get(ctx context.Context, url string, header http.Header) (*fetch.Response, error)
}

// PageOptions configure one paginated traversal.
type PageOptions[R, T any] struct {
	// Collection names the traversal in errors and logs.
	Collection string
	// Process projects each raw item. Required.
	Process func(*R) T
	// Check returns an integrity violation for an item, or "".
	// Violations are reported together after the last page.
	Check func(*R) string
	// OnPage is called after each page with the running item count and the upstream total.
	OnPage func(page, items, total int)
}

// Paginate follows next links from startURL until a page has none and returns
// every processed item in page order. Any page failure, a next link that was
// already visited or any integrity violation fails the whole traversal with no items.
func Paginate[R, T any](ctx context.Context, g Getter, header http.Header, startURL string, opts PageOptions[R, T]) ([]T, error) {
	var (
		items      []T
		violations []string
		visited    = make(map[string]bool)
	)

	next := startURL
	for page := 1; next != ""; page++ {
		if visited[next] {
			return nil, domainerrors.Internalf("%s: pagination loop at page %d: %s already fetched", opts.Collection, page, next)
		}
		visited[next] = true

		resp, err := g.Get(ctx, next, header)
		if err != nil {
			return nil, fmt.Errorf("%s page %d: %w", opts.Collection, page, err)
		}

		var p domain.Page[R]
		if err := json.Unmarshal(resp.Body, &p); err != nil {
			return nil, domainerrors.Wrapf(err, domainerrors.CodeFetchFailed, "%s page %d: decode %s", opts.Collection, page, next)
		}

		for i := range p.Results {
			raw := &p.Results[i]
			if opts.Check != nil {
				if v := opts.Check(raw); v != "" {
					violations = append(violations, v)
				}
			}
			items = append(items, opts.Process(raw))
		}
		if opts.OnPage != nil {
			opts.OnPage(page, len(items), p.Count)
		}
		next = p.NextURL()
	}

	if len(violations) > 0 {
		return nil, domainerrors.DataIntegrity(opts.Collection, violations)
	}
	return items, nil
}

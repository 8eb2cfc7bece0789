package search

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/prospectus/catalog-source/internal/domain"
	domainerrors "github.com/prospectus/catalog-source/internal/errors"
	"github.com/prospectus/catalog-source/internal/fetch"
	"github.com/prospectus/catalog-source/internal/processor"
)

// AlgoliaOptions configures an AlgoliaIndex.
type AlgoliaOptions struct {
	AppID string
	// Host overrides the application's default read host.
	Host string
	// BrowseKey must carry the browse ACL; SearchKey is used for facets.
	BrowseKey string
	SearchKey string
	Index     string
	Fetcher   *fetch.Client
}

// AlgoliaIndex reads a hosted index over its REST API.
type AlgoliaIndex struct {
	base      string
	appID     string
	browseKey string
	searchKey string
	fetcher   *fetch.Client
}

// NewAlgoliaIndex creates a client for one hosted index.
func NewAlgoliaIndex(opts AlgoliaOptions) *AlgoliaIndex {
	host := opts.Host
	if host == "" {
		host = "https://" + strings.ToLower(opts.AppID) + "-dsn.algolia.net"
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = fetch.New(fetch.Options{})
	}
	return &AlgoliaIndex{
		base:      strings.TrimSuffix(host, "/") + "/1/indexes/" + url.PathEscape(opts.Index),
		appID:     opts.AppID,
		browseKey: opts.BrowseKey,
		searchKey: opts.SearchKey,
		fetcher:   fetcher,
	}
}

type browsePage struct {
	Hits   []domain.RawSearchHit `json:"hits"`
	Cursor string                `json:"cursor"`
}

type facetResponse struct {
	Facets domain.Facets `json:"facets"`
}

// Browse implements Index by following browse cursors until none is returned.
func (a *AlgoliaIndex) Browse(ctx context.Context, fn func([]domain.SearchHit) error) error {
	seen := make(map[string]bool)
	cursor := ""
	for {
		u := a.base + "/browse"
		if cursor != "" {
			u += "?" + url.Values{"cursor": {cursor}}.Encode()
		}
		page, _, err := fetch.GetJSON[browsePage](ctx, a.fetcher, u, a.header(a.browseKey))
		if err != nil {
			return domainerrors.Wrapf(err, domainerrors.CodeFetchFailed, "browse %s", a.base)
		}

		hits := make([]domain.SearchHit, 0, len(page.Hits))
		for i := range page.Hits {
			hits = append(hits, processor.SearchHit(&page.Hits[i]))
		}
		if err := fn(hits); err != nil {
			return err
		}

		if page.Cursor == "" {
			return nil
		}
		if seen[page.Cursor] {
			return domainerrors.Internalf("browse %s: cursor repeated", a.base)
		}
		seen[page.Cursor] = true
		cursor = page.Cursor
	}
}

// Facets implements Index with an empty query requesting every facet.
func (a *AlgoliaIndex) Facets(ctx context.Context) (domain.Facets, error) {
	q := url.Values{"query": {""}, "facets": {"*"}, "hitsPerPage": {"0"}}
	resp, _, err := fetch.GetJSON[facetResponse](ctx, a.fetcher, a.base+"?"+q.Encode(), a.header(a.searchKey))
	if err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeFetchFailed, "facets %s", a.base)
	}
	if resp.Facets == nil {
		return domain.Facets{}, nil
	}
	return resp.Facets, nil
}

func (a *AlgoliaIndex) header(key string) http.Header {
	return http.Header{
		"X-Algolia-Application-Id": {a.appID},
		"X-Algolia-API-Key":        {key},
	}
}


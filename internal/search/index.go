// Package search reads partner-keyed hits and facet counts from the product
// search indices, one index per locale.
package search

import (
	"context"

	"github.com/prospectus/catalog-source/internal/domain"
)

// Facet fields requested from every backend.
var FacetFields = []string{"product", "partner", "subject", "level", "language"}

// Index is one locale's product index.
type Index interface {
	// Browse streams every object in index order, one batch per call of fn.
	Browse(ctx context.Context, fn func([]domain.SearchHit) error) error
	// Facets returns value counts for every facet over the whole index.
	Facets(ctx context.Context) (domain.Facets, error)
}

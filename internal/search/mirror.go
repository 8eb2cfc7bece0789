package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/prospectus/catalog-source/internal/domain"
	"github.com/prospectus/catalog-source/internal/processor"
)

// Mirror copies every hit of src into dst in browse order and returns the number copied.
func Mirror(ctx context.Context, src Index, dst *LocalIndex) (int, error) {
	copied := 0
	err := src.Browse(ctx, func(hits []domain.SearchHit) error {
		if err := dst.IndexHits(hits); err != nil {
			return err
		}
		copied += len(hits)
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("mirror: %w", err)
	}
	return copied, nil
}

// ReadHits decodes a JSON array of raw index objects, as produced by an index export.
func ReadHits(r io.Reader) ([]domain.SearchHit, error) {
	var raw []domain.RawSearchHit
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode hits: %w", err)
	}
	hits := make([]domain.SearchHit, 0, len(raw))
	for i := range raw {
		hits = append(hits, processor.SearchHit(&raw[i]))
	}
	return hits, nil
}

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/prospectus/catalog-source/internal/domain"
	"github.com/prospectus/catalog-source/internal/logger"
)

// mappingVersion is incremented whenever the index mapping changes.
// A mismatch on open triggers a rebuild.
const mappingVersion = "1"

const (
	browsePageSize = 500
	batchSize      = 500
	maxFacetValues = 1000
)

// LocalIndex is a Bleve-backed product index used offline and in tests.
//
// Thread safety: all public methods are safe for concurrent use.
type LocalIndex struct {
	index  bleve.Index
	path   string
	logger *logger.Logger
	mu     sync.RWMutex
}

// LocalOptions configures a LocalIndex.
type LocalOptions struct {
	// DataPath holds "<Name>.bleve". Empty keeps the index in memory.
	DataPath string
	Name     string
	Logger   *logger.Logger
}

// OpenLocal opens or creates the index. An index with a missing or outdated
// mapping version, or one that fails to open, is removed and recreated.
func OpenLocal(opts LocalOptions) (*LocalIndex, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	log = log.Component("search").WithField("index", opts.Name)

	if opts.DataPath == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return &LocalIndex{index: index, logger: log}, nil
	}

	indexPath := filepath.Join(opts.DataPath, opts.Name+".bleve")
	versionPath := filepath.Join(opts.DataPath, opts.Name+".version")

	var index bleve.Index
	if _, err := os.Stat(indexPath); err == nil {
		existing, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			log.Info("search index has no version file, will rebuild", "new_version", mappingVersion)
		case string(existing) != mappingVersion:
			log.Info("search index mapping version changed, will rebuild",
				"old_version", string(existing),
				"new_version", mappingVersion,
			)
		default:
			index, err = bleve.Open(indexPath)
			if err != nil {
				log.Warn("failed to open existing index, will recreate", "path", indexPath, "error", err)
				index = nil
			}
		}
		if index == nil {
			if err := os.RemoveAll(indexPath); err != nil {
				return nil, fmt.Errorf("remove old index: %w", err)
			}
		}
	}

	if index == nil {
		if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
			return nil, fmt.Errorf("create index dir: %w", err)
		}
		var err error
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			log.Warn("failed to write search version file", "error", err)
		}
		log.Info("created new search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		log.Info("opened existing search index", "path", indexPath)
	}

	return &LocalIndex{index: index, path: indexPath, logger: log}, nil
}

// Close closes the index.
func (l *LocalIndex) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.index.Close()
}

// IndexHits adds hits in order after any already indexed, in batches.
func (l *LocalIndex) IndexHits(hits []domain.SearchHit) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	offset, err := l.index.DocCount()
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}

	for i := 0; i < len(hits); i += batchSize {
		end := min(i+batchSize, len(hits))
		batch := l.index.NewBatch()
		for j, hit := range hits[i:end] {
			doc, err := hitDocument(hit, int(offset)+i+j)
			if err != nil {
				return err
			}
			if err := batch.Index(hit.ObjectID, doc); err != nil {
				return fmt.Errorf("batch index %s: %w", hit.ObjectID, err)
			}
		}
		if err := l.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// Count returns the number of indexed hits.
func (l *LocalIndex) Count() (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.index.DocCount()
}

// Browse implements Index.
func (l *LocalIndex) Browse(ctx context.Context, fn func([]domain.SearchHit) error) error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for from := 0; ; from += browsePageSize {
		req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), browsePageSize, from, false)
		req.SortBy([]string{"position"})
		req.Fields = []string{"source"}

		res, err := l.index.SearchInContext(ctx, req)
		if err != nil {
			return fmt.Errorf("browse: %w", err)
		}
		if len(res.Hits) == 0 {
			return nil
		}

		batch := make([]domain.SearchHit, 0, len(res.Hits))
		for _, h := range res.Hits {
			src, ok := h.Fields["source"].(string)
			if !ok {
				l.logger.Warn("search document has no source", "id", h.ID)
				continue
			}
			var hit domain.SearchHit
			if err := json.Unmarshal([]byte(src), &hit); err != nil {
				return fmt.Errorf("decode document %s: %w", h.ID, err)
			}
			batch = append(batch, hit)
		}
		if err := fn(batch); err != nil {
			return err
		}
		if from+len(res.Hits) >= int(res.Total) {
			return nil
		}
	}
}

// Facets implements Index.
func (l *LocalIndex) Facets(ctx context.Context) (domain.Facets, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(bleve.NewMatchAllQuery(), 0, 0, false)
	for _, field := range FacetFields {
		req.AddFacet(field, bleve.NewFacetRequest(field, maxFacetValues))
	}
	res, err := l.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("facets: %w", err)
	}

	facets := domain.Facets{}
	for name, fr := range res.Facets {
		if fr.Terms == nil {
			continue
		}
		terms := fr.Terms.Terms()
		if len(terms) == 0 {
			continue
		}
		values := make(map[string]int, len(terms))
		for _, term := range terms {
			values[term.Term] = term.Count
		}
		facets[name] = values
	}
	return facets, nil
}

func hitDocument(hit domain.SearchHit, position int) (map[string]any, error) {
	src, err := json.Marshal(hit)
	if err != nil {
		return nil, fmt.Errorf("encode document %s: %w", hit.ObjectID, err)
	}
	doc := map[string]any{
		"uuid":         hit.UUID,
		"title":        hit.Title,
		"partner_keys": hit.PartnerKeys,
		"position":     float64(position),
		"source":       string(src),
	}
	// Absent facet values must not be indexed as empty terms.
	if hit.Product != "" {
		doc["product"] = hit.Product
	}
	if hit.Language != "" {
		doc["language"] = hit.Language
	}
	if len(hit.Partner) > 0 {
		doc["partner"] = hit.Partner
	}
	if len(hit.Subject) > 0 {
		doc["subject"] = hit.Subject
	}
	if len(hit.Level) > 0 {
		doc["level"] = hit.Level
	}
	return doc, nil
}

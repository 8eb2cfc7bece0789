package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the mapping for product hits.
//
// Facet fields use the keyword analyzer so multi-word values such as
// "Computer Science" count as one term. The full hit is stored as JSON in
// "source" and returned by Browse.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = en.AnalyzerName
	docMapping.AddFieldMappingsAt("title", titleFieldMapping)

	for _, field := range append([]string{"partner_keys", "uuid"}, FacetFields...) {
		kw := bleve.NewTextFieldMapping()
		kw.Analyzer = keyword.Name
		docMapping.AddFieldMappingsAt(field, kw)
	}

	// Browse order.
	positionFieldMapping := bleve.NewNumericFieldMapping()
	positionFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("position", positionFieldMapping)

	sourceFieldMapping := bleve.NewTextFieldMapping()
	sourceFieldMapping.Index = false
	sourceFieldMapping.Store = true
	sourceFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("source", sourceFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}

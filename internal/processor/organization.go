package processor

import (
	"sort"

	"github.com/prospectus/catalog-source/internal/domain"
	"github.com/prospectus/catalog-source/internal/id"
)

// Organization projects a raw organization. Ordered hits are attached by the graph.
// Organizations are identified by uuid, falling back to key for records without one.
func Organization(raw *domain.RawOrganization) *domain.Organization {
	natural := raw.UUID
	if natural == "" {
		natural = raw.Key
	}
	return &domain.Organization{
		NodeID:       id.NodeID(domain.TypeOrganization, natural),
		Key:          raw.Key,
		UUID:         raw.UUID,
		Name:         raw.Name,
		LogoImageURL: raw.LogoImageURL,
		MarketingURL: raw.MarketingURL,
	}
}

// SearchHit projects a raw search object.
func SearchHit(raw *domain.RawSearchHit) domain.SearchHit {
	return domain.SearchHit{
		ObjectID:     raw.ObjectID,
		UUID:         raw.UUID,
		Title:        raw.Title,
		Product:      raw.Product,
		PartnerKeys:  raw.PartnerKeys,
		Partner:      raw.Partner,
		Language:     raw.Language,
		Subject:      raw.Subject,
		Level:        raw.Level,
		MarketingURL: raw.MarketingURL,
		CardImageURL: raw.CardImageURL,
	}
}

// usdFallback is used when a local catalog has no currency data.
var usdFallback = domain.CurrencyInfo{Code: "USD", Symbol: "$", Rate: 1.0}

// Currencies turns the currency map into a list ordered by ISO code.
// An empty map yields a single USD entry when localFallback is set.
func Currencies(raw map[string]domain.RawCurrencyInfo, localFallback bool) []*domain.Currency {
	codes := make([]string, 0, len(raw))
	for code := range raw {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]*domain.Currency, 0, len(codes))
	for _, code := range codes {
		info := raw[code]
		out = append(out, currency(code, domain.CurrencyInfo{Code: info.Code, Symbol: info.Symbol, Rate: info.Rate}))
	}
	if len(out) == 0 && localFallback {
		out = append(out, currency("USD", usdFallback))
	}
	return out
}

func currency(code string, info domain.CurrencyInfo) *domain.Currency {
	return &domain.Currency{NodeID: id.NodeID(domain.TypeCurrency, code), ISO3: code, Info: info}
}

// Refinements turns one locale's facet counts into refinements ordered by
// facet name, with values by count descending then value ascending.
func Refinements(locale string, facets domain.Facets) []*domain.SearchRefinement {
	names := make([]string, 0, len(facets))
	for name := range facets {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*domain.SearchRefinement, 0, len(names))
	for _, name := range names {
		values := make([]domain.FacetValue, 0, len(facets[name]))
		for v, n := range facets[name] {
			values = append(values, domain.FacetValue{Value: v, Count: n})
		}
		sort.Slice(values, func(i, j int) bool {
			if values[i].Count != values[j].Count {
				return values[i].Count > values[j].Count
			}
			return values[i].Value < values[j].Value
		})
		out = append(out, &domain.SearchRefinement{
			NodeID: id.NodeID(domain.TypeSearchRefinement, name+locale),
			Name:   name,
			Locale: locale,
			Values: values,
		})
	}
	return out
}

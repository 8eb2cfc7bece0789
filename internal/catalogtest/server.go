// Package catalogtest serves an in-memory catalog, commerce, credential and
// search API over httptest for package and end-to-end tests.
package catalogtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prospectus/catalog-source/internal/domain"
)

// APIPath is the catalog API path under the server root.
const APIPath = "/api/v1/"

// Token is the access token issued by the fake credential endpoint.
const Token = "test-token"

// Catalog is the data served. Zero fields serve empty collections.
type Catalog struct {
	PageSize        int
	Courses         []domain.RawCourse
	Programs        []domain.RawProgram
	Subjects        []domain.RawSubject
	Translations    map[string][]domain.RawSubject // language code -> subjects
	Organizations   []domain.RawOrganization
	Currency        map[string]domain.RawCurrencyInfo
	Recommendations map[string][]string // course key -> recommended uuids
	// FailRecommendations lists course keys whose recommendations return 500.
	FailRecommendations map[string]bool
	// Prices maps sku to price for basket calculation.
	Prices map[string]float64
	// BadTotals is the number of basket calls answered with non-numeric totals.
	BadTotals int
	// CacheHit marks basket responses as served from the ecommerce cache.
	CacheHit bool
	// Hits and Facets are keyed by search index name.
	Hits   map[string][]domain.RawSearchHit
	Facets map[string]domain.Facets
}

// Server is a running fake upstream.
type Server struct {
	*httptest.Server
	Catalog *Catalog

	mu            sync.Mutex
	requests      map[string]int
	basketQueries []url.Values
	tokenForms    []url.Values
	authHeaders   []string
}

// New starts a fake upstream serving cat. It is closed with the test.
func New(t *testing.T, cat *Catalog) *Server {
	t.Helper()
	if cat.PageSize <= 0 {
		cat.PageSize = 2
	}
	s := &Server{Catalog: cat, requests: make(map[string]int)}

	r := chi.NewRouter()
	r.Use(s.record)
	r.Route(strings.TrimSuffix(APIPath, "/"), func(r chi.Router) {
		r.Get("/courses", s.courses)
		r.Get("/courses/{uuid}", s.course)
		r.Get("/programs", s.programs)
		r.Get("/programs/{uuid}", s.program)
		r.Get("/subjects", s.subjects)
		r.Get("/organizations", s.organizations)
		r.Get("/currency", s.currency)
		r.Get("/course_recommendations/{key}", s.recommendations)
	})
	r.Get("/commerce/calculate/", s.calculate)
	r.Post("/oauth2/access_token", s.token)
	r.Get("/1/indexes/{index}/browse", s.browse)
	r.Get("/1/indexes/{index}", s.query)

	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// DiscoveryBase returns the catalog API root.
func (s *Server) DiscoveryBase() string { return s.URL + APIPath }

// CalculateURL returns the basket calculation endpoint.
func (s *Server) CalculateURL() string { return s.URL + "/commerce/calculate/" }

// TokenURL returns the credential exchange endpoint.
func (s *Server) TokenURL() string { return s.URL + "/oauth2/access_token" }

// Requests returns how many requests hit path.
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[path]
}

// TotalRequests returns the number of requests served.
func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.requests {
		n += c
	}
	return n
}

// BasketQueries returns the query of every basket calculation call.
func (s *Server) BasketQueries() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.basketQueries...)
}

// TokenForms returns the form of every credential exchange.
func (s *Server) TokenForms() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.tokenForms...)
}

// AuthHeaders returns the Authorization header of every catalog request.
func (s *Server) AuthHeaders() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.authHeaders...)
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests[r.URL.Path]++
		if strings.HasPrefix(r.URL.Path, APIPath) {
			s.authHeaders = append(s.authHeaders, r.Header.Get("Authorization"))
		}
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// page slices items for the request's page parameter and links the next page.
func page[T any](s *Server, w http.ResponseWriter, r *http.Request, items []T) {
	n, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if n < 1 {
		n = 1
	}
	size := s.Catalog.PageSize
	start := min((n-1)*size, len(items))
	end := min(start+size, len(items))

	var next *string
	if end < len(items) {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(n+1))
		u := "http://" + r.Host + r.URL.Path + "?" + q.Encode()
		next = &u
	}
	writeJSON(w, domain.Page[T]{Count: len(items), Next: next, Results: append([]T{}, items[start:end]...)})
}

func (s *Server) courses(w http.ResponseWriter, r *http.Request) {
	items := s.Catalog.Courses
	if raw := r.URL.Query().Get("uuids"); raw != "" {
		want := make(map[string]bool)
		for _, u := range strings.Split(raw, ",") {
			want[u] = true
		}
		items = nil
		for _, c := range s.Catalog.Courses {
			if want[c.UUID] {
				items = append(items, c)
			}
		}
	}
	page(s, w, r, items)
}

func (s *Server) course(w http.ResponseWriter, r *http.Request) {
	for _, c := range s.Catalog.Courses {
		if c.UUID == chi.URLParam(r, "uuid") {
			writeJSON(w, c)
			return
		}
	}
	http.NotFound(w, r)
}

func (s *Server) programs(w http.ResponseWriter, r *http.Request) {
	summaries := make([]domain.RawProgramSummary, 0, len(s.Catalog.Programs))
	for _, p := range s.Catalog.Programs {
		summaries = append(summaries, domain.RawProgramSummary{UUID: p.UUID})
	}
	page(s, w, r, summaries)
}

func (s *Server) program(w http.ResponseWriter, r *http.Request) {
	for _, p := range s.Catalog.Programs {
		if p.UUID == chi.URLParam(r, "uuid") {
			writeJSON(w, p)
			return
		}
	}
	http.NotFound(w, r)
}

func (s *Server) subjects(w http.ResponseWriter, r *http.Request) {
	if lang := r.URL.Query().Get("language_code"); lang != "" {
		page(s, w, r, s.Catalog.Translations[lang])
		return
	}
	page(s, w, r, s.Catalog.Subjects)
}

func (s *Server) organizations(w http.ResponseWriter, r *http.Request) {
	page(s, w, r, s.Catalog.Organizations)
}

func (s *Server) currency(w http.ResponseWriter, _ *http.Request) {
	if s.Catalog.Currency == nil {
		writeJSON(w, map[string]any{})
		return
	}
	writeJSON(w, s.Catalog.Currency)
}

func (s *Server) recommendations(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if s.Catalog.FailRecommendations[key] {
		http.Error(w, "recommendations unavailable", http.StatusInternalServerError)
		return
	}
	var resp domain.RawRecommendations
	for _, u := range s.Catalog.Recommendations[key] {
		resp.Recommendations = append(resp.Recommendations, struct {
			UUID string `json:"uuid"`
		}{UUID: u})
	}
	writeJSON(w, resp)
}

func (s *Server) calculate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.mu.Lock()
	s.basketQueries = append(s.basketQueries, q)
	bad := s.Catalog.BadTotals > 0
	if bad {
		s.Catalog.BadTotals--
	}
	s.mu.Unlock()

	if s.Catalog.CacheHit {
		w.Header().Set("X-Cache-Status", "HIT")
	}
	if bad {
		writeJSON(w, map[string]any{"total_incl_tax": "NaN", "total_incl_tax_excl_discounts": nil, "currency": "USD"})
		return
	}
	total := 0.0
	for _, sku := range q["sku"] {
		total += s.Catalog.Prices[sku]
	}
	writeJSON(w, map[string]any{
		"total_incl_tax":                total * 0.9,
		"total_incl_tax_excl_discounts": total,
		"currency":                      "USD",
	})
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.tokenForms = append(s.tokenForms, r.PostForm)
	s.mu.Unlock()

	if r.PostForm.Get("client_secret") != "secret" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
		return
	}
	writeJSON(w, map[string]any{"access_token": Token, "token_type": "JWT", "expires_in": 3600})
}

// SearchHost returns the root serving the search index API.
func (s *Server) SearchHost() string { return s.URL }

func (s *Server) browse(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("X-Algolia-API-Key") == "" {
		http.Error(w, "missing api key", http.StatusForbidden)
		return
	}
	hits := s.Catalog.Hits[chi.URLParam(r, "index")]
	start, _ := strconv.Atoi(r.URL.Query().Get("cursor"))
	start = min(start, len(hits))
	end := min(start+s.Catalog.PageSize, len(hits))

	resp := map[string]any{"hits": append([]domain.RawSearchHit{}, hits[start:end]...)}
	if end < len(hits) {
		resp["cursor"] = strconv.Itoa(end)
	}
	writeJSON(w, resp)
}

func (s *Server) query(w http.ResponseWriter, r *http.Request) {
	facets := s.Catalog.Facets[chi.URLParam(r, "index")]
	if facets == nil {
		facets = domain.Facets{}
	}
	writeJSON(w, map[string]any{"hits": []any{}, "nbHits": 0, "facets": facets})
}

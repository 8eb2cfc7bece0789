package service

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/prospectus/catalog-source/internal/auth"
	"github.com/prospectus/catalog-source/internal/catalogtest"
	"github.com/prospectus/catalog-source/internal/config"
	"github.com/prospectus/catalog-source/internal/domain"
	domainerrors "github.com/prospectus/catalog-source/internal/errors"
	"github.com/prospectus/catalog-source/internal/fetch"
	"github.com/prospectus/catalog-source/internal/graph"
	"github.com/prospectus/catalog-source/internal/ratelimit"
	"github.com/prospectus/catalog-source/internal/search"
	"github.com/prospectus/catalog-source/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() *catalogtest.Catalog {
	subjectRefs := func(uuids ...string) []domain.RawSubjectRef {
		refs := make([]domain.RawSubjectRef, 0, len(uuids))
		for _, u := range uuids {
			refs = append(refs, domain.RawSubjectRef{UUID: u})
		}
		return refs
	}
	return &catalogtest.Catalog{
		PageSize: 2,
		Courses: []domain.RawCourse{
			{
				Key: "HarvardX+CS50", UUID: "c1", Title: "CS50", URLSlug: "cs50", InProspectus: true,
				Subjects:     subjectRefs("s1"),
				Topics:       []domain.RawTopic{{Topic: "Data Science"}},
				Entitlements: []domain.RawEntitlement{{Mode: "verified", SKU: "C1-VER"}},
				Owners:       []domain.RawOrgRef{{Key: "HarvardX"}},
			},
			{
				Key: "HarvardX+DS", UUID: "c2", Title: "Data Science", URLSlug: "ds", InProspectus: true,
				Subjects: subjectRefs("s1", "s2"),
				Topics:   []domain.RawTopic{{Topic: "Data Science"}, {Topic: "Python"}},
				ActiveCourseRun: &domain.RawCourseRun{Key: "run", Seats: []domain.RawSeat{
					{Type: "audit", SKU: "C2-AUD"},
					{Type: "verified", SKU: "SKU1"},
				}},
			},
			{
				Key: "MITx+Calc", UUID: "c3", Title: "Calculus", URLSlug: "calc", InProspectus: true,
				Subjects: subjectRefs("s2"),
			},
		},
		Programs: []domain.RawProgram{
			{UUID: "p1", Title: "Data Science XSeries", Type: "XSeries", Courses: []domain.RawProgramCourse{
				{UUID: "c1", Key: "HarvardX+CS50", Entitlements: []domain.RawEntitlement{{Mode: "verified", SKU: "C1-VER"}}},
				{UUID: "c2", Key: "HarvardX+DS"},
			}},
			{UUID: "p2", Title: "Calculus Series", Type: "XSeries", Courses: []domain.RawProgramCourse{
				{UUID: "c3", Key: "MITx+Calc", Entitlements: []domain.RawEntitlement{{Mode: "audit", SKU: "C3-AUD"}}},
			}},
		},
		Subjects: []domain.RawSubject{
			{UUID: "s1", Name: "Computer Science", Slug: "computer-science"},
			{UUID: "s2", Name: "Math", Slug: "math"},
		},
		Translations: map[string][]domain.RawSubject{
			"es": {{UUID: "s1", Name: "Informática"}, {UUID: "s2", Name: "Matemáticas"}},
		},
		Organizations:       []domain.RawOrganization{{Key: "HarvardX", UUID: "o1", Name: "Harvard"}, {Key: "MITx", UUID: "o2", Name: "MIT"}},
		Currency:            map[string]domain.RawCurrencyInfo{"EUR": {Code: "EUR", Symbol: "€", Rate: 0.9}},
		Recommendations:     map[string][]string{"HarvardX+CS50": {"c2", "c3"}},
		FailRecommendations: map[string]bool{"MITx+Calc": true},
		Prices:              map[string]float64{"C1-VER": 100, "SKU1": 50},
	}
}

type harness struct {
	srv   *catalogtest.Server
	svc   *SourcingService
	store *store.Store
}

func newHarness(t *testing.T, cat *catalogtest.Catalog, settings func(*Settings), opts *config.Options) *harness {
	t.Helper()
	srv := catalogtest.New(t, cat)

	s, err := store.New("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	collections := store.NewCollections(s, nil)

	en, err := search.OpenLocal(search.LocalOptions{Name: "product"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = en.Close() })
	require.NoError(t, en.IndexHits([]domain.SearchHit{
		{ObjectID: "course-c1", UUID: "c1", Product: "Course", PartnerKeys: []string{"HarvardX"}, Partner: []string{"Harvard"}},
		{ObjectID: "program-p1", UUID: "p1", Product: "Program", PartnerKeys: []string{"HarvardX"}, Partner: []string{"Harvard"}},
	}))
	es, err := search.OpenLocal(search.LocalOptions{Name: "spanish_product"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = es.Close() })

	st := Settings{
		DiscoveryBaseURL: srv.DiscoveryBase(),
		CalculateURL:     srv.CalculateURL(),
		BasketURL:        "https://ecommerce.example.com/basket/add/",
		Auth: auth.Options{
			TokenURL:     srv.TokenURL(),
			ClientID:     "client",
			ClientSecret: "secret",
			HTTPClient:   srv.Client(),
		},
		Languages: []string{"es"},
	}
	if settings != nil {
		settings(&st)
	}

	svc := NewSourcingService(Options{
		Settings: st,
		Fetcher: fetch.New(fetch.Options{
			HTTPClient: srv.Client(),
			Retry:      fetch.RetryPolicy{MaxAttempts: 2},
			Sleep:      func(context.Context, time.Duration) error { return nil },
		}),
		Limiters:    ratelimit.NewRegistry(nil, ratelimit.Settings{MaxConcurrent: 3}),
		Collections: collections,
		Search: search.NewMerger(map[string]search.Index{
			domain.LocaleEN: en,
			domain.LocaleES: es,
		}, collections, nil),
		Params: opts,
	})
	return &harness{srv: srv, svc: svc, store: s}
}

func recommendAll() *config.Options {
	return &config.Options{Recommendations: &config.RecommendationOptions{CourseUUIDs: []string{"c1", "c3"}}}
}

func findCourse(g *graph.Graph, uuid string) *domain.Course {
	for _, c := range g.Courses {
		if c.UUID == uuid {
			return c
		}
	}
	return nil
}

func TestRun_ResolvesFullCatalog(t *testing.T) {
	h := newHarness(t, testCatalog(), nil, recommendAll())

	res, err := h.svc.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)
	g := res.Graph

	// Programs are priced from entitlements plus the seat fallback.
	require.Len(t, g.Programs, 2)
	p1 := g.Programs[0]
	require.NotNil(t, p1.ProgramPrice)
	assert.InDelta(t, 135.0, *p1.ProgramPrice, 1e-9)
	assert.Equal(t, []string{"C1-VER", "SKU1"}, p1.SKUs)
	assert.Equal(t, "https://ecommerce.example.com/basket/add/?bundle=p1", p1.EnrollBaseURL)
	assert.Len(t, p1.Courses, 2)
	assert.Nil(t, g.Programs[1].ProgramPrice, "a program with no eligible sku stays unpriced")

	// Recommendations resolve to stubs; a failing course degrades to an empty list.
	c1 := findCourse(g, "c1")
	require.NotNil(t, c1)
	require.Len(t, c1.Recommendations, 2)
	assert.Equal(t, "c2", c1.Recommendations[0].UUID)
	assert.Empty(t, findCourse(g, "c3").Recommendations)
	require.Len(t, res.Diagnostics, 1)
	assert.Equal(t, domainerrors.CodeRecommendation, res.Diagnostics[0].Code)
	assert.Equal(t, "c3", res.Diagnostics[0].Key)

	// Subjects carry translations and both edge directions.
	require.Len(t, g.Subjects, 2)
	assert.Equal(t, "Informática", g.Subjects[0].Labels["es"])
	assert.Len(t, g.Subjects[0].Courses, 2)
	assert.Len(t, findCourse(g, "c2").Subjects, 2)

	// One topic per distinct tag.
	require.Len(t, g.Topics, 2)
	assert.Equal(t, "Data Science", g.Topics[0].Name)
	assert.Len(t, g.Topics[0].Courses, 2)

	require.Len(t, g.Currencies, 1)
	assert.Equal(t, "EUR", g.Currencies[0].ISO3)

	require.Len(t, g.Organizations, 2)
	assert.Len(t, g.Organizations[0].OrderedHits[domain.LocaleEN], 2)
	assert.NotEmpty(t, g.Refinements)

	for _, header := range h.srv.AuthHeaders() {
		assert.Equal(t, "JWT "+catalogtest.Token, header)
	}
	assert.Same(t, res, h.svc.Last())
}

func TestRun_SecondRunUsesCollectionCache(t *testing.T) {
	h := newHarness(t, testCatalog(), nil, nil)

	_, err := h.svc.Run(context.Background())
	require.NoError(t, err)
	courses := h.srv.Requests("/api/v1/courses")
	programs := h.srv.Requests("/api/v1/programs")
	subjects := h.srv.Requests("/api/v1/subjects")

	res, err := h.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, courses, h.srv.Requests("/api/v1/courses"))
	assert.Equal(t, programs, h.srv.Requests("/api/v1/programs"))
	assert.Equal(t, subjects, h.srv.Requests("/api/v1/subjects"))

	// Cached programs keep their price.
	require.NotNil(t, res.Graph.Programs[0].ProgramPrice)
	assert.Len(t, res.Graph.Courses, 3)
}

func TestRun_LimitedMode(t *testing.T) {
	opts := &config.Options{Limited: &config.LimitedOptions{
		CourseUUIDs:  []string{"c1", "c2"},
		ProgramUUIDs: []string{"p1"},
	}}
	h := newHarness(t, testCatalog(), func(s *Settings) { s.Limited = true }, opts)

	res, err := h.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Graph.Courses, 2)
	require.Len(t, res.Graph.Programs, 1)
	assert.Equal(t, "p1", res.Graph.Programs[0].UUID)
	assert.Equal(t, 1, h.srv.Requests("/api/v1/courses/c1"))
	assert.Equal(t, 1, h.srv.Requests("/api/v1/courses/c2"))
	assert.Zero(t, h.srv.Requests("/api/v1/courses/c3"))

	ok, err := h.store.Get(context.Background(), store.LimitedCourses, &[]*domain.Course{})
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = h.store.Get(context.Background(), store.AllCourses, &[]*domain.Course{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRun_LimitedCourseFailureIsFatal(t *testing.T) {
	opts := &config.Options{Limited: &config.LimitedOptions{CourseUUIDs: []string{"c1", "gone"}}}
	h := newHarness(t, testCatalog(), func(s *Settings) { s.Limited = true }, opts)

	res, err := h.svc.Run(context.Background())
	assert.Nil(t, res)
	require.ErrorIs(t, err, domainerrors.ErrFetchFailed)
	assert.Contains(t, err.Error(), "course gone")
}

func TestRun_MissingSubjectIsFatal(t *testing.T) {
	cat := testCatalog()
	cat.Courses[0].Subjects = nil
	cat.Courses[2].Subjects = nil
	h := newHarness(t, cat, nil, nil)

	res, err := h.svc.Run(context.Background())
	assert.Nil(t, res)
	require.ErrorIs(t, err, domainerrors.ErrDataIntegrity)
	assert.Contains(t, err.Error(), "UUID - c1")
	assert.Contains(t, err.Error(), "UUID - c3")
	assert.Nil(t, h.svc.Last())
}

func TestRun_AuthFailure(t *testing.T) {
	h := newHarness(t, testCatalog(), func(s *Settings) { s.Auth.ClientSecret = "wrong" }, nil)

	_, err := h.svc.Run(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrAuth)
	assert.Zero(t, h.srv.Requests("/api/v1/courses"))
}

func TestRun_LocalDiscoveryCurrencyFallback(t *testing.T) {
	cat := testCatalog()
	cat.Currency = nil
	h := newHarness(t, cat, func(s *Settings) { s.LocalDiscovery = true }, nil)

	res, err := h.svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Graph.Currencies, 1)
	assert.Equal(t, "USD", res.Graph.Currencies[0].ISO3)
}

func TestWriteExport(t *testing.T) {
	h := newHarness(t, testCatalog(), nil, recommendAll())
	res, err := h.svc.Run(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, WriteExport(&buf, res, now))

	var decoded struct {
		RunID       string         `json:"runId"`
		GeneratedAt time.Time      `json:"generatedAt"`
		Counts      map[string]int `json:"counts"`
		Nodes       []graph.Node   `json:"nodes"`
		Diagnostics []Diagnostic   `json:"diagnostics"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, res.RunID, decoded.RunID)
	assert.Equal(t, now, decoded.GeneratedAt)
	assert.Len(t, decoded.Nodes, res.Graph.Len())
	assert.Equal(t, 3, decoded.Counts[domain.TypeCourse])
	assert.Len(t, decoded.Diagnostics, 1)
}

package service

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/prospectus/catalog-source/internal/auth"
	"github.com/prospectus/catalog-source/internal/commerce"
	"github.com/prospectus/catalog-source/internal/config"
	"github.com/prospectus/catalog-source/internal/discovery"
	"github.com/prospectus/catalog-source/internal/domain"
	domainerrors "github.com/prospectus/catalog-source/internal/errors"
	"github.com/prospectus/catalog-source/internal/fetch"
	"github.com/prospectus/catalog-source/internal/graph"
	"github.com/prospectus/catalog-source/internal/id"
	"github.com/prospectus/catalog-source/internal/logger"
	"github.com/prospectus/catalog-source/internal/processor"
	"github.com/prospectus/catalog-source/internal/ratelimit"
	"github.com/prospectus/catalog-source/internal/search"
	"github.com/prospectus/catalog-source/internal/store"
	"golang.org/x/sync/errgroup"
)

// detailWorkers bounds goroutines per fan-out; the upstream limiters bound requests.
const detailWorkers = 16

// Settings are the run parameters taken from configuration.
type Settings struct {
	DiscoveryBaseURL string
	CalculateURL     string
	BasketURL        string
	Auth             auth.Options
	Languages        []string
	Limited          bool
	LocalDiscovery   bool
	Development      bool
}

// SettingsFromConfig extracts run settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		DiscoveryBaseURL: cfg.Discovery.BaseURL(),
		CalculateURL:     cfg.Commerce.BasketCalculateURL,
		BasketURL:        cfg.Commerce.BasketURL,
		Auth: auth.Options{
			TokenURL:     cfg.Auth.TokenURL,
			ClientID:     cfg.Auth.ClientID,
			ClientSecret: cfg.Auth.ClientSecret,
			Ignore:       cfg.Auth.Ignore,
		},
		Languages:      cfg.Source.Languages,
		Limited:        cfg.Source.Limited,
		LocalDiscovery: cfg.Discovery.Local,
		Development:    cfg.App.IsDevelopment(),
	}
}

// Options wires a SourcingService.
type Options struct {
	Settings    Settings
	Fetcher     *fetch.Client
	Limiters    *ratelimit.Registry
	Collections *store.Collections
	// Search is optional; without it organizations carry no hits and no refinements are produced.
	Search *search.Merger
	Params *config.Options
	Logger *logger.Logger
}

// SourcingService runs the sourcing pipeline. Runs share only the fetcher,
// limiters and caches; every other piece of state belongs to one RunContext.
type SourcingService struct {
	settings    Settings
	fetcher     *fetch.Client
	limiters    *ratelimit.Registry
	collections *store.Collections
	search      *search.Merger
	params      *config.Options
	logger      *logger.Logger

	mu   sync.RWMutex
	last *Result
}

// NewSourcingService creates the service.
func NewSourcingService(opts Options) *SourcingService {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	limiters := opts.Limiters
	if limiters == nil {
		limiters = ratelimit.NewRegistry(ratelimit.DefaultSettings, ratelimit.Settings{})
	}
	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = fetch.New(fetch.Options{Logger: log})
	}
	return &SourcingService{
		settings:    opts.Settings,
		fetcher:     fetcher,
		limiters:    limiters,
		collections: opts.Collections,
		search:      opts.Search,
		params:      opts.Params,
		logger:      log.Component("sourcing"),
	}
}

// Last returns the most recent successful run, or nil.
func (s *SourcingService) Last() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Run fetches, processes and resolves the catalog. Any fatal failure aborts
// the run and no partial graph is published.
func (s *SourcingService) Run(ctx context.Context) (*Result, error) {
	runID, err := id.Generate("run")
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "generate run id")
	}
	log := s.logger.WithField("run_id", runID)
	rc := &RunContext{
		ID:          runID,
		StartedAt:   time.Now(),
		Diagnostics: &Diagnostics{log: log},
		Logger:      log,
	}

	activity := log.StartActivity("sourcing run")

	authOpts := s.settings.Auth
	authOpts.Logger = log
	rc.Header, err = auth.Exchange(ctx, authOpts)
	if err != nil {
		return nil, err
	}

	g, err := s.newRun(rc).execute(ctx)
	if err != nil {
		log.Error("sourcing run failed", "error", err)
		return nil, err
	}

	res := &Result{
		RunID:       runID,
		StartedAt:   rc.StartedAt,
		Graph:       g,
		Diagnostics: rc.Diagnostics.List(),
	}
	res.Duration = activity.End("nodes", g.Len(), "diagnostics", len(res.Diagnostics))

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()
	return res, nil
}

// run holds the clients bound to one RunContext.
type run struct {
	svc    *SourcingService
	rc     *RunContext
	disco  *discovery.Client
	pricer *commerce.Pricer
	log    *logger.Logger
}

func (s *SourcingService) newRun(rc *RunContext) *run {
	disco := discovery.New(discovery.Options{
		BaseURL: s.settings.DiscoveryBaseURL,
		Getter:  s.fetcher,
		Limiter: s.limiters.Get(ratelimit.Discovery),
		Params:  s.params,
		Header:  rc.Header,
		Logger:  rc.Logger,
	})
	basket := commerce.NewClient(commerce.ClientOptions{
		CalculateURL: s.settings.CalculateURL,
		Fetcher:      s.fetcher,
		Limiter:      s.limiters.Get(ratelimit.Ecommerce),
		Header:       rc.Header,
		Development:  s.settings.Development,
		Logger:       rc.Logger,
	})
	return &run{
		svc:    s,
		rc:     rc,
		disco:  disco,
		pricer: commerce.NewPricer(basket, disco, s.settings.BasketURL, rc.Logger),
		log:    rc.Logger,
	}
}

func (r *run) execute(ctx context.Context) (*graph.Graph, error) {
	fetchActivity := r.log.StartActivity("fetch data")

	var (
		programs []*domain.Program
		courses  []*domain.Course
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		programs, err = r.programs(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		courses, err = r.courses(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := r.recommendations(ctx, courses); err != nil {
		return nil, err
	}
	currencies, err := r.currencies(ctx)
	if err != nil {
		return nil, err
	}
	organizations, err := store.GetOrFetch(ctx, r.svc.collections, store.AllOrganizations, r.disco.Organizations)
	if err != nil {
		return nil, err
	}
	subjects, err := store.GetOrFetch(ctx, r.svc.collections, store.AllSubjects, r.subjects)
	if err != nil {
		return nil, err
	}
	topics := processor.Topics(courses)
	results, refinements, err := r.searchData(ctx)
	if err != nil {
		return nil, err
	}
	fetchActivity.End(
		"programs", len(programs),
		"courses", len(courses),
		"subjects", len(subjects),
		"organizations", len(organizations),
		"topics", len(topics),
	)

	buildActivity := r.log.StartActivity("resolve graph")
	resolved := graph.Build(graph.Input{
		Courses:       courses,
		Programs:      programs,
		Subjects:      subjects,
		Topics:        topics,
		Organizations: organizations,
		Currencies:    currencies,
		Refinements:   refinements,
		SearchResults: results,
	})
	buildActivity.End("nodes", resolved.Len())
	return resolved, nil
}

// programs fetches and prices every program, or the limited list.
func (r *run) programs(ctx context.Context) ([]*domain.Program, error) {
	name := store.AllPrograms
	if r.svc.settings.Limited {
		name = store.LimitedPrograms
	}
	return store.GetOrFetch(ctx, r.svc.collections, name, func(ctx context.Context) ([]*domain.Program, error) {
		uuids := r.svc.params.LimitedProgramUUIDs()
		if !r.svc.settings.Limited {
			var err error
			if uuids, err = r.disco.ProgramUUIDs(ctx); err != nil {
				return nil, err
			}
		}
		return r.programDetails(ctx, uuids)
	})
}

// programDetails fetches program details concurrently, keeping uuid order.
// Pricing runs after the detail request has left the limiter.
func (r *run) programDetails(ctx context.Context, uuids []string) ([]*domain.Program, error) {
	progress := r.log.NewProgress("programs", 50)
	out := make([]*domain.Program, len(uuids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailWorkers)
	for i, uuid := range uuids {
		g.Go(func() error {
			p, err := r.disco.Program(gctx, uuid)
			if err != nil {
				return fmt.Errorf("program %s: %w", uuid, err)
			}
			if err := r.pricer.Resolve(gctx, p); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.rc.Diagnostics.Add(domain.TypeProgram, uuid, err)
			}
			out[i] = p
			progress.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// courses fetches every course, or the limited list.
func (r *run) courses(ctx context.Context) ([]*domain.Course, error) {
	if r.svc.settings.Limited {
		return store.GetOrFetch(ctx, r.svc.collections, store.LimitedCourses, func(ctx context.Context) ([]*domain.Course, error) {
			return r.courseDetails(ctx, r.svc.params.LimitedCourseUUIDs())
		})
	}
	return store.GetOrFetch(ctx, r.svc.collections, store.AllCourses, r.disco.Courses)
}

// courseDetails fetches each course detail concurrently, keeping uuid order.
// Any failed course fails the run.
func (r *run) courseDetails(ctx context.Context, uuids []string) ([]*domain.Course, error) {
	out := make([]*domain.Course, len(uuids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailWorkers)
	for i, uuid := range uuids {
		g.Go(func() error {
			c, err := r.disco.Course(gctx, uuid)
			if err != nil {
				return fmt.Errorf("course %s: %w", uuid, err)
			}
			out[i] = c
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// recommendations fetches recommendations for the allow-listed courses. A
// failing course gets an empty list and a diagnostic.
func (r *run) recommendations(ctx context.Context, courses []*domain.Course) error {
	activity := r.log.StartActivity("fetch course recommendations")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(detailWorkers)

	requested := 0
	for _, c := range courses {
		c.RecommendationUUIDs = []string{}
		if !r.svc.params.WantsRecommendations(c.UUID) {
			continue
		}
		requested++
		g.Go(func() error {
			uuids, err := r.disco.Recommendations(gctx, c.Key)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				r.rc.Diagnostics.Add(domain.TypeCourse, c.UUID,
					domainerrors.Recommendationf("recommendations for %s", c.Key).WithCause(err))
				return nil
			}
			c.RecommendationUUIDs = uuids
			return nil
		})
	}
	err := g.Wait()
	activity.End("courses", requested)
	return err
}

// currencies fetches the currency map. A local catalog without one falls back to USD.
func (r *run) currencies(ctx context.Context) ([]*domain.Currency, error) {
	local := r.svc.settings.LocalDiscovery
	m, err := r.disco.Currency(ctx)
	if err != nil {
		if !local {
			return nil, err
		}
		r.log.Warn("currency fetch failed against local catalog, using USD", "error", err)
		m = nil
	}
	return processor.Currencies(m, local), nil
}

// subjects fetches the base subjects and applies every configured translation.
func (r *run) subjects(ctx context.Context) ([]*domain.Subject, error) {
	subjects, err := r.disco.Subjects(ctx)
	if err != nil {
		return nil, err
	}

	langs := r.svc.settings.Languages
	translated := make([][]domain.RawSubject, len(langs))
	g, gctx := errgroup.WithContext(ctx)
	for i, lang := range langs {
		g.Go(func() error {
			var err error
			translated[i], err = r.disco.TranslatedSubjects(gctx, lang)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byUUID := make(map[string]*domain.Subject, len(subjects))
	for _, s := range subjects {
		byUUID[s.UUID] = s
	}
	for i, lang := range langs {
		for j := range translated[i] {
			if base, ok := byUUID[translated[i][j].UUID]; ok {
				processor.ApplySubjectTranslation(base, lang, &translated[i][j])
			}
		}
	}
	return subjects, nil
}

// searchData returns partner-keyed hits and the refinements of every locale.
func (r *run) searchData(ctx context.Context) (domain.SearchResults, []*domain.SearchRefinement, error) {
	if r.svc.search == nil {
		return domain.SearchResults{}, nil, nil
	}
	results, err := r.svc.search.Results(ctx)
	if err != nil {
		return nil, nil, err
	}
	facets, err := r.svc.search.Refinements(ctx)
	if err != nil {
		return nil, nil, err
	}

	var refinements []*domain.SearchRefinement
	for _, locale := range slices.Sorted(maps.Keys(facets)) {
		refinements = append(refinements, processor.Refinements(locale, facets[locale])...)
	}
	return results, refinements, nil
}

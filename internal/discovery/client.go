// Package discovery is the catalog API client: typed endpoints over the
// fetch core, scheduled through the catalog upstream's rate limiter.
package discovery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/prospectus/catalog-source/internal/domain"
	domainerrors "github.com/prospectus/catalog-source/internal/errors"
	"github.com/prospectus/catalog-source/internal/fetch"
	"github.com/prospectus/catalog-source/internal/logger"
	"github.com/prospectus/catalog-source/internal/processor"
	"github.com/prospectus/catalog-source/internal/ratelimit"
)

// Collection names used for query parameter overrides.
const (
	ParamsCourses       = "courses"
	ParamsPrograms      = "programs"
	ParamsProgramDetail = "program_detail"
	ParamsSubjects      = "subjects"
	ParamsOrganizations = "organizations"
)

const progressEvery = 100

// omittedProgramFields are program detail fields the pipeline never reads.
var omittedProgramFields = []string{
	"corporate_endorsements",
	"credit_backing_organizations",
	"expected_learning_items",
	"faq",
	"individual_endorsements",
	"instructor_ordering",
	"job_outlook_items",
	"staff",
	"video",
}

// ParamSource supplies per-collection query parameter overrides.
type ParamSource interface {
	Params(collection string) map[string]string
}

// Options configures a Client.
type Options struct {
	// BaseURL is the API root ending in "/".
	BaseURL string
	Getter  Getter
	Limiter *ratelimit.Limiter
	Params  ParamSource
	// Header carries the run's credential.
	Header http.Header
	Logger *logger.Logger
}

// Client calls the catalog API for one run.
type Client struct {
	base   string
	get    Getter
	params ParamSource
	header http.Header
	logger *logger.Logger
}

// New creates a catalog client. Every request waits on opts.Limiter when set.
func New(opts Options) *Client {
	get := opts.Getter
	if opts.Limiter != nil {
		get = &limitedGetter{next: get, limiter: opts.Limiter}
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	base := opts.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Client{base: base, get: get, params: opts.Params, header: opts.Header, logger: log.Component("discovery")}
}

type limitedGetter struct {
	next    Getter
	limiter *ratelimit.Limiter
}

func (l *limitedGetter) Get(ctx context.Context, u string, header http.Header) (*fetch.Response, error) {
	return ratelimit.Schedule(ctx, l.limiter, func(ctx context.Context) (*fetch.Response, error) {
		return l.next.Get(ctx, u, header)
	})
}

// Courses fetches every course. Courses shown in the catalog without a
// subject are collected across all pages and reported as one error.
func (c *Client) Courses(ctx context.Context) ([]*domain.Course, error) {
	progress := c.logger.NewProgress("courses", progressEvery)
	return Paginate(ctx, c.get, c.header, c.url("courses", ParamsCourses, nil), PageOptions[domain.RawCourse, *domain.Course]{
		Collection: "courses",
		Process:    processor.Course,
		Check:      processor.MissingSubject,
		OnPage:     c.onPage("courses", progress),
	})
}

// CoursesByUUID fetches the listed courses through the collection endpoint.
func (c *Client) CoursesByUUID(ctx context.Context, uuids []string) ([]*domain.Course, error) {
	extra := url.Values{"uuids": {strings.Join(uuids, ",")}}
	return Paginate(ctx, c.get, c.header, c.url("courses", ParamsCourses, extra), PageOptions[domain.RawCourse, *domain.Course]{
		Collection: "courses by uuid",
		Process:    processor.Course,
	})
}

// Course fetches one course detail.
func (c *Client) Course(ctx context.Context, uuid string) (*domain.Course, error) {
	raw, err := getJSON[domain.RawCourse](ctx, c, c.url("courses/"+url.PathEscape(uuid), "", nil))
	if err != nil {
		return nil, err
	}
	return processor.Course(raw), nil
}

// ProgramUUIDs lists every program uuid.
func (c *Client) ProgramUUIDs(ctx context.Context) ([]string, error) {
	extra := url.Values{"fields": {"uuid"}}
	return Paginate(ctx, c.get, c.header, c.url("programs", ParamsPrograms, extra), PageOptions[domain.RawProgramSummary, string]{
		Collection: "programs",
		Process:    func(p *domain.RawProgramSummary) string { return p.UUID },
	})
}

// Program fetches one program detail.
func (c *Client) Program(ctx context.Context, uuid string) (*domain.Program, error) {
	extra := url.Values{"format": {"json"}, "omit": {strings.Join(omittedProgramFields, ",")}}
	raw, err := getJSON[domain.RawProgram](ctx, c, c.url("programs/"+url.PathEscape(uuid), ParamsProgramDetail, extra))
	if err != nil {
		return nil, err
	}
	return processor.Program(raw), nil
}

// Subjects fetches every subject in the base language.
func (c *Client) Subjects(ctx context.Context) ([]*domain.Subject, error) {
	return Paginate(ctx, c.get, c.header, c.url("subjects", ParamsSubjects, nil), PageOptions[domain.RawSubject, *domain.Subject]{
		Collection: "subjects",
		Process:    processor.Subject,
	})
}

// TranslatedSubjects fetches every subject in lang.
func (c *Client) TranslatedSubjects(ctx context.Context, lang string) ([]domain.RawSubject, error) {
	extra := url.Values{"language_code": {lang}}
	return Paginate(ctx, c.get, c.header, c.url("subjects", ParamsSubjects, extra), PageOptions[domain.RawSubject, domain.RawSubject]{
		Collection: "subjects (" + lang + ")",
		Process:    func(s *domain.RawSubject) domain.RawSubject { return *s },
	})
}

// Organizations fetches every organization.
func (c *Client) Organizations(ctx context.Context) ([]*domain.Organization, error) {
	return Paginate(ctx, c.get, c.header, c.url("organizations", ParamsOrganizations, nil), PageOptions[domain.RawOrganization, *domain.Organization]{
		Collection: "organizations",
		Process:    processor.Organization,
	})
}

// Currency fetches the currency map keyed by ISO code.
func (c *Client) Currency(ctx context.Context) (map[string]domain.RawCurrencyInfo, error) {
	m, err := getJSON[map[string]domain.RawCurrencyInfo](ctx, c, c.url("currency", "", nil))
	if err != nil {
		return nil, err
	}
	return *m, nil
}

// Recommendations fetches the recommended course uuids for a course key.
func (c *Client) Recommendations(ctx context.Context, courseKey string) ([]string, error) {
	raw, err := getJSON[domain.RawRecommendations](ctx, c, c.url("course_recommendations/"+url.PathEscape(courseKey), "", nil))
	if err != nil {
		return nil, err
	}
	return processor.Recommendations(raw), nil
}

// url joins path onto the base and merges extra with the collection's overrides.
// Overrides win over extra. Keys are encoded sorted so equal requests yield equal URLs.
func (c *Client) url(path, collection string, extra url.Values) string {
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	if c.params != nil && collection != "" {
		for k, v := range c.params.Params(collection) {
			q.Set(k, v)
		}
	}
	u := c.base + path
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

func (c *Client) onPage(collection string, progress *logger.Progress) func(page, items, total int) {
	return func(page, items, total int) {
		progress.Add(items - progress.Count())
		c.logger.Debug("page fetched", "collection", collection, "page", page, "items", items, "total", total)
	}
}

func getJSON[T any](ctx context.Context, c *Client, u string) (*T, error) {
	resp, err := c.get.Get(ctx, u, c.header)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, domainerrors.Wrapf(err, domainerrors.CodeFetchFailed, "decode %s", u)
	}
	return &out, nil
}

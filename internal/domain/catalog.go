// Package domain defines the catalog entities as fetched (Raw*) and as processed and resolved.
//
// Resolved relationships are pointer fields tagged `json:"-"`. They are
// exported only as node-id links by the graph package, so encoding an entity
// never recurses through its neighbours.
package domain

// Node types.
const (
	TypeCourse           = "Course"
	TypeProgram          = "Program"
	TypeSubject          = "Subject"
	TypeTopic            = "Topic"
	TypeOrganization     = "Organization"
	TypeCurrency         = "Currency"
	TypeSearchRefinement = "SearchRefinement"
)

// Locales of the search indices. LocaleEN is also the base subject language.
const (
	LocaleEN = "en"
	LocaleES = "es"
)

// Entitlement is a purchasable course mode.
type Entitlement struct {
	Mode string `json:"mode"`
	SKU  string `json:"sku"`
}

// Seat is a purchasable seat of a course run.
type Seat struct {
	Type string `json:"type"`
	SKU  string `json:"sku"`
}

// CourseRun is the active run of a course.
type CourseRun struct {
	Key          string `json:"key"`
	Availability string `json:"availability,omitempty"`
	Seats        []Seat `json:"seats"`
}

// CourseStub is a uuid-only reference to another course.
type CourseStub struct {
	UUID   string `json:"uuid"`
	NodeID string `json:"nodeId"`
}

// Course is a processed catalog course.
type Course struct {
	NodeID              string        `json:"nodeId"`
	Key                 string        `json:"key"`
	UUID                string        `json:"uuid"`
	Title               string        `json:"title"`
	URLSlug             string        `json:"urlSlug"`
	ShortDescription    string        `json:"shortDescription"`
	FullDescription     string        `json:"fullDescription"`
	DescriptionText     string        `json:"descriptionText"`
	CardImageURL        string        `json:"cardImageUrl,omitempty"`
	InProspectus        bool          `json:"inProspectus"`
	SubjectRefs         []string      `json:"subjectRefs"`
	OwnerKeys           []string      `json:"ownerKeys"`
	Entitlements        []Entitlement `json:"entitlements"`
	ActiveCourseRun     *CourseRun    `json:"activeCourseRun,omitempty"`
	Topics              []string      `json:"topics"`
	RecommendationUUIDs []string      `json:"recommendationUuids"`

	Subjects        []*Subject   `json:"-"`
	Programs        []*Program   `json:"-"`
	Recommendations []CourseStub `json:"recommendations"`
}

// ProgramCourse is a member course summary carried by a program.
type ProgramCourse struct {
	UUID         string        `json:"uuid"`
	Key          string        `json:"key"`
	Title        string        `json:"title"`
	Entitlements []Entitlement `json:"entitlements"`
}

// Program is a processed catalog program.
type Program struct {
	NodeID        string          `json:"nodeId"`
	UUID          string          `json:"uuid"`
	Title         string          `json:"title"`
	Subtitle      string          `json:"subtitle,omitempty"`
	Type          string          `json:"type"`
	MarketingURL  string          `json:"marketingUrl,omitempty"`
	CardImageURL  string          `json:"cardImageUrl,omitempty"`
	AuthoringKeys []string        `json:"authoringKeys"`
	CourseUUIDs   []string        `json:"courseUuids"`
	MemberCourses []ProgramCourse `json:"memberCourses"`

	// Set by commerce pricing; nil until it succeeds.
	ProgramPrice         *float64 `json:"programPrice"`
	ProgramOriginalPrice *float64 `json:"programOriginalPrice"`
	SKUs                 []string `json:"skus"`
	EnrollBaseURL        string   `json:"enrollBaseUrl,omitempty"`

	Courses []*Course `json:"-"`
}

// Subject is a processed catalog subject with per-language text.
type Subject struct {
	NodeID       string            `json:"nodeId"`
	UUID         string            `json:"uuid"`
	Name         string            `json:"name"`
	Slug         string            `json:"slug"`
	CardImageURL string            `json:"cardImageUrl,omitempty"`
	Labels       map[string]string `json:"labels"`
	Subtitles    map[string]string `json:"subtitles"`
	Descriptions map[string]string `json:"descriptions"`

	Courses []*Course `json:"-"`
}

// Topic is a distinct course topic tag.
type Topic struct {
	NodeID string `json:"nodeId"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`

	Courses []*Course `json:"-"`
}

// SearchHit is a processed search index object.
type SearchHit struct {
	ObjectID     string   `json:"objectId"`
	UUID         string   `json:"uuid"`
	Title        string   `json:"title"`
	Product      string   `json:"product"`
	PartnerKeys  []string `json:"partnerKeys"`
	Partner      []string `json:"partner"`
	Language     string   `json:"language,omitempty"`
	Subject      []string `json:"subject,omitempty"`
	Level        []string `json:"level,omitempty"`
	MarketingURL string   `json:"marketingUrl,omitempty"`
	CardImageURL string   `json:"cardImageUrl,omitempty"`
}

// Organization is a partner organization with its search hits per locale.
type Organization struct {
	NodeID       string                 `json:"nodeId"`
	Key          string                 `json:"key"`
	UUID         string                 `json:"uuid"`
	Name         string                 `json:"name"`
	LogoImageURL string                 `json:"logoImageUrl,omitempty"`
	MarketingURL string                 `json:"marketingUrl,omitempty"`
	OrderedHits  map[string][]SearchHit `json:"orderedHits"`
}

// CurrencyInfo is the conversion payload for one currency.
type CurrencyInfo struct {
	Code   string  `json:"code"`
	Symbol string  `json:"symbol"`
	Rate   float64 `json:"rate"`
}

// Currency is one ISO-4217 currency.
type Currency struct {
	NodeID string       `json:"nodeId"`
	ISO3   string       `json:"ISO3"`
	Info   CurrencyInfo `json:"currencyInfo"`
}

// FacetValue is one value of a search facet with its hit count.
type FacetValue struct {
	Value string `json:"valueName"`
	Count int    `json:"count"`
}

// SearchRefinement is a facet of one locale's search index.
type SearchRefinement struct {
	NodeID string       `json:"nodeId"`
	Name   string       `json:"name"`
	Locale string       `json:"locale"`
	Values []FacetValue `json:"values"`
}

// PartnerHits maps partner key to hits, in browse order.
type PartnerHits map[string][]SearchHit

// SearchResults holds partner-keyed hits per locale.
type SearchResults map[string]PartnerHits

// Facets maps facet name to value counts.
type Facets map[string]map[string]int

// SearchFacets holds facet counts per locale.
type SearchFacets map[string]Facets

package domain

import "encoding/json"

// Raw* types mirror the upstream JSON. They are only read by processors.

// Page is one page of a paginated catalog collection.
type Page[T any] struct {
	Count   int     `json:"count"`
	Next    *string `json:"next"`
	Results []T     `json:"results"`
}

// NextURL returns the next page URL, or "" on the last page.
func (p *Page[T]) NextURL() string {
	if p.Next == nil {
		return ""
	}
	return *p.Next
}

// RawEntitlement is a purchasable mode of a course.
type RawEntitlement struct {
	Mode     string `json:"mode"`
	SKU      string `json:"sku"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// RawSeat is a purchasable seat of a course run.
type RawSeat struct {
	Type     string `json:"type"`
	SKU      string `json:"sku"`
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// RawCourseRun is a scheduled offering of a course.
type RawCourseRun struct {
	Key          string    `json:"key"`
	UUID         string    `json:"uuid"`
	Start        string    `json:"start"`
	End          string    `json:"end"`
	Availability string    `json:"availability"`
	MarketingURL string    `json:"marketing_url"`
	Seats        []RawSeat `json:"seats"`
}

// RawSubjectRef is a subject as embedded in a course.
type RawSubjectRef struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// RawTopic is a topic tag as embedded in a course.
type RawTopic struct {
	Topic string `json:"topic"`
}

// RawOrgRef is an organization as embedded in a course.
type RawOrgRef struct {
	Key  string `json:"key"`
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// RawCourse is a catalog course record.
type RawCourse struct {
	Key              string           `json:"key"`
	UUID             string           `json:"uuid"`
	Title            string           `json:"title"`
	URLSlug          string           `json:"url_slug"`
	ShortDescription string           `json:"short_description"`
	FullDescription  string           `json:"full_description"`
	CardImageURL     string           `json:"card_image_url"`
	InProspectus     bool             `json:"in_prospectus"`
	Subjects         []RawSubjectRef  `json:"subjects"`
	Entitlements     []RawEntitlement `json:"entitlements"`
	ActiveCourseRun  *RawCourseRun    `json:"active_course_run"`
	Topics           []RawTopic       `json:"topics"`
	Owners           []RawOrgRef      `json:"owners"`
}

// RawProgramSummary is a program list entry requested with fields=uuid.
type RawProgramSummary struct {
	UUID string `json:"uuid"`
}

// RawProgramCourse is a member course as embedded in a program detail.
type RawProgramCourse struct {
	UUID         string           `json:"uuid"`
	Key          string           `json:"key"`
	Title        string           `json:"title"`
	Entitlements []RawEntitlement `json:"entitlements"`
}

// RawProgram is a catalog program detail record.
type RawProgram struct {
	UUID         string             `json:"uuid"`
	Title        string             `json:"title"`
	Subtitle     string             `json:"subtitle"`
	Type         string             `json:"type"`
	Status       string             `json:"status"`
	MarketingURL string             `json:"marketing_url"`
	CardImageURL string             `json:"card_image_url"`
	Courses      []RawProgramCourse `json:"courses"`
	Authoring    []RawOrgRef        `json:"authoring_organizations"`
}

// RawSubject is a catalog subject record, optionally translated.
type RawSubject struct {
	UUID         string `json:"uuid"`
	Name         string `json:"name"`
	Subtitle     string `json:"subtitle"`
	Description  string `json:"description"`
	Slug         string `json:"slug"`
	CardImageURL string `json:"card_image_url"`
}

// RawOrganization is a catalog organization record.
type RawOrganization struct {
	Key          string `json:"key"`
	UUID         string `json:"uuid"`
	Name         string `json:"name"`
	LogoImageURL string `json:"logo_image_url"`
	MarketingURL string `json:"marketing_url"`
	Description  string `json:"description"`
}

// RawRecommendations is the course recommendation response.
type RawRecommendations struct {
	Recommendations []struct {
		UUID string `json:"uuid"`
	} `json:"recommendations"`
}

// RawCurrencyInfo is one entry of the currency map keyed by ISO-4217 code.
type RawCurrencyInfo struct {
	Code   string  `json:"code"`
	Symbol string  `json:"symbol"`
	Rate   float64 `json:"rate"`
}

// RawBasket is a commerce basket calculation. Totals are kept raw because the
// upstream sometimes returns non-numeric values.
type RawBasket struct {
	TotalInclTax              json.RawMessage `json:"total_incl_tax"`
	TotalInclTaxExclDiscounts json.RawMessage `json:"total_incl_tax_excl_discounts"`
	Currency                  string          `json:"currency"`
}

// RawSearchHit is one object from a search index browse.
type RawSearchHit struct {
	ObjectID     string   `json:"objectID"`
	UUID         string   `json:"uuid"`
	Title        string   `json:"title"`
	Product      string   `json:"product"`
	PartnerKeys  []string `json:"partner_keys"`
	Partner      []string `json:"partner"`
	Language     string   `json:"language"`
	Subject      []string `json:"subject"`
	Level        []string `json:"level"`
	MarketingURL string   `json:"marketing_url"`
	CardImageURL string   `json:"card_image_url"`
}

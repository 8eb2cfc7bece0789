// Package processor holds the per-entity projections from raw catalog records
// to processed entities. Every function is pure and only sees its own record.
package processor

import (
	"github.com/prospectus/catalog-source/internal/domain"
	"github.com/prospectus/catalog-source/internal/id"
)

// Course projects a raw course.
func Course(raw *domain.RawCourse) *domain.Course {
	c := &domain.Course{
		NodeID:           id.NodeID(domain.TypeCourse, raw.UUID),
		Key:              raw.Key,
		UUID:             raw.UUID,
		Title:            raw.Title,
		URLSlug:          raw.URLSlug,
		ShortDescription: Markdown(raw.ShortDescription),
		FullDescription:  Markdown(raw.FullDescription),
		DescriptionText:  PlainText(raw.FullDescription),
		CardImageURL:     raw.CardImageURL,
		InProspectus:     raw.InProspectus,
		SubjectRefs:      make([]string, 0, len(raw.Subjects)),
		OwnerKeys:        make([]string, 0, len(raw.Owners)),
		Entitlements:     entitlements(raw.Entitlements),
		Topics:           make([]string, 0, len(raw.Topics)),
	}
	for _, s := range raw.Subjects {
		c.SubjectRefs = append(c.SubjectRefs, s.UUID)
	}
	for _, o := range raw.Owners {
		c.OwnerKeys = append(c.OwnerKeys, o.Key)
	}
	for _, t := range raw.Topics {
		if t.Topic != "" {
			c.Topics = append(c.Topics, t.Topic)
		}
	}
	if run := raw.ActiveCourseRun; run != nil {
		c.ActiveCourseRun = &domain.CourseRun{
			Key:          run.Key,
			Availability: run.Availability,
			Seats:        make([]domain.Seat, 0, len(run.Seats)),
		}
		for _, s := range run.Seats {
			c.ActiveCourseRun.Seats = append(c.ActiveCourseRun.Seats, domain.Seat{Type: s.Type, SKU: s.SKU})
		}
	}
	return c
}

// MissingSubject returns the integrity violation for a raw course that is
// shown in the catalog without any subject, or "".
func MissingSubject(raw *domain.RawCourse) string {
	if len(raw.Subjects) > 0 || !raw.InProspectus {
		return ""
	}
	return "Course with title - " + raw.Title + ", UUID - " + raw.UUID + ", and slug - " + raw.URLSlug + " is missing subject"
}

// Recommendations projects a recommendation response into course uuids.
func Recommendations(raw *domain.RawRecommendations) []string {
	out := make([]string, 0, len(raw.Recommendations))
	for _, r := range raw.Recommendations {
		if r.UUID != "" {
			out = append(out, r.UUID)
		}
	}
	return out
}

func entitlements(raw []domain.RawEntitlement) []domain.Entitlement {
	out := make([]domain.Entitlement, 0, len(raw))
	for _, e := range raw {
		out = append(out, domain.Entitlement{Mode: e.Mode, SKU: e.SKU})
	}
	return out
}

package processor

import (
	"github.com/prospectus/catalog-source/internal/domain"
	"github.com/prospectus/catalog-source/internal/id"
)

// Program projects a raw program detail. Pricing fields stay unset.
func Program(raw *domain.RawProgram) *domain.Program {
	p := &domain.Program{
		NodeID:        id.NodeID(domain.TypeProgram, raw.UUID),
		UUID:          raw.UUID,
		Title:         raw.Title,
		Subtitle:      raw.Subtitle,
		Type:          raw.Type,
		MarketingURL:  raw.MarketingURL,
		CardImageURL:  raw.CardImageURL,
		AuthoringKeys: make([]string, 0, len(raw.Authoring)),
		CourseUUIDs:   make([]string, 0, len(raw.Courses)),
		MemberCourses: make([]domain.ProgramCourse, 0, len(raw.Courses)),
	}
	for _, o := range raw.Authoring {
		p.AuthoringKeys = append(p.AuthoringKeys, o.Key)
	}
	for _, c := range raw.Courses {
		p.CourseUUIDs = append(p.CourseUUIDs, c.UUID)
		p.MemberCourses = append(p.MemberCourses, domain.ProgramCourse{
			UUID:         c.UUID,
			Key:          c.Key,
			Title:        c.Title,
			Entitlements: entitlements(c.Entitlements),
		})
	}
	return p
}

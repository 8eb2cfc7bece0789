package processor

import (
	"testing"

	"github.com/prospectus/catalog-source/internal/domain"
	"github.com/prospectus/catalog-source/internal/id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawCourse() *domain.RawCourse {
	return &domain.RawCourse{
		Key:              "HarvardX+CS50",
		UUID:             "c-1",
		Title:            "CS50",
		URLSlug:          "cs50",
		ShortDescription: "<p>Intro to <strong>CS</strong></p>",
		FullDescription:  "<p>Learn to code.</p><ul><li>C</li><li>Python</li></ul>",
		InProspectus:     true,
		Subjects:         []domain.RawSubjectRef{{UUID: "s-1", Name: "Computer Science"}},
		Entitlements:     []domain.RawEntitlement{{Mode: "verified", SKU: "ENT1", Price: "99.00"}},
		ActiveCourseRun: &domain.RawCourseRun{
			Key:   "course-v1:HarvardX+CS50+2026",
			Seats: []domain.RawSeat{{Type: "audit"}, {Type: "verified", SKU: "SEAT1"}},
		},
		Topics: []domain.RawTopic{{Topic: "Programming"}, {Topic: ""}},
		Owners: []domain.RawOrgRef{{Key: "HarvardX"}},
	}
}

func TestCourse(t *testing.T) {
	c := Course(rawCourse())

	assert.Equal(t, id.NodeID(domain.TypeCourse, "c-1"), c.NodeID)
	assert.Equal(t, []string{"s-1"}, c.SubjectRefs)
	assert.Equal(t, []string{"HarvardX"}, c.OwnerKeys)
	assert.Equal(t, []string{"Programming"}, c.Topics)
	assert.Equal(t, []domain.Entitlement{{Mode: "verified", SKU: "ENT1"}}, c.Entitlements)
	require.NotNil(t, c.ActiveCourseRun)
	assert.Equal(t, []domain.Seat{{Type: "audit"}, {Type: "verified", SKU: "SEAT1"}}, c.ActiveCourseRun.Seats)

	assert.Equal(t, "Intro to **CS**", c.ShortDescription)
	assert.Contains(t, c.FullDescription, "- C")
	assert.Equal(t, "Learn to code. C Python", c.DescriptionText)

	assert.Nil(t, c.Subjects)
	assert.Nil(t, c.Programs)
}

func TestMissingSubject(t *testing.T) {
	raw := rawCourse()
	assert.Empty(t, MissingSubject(raw))

	raw.Subjects = nil
	assert.Equal(t, "Course with title - CS50, UUID - c-1, and slug - cs50 is missing subject", MissingSubject(raw))

	raw.InProspectus = false
	assert.Empty(t, MissingSubject(raw), "hidden courses may lack subjects")
}

func TestProgram(t *testing.T) {
	p := Program(&domain.RawProgram{
		UUID:  "p-1",
		Title: "MicroMasters",
		Type:  "MicroMasters",
		Courses: []domain.RawProgramCourse{
			{UUID: "c-1", Key: "A+1", Entitlements: []domain.RawEntitlement{{Mode: "verified", SKU: "S1"}}},
			{UUID: "c-2", Key: "A+2"},
		},
		Authoring: []domain.RawOrgRef{{Key: "MITx"}},
	})

	assert.Equal(t, id.NodeID(domain.TypeProgram, "p-1"), p.NodeID)
	assert.Equal(t, []string{"c-1", "c-2"}, p.CourseUUIDs)
	assert.Len(t, p.MemberCourses, 2)
	assert.Empty(t, p.MemberCourses[1].Entitlements)
	assert.Equal(t, []string{"MITx"}, p.AuthoringKeys)
	assert.Nil(t, p.ProgramPrice)
	assert.Nil(t, p.ProgramOriginalPrice)
}

func TestSubject_WithTranslation(t *testing.T) {
	s := Subject(&domain.RawSubject{UUID: "s-1", Name: "Computer Science", Subtitle: "Code", Description: "All about code"})
	assert.Equal(t, "computer-science", s.Slug)

	ApplySubjectTranslation(s, "es", &domain.RawSubject{UUID: "s-1", Name: "Informática", Subtitle: "Código", Description: "Todo"})

	assert.Equal(t, map[string]string{"en": "Computer Science", "es": "Informática"}, s.Labels)
	assert.Equal(t, "Código", s.Subtitles["es"])
	assert.Equal(t, "Todo", s.Descriptions["es"])
}

func TestTopics_Dedup(t *testing.T) {
	courses := []*domain.Course{
		{UUID: "c-1", Topics: []string{"Data Science", "Python"}},
		{UUID: "c-2", Topics: []string{"Data Science"}},
		{UUID: "c-3", Topics: []string{"data science"}},
	}

	topics := Topics(courses)
	require.Len(t, topics, 3)
	assert.Equal(t, "Data Science", topics[0].Name)
	assert.Equal(t, "Python", topics[1].Name)
	assert.Equal(t, "data science", topics[2].Name, "dedup is by exact string")
	assert.Equal(t, id.NodeID(domain.TypeTopic, "Data Science"), topics[0].NodeID)
}

func TestCurrencies(t *testing.T) {
	raw := map[string]domain.RawCurrencyInfo{
		"MXN": {Code: "MXN", Symbol: "$", Rate: 17.1},
		"EUR": {Code: "EUR", Symbol: "€", Rate: 0.92},
	}
	list := Currencies(raw, false)
	require.Len(t, list, 2)
	assert.Equal(t, "EUR", list[0].ISO3)
	assert.Equal(t, 17.1, list[1].Info.Rate)

	assert.Empty(t, Currencies(nil, false))

	fallback := Currencies(nil, true)
	require.Len(t, fallback, 1)
	assert.Equal(t, domain.CurrencyInfo{Code: "USD", Symbol: "$", Rate: 1.0}, fallback[0].Info)
}

func TestRefinements_Ordering(t *testing.T) {
	refs := Refinements("es", domain.Facets{
		"subject":  {"Math": 4, "Art": 4, "Law": 9},
		"language": {"English": 20},
	})
	require.Len(t, refs, 2)
	assert.Equal(t, "language", refs[0].Name)
	assert.Equal(t, "es", refs[1].Locale)
	assert.Equal(t, []domain.FacetValue{{Value: "Law", Count: 9}, {Value: "Art", Count: 4}, {Value: "Math", Count: 4}}, refs[1].Values)
	assert.Equal(t, id.NodeID(domain.TypeSearchRefinement, "subjectes"), refs[1].NodeID)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Data Science":               "data-science",
		"Ciencias de la computación": "ciencias-de-la-computacion",
		"  C++ / Go  ":               "c-go",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestOrganization_NodeID(t *testing.T) {
	org := Organization(&domain.RawOrganization{Key: "HarvardX", UUID: "o-1", Name: "Harvard"})
	assert.Equal(t, id.NodeID(domain.TypeOrganization, "o-1"), org.NodeID)
	assert.Equal(t, "HarvardX", org.Key)

	keyed := Organization(&domain.RawOrganization{Key: "MITx"})
	assert.Equal(t, id.NodeID(domain.TypeOrganization, "MITx"), keyed.NodeID)
}

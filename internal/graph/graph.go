// Package graph wires processed catalog collections into a resolved graph and
// exports it as flat nodes with id links.
package graph

import (
	"slices"

	"github.com/prospectus/catalog-source/internal/domain"
)

// Input holds every processed collection of one run.
type Input struct {
	Courses       []*domain.Course
	Programs      []*domain.Program
	Subjects      []*domain.Subject
	Topics        []*domain.Topic
	Organizations []*domain.Organization
	Currencies    []*domain.Currency
	Refinements   []*domain.SearchRefinement
	SearchResults domain.SearchResults
}

// Graph is a resolved catalog. Entities are shared with the Input they were built from.
type Graph struct {
	Courses       []*domain.Course
	Programs      []*domain.Program
	Subjects      []*domain.Subject
	Topics        []*domain.Topic
	Organizations []*domain.Organization
	Currencies    []*domain.Currency
	Refinements   []*domain.SearchRefinement
}

// Build resolves every edge of in. Stages run in a fixed order and each only
// reads what earlier stages finalized: organizations, subjects, programs,
// courses, topics. Resolved fields are reset first so Build can be rerun.
func Build(in Input) *Graph {
	g := &Graph{
		Courses:       in.Courses,
		Programs:      in.Programs,
		Subjects:      in.Subjects,
		Topics:        in.Topics,
		Organizations: in.Organizations,
		Currencies:    in.Currencies,
		Refinements:   in.Refinements,
	}
	g.reset()

	courses := make(map[string]*domain.Course, len(g.Courses))
	for _, c := range g.Courses {
		courses[c.UUID] = c
	}

	g.wireOrganizations(in.SearchResults)
	g.wireSubjects()
	g.wirePrograms(courses)
	g.wireCourses(courses)
	g.wireTopics()
	return g
}

func (g *Graph) reset() {
	for _, c := range g.Courses {
		c.Subjects, c.Programs, c.Recommendations = nil, nil, nil
	}
	for _, p := range g.Programs {
		p.Courses = nil
	}
	for _, s := range g.Subjects {
		s.Courses = nil
	}
	for _, t := range g.Topics {
		t.Courses = nil
	}
}

// wireOrganizations attaches each locale's hits for the organization key.
func (g *Graph) wireOrganizations(results domain.SearchResults) {
	for _, o := range g.Organizations {
		o.OrderedHits = make(map[string][]domain.SearchHit, len(results))
		for locale, byPartner := range results {
			if hits, ok := byPartner[o.Key]; ok {
				o.OrderedHits[locale] = hits
			}
		}
	}
}

// wireSubjects links subjects and courses in both directions.
func (g *Graph) wireSubjects() {
	subjects := make(map[string]*domain.Subject, len(g.Subjects))
	for _, s := range g.Subjects {
		subjects[s.UUID] = s
	}
	for _, c := range g.Courses {
		for _, ref := range c.SubjectRefs {
			s, ok := subjects[ref]
			if !ok || slices.Contains(c.Subjects, s) {
				continue
			}
			s.Courses = append(s.Courses, c)
			c.Subjects = append(c.Subjects, s)
		}
	}
}

// wirePrograms resolves member courses in program order. Courses outside the
// fetched collection are skipped.
func (g *Graph) wirePrograms(courses map[string]*domain.Course) {
	for _, p := range g.Programs {
		for _, u := range p.CourseUUIDs {
			if c, ok := courses[u]; ok {
				p.Courses = append(p.Courses, c)
			}
		}
	}
}

// wireCourses sets parent programs and recommendation stubs.
func (g *Graph) wireCourses(courses map[string]*domain.Course) {
	for _, p := range g.Programs {
		for _, c := range p.Courses {
			if !slices.Contains(c.Programs, p) {
				c.Programs = append(c.Programs, p)
			}
		}
	}
	for _, c := range g.Courses {
		c.Recommendations = make([]domain.CourseStub, 0, len(c.RecommendationUUIDs))
		for _, u := range c.RecommendationUUIDs {
			if r, ok := courses[u]; ok && r != c {
				c.Recommendations = append(c.Recommendations, domain.CourseStub{UUID: r.UUID, NodeID: r.NodeID})
			}
		}
	}
}

// wireTopics attaches every course tagged with the topic name.
func (g *Graph) wireTopics() {
	topics := make(map[string]*domain.Topic, len(g.Topics))
	for _, t := range g.Topics {
		topics[t.Name] = t
	}
	for _, c := range g.Courses {
		for _, name := range c.Topics {
			t, ok := topics[name]
			if !ok || slices.Contains(t.Courses, c) {
				continue
			}
			t.Courses = append(t.Courses, c)
		}
	}
}

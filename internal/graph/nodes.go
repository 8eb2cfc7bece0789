package graph

import (
	"github.com/prospectus/catalog-source/internal/domain"
)

// Link names.
const (
	LinkCourses         = "courses"
	LinkSubjects        = "subjects"
	LinkPrograms        = "programs"
	LinkRecommendations = "recommendations"
)

// Node is one exported entity. Resolved edges appear only as node ids in Links.
type Node struct {
	ID    string              `json:"id"`
	Type  string              `json:"type"`
	Key   string              `json:"key"`
	Data  any                 `json:"data"`
	Links map[string][]string `json:"links,omitempty"`
}

// TypeOrder is the export order of node types.
var TypeOrder = []string{
	domain.TypeOrganization,
	domain.TypeCurrency,
	domain.TypeSearchRefinement,
	domain.TypeSubject,
	domain.TypeProgram,
	domain.TypeCourse,
	domain.TypeTopic,
}

// Nodes exports every entity, grouped by TypeOrder and in collection order within a type.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, 0, g.Len())
	for _, o := range g.Organizations {
		nodes = append(nodes, Node{ID: o.NodeID, Type: domain.TypeOrganization, Key: o.Key, Data: o})
	}
	for _, c := range g.Currencies {
		nodes = append(nodes, Node{ID: c.NodeID, Type: domain.TypeCurrency, Key: c.ISO3, Data: c})
	}
	for _, r := range g.Refinements {
		nodes = append(nodes, Node{ID: r.NodeID, Type: domain.TypeSearchRefinement, Key: r.Name + r.Locale, Data: r})
	}
	for _, s := range g.Subjects {
		nodes = append(nodes, Node{ID: s.NodeID, Type: domain.TypeSubject, Key: s.UUID, Data: s,
			Links: map[string][]string{LinkCourses: courseIDs(s.Courses)}})
	}
	for _, p := range g.Programs {
		nodes = append(nodes, Node{ID: p.NodeID, Type: domain.TypeProgram, Key: p.UUID, Data: p,
			Links: map[string][]string{LinkCourses: courseIDs(p.Courses)}})
	}
	for _, c := range g.Courses {
		subjects := make([]string, 0, len(c.Subjects))
		for _, s := range c.Subjects {
			subjects = append(subjects, s.NodeID)
		}
		programs := make([]string, 0, len(c.Programs))
		for _, p := range c.Programs {
			programs = append(programs, p.NodeID)
		}
		recs := make([]string, 0, len(c.Recommendations))
		for _, r := range c.Recommendations {
			recs = append(recs, r.NodeID)
		}
		nodes = append(nodes, Node{ID: c.NodeID, Type: domain.TypeCourse, Key: c.UUID, Data: c,
			Links: map[string][]string{
				LinkSubjects:        subjects,
				LinkPrograms:        programs,
				LinkRecommendations: recs,
			}})
	}
	for _, t := range g.Topics {
		nodes = append(nodes, Node{ID: t.NodeID, Type: domain.TypeTopic, Key: t.Name, Data: t,
			Links: map[string][]string{LinkCourses: courseIDs(t.Courses)}})
	}
	return nodes
}

// Len returns the number of entities in the graph.
func (g *Graph) Len() int {
	return len(g.Organizations) + len(g.Currencies) + len(g.Refinements) +
		len(g.Subjects) + len(g.Programs) + len(g.Courses) + len(g.Topics)
}

// Counts returns the number of entities per node type.
func (g *Graph) Counts() map[string]int {
	return map[string]int{
		domain.TypeOrganization:     len(g.Organizations),
		domain.TypeCurrency:         len(g.Currencies),
		domain.TypeSearchRefinement: len(g.Refinements),
		domain.TypeSubject:          len(g.Subjects),
		domain.TypeProgram:          len(g.Programs),
		domain.TypeCourse:           len(g.Courses),
		domain.TypeTopic:            len(g.Topics),
	}
}

func courseIDs(courses []*domain.Course) []string {
	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.NodeID)
	}
	return ids
}

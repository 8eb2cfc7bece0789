package graph

import (
	"encoding/json"
	"testing"

	"github.com/prospectus/catalog-source/internal/domain"
	"github.com/prospectus/catalog-source/internal/id"
	"github.com/prospectus/catalog-source/internal/processor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func course(uuid string, subjects, topics, recs []string) *domain.Course {
	return &domain.Course{
		NodeID:              id.NodeID(domain.TypeCourse, uuid),
		UUID:                uuid,
		Key:                 "Org+" + uuid,
		SubjectRefs:         subjects,
		Topics:              topics,
		RecommendationUUIDs: recs,
	}
}

func subject(uuid string) *domain.Subject {
	return &domain.Subject{NodeID: id.NodeID(domain.TypeSubject, uuid), UUID: uuid, Name: uuid}
}

func program(uuid string, courses ...string) *domain.Program {
	return &domain.Program{NodeID: id.NodeID(domain.TypeProgram, uuid), UUID: uuid, CourseUUIDs: courses}
}

func testInput() Input {
	courses := []*domain.Course{
		course("c1", []string{"math", "cs"}, []string{"Data Science"}, []string{"c2", "gone"}),
		course("c2", []string{"cs"}, []string{"Data Science", "Python"}, nil),
		course("c3", []string{"unknown"}, nil, []string{"c3", "c1"}),
	}
	return Input{
		Courses:  courses,
		Programs: []*domain.Program{program("p1", "c2", "c1", "missing"), program("p2", "c2")},
		Subjects: []*domain.Subject{subject("math"), subject("cs")},
		Topics:   processor.Topics(courses),
		Organizations: []*domain.Organization{
			{NodeID: "org-harvard", Key: "HarvardX"},
			{NodeID: "org-none", Key: "NoHits"},
		},
		SearchResults: domain.SearchResults{
			domain.LocaleEN: {"HarvardX": {{ObjectID: "a"}, {ObjectID: "b"}}},
			domain.LocaleES: {"HarvardX": {{ObjectID: "c"}}},
		},
	}
}

func TestBuild_SubjectCourseEdgesAreSymmetric(t *testing.T) {
	g := Build(testInput())

	for _, s := range g.Subjects {
		for _, c := range s.Courses {
			assert.Contains(t, c.Subjects, s, "course %s should list subject %s", c.UUID, s.UUID)
		}
	}
	for _, c := range g.Courses {
		for _, s := range c.Subjects {
			assert.Contains(t, s.Courses, c, "subject %s should list course %s", s.UUID, c.UUID)
		}
	}

	cs := g.Subjects[1]
	require.Len(t, cs.Courses, 2)
	assert.Equal(t, "c1", cs.Courses[0].UUID)
	assert.Equal(t, "c2", cs.Courses[1].UUID)
	assert.Empty(t, g.Courses[2].Subjects, "unknown subject refs are not resolved")
}

func TestBuild_Programs(t *testing.T) {
	g := Build(testInput())

	p1 := g.Programs[0]
	require.Len(t, p1.Courses, 2)
	assert.Equal(t, "c2", p1.Courses[0].UUID, "program order is kept")
	assert.Equal(t, "c1", p1.Courses[1].UUID)

	c2 := g.Courses[1]
	require.Len(t, c2.Programs, 2)
	assert.Equal(t, "p1", c2.Programs[0].UUID)
	assert.Equal(t, "p2", c2.Programs[1].UUID)
	assert.Empty(t, g.Courses[2].Programs)
}

func TestBuild_RecommendationStubs(t *testing.T) {
	g := Build(testInput())

	assert.Equal(t, []domain.CourseStub{{UUID: "c2", NodeID: id.NodeID(domain.TypeCourse, "c2")}}, g.Courses[0].Recommendations)
	assert.Equal(t, []domain.CourseStub{}, g.Courses[1].Recommendations)
	// Self recommendations are dropped.
	assert.Equal(t, []domain.CourseStub{{UUID: "c1", NodeID: id.NodeID(domain.TypeCourse, "c1")}}, g.Courses[2].Recommendations)
}

func TestBuild_TopicAggregation(t *testing.T) {
	g := Build(testInput())

	require.Len(t, g.Topics, 2)
	ds := g.Topics[0]
	assert.Equal(t, "Data Science", ds.Name)
	require.Len(t, ds.Courses, 2)
	assert.Equal(t, "c1", ds.Courses[0].UUID)
	assert.Equal(t, "c2", ds.Courses[1].UUID)

	python := g.Topics[1]
	require.Len(t, python.Courses, 1)
	assert.Equal(t, "c2", python.Courses[0].UUID)
}

func TestBuild_OrganizationHits(t *testing.T) {
	g := Build(testInput())

	harvard := g.Organizations[0]
	assert.Len(t, harvard.OrderedHits[domain.LocaleEN], 2)
	assert.Equal(t, "c", harvard.OrderedHits[domain.LocaleES][0].ObjectID)
	assert.Empty(t, g.Organizations[1].OrderedHits)
}

func TestBuild_IsRepeatable(t *testing.T) {
	in := testInput()
	Build(in)
	g := Build(in)

	assert.Len(t, g.Subjects[1].Courses, 2)
	assert.Len(t, g.Courses[1].Programs, 2)
	assert.Len(t, g.Topics[0].Courses, 2)
}

func TestNodes_ExportLinksOnly(t *testing.T) {
	g := Build(testInput())
	nodes := g.Nodes()

	require.Len(t, nodes, g.Len())
	assert.Equal(t, domain.TypeOrganization, nodes[0].Type)
	assert.Equal(t, domain.TypeTopic, nodes[len(nodes)-1].Type)

	var c1 Node
	for _, n := range nodes {
		if n.Type == domain.TypeCourse && n.Key == "c1" {
			c1 = n
		}
	}
	assert.Equal(t, []string{id.NodeID(domain.TypeSubject, "math"), id.NodeID(domain.TypeSubject, "cs")}, c1.Links[LinkSubjects])
	assert.Equal(t, []string{id.NodeID(domain.TypeProgram, "p1")}, c1.Links[LinkPrograms])

	// Encoding never recurses through resolved pointers.
	data, err := json.Marshal(nodes)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"Subjects"`)
	assert.Equal(t, 3, g.Counts()[domain.TypeCourse])
}

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/prospectus/catalog-source/internal/errors"
	"github.com/prospectus/catalog-source/internal/graph"
	"github.com/prospectus/catalog-source/internal/service"
)

func (s *Server) registerGraphRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getGraphSummary",
		Method:      http.MethodGet,
		Path:        "/api/v1/graph/summary",
		Summary:     "Graph summary",
		Description: "Returns the run id and node counts per type of the last completed run",
		Tags:        []string{"Graph"},
	}, s.handleGraphSummary)

	huma.Register(s.api, huma.Operation{
		OperationID: "listNodes",
		Method:      http.MethodGet,
		Path:        "/api/v1/nodes",
		Summary:     "List nodes",
		Description: "Returns graph nodes in export order, optionally filtered by type",
		Tags:        []string{"Graph"},
	}, s.handleListNodes)

	huma.Register(s.api, huma.Operation{
		OperationID: "getNode",
		Method:      http.MethodGet,
		Path:        "/api/v1/nodes/{id}",
		Summary:     "Get node",
		Description: "Returns a single graph node by id",
		Tags:        []string{"Graph"},
	}, s.handleGetNode)

	huma.Register(s.api, huma.Operation{
		OperationID: "listDiagnostics",
		Method:      http.MethodGet,
		Path:        "/api/v1/diagnostics",
		Summary:     "List diagnostics",
		Description: "Returns the non-fatal enrichment failures of the last completed run",
		Tags:        []string{"Graph"},
	}, s.handleListDiagnostics)
}

// SummaryResponse describes the last completed run.
type SummaryResponse struct {
	RunID       string         `json:"runId" doc:"Run identifier"`
	StartedAt   time.Time      `json:"startedAt" doc:"When the run started"`
	Duration    string         `json:"duration" doc:"How long the run took"`
	Counts      map[string]int `json:"counts" doc:"Node count per type"`
	Nodes       int            `json:"nodes" doc:"Total node count"`
	Diagnostics int            `json:"diagnostics" doc:"Number of diagnostics recorded"`
}

// SummaryOutput wraps the summary for Huma.
type SummaryOutput struct {
	Body SummaryResponse
}

// ListNodesInput filters and pages the node list.
type ListNodesInput struct {
	Type   string `query:"type" enum:"Organization,Currency,SearchRefinement,Subject,Program,Course,Topic" doc:"Only return nodes of this type"`
	Offset int    `query:"offset" minimum:"0" default:"0" doc:"Number of nodes to skip"`
	Limit  int    `query:"limit" minimum:"1" maximum:"1000" default:"100" doc:"Maximum number of nodes to return"`
}

// NodeListResponse is one page of nodes.
type NodeListResponse struct {
	RunID  string       `json:"runId" doc:"Run the nodes belong to"`
	Total  int          `json:"total" doc:"Number of nodes matching the filter"`
	Offset int          `json:"offset" doc:"Offset of the first returned node"`
	Nodes  []graph.Node `json:"nodes" doc:"Nodes in export order"`
}

// NodeListOutput wraps the node list for Huma.
type NodeListOutput struct {
	Body NodeListResponse
}

// GetNodeInput selects a node.
type GetNodeInput struct {
	ID string `path:"id" doc:"Node id"`
}

// NodeOutput wraps a single node for Huma.
type NodeOutput struct {
	Body graph.Node
}

// DiagnosticsResponse lists the diagnostics of a run.
type DiagnosticsResponse struct {
	RunID       string               `json:"runId" doc:"Run the diagnostics belong to"`
	Diagnostics []service.Diagnostic `json:"diagnostics" doc:"Diagnostics ordered by entity and key"`
}

// DiagnosticsOutput wraps the diagnostics for Huma.
type DiagnosticsOutput struct {
	Body DiagnosticsResponse
}

// lastRun returns the last completed run or a NOT_FOUND error.
func (s *Server) lastRun() (*service.Result, error) {
	if s.source != nil {
		if res := s.source.Last(); res != nil && res.Graph != nil {
			return res, nil
		}
	}
	return nil, domainError(domainerrors.NotFound("no completed sourcing run"))
}

func (s *Server) handleGraphSummary(_ context.Context, _ *struct{}) (*SummaryOutput, error) {
	res, err := s.lastRun()
	if err != nil {
		return nil, err
	}
	return &SummaryOutput{
		Body: SummaryResponse{
			RunID:       res.RunID,
			StartedAt:   res.StartedAt,
			Duration:    res.Duration.String(),
			Counts:      res.Graph.Counts(),
			Nodes:       res.Graph.Len(),
			Diagnostics: len(res.Diagnostics),
		},
	}, nil
}

func (s *Server) handleListNodes(_ context.Context, input *ListNodesInput) (*NodeListOutput, error) {
	res, err := s.lastRun()
	if err != nil {
		return nil, err
	}

	matched := res.Graph.Nodes()
	if input.Type != "" {
		filtered := matched[:0]
		for _, n := range matched {
			if n.Type == input.Type {
				filtered = append(filtered, n)
			}
		}
		matched = filtered
	}

	start := min(input.Offset, len(matched))
	end := min(start+input.Limit, len(matched))
	return &NodeListOutput{
		Body: NodeListResponse{
			RunID:  res.RunID,
			Total:  len(matched),
			Offset: start,
			Nodes:  matched[start:end],
		},
	}, nil
}

func (s *Server) handleGetNode(_ context.Context, input *GetNodeInput) (*NodeOutput, error) {
	res, err := s.lastRun()
	if err != nil {
		return nil, err
	}
	for _, n := range res.Graph.Nodes() {
		if n.ID == input.ID {
			return &NodeOutput{Body: n}, nil
		}
	}
	s.logger.Debug("node lookup missed", "id", input.ID, "run_id", res.RunID)
	return nil, domainError(domainerrors.NotFoundf("node %s not found", input.ID))
}

func (s *Server) handleListDiagnostics(_ context.Context, _ *struct{}) (*DiagnosticsOutput, error) {
	res, err := s.lastRun()
	if err != nil {
		return nil, err
	}
	diags := res.Diagnostics
	if diags == nil {
		diags = []service.Diagnostic{}
	}
	return &DiagnosticsOutput{
		Body: DiagnosticsResponse{RunID: res.RunID, Diagnostics: diags},
	}, nil
}

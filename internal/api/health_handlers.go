package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health and whether a resolved graph is available",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy or degraded"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy or degraded"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	graphHealth := s.checkGraph()
	overall := "healthy"
	if graphHealth.Status != "healthy" {
		overall = "degraded"
	}
	return &HealthOutput{
		Body: HealthResponse{
			Status:     overall,
			Components: map[string]ComponentHealth{"graph": graphHealth},
		},
	}, nil
}

// checkGraph reports whether a run has completed and how old it is.
func (s *Server) checkGraph() ComponentHealth {
	if s.source == nil {
		return ComponentHealth{Status: "degraded", Message: "graph source not configured"}
	}
	res := s.source.Last()
	if res == nil {
		return ComponentHealth{Status: "degraded", Message: "no completed run yet"}
	}
	age := time.Since(res.StartedAt.Add(res.Duration)).Round(time.Second)
	return ComponentHealth{Status: "healthy", Message: "run " + res.RunID + " finished " + age.String() + " ago"}
}

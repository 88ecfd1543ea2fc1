package endpoints

import (
	"net/http"
	"os"

	"github.com/doodlesbykumbi/scanstore/pkg/metrics"
	"github.com/doodlesbykumbi/scanstore/pkg/server"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

type StatusResponse struct {
	Version string `json:"version"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// RegisterStatusEndpoints registers the unauthenticated status, health and
// metrics endpoints
func RegisterStatusEndpoints(s *server.Server) {
	s.Router.HandleFunc("/", handleStatus()).Methods("GET")
	s.Router.HandleFunc("/health", handleHealth(s.Stores.Health)).Methods("GET")

	if s.Config.MetricsEnabled {
		s.Router.Handle("/metrics", metrics.Handler()).Methods("GET")
	}
}

func handleStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		version := os.Getenv("SCANSTORE_VERSION")
		if version == "" {
			version = "0.1.0"
		}
		respondWithJSON(w, http.StatusOK, StatusResponse{Version: version})
	}
}

func handleHealth(health store.HealthStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := health.CheckConnectivity(r.Context()); err != nil {
			respondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "error",
				Error:  "database connectivity check failed",
			})
			return
		}
		respondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}
}

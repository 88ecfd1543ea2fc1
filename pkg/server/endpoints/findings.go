package endpoints

import (
	"net/http"
	"strconv"

	"github.com/doodlesbykumbi/scanstore/pkg/finder"
	"github.com/doodlesbykumbi/scanstore/pkg/server"
)

// RegisterFindingsEndpoints registers the security finding listing
func RegisterFindingsEndpoints(s *server.Server) {
	f := finder.New(s.Stores.Findings)
	s.Protected().HandleFunc("/pipelines/{pipeline_id}/security_findings", handleListFindings(s, f)).Methods("GET")
}

func handleListFindings(s *server.Server, f *finder.Finder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		pipelineID, ok := pathID(r, "pipeline_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "Invalid pipeline id")
			return
		}

		params, err := finder.ParamsFromQuery(r.URL.Query())
		if err != nil {
			handleStoreError(w, s.Logger, err)
			return
		}

		pipeline, err := s.Stores.Pipelines.FindPipeline(ctx, pipelineID)
		if err != nil {
			handleStoreError(w, s.Logger, err)
			return
		}

		res, err := f.Execute(ctx, pipeline, params)
		if err != nil {
			handleStoreError(w, s.Logger, err)
			return
		}

		w.Header().Set("X-Total", strconv.FormatInt(res.Total, 10))
		w.Header().Set("X-Page", strconv.Itoa(res.Page))
		w.Header().Set("X-Per-Page", strconv.Itoa(res.PerPage))
		respondWithJSON(w, http.StatusOK, res.Findings)
	}
}

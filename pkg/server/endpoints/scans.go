package endpoints

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/doodlesbykumbi/scanstore/pkg/finder"
	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/server"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

type ScanResponse struct {
	ID        int64             `json:"id"`
	BuildID   int64             `json:"build_id"`
	ScanType  report.ReportType `json:"scan_type"`
	Status    model.ScanStatus  `json:"status"`
	Latest    bool              `json:"latest"`
	Errors    []report.Error    `json:"errors"`
	Warnings  []report.Error    `json:"warnings"`
	CreatedAt time.Time         `json:"created_at"`
}

// RegisterScansEndpoints registers the security scan listing
func RegisterScansEndpoints(s *server.Server) {
	s.Protected().HandleFunc("/pipelines/{pipeline_id}/security_scans", handleListScans(s)).Methods("GET")
}

// scanFilterFromQuery reads scan_type, status, latest, with_errors,
// without_errors and with_warnings.
func scanFilterFromQuery(q url.Values) (store.ScanFilter, error) {
	var filter store.ScanFilter
	for _, name := range append(q["scan_type"], q["scan_type[]"]...) {
		t, err := report.ParseReportType(name)
		if err != nil {
			return filter, fmt.Errorf("%w: %v", store.ErrInvalidReportType, err)
		}
		filter.ScanTypes = append(filter.ScanTypes, t)
	}
	for _, name := range append(q["status"], q["status[]"]...) {
		st, err := model.ParseScanStatus(name)
		if err != nil {
			return filter, fmt.Errorf("%w: %v", finder.ErrInvalidParams, err)
		}
		filter.Statuses = append(filter.Statuses, st)
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{"latest", &filter.LatestOnly},
		{"with_errors", &filter.WithErrors},
		{"without_errors", &filter.WithoutErrors},
		{"with_warnings", &filter.WithWarnings},
	}
	for _, f := range flags {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, fmt.Errorf("%w: %s must be a boolean", finder.ErrInvalidParams, f.name)
		}
		*f.dst = v
	}
	return filter, nil
}

func handleListScans(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		pipelineID, ok := pathID(r, "pipeline_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "Invalid pipeline id")
			return
		}

		filter, err := scanFilterFromQuery(r.URL.Query())
		if err != nil {
			handleStoreError(w, s.Logger, err)
			return
		}

		pipeline, err := s.Stores.Pipelines.FindPipeline(ctx, pipelineID)
		if err != nil {
			handleStoreError(w, s.Logger, err)
			return
		}
		filter.PipelineIDs = []int64{pipeline.ID}

		scans, err := s.Stores.Scans.ListScans(ctx, filter)
		if err != nil {
			handleStoreError(w, s.Logger, err)
			return
		}

		out := make([]ScanResponse, 0, len(scans))
		for _, scan := range scans {
			out = append(out, ScanResponse{
				ID:        scan.ID,
				BuildID:   scan.BuildID,
				ScanType:  scan.ScanType,
				Status:    scan.Status,
				Latest:    scan.Latest,
				Errors:    nonNil(scan.ProcessingErrors()),
				Warnings:  nonNil(scan.ProcessingWarnings()),
				CreatedAt: scan.CreatedAt,
			})
		}
		respondWithJSON(w, http.StatusOK, out)
	}
}

func nonNil(errs []report.Error) []report.Error {
	if errs == nil {
		return []report.Error{}
	}
	return errs
}

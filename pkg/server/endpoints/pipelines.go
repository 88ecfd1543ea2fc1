package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/server"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
	"github.com/doodlesbykumbi/scanstore/pkg/worker"
)

// maxArtifactSize bounds an uploaded report body.
const maxArtifactSize = 64 << 20

type CreatePipelineRequest struct {
	Ref    string `json:"ref"`
	SHA    string `json:"sha"`
	Status string `json:"status"`
	Source string `json:"source"`
	// DefaultBranch marks ref as the default branch of a project that is
	// created by this request.
	DefaultBranch bool   `json:"default_branch"`
	ProjectName   string `json:"project_name"`
	Visibility    string `json:"visibility"`
}

type PipelineResponse struct {
	ID                      int64     `json:"id"`
	ProjectID               int64     `json:"project_id"`
	Ref                     string    `json:"ref"`
	SHA                     string    `json:"sha"`
	Status                  string    `json:"status"`
	Source                  string    `json:"source,omitempty"`
	DefaultBranch           bool      `json:"default_branch"`
	FindingsPartitionNumber int       `json:"findings_partition_number"`
	CreatedAt               time.Time `json:"created_at"`
}

type CreateJobRequest struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Retried bool   `json:"retried"`
}

type JobResponse struct {
	ID         int64  `json:"id"`
	PipelineID int64  `json:"pipeline_id"`
	ProjectID  int64  `json:"project_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	Retried    bool   `json:"retried"`
}

type ArtifactResponse struct {
	ID       int64             `json:"id"`
	JobID    int64             `json:"job_id"`
	FileType report.ReportType `json:"file_type"`
	Size     int               `json:"size"`
}

type IngestionResponse struct {
	PipelineID int64       `json:"pipeline_id"`
	Job        worker.Kind `json:"job"`
}

// RegisterPipelinesEndpoints registers pipeline, job, artifact and ingestion
// endpoints
func RegisterPipelinesEndpoints(s *server.Server) {
	api := s.Protected()

	api.HandleFunc("/projects/{project_id}/pipelines", handleCreatePipeline(s)).Methods("POST")
	api.HandleFunc("/pipelines/{pipeline_id}/jobs", handleCreateJob(s)).Methods("POST")
	api.HandleFunc("/jobs/{job_id}/artifacts/{report_type}", handleUploadArtifact(s)).Methods("PUT")
	api.HandleFunc("/pipelines/{pipeline_id}/security_reports", handleStoreSecurityReports(s)).Methods("POST")
}

func pipelineResponse(p *model.Pipeline) PipelineResponse {
	return PipelineResponse{
		ID:                      p.ID,
		ProjectID:               p.ProjectID,
		Ref:                     p.Ref,
		SHA:                     p.SHA,
		Status:                  p.Status,
		Source:                  p.Source,
		DefaultBranch:           p.OnDefaultBranch(),
		FindingsPartitionNumber: p.SecurityFindingsPartitionNumber,
		CreatedAt:               p.CreatedAt,
	}
}

func handleCreatePipeline(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		projectID, ok := pathID(r, "project_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "Invalid project id")
			return
		}

		var req CreatePipelineRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
		if req.Ref == "" {
			respondWithError(w, http.StatusUnprocessableEntity, "ref is required")
			return
		}
		if req.Status == "" {
			req.Status = model.StatusRunning
		}

		project, err := s.Stores.Pipelines.FindProject(ctx, projectID)
		if errors.Is(err, store.ErrProjectNotFound) {
			project = &model.Project{
				ID:         projectID,
				Name:       req.ProjectName,
				Visibility: req.Visibility,
			}
			if project.Name == "" {
				project.Name = fmt.Sprintf("project-%d", projectID)
			}
			if req.DefaultBranch {
				project.DefaultBranch = req.Ref
			}
			err = s.Stores.Pipelines.CreateProject(ctx, project)
		}
		if err != nil {
			handleStoreError(w, s.Logger, err)
			return
		}

		partition, err := worker.RotatePartition(ctx, s.Stores.Partitions, s.Config.FindingsPartitionMaxRows)
		if err != nil {
			handleStoreError(w, s.Logger, err)
			return
		}

		pipeline := &model.Pipeline{
			ProjectID:                       projectID,
			Ref:                             req.Ref,
			SHA:                             req.SHA,
			Status:                          req.Status,
			Source:                          req.Source,
			SecurityFindingsPartitionNumber: partition,
		}
		if err := s.Stores.Pipelines.CreatePipeline(ctx, pipeline); err != nil {
			handleStoreError(w, s.Logger, err)
			return
		}
		pipeline.Project = project

		respondWithJSON(w, http.StatusCreated, pipelineResponse(pipeline))
	}
}

func handleCreateJob(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		pipelineID, ok := pathID(r, "pipeline_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "Invalid pipeline id")
			return
		}

		var req CreateJobRequest
		if err := decodeJSON(r, &req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return
		}
		if req.Name == "" {
			respondWithError(w, http.StatusUnprocessableEntity, "name is required")
			return
		}
		if req.Status == "" {
			req.Status = model.StatusSuccess
		}

		pipeline, err := s.Stores.Pipelines.FindPipeline(ctx, pipelineID)
		if err != nil {
			handleStoreError(w, s.Logger, err)
			return
		}

		job := &model.Job{
			PipelineID: pipeline.ID,
			ProjectID:  pipeline.ProjectID,
			Name:       req.Name,
			Status:     req.Status,
			Retried:    req.Retried,
		}
		if err := s.Stores.Pipelines.CreateJob(ctx, job); err != nil {
			handleStoreError(w, s.Logger, err)
			return
		}

		respondWithJSON(w, http.StatusCreated, JobResponse{
			ID:         job.ID,
			PipelineID: job.PipelineID,
			ProjectID:  job.ProjectID,
			Name:       job.Name,
			Status:     job.Status,
			Retried:    job.Retried,
		})
	}
}

func handleUploadArtifact(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		jobID, ok := pathID(r, "job_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "Invalid job id")
			return
		}
		fileType, err := report.ParseReportType(mux.Vars(r)["report_type"])
		if err != nil {
			handleStoreError(w, s.Logger, fmt.Errorf("%w: %v", store.ErrInvalidReportType, err))
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxArtifactSize))
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Failed to read report: "+err.Error())
			return
		}
		if len(body) == 0 {
			respondWithError(w, http.StatusBadRequest, "Report body is empty")
			return
		}

		job, err := s.Stores.Pipelines.FindJob(ctx, jobID)
		if err != nil {
			handleStoreError(w, s.Logger, err)
			return
		}

		artifact := &model.JobArtifact{
			JobID:     job.ID,
			ProjectID: job.ProjectID,
			FileType:  fileType,
			File:      body,
		}
		if err := s.Stores.Artifacts.SaveArtifact(ctx, artifact); err != nil {
			handleStoreError(w, s.Logger, err)
			return
		}

		respondWithJSON(w, http.StatusCreated, ArtifactResponse{
			ID:       artifact.ID,
			JobID:    artifact.JobID,
			FileType: artifact.FileType,
			Size:     len(body),
		})
	}
}

func handleStoreSecurityReports(s *server.Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pipelineID, ok := pathID(r, "pipeline_id")
		if !ok {
			respondWithError(w, http.StatusBadRequest, "Invalid pipeline id")
			return
		}

		pipeline, err := s.Stores.Pipelines.FindPipeline(r.Context(), pipelineID)
		if err != nil {
			handleStoreError(w, s.Logger, err)
			return
		}

		job := worker.Job{Kind: worker.KindStoreScans, PipelineID: pipeline.ID}
		if err := s.Jobs.Enqueue(job); err != nil {
			if errors.Is(err, worker.ErrQueueFull) || errors.Is(err, worker.ErrPoolStopped) {
				respondWithError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
			handleStoreError(w, s.Logger, err)
			return
		}

		s.Logger.Info("security reports queued", "pipeline_id", pipeline.ID)
		respondWithJSON(w, http.StatusAccepted, IngestionResponse{PipelineID: pipeline.ID, Job: job.Kind})
	}
}

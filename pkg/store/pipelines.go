package store

import (
	"context"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
)

// PipelinesStore abstracts project, pipeline and job storage
type PipelinesStore interface {
	CreateProject(ctx context.Context, project *model.Project) error

	// FindProject returns ErrProjectNotFound if the project doesn't exist
	FindProject(ctx context.Context, id int64) (*model.Project, error)

	CreatePipeline(ctx context.Context, pipeline *model.Pipeline) error

	// FindPipeline loads a pipeline with its project.
	// Returns ErrPipelineNotFound if the pipeline doesn't exist.
	FindPipeline(ctx context.Context, id int64) (*model.Pipeline, error)

	// LatestSuccessfulPipeline returns the newest successful pipeline of a
	// ref, or ErrPipelineNotFound.
	LatestSuccessfulPipeline(ctx context.Context, projectID int64, ref string) (*model.Pipeline, error)

	CreateJob(ctx context.Context, job *model.Job) error

	// FindJob returns ErrJobNotFound if the job doesn't exist
	FindJob(ctx context.Context, id int64) (*model.Job, error)

	// MarkJobRetried flags a job as superseded by a newer job.
	// Returns ErrJobNotFound if the job doesn't exist.
	MarkJobRetried(ctx context.Context, id int64) error
}

// ArtifactsStore abstracts security report artifact storage
type ArtifactsStore interface {
	// SaveArtifact creates or replaces the artifact of a job and file type.
	SaveArtifact(ctx context.Context, artifact *model.JobArtifact) error

	// SecurityReportArtifacts returns the report artifacts of every job of a
	// pipeline, with the job loaded, ordered by id.
	SecurityReportArtifacts(ctx context.Context, pipelineID int64) ([]model.JobArtifact, error)
}

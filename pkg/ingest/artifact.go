package ingest

import (
	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/report/parser"
)

// Artifact is a security report artifact of a pipeline job. The parsed
// report is memoized.
type Artifact struct {
	*model.JobArtifact
	Pipeline *model.Pipeline

	report *report.Report
}

// NewArtifact wraps a stored artifact. The artifact's Job must be loaded.
func NewArtifact(a *model.JobArtifact, pipeline *model.Pipeline) *Artifact {
	return &Artifact{JobArtifact: a, Pipeline: pipeline}
}

// SecurityReport parses the artifact file on first use.
func (a *Artifact) SecurityReport(opts parser.Options) *report.Report {
	if a.report == nil {
		a.report = parser.ParseBytes(a.File, a.FileType, opts)
	}
	return a.report
}

// ClearSecurityReport drops the memoized report.
func (a *Artifact) ClearSecurityReport() {
	a.report = nil
}

func (a *Artifact) retried() bool {
	return a.Job != nil && a.Job.Retried
}

func (a *Artifact) jobSucceeded() bool {
	return a.Job != nil && a.Job.Succeeded()
}

package model

import (
	"time"

	"github.com/doodlesbykumbi/scanstore/pkg/report"
)

// JobArtifact is a security report file uploaded by a job. FileType is the
// report type the file holds.
type JobArtifact struct {
	ID        int64
	JobID     int64
	ProjectID int64
	FileType  report.ReportType
	File      []byte `gorm:"type:bytea;"`
	CreatedAt time.Time

	Job *Job `gorm:"foreignKey:JobID"`
}

func (JobArtifact) TableName() string {
	return "ci_job_artifacts"
}

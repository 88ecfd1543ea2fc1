package model

import "time"

// Pipeline and job statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusRunning = "running"
)

type Pipeline struct {
	ID                              int64
	ProjectID                       int64
	Ref                             string
	SHA                             string `gorm:"column:sha"`
	Status                          string
	Source                          string
	SecurityFindingsPartitionNumber int
	CreatedAt                       time.Time

	Project *Project `gorm:"foreignKey:ProjectID"`
}

func (Pipeline) TableName() string {
	return "pipelines"
}

func (p *Pipeline) Succeeded() bool {
	return p.Status == StatusSuccess
}

// OnDefaultBranch reports whether the pipeline ran for the project's default
// branch. The project must be loaded.
func (p *Pipeline) OnDefaultBranch() bool {
	return p.Project != nil && p.Project.DefaultBranch != "" && p.Ref == p.Project.DefaultBranch
}

// Job is a CI build that may have produced security report artifacts.
type Job struct {
	ID         int64
	PipelineID int64
	ProjectID  int64
	Name       string
	Status     string
	Retried    bool
	CreatedAt  time.Time
}

func (Job) TableName() string {
	return "ci_builds"
}

func (j *Job) Succeeded() bool {
	return j.Status == StatusSuccess
}

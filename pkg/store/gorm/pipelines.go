package gorm

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

var (
	_ store.PipelinesStore = (*PipelinesStore)(nil)
	_ store.ArtifactsStore = (*ArtifactsStore)(nil)
)

// PipelinesStore implements store.PipelinesStore using GORM
type PipelinesStore struct {
	db *gorm.DB
}

// NewPipelinesStore creates a new PipelinesStore
func NewPipelinesStore(db *gorm.DB) *PipelinesStore {
	return &PipelinesStore{db: db}
}

func (s *PipelinesStore) CreateProject(ctx context.Context, project *model.Project) error {
	return s.db.WithContext(ctx).Create(project).Error
}

func (s *PipelinesStore) FindProject(ctx context.Context, id int64) (*model.Project, error) {
	var project model.Project
	if err := s.db.WithContext(ctx).First(&project, id).Error; err != nil {
		return nil, notFound(err, store.ErrProjectNotFound)
	}
	return &project, nil
}

func (s *PipelinesStore) CreatePipeline(ctx context.Context, pipeline *model.Pipeline) error {
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(pipeline).Error
}

func (s *PipelinesStore) FindPipeline(ctx context.Context, id int64) (*model.Pipeline, error) {
	var pipeline model.Pipeline
	if err := s.db.WithContext(ctx).Preload("Project").First(&pipeline, id).Error; err != nil {
		return nil, notFound(err, store.ErrPipelineNotFound)
	}
	return &pipeline, nil
}

func (s *PipelinesStore) LatestSuccessfulPipeline(ctx context.Context, projectID int64, ref string) (*model.Pipeline, error) {
	var pipeline model.Pipeline
	err := s.db.WithContext(ctx).
		Where("project_id = ? AND ref = ? AND status = ?", projectID, ref, model.StatusSuccess).
		Order("id desc").
		First(&pipeline).Error
	if err != nil {
		return nil, notFound(err, store.ErrPipelineNotFound)
	}
	return &pipeline, nil
}

func (s *PipelinesStore) CreateJob(ctx context.Context, job *model.Job) error {
	return s.db.WithContext(ctx).Create(job).Error
}

func (s *PipelinesStore) FindJob(ctx context.Context, id int64) (*model.Job, error) {
	var job model.Job
	if err := s.db.WithContext(ctx).First(&job, id).Error; err != nil {
		return nil, notFound(err, store.ErrJobNotFound)
	}
	return &job, nil
}

func (s *PipelinesStore) MarkJobRetried(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Model(&model.Job{}).Where("id = ?", id).Update("retried", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrJobNotFound
	}
	return nil
}

// ArtifactsStore implements store.ArtifactsStore using GORM
type ArtifactsStore struct {
	db *gorm.DB
}

// NewArtifactsStore creates a new ArtifactsStore
func NewArtifactsStore(db *gorm.DB) *ArtifactsStore {
	return &ArtifactsStore{db: db}
}

func (s *ArtifactsStore) SaveArtifact(ctx context.Context, artifact *model.JobArtifact) error {
	if !artifact.FileType.Valid() {
		return store.ErrInvalidReportType
	}
	return s.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "job_id"}, {Name: "file_type"}},
			DoUpdates: clause.AssignmentColumns([]string{"file"}),
		}).
		Create(artifact).Error
}

func (s *ArtifactsStore) SecurityReportArtifacts(ctx context.Context, pipelineID int64) ([]model.JobArtifact, error) {
	var artifacts []model.JobArtifact
	err := s.db.WithContext(ctx).
		Preload("Job").
		Where("job_id IN (?)", s.db.Model(&model.Job{}).Select("id").Where("pipeline_id = ?", pipelineID)).
		Where("file_type IN ?", report.ReportTypes()).
		Order("id").
		Find(&artifacts).Error
	return artifacts, err
}

package gorm

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{
			Conn:                 mockDB,
			PreferSimpleProtocol: true,
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		},
	)
	require.NoError(t, err)

	return gormDB, mock
}

func TestHealthStore_CheckConnectivity(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectExec(`SELECT 1`).WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, NewHealthStore(db).CheckConnectivity(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPipelinesStore_FindPipeline(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`SELECT \* FROM "pipelines"`).
		WithArgs(4).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "ref", "status"}).AddRow(4, 2, "main", "success"))
	mock.ExpectQuery(`SELECT \* FROM "projects"`).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "default_branch"}).AddRow(2, "web", "main"))

	pipeline, err := NewPipelinesStore(db).FindPipeline(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), pipeline.ID)
	require.NotNil(t, pipeline.Project)
	assert.True(t, pipeline.OnDefaultBranch())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPipelinesStore_FindPipeline_NotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`SELECT \* FROM "pipelines"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewPipelinesStore(db).FindPipeline(context.Background(), 4)
	assert.ErrorIs(t, err, store.ErrPipelineNotFound)
}

func TestPipelinesStore_LatestSuccessfulPipeline_NotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`SELECT \* FROM "pipelines" WHERE project_id = \$1 AND ref = \$2 AND status = \$3`).
		WithArgs(2, "main", model.StatusSuccess).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewPipelinesStore(db).LatestSuccessfulPipeline(context.Background(), 2, "main")
	assert.ErrorIs(t, err, store.ErrPipelineNotFound)
}

func TestPipelinesStore_CreateProject(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "projects"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
	mock.ExpectCommit()

	project := &model.Project{Name: "web", Visibility: model.VisibilityPublic, DefaultBranch: "main"}
	require.NoError(t, NewPipelinesStore(db).CreateProject(context.Background(), project))
	assert.Equal(t, int64(9), project.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPipelinesStore_MarkJobRetried(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "ci_builds" SET "retried"=$1 WHERE id = $2`)).
		WithArgs(true, 9).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewPipelinesStore(db).MarkJobRetried(context.Background(), 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPipelinesStore_MarkJobRetried_NotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "ci_builds"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := NewPipelinesStore(db).MarkJobRetried(context.Background(), 9)
	assert.ErrorIs(t, err, store.ErrJobNotFound)
}

func TestArtifactsStore_SaveArtifact(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "ci_job_artifacts" .* ON CONFLICT \("job_id","file_type"\) DO UPDATE SET "file"="excluded"."file" RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	artifact := &model.JobArtifact{JobID: 3, ProjectID: 2, FileType: report.ReportTypeSAST, File: []byte(`{}`)}
	require.NoError(t, NewArtifactsStore(db).SaveArtifact(context.Background(), artifact))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArtifactsStore_SaveArtifact_InvalidType(t *testing.T) {
	db, _ := setupTestDB(t)
	err := NewArtifactsStore(db).SaveArtifact(context.Background(), &model.JobArtifact{FileType: 99})
	assert.ErrorIs(t, err, store.ErrInvalidReportType)
}

func TestScansStore_FindOrCreateScan_Existing(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`SELECT \* FROM "security_scans" WHERE build_id = \$1 AND scan_type = \$2`).
		WithArgs(10, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "build_id", "scan_type", "status", "latest", "info"}).
			AddRow(5, 10, 1, 1, true, `{"warnings":[{"type":"ScanWarning","message":"slow"}]}`))

	scan := &model.Scan{BuildID: 10, ScanType: report.ReportTypeSAST}
	created, err := NewScansStore(db).FindOrCreateScan(context.Background(), scan)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, int64(5), scan.ID)
	assert.Equal(t, model.ScanStatusSucceeded, scan.Status)
	assert.True(t, scan.HasWarnings())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScansStore_FindOrCreateScan_New(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`SELECT \* FROM "security_scans"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "security_scans"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(6))
	mock.ExpectCommit()

	scan := &model.Scan{BuildID: 10, ScanType: report.ReportTypeSAST, Latest: true}
	created, err := NewScansStore(db).FindOrCreateScan(context.Background(), scan)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(6), scan.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScansStore_FindOrCreateScan_Invalid(t *testing.T) {
	db, _ := setupTestDB(t)
	scan := &model.Scan{BuildID: 10, ScanType: report.ReportTypeSAST}
	scan.Info.Errors = []report.Error{{Type: "ParsingError"}}

	_, err := NewScansStore(db).FindOrCreateScan(context.Background(), scan)
	assert.Error(t, err)
}

func TestScansStore_FindScan_NotFound(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`SELECT \* FROM "security_scans"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewScansStore(db).FindScan(context.Background(), 1)
	assert.ErrorIs(t, err, store.ErrScanNotFound)
}

func TestScansStore_ListScans_UnknownTypesMatchNothing(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`SELECT \* FROM "security_scans" WHERE pipeline_id IN \(\$1\) AND 1 = 0 ORDER BY created_at, id`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	scans, err := NewScansStore(db).ListScans(context.Background(), store.ScanFilter{
		PipelineIDs: []int64{3},
		ScanTypes:   []report.ReportType{42},
	})
	require.NoError(t, err)
	assert.Empty(t, scans)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScansStore_PurgeStaleScans(t *testing.T) {
	db, mock := setupTestDB(t)
	before := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "security_scans" SET .* WHERE id IN \(SELECT id FROM "security_scans" WHERE created_at < \$3 AND status <> \$4 ORDER BY created_at, id LIMIT 100\)`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	n, err := NewScansStore(db).PurgeStaleScans(context.Background(), before, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindingsStore_ScanHasFindings(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "security_findings" WHERE scan_id = \$1 AND partition_number = \$2`).
		WithArgs(5, 2).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	has, err := NewFindingsStore(db).ScanHasFindings(context.Background(), &model.Scan{ID: 5, FindingsPartitionNumber: 2})
	require.NoError(t, err)
	assert.True(t, has)
}

func TestFindingsStore_InsertFindings_Batches(t *testing.T) {
	db, mock := setupTestDB(t)
	insert := `INSERT INTO "security_findings" .* ON CONFLICT DO NOTHING RETURNING "id"`

	mock.ExpectBegin()
	mock.ExpectQuery(insert).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectQuery(insert).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectCommit()

	findings := []model.Finding{
		{ScanID: 1, ScannerID: 1, PartitionNumber: 1, UUID: "u1"},
		{ScanID: 1, ScannerID: 1, PartitionNumber: 1, UUID: "u2"},
		{ScanID: 1, ScannerID: 1, PartitionNumber: 1, UUID: "u3"},
	}
	require.NoError(t, NewFindingsStore(db).InsertFindings(context.Background(), findings, 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindingsStore_InsertFindings_Empty(t *testing.T) {
	db, mock := setupTestDB(t)
	require.NoError(t, NewFindingsStore(db).InsertFindings(context.Background(), nil, 100))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindingsStore_MarkDeduplicated(t *testing.T) {
	db, mock := setupTestDB(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "security_findings" SET "deduplicated"=$1 WHERE scan_id = $2 AND partition_number = $3`)).
		WithArgs(false, 5, 1).
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec(`UPDATE "security_findings" SET "deduplicated"=\$1 WHERE .*scan_id = \$2 AND partition_number = \$3.* AND uuid IN \(\$4,\$5\)`).
		WithArgs(true, 5, 1, "a", "b").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := NewFindingsStore(db).MarkDeduplicated(context.Background(), &model.Scan{ID: 5, FindingsPartitionNumber: 1}, []string{"a", "b"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindingsStore_DeletePurgedFindings(t *testing.T) {
	db, mock := setupTestDB(t)
	before := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(`DELETE FROM security_findings WHERE scan_id IN`).
		WithArgs(int64(model.ScanStatusPurged), before).
		WillReturnResult(sqlmock.NewResult(0, 12))

	n, err := NewFindingsStore(db).DeletePurgedFindings(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)
}

func TestScannersStore_FindOrCreateScanner(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "vulnerability_scanners" .* ON CONFLICT \("project_id","external_id"\) DO UPDATE SET "name"="excluded"."name","vendor"="excluded"."vendor" RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	mock.ExpectCommit()

	scanner := model.NewScanner(2, report.Scanner{ExternalID: "semgrep", Name: "Semgrep"})
	require.NoError(t, NewScannersStore(db).FindOrCreateScanner(context.Background(), scanner))
	assert.Equal(t, int64(11), scanner.ID)
	assert.Equal(t, "GitLab", scanner.Vendor)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVulnerabilitiesStore_FindForOverride_NoFingerprints(t *testing.T) {
	db, mock := setupTestDB(t)
	vulns, err := NewVulnerabilitiesStore(db).FindForOverride(context.Background(), 1, report.ReportTypeSAST, nil)
	require.NoError(t, err)
	assert.Empty(t, vulns)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVulnerabilitiesStore_CountVulnerabilities(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "vulnerability_occurrences" WHERE .*project_id = \$1 AND state IN \(\$2\).* AND report_type IN \(\$3\)`).
		WithArgs(1, model.StateDetected, 1).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := NewVulnerabilitiesStore(db).CountVulnerabilities(context.Background(), 1,
		[]string{model.StateDetected}, []report.ReportType{report.ReportTypeSAST}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestVulnerabilitiesStore_CountVulnerabilities_NoStates(t *testing.T) {
	db, mock := setupTestDB(t)
	n, err := NewVulnerabilitiesStore(db).CountVulnerabilities(context.Background(), 1, nil, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartitionsStore_ActivePartition(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COALESCE(MAX(number), 1) FROM security_finding_partitions`)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(3))

	n, err := NewPartitionsStore(db).ActivePartition(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestPartitionsStore_EnsurePartition(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS security_findings_4 PARTITION OF security_findings FOR VALUES IN (4)`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO security_finding_partitions (number) VALUES ($1) ON CONFLICT DO NOTHING`)).
		WithArgs(4).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewPartitionsStore(db).EnsurePartition(context.Background(), 4))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPartitionsStore_EnsurePartition_Invalid(t *testing.T) {
	db, _ := setupTestDB(t)
	assert.Error(t, NewPartitionsStore(db).EnsurePartition(context.Background(), 0))
}

func TestPartitionsStore_DropPartition(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS security_findings_2`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM security_finding_partitions WHERE number = $1`)).
		WithArgs(2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, NewPartitionsStore(db).DropPartition(context.Background(), 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApprovalRulesStore_UpdateApprovalsRequired(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "approval_rules" SET "approvals_required"=\$1,"updated_at"=\$2 WHERE .*"id" = \$3`).
		WithArgs(0, sqlmock.AnyArg(), 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rule := &model.ApprovalRule{ID: 7, ApprovalsRequired: 2}
	require.NoError(t, NewApprovalRulesStore(db).UpdateApprovalsRequired(context.Background(), rule, 0))
	assert.Equal(t, 0, rule.ApprovalsRequired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

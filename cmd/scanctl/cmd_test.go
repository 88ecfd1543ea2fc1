package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
	"github.com/doodlesbykumbi/scanstore/pkg/store/storetest"
)

func TestWithMigrationsTable(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"", ""},
		{"postgres://localhost/scanstore", "postgres://localhost/scanstore?x-migrations-table=go_schema_migrations"},
		{"postgres://localhost/scanstore?sslmode=disable", "postgres://localhost/scanstore?sslmode=disable&x-migrations-table=go_schema_migrations"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, withMigrationsTable(tt.url))
	}
}

func TestWaitForServer(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var out bytes.Buffer
	require.NoError(t, waitForServer(&out, srv.URL+"/health", 5, time.Millisecond))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Contains(t, out.String(), "ready")

	err := waitForServer(&out, "http://127.0.0.1:1/health", 2, time.Millisecond)
	assert.Error(t, err)
}

func TestShowConfiguration_UnknownFormat(t *testing.T) {
	t.Setenv("SCANSTORE_CONFIG_PATH", t.TempDir())
	err := showConfiguration(&bytes.Buffer{}, "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestPrintScans(t *testing.T) {
	mocks := storetest.NewMocks()
	mocks.Scans.On("ListScans", mock.Anything, store.ScanFilter{PipelineIDs: []int64{42}, LatestOnly: true}).Return([]model.Scan{
		{BuildID: 5, ScanType: report.ReportTypeSAST, Status: model.ScanStatusSucceeded},
		{BuildID: 6, ScanType: report.ReportTypeDAST, Status: model.ScanStatusReportError,
			Info: model.ScanInfo{Errors: []report.Error{{Type: "ParsingError", Message: "JSON parsing failed"}}}},
	}, nil).Once()

	var out bytes.Buffer
	require.NoError(t, printScans(context.Background(), &out, mocks.Scans, 42))

	assert.Contains(t, out.String(), "succeeded")
	assert.Contains(t, out.String(), "[ParsingError: JSON parsing failed]")
	mocks.AssertExpectations(t)
}

func TestReportWatcher_Handle(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gl-sast-report.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"15.0.7","vulnerabilities":[]}`), 0o600))

	mocks := storetest.NewMocks()
	pipeline := &model.Pipeline{ID: 42, ProjectID: 7}
	mocks.Pipelines.On("FindPipeline", mock.Anything, int64(42)).Return(pipeline, nil).Once()
	mocks.Pipelines.On("CreateJob", mock.Anything, mock.MatchedBy(func(j *model.Job) bool {
		return j.PipelineID == 42 && j.ProjectID == 7 && j.Name == "watch:sast" && j.Status == model.StatusSuccess
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*model.Job).ID = 900
	}).Return(nil).Once()
	mocks.Artifacts.On("SaveArtifact", mock.Anything, mock.MatchedBy(func(a *model.JobArtifact) bool {
		return a.JobID == 900 && a.FileType == report.ReportTypeSAST
	})).Return(nil).Once()

	var ingested []int64
	rw := &reportWatcher{
		stores:     mocks.Stores(),
		pipelineID: 42,
		out:        &bytes.Buffer{},
		ingest: func(ctx context.Context, pipelineID int64) error {
			ingested = append(ingested, pipelineID)
			return nil
		},
	}

	require.NoError(t, rw.handle(context.Background(), path))
	require.NoError(t, rw.handle(context.Background(), path), "unchanged content is not uploaded again")

	assert.Equal(t, []int64{42}, ingested)
	mocks.Pipelines.AssertNotCalled(t, "MarkJobRetried", mock.Anything, mock.Anything)
	mocks.AssertExpectations(t)
}

func TestReportWatcher_HandleModifiedReport(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gl-sast-report.json")
	first := []byte(`{"version":"15.0.7","vulnerabilities":[{"id":"a"}]}`)
	second := []byte(`{"version":"15.0.7","vulnerabilities":[{"id":"a"},{"id":"b"}]}`)

	mocks := storetest.NewMocks()
	pipeline := &model.Pipeline{ID: 42, ProjectID: 7}
	mocks.Pipelines.On("FindPipeline", mock.Anything, int64(42)).Return(pipeline, nil).Twice()
	nextID := int64(900)
	mocks.Pipelines.On("CreateJob", mock.Anything, mock.AnythingOfType("*model.Job")).Run(func(args mock.Arguments) {
		args.Get(1).(*model.Job).ID = nextID
		nextID++
	}).Return(nil).Twice()

	var saved []*model.JobArtifact
	mocks.Artifacts.On("SaveArtifact", mock.Anything, mock.AnythingOfType("*model.JobArtifact")).Run(func(args mock.Arguments) {
		saved = append(saved, args.Get(1).(*model.JobArtifact))
	}).Return(nil).Twice()
	mocks.Pipelines.On("MarkJobRetried", mock.Anything, int64(900)).Return(nil).Once()

	var ingested int
	rw := &reportWatcher{
		stores:     mocks.Stores(),
		pipelineID: 42,
		out:        &bytes.Buffer{},
		ingest: func(ctx context.Context, pipelineID int64) error {
			ingested++
			return nil
		},
	}

	require.NoError(t, os.WriteFile(path, first, 0o600))
	require.NoError(t, rw.handle(context.Background(), path))
	require.NoError(t, os.WriteFile(path, second, 0o600))
	require.NoError(t, rw.handle(context.Background(), path))

	require.Len(t, saved, 2)
	assert.Equal(t, int64(900), saved[0].JobID)
	assert.Equal(t, first, saved[0].File)
	assert.Equal(t, int64(901), saved[1].JobID, "the new version gets its own job")
	assert.Equal(t, second, saved[1].File)
	assert.Equal(t, 2, ingested)
	mocks.AssertExpectations(t)
}

func TestReportWatcher_HandleRejectsOtherFiles(t *testing.T) {
	rw := &reportWatcher{stores: storetest.NewMocks().Stores()}
	err := rw.handle(context.Background(), "/tmp/notes.txt")
	assert.Error(t, err)
}

func TestLoadPolicyFile_DryRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
scan_result_policies:
  - name: Block critical
    enabled: true
    rules:
      - type: scan_finding
        branches: [main]
        scanners: [sast]
        vulnerabilities_allowed: 0
        severity_levels: [critical]
        vulnerability_states: [newly_detected]
    actions:
      - type: require_approval
        approvals_required: 1
`), 0o600))

	mocks := storetest.NewMocks()
	rules, err := loadPolicyFile(context.Background(), mocks.ApprovalRules, 3, path, true)
	require.NoError(t, err)

	require.Len(t, rules, 1)
	assert.Equal(t, loadedRule{Name: "Block critical", Ref: "main", Scanners: []string{"sast"}, ApprovalsRequired: 1}, rules[0])
	mocks.ApprovalRules.AssertNotCalled(t, "SaveApprovalRule", mock.Anything, mock.Anything)
}

func TestLoadPolicyFile_Missing(t *testing.T) {
	_, err := loadPolicyFile(context.Background(), storetest.NewMocks().ApprovalRules, 3, "/nonexistent/policy.yml", true)
	assert.ErrorContains(t, err, "failed to open policy file")
}

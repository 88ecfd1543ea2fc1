package endpoints

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/scanstore/pkg/finder"
	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

func TestListScans(t *testing.T) {
	ts := newTestServer(t)

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ts.mocks.Pipelines.On("FindPipeline", mock.Anything, int64(41)).Return(&model.Pipeline{ID: 41}, nil).Once()
	ts.mocks.Scans.On("ListScans", mock.Anything, store.ScanFilter{
		PipelineIDs: []int64{41},
		ScanTypes:   []report.ReportType{report.ReportTypeSAST, report.ReportTypeDAST},
		LatestOnly:  true,
	}).Return([]model.Scan{
		{ID: 1, BuildID: 100, ScanType: report.ReportTypeSAST, Status: model.ScanStatusSucceeded, Latest: true, CreatedAt: created},
		{
			ID: 2, BuildID: 101, ScanType: report.ReportTypeDAST, Status: model.ScanStatusReportError, Latest: true, CreatedAt: created,
			Info: model.ScanInfo{Errors: []report.Error{{Type: "ParsingError", Message: "JSON parsing failed"}}},
		},
	}, nil).Once()

	w := ts.do("GET", "/pipelines/41/security_scans?scan_type[]=sast&scan_type[]=dast&latest=true", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `[
		{"id":1,"build_id":100,"scan_type":"sast","status":"succeeded","latest":true,"errors":[],"warnings":[],"created_at":"2024-05-01T12:00:00Z"},
		{"id":2,"build_id":101,"scan_type":"dast","status":"report_error","latest":true,
		 "errors":[{"type":"ParsingError","message":"JSON parsing failed"}],"warnings":[],"created_at":"2024-05-01T12:00:00Z"}
	]`, w.Body.String())
}

func TestListScans_InvalidFilters(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{name: "unknown scan type", query: "scan_type=unknown"},
		{name: "unknown status", query: "status=finished"},
		{name: "bad boolean", query: "with_errors=maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			w := ts.do("GET", "/pipelines/41/security_scans?"+tt.query, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestListFindings(t *testing.T) {
	ts := newTestServer(t)

	ts.mocks.Pipelines.On("FindPipeline", mock.Anything, int64(41)).Return(&model.Pipeline{ID: 41}, nil).Once()
	ts.mocks.Findings.On("ListFindings", mock.Anything, store.FindingFilter{
		PipelineID:       41,
		Severities:       []report.Severity{report.SeverityHigh},
		ExcludeDismissed: true,
		Limit:            2,
		Offset:           2,
	}).Return([]model.Finding{
		{ID: 7, UUID: "u-7", Severity: report.SeverityHigh, FindingData: model.FindingData{Name: "SQL injection", Description: "Use **bound** parameters"}},
	}, int64(3), nil).Once()

	w := ts.do("GET", "/pipelines/41/security_findings?severity[]=high&page=2&per_page=2", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "3", w.Header().Get("X-Total"))
	assert.Equal(t, "2", w.Header().Get("X-Page"))
	assert.Equal(t, "2", w.Header().Get("X-Per-Page"))

	var findings []finder.Finding
	decodeBody(t, w, &findings)
	require.Len(t, findings, 1)
	assert.Equal(t, "u-7", findings[0].UUID)
	assert.Contains(t, findings[0].DescriptionHTML, "<strong>bound</strong>")
}

func TestListFindings_InvalidScope(t *testing.T) {
	ts := newTestServer(t)
	ts.mocks.Pipelines.On("FindPipeline", mock.Anything, int64(41)).Return(&model.Pipeline{ID: 41}, nil).Once()

	w := ts.do("GET", "/pipelines/41/security_findings?scope=everything", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "bad_request", errorBody(t, w).Code)
}

func TestListApprovalRules(t *testing.T) {
	ts := newTestServer(t)

	ts.mocks.Pipelines.On("FindProject", mock.Anything, int64(9)).Return(&model.Project{ID: 9}, nil).Once()
	ts.mocks.ApprovalRules.On("ListApprovalRules", mock.Anything, int64(9)).Return([]model.ApprovalRule{
		{ID: 1, Name: "No critical SAST", Ref: "main", Scanners: []string{"sast"}, SeverityLevels: []string{"critical"}, ApprovalsRequired: 2, OriginalApprovalsRequired: 2},
	}, nil).Once()

	w := ts.do("GET", "/projects/9/approval_rules", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rules []ApprovalRuleResponse
	decodeBody(t, w, &rules)
	require.Len(t, rules, 1)
	assert.Equal(t, []string{"sast"}, rules[0].Scanners)
	assert.Equal(t, []string{}, rules[0].VulnerabilityStates)
	assert.Equal(t, 2, rules[0].ApprovalsRequired)
}

func TestListApprovalRules_ProjectNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.mocks.Pipelines.On("FindProject", mock.Anything, int64(9)).Return(nil, store.ErrProjectNotFound).Once()

	w := ts.do("GET", "/projects/9/approval_rules", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

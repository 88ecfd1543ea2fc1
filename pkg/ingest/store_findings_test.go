package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/report/parser"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

func TestStoreFindings_AlreadyStored(t *testing.T) {
	svc, m := newTestService(t)
	scan := &model.Scan{ID: 1}
	m.Findings.On("ScanHasFindings", mock.Anything, scan).Return(true, nil)

	err := svc.StoreFindings(context.Background(), scan, report.New(report.ReportTypeSAST, 1, testPipeline().CreatedAt), nil)
	assert.ErrorIs(t, err, store.ErrFindingsAlreadyStored)
}

func TestStoreFindings_SkipsInvalidAndDuplicateUUIDs(t *testing.T) {
	svc, m := newTestService(t)
	svc.cfg.FindingsBatchSize = 50
	scan := &model.Scan{ID: 1, ProjectID: 1, ScanType: report.ReportTypeSAST, FindingsPartitionNumber: 3}

	first := overrideFinding("dup", 1)
	first.Name = "first"
	second := overrideFinding("dup", 2)
	second.Name = "second"
	invalid := overrideFinding("", 3)
	other := overrideFinding("other", 4)
	other.Scanner = &report.Scanner{ExternalID: "gosec", Name: "Gosec"}
	other.OverriddenUUID = "was-other"

	rep := report.New(report.ReportTypeSAST, 7, testPipeline().CreatedAt)
	for _, f := range []*report.Finding{first, second, invalid, other} {
		rep.AddFinding(f)
	}

	m.Findings.On("ScanHasFindings", mock.Anything, scan).Return(false, nil)
	m.Scanners.On("FindOrCreateScanner", mock.Anything, mock.MatchedBy(func(s *model.Scanner) bool {
		return s.ExternalID == "semgrep" && s.Vendor == "GitLab" && s.ProjectID == 1
	})).Run(func(args mock.Arguments) { args.Get(1).(*model.Scanner).ID = 5 }).Return(nil).Once()
	m.Scanners.On("FindOrCreateScanner", mock.Anything, mock.MatchedBy(func(s *model.Scanner) bool {
		return s.ExternalID == "gosec"
	})).Run(func(args mock.Arguments) { args.Get(1).(*model.Scanner).ID = 6 }).Return(nil).Once()

	var rows []model.Finding
	m.Findings.On("InsertFindings", mock.Anything, mock.Anything, 50).
		Run(func(args mock.Arguments) { rows = args.Get(1).([]model.Finding) }).
		Return(nil)

	require.NoError(t, svc.StoreFindings(context.Background(), scan, rep, []string{"other"}))

	require.Len(t, rows, 2)
	assert.Equal(t, "first", rows[0].FindingData.Name)
	assert.Equal(t, int64(5), rows[0].ScannerID)
	assert.False(t, rows[0].Deduplicated)
	assert.Equal(t, 3, rows[0].PartitionNumber)

	assert.Equal(t, int64(6), rows[1].ScannerID)
	assert.True(t, rows[1].Deduplicated)
	require.NotNil(t, rows[1].OverriddenUUID)
	assert.Equal(t, "was-other", *rows[1].OverriddenUUID)
	m.AssertExpectations(t)
}

func TestStoreFindings_RecordsRemediationOffsets(t *testing.T) {
	svc, m := newTestService(t)
	scan := &model.Scan{ID: 1, ProjectID: 1, ScanType: report.ReportTypeSAST, FindingsPartitionNumber: 1}
	rep := parser.ParseBytes([]byte(semgrepReport), report.ReportTypeSAST, parser.Options{ProjectID: 1, PipelineID: 7})
	require.Len(t, rep.Findings, 2)

	m.Findings.On("ScanHasFindings", mock.Anything, scan).Return(false, nil)
	expectScanner(m, 3)
	var rows []model.Finding
	m.Findings.On("InsertFindings", mock.Anything, mock.Anything, 100).
		Run(func(args mock.Arguments) { rows = args.Get(1).([]model.Finding) }).
		Return(nil)

	require.NoError(t, svc.StoreFindings(context.Background(), scan, rep, nil))

	require.Len(t, rows, 2)
	assert.Empty(t, rows[0].FindingData.RemediationByteOffsets)
	require.Len(t, rows[1].FindingData.RemediationByteOffsets, 1)
	offset := rows[1].FindingData.RemediationByteOffsets[0]
	assert.Equal(t, `"LS0tIGEvYXBwL2RiLnB5"`, semgrepReport[offset.StartByte:offset.EndByte])
	m.AssertExpectations(t)
}

func TestRemediationByteOffsets(t *testing.T) {
	raw := []byte(`{"remediations":[{"diff":"a<b"},{"diff":"abc"}]}`)
	got := remediationByteOffsets(raw, []report.Remediation{{Diff: "abc"}, {Diff: "missing"}, {Diff: "a<b"}, {Summary: "no diff"}})

	require.Len(t, got, 2)
	assert.Equal(t, `"abc"`, string(raw[got[0].StartByte:got[0].EndByte]))
	assert.Equal(t, `"a<b"`, string(raw[got[1].StartByte:got[1].EndByte]))

	assert.Nil(t, remediationByteOffsets(nil, []report.Remediation{{Diff: "abc"}}))
}

// Package storetest provides testify mocks of the store interfaces.
package storetest

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

// Mocks holds one mock per store.
type Mocks struct {
	Pipelines       *MockPipelinesStore
	Artifacts       *MockArtifactsStore
	Scans           *MockScansStore
	Findings        *MockFindingsStore
	Scanners        *MockScannersStore
	Vulnerabilities *MockVulnerabilitiesStore
	Partitions      *MockPartitionsStore
	ApprovalRules   *MockApprovalRulesStore
	Health          *MockHealthStore
}

// NewMocks creates a fresh set of mocks.
func NewMocks() *Mocks {
	return &Mocks{
		Pipelines:       &MockPipelinesStore{},
		Artifacts:       &MockArtifactsStore{},
		Scans:           &MockScansStore{},
		Findings:        &MockFindingsStore{},
		Scanners:        &MockScannersStore{},
		Vulnerabilities: &MockVulnerabilitiesStore{},
		Partitions:      &MockPartitionsStore{},
		ApprovalRules:   &MockApprovalRulesStore{},
		Health:          &MockHealthStore{},
	}
}

// Stores exposes the mocks as store.Stores.
func (m *Mocks) Stores() *store.Stores {
	return &store.Stores{
		Pipelines:       m.Pipelines,
		Artifacts:       m.Artifacts,
		Scans:           m.Scans,
		Findings:        m.Findings,
		Scanners:        m.Scanners,
		Vulnerabilities: m.Vulnerabilities,
		Partitions:      m.Partitions,
		ApprovalRules:   m.ApprovalRules,
		Health:          m.Health,
	}
}

// AssertExpectations asserts every mock.
func (m *Mocks) AssertExpectations(t mock.TestingT) {
	m.Pipelines.AssertExpectations(t)
	m.Artifacts.AssertExpectations(t)
	m.Scans.AssertExpectations(t)
	m.Findings.AssertExpectations(t)
	m.Scanners.AssertExpectations(t)
	m.Vulnerabilities.AssertExpectations(t)
	m.Partitions.AssertExpectations(t)
	m.ApprovalRules.AssertExpectations(t)
	m.Health.AssertExpectations(t)
}

// MockPipelinesStore implements store.PipelinesStore
type MockPipelinesStore struct {
	mock.Mock
}

func (m *MockPipelinesStore) CreateProject(ctx context.Context, project *model.Project) error {
	return m.Called(ctx, project).Error(0)
}

func (m *MockPipelinesStore) FindProject(ctx context.Context, id int64) (*model.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Project), args.Error(1)
}

func (m *MockPipelinesStore) CreatePipeline(ctx context.Context, pipeline *model.Pipeline) error {
	return m.Called(ctx, pipeline).Error(0)
}

func (m *MockPipelinesStore) FindPipeline(ctx context.Context, id int64) (*model.Pipeline, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pipeline), args.Error(1)
}

func (m *MockPipelinesStore) LatestSuccessfulPipeline(ctx context.Context, projectID int64, ref string) (*model.Pipeline, error) {
	args := m.Called(ctx, projectID, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Pipeline), args.Error(1)
}

func (m *MockPipelinesStore) CreateJob(ctx context.Context, job *model.Job) error {
	return m.Called(ctx, job).Error(0)
}

func (m *MockPipelinesStore) FindJob(ctx context.Context, id int64) (*model.Job, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Job), args.Error(1)
}

func (m *MockPipelinesStore) MarkJobRetried(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// MockArtifactsStore implements store.ArtifactsStore
type MockArtifactsStore struct {
	mock.Mock
}

func (m *MockArtifactsStore) SaveArtifact(ctx context.Context, artifact *model.JobArtifact) error {
	return m.Called(ctx, artifact).Error(0)
}

func (m *MockArtifactsStore) SecurityReportArtifacts(ctx context.Context, pipelineID int64) ([]model.JobArtifact, error) {
	args := m.Called(ctx, pipelineID)
	artifacts, _ := args.Get(0).([]model.JobArtifact)
	return artifacts, args.Error(1)
}

// MockScansStore implements store.ScansStore
type MockScansStore struct {
	mock.Mock
}

func (m *MockScansStore) FindOrCreateScan(ctx context.Context, scan *model.Scan) (bool, error) {
	args := m.Called(ctx, scan)
	return args.Bool(0), args.Error(1)
}

func (m *MockScansStore) SaveScan(ctx context.Context, scan *model.Scan) error {
	return m.Called(ctx, scan).Error(0)
}

func (m *MockScansStore) FindScan(ctx context.Context, id int64) (*model.Scan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Scan), args.Error(1)
}

func (m *MockScansStore) ListScans(ctx context.Context, filter store.ScanFilter) ([]model.Scan, error) {
	args := m.Called(ctx, filter)
	scans, _ := args.Get(0).([]model.Scan)
	return scans, args.Error(1)
}

func (m *MockScansStore) DistinctScanTypes(ctx context.Context, pipelineID int64) ([]report.ReportType, error) {
	args := m.Called(ctx, pipelineID)
	types, _ := args.Get(0).([]report.ReportType)
	return types, args.Error(1)
}

func (m *MockScansStore) PurgeStaleScans(ctx context.Context, before time.Time, limit int) (int64, error) {
	args := m.Called(ctx, before, limit)
	return args.Get(0).(int64), args.Error(1)
}

// MockFindingsStore implements store.FindingsStore
type MockFindingsStore struct {
	mock.Mock
}

func (m *MockFindingsStore) ScanHasFindings(ctx context.Context, scan *model.Scan) (bool, error) {
	args := m.Called(ctx, scan)
	return args.Bool(0), args.Error(1)
}

func (m *MockFindingsStore) InsertFindings(ctx context.Context, findings []model.Finding, batchSize int) error {
	return m.Called(ctx, findings, batchSize).Error(0)
}

func (m *MockFindingsStore) MarkDeduplicated(ctx context.Context, scan *model.Scan, uuids []string) error {
	return m.Called(ctx, scan, uuids).Error(0)
}

func (m *MockFindingsStore) ListFindings(ctx context.Context, filter store.FindingFilter) ([]model.Finding, int64, error) {
	args := m.Called(ctx, filter)
	findings, _ := args.Get(0).([]model.Finding)
	return findings, args.Get(1).(int64), args.Error(2)
}

func (m *MockFindingsStore) PipelineFindingUUIDs(ctx context.Context, pipelineID int64, scanTypes []report.ReportType, severities []report.Severity) ([]string, error) {
	args := m.Called(ctx, pipelineID, scanTypes, severities)
	uuids, _ := args.Get(0).([]string)
	return uuids, args.Error(1)
}

func (m *MockFindingsStore) PipelineFindings(ctx context.Context, pipelineID int64, scanType report.ReportType) ([]model.Finding, error) {
	args := m.Called(ctx, pipelineID, scanType)
	findings, _ := args.Get(0).([]model.Finding)
	return findings, args.Error(1)
}

func (m *MockFindingsStore) DeletePurgedFindings(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockScannersStore implements store.ScannersStore
type MockScannersStore struct {
	mock.Mock
}

func (m *MockScannersStore) FindOrCreateScanner(ctx context.Context, scanner *model.Scanner) error {
	return m.Called(ctx, scanner).Error(0)
}

// MockVulnerabilitiesStore implements store.VulnerabilitiesStore
type MockVulnerabilitiesStore struct {
	mock.Mock
}

func (m *MockVulnerabilitiesStore) FindForOverride(ctx context.Context, projectID int64, reportType report.ReportType, fingerprints []string) ([]model.Vulnerability, error) {
	args := m.Called(ctx, projectID, reportType, fingerprints)
	vulns, _ := args.Get(0).([]model.Vulnerability)
	return vulns, args.Error(1)
}

func (m *MockVulnerabilitiesStore) FindByUUIDs(ctx context.Context, projectID int64, uuids []string) ([]model.Vulnerability, error) {
	args := m.Called(ctx, projectID, uuids)
	vulns, _ := args.Get(0).([]model.Vulnerability)
	return vulns, args.Error(1)
}

func (m *MockVulnerabilitiesStore) SaveVulnerability(ctx context.Context, vuln *model.Vulnerability) error {
	return m.Called(ctx, vuln).Error(0)
}

func (m *MockVulnerabilitiesStore) MarkResolvedOnDefaultBranch(ctx context.Context, projectID int64, reportTypes []report.ReportType, scannerIDs []int64, present []string) (int64, error) {
	args := m.Called(ctx, projectID, reportTypes, scannerIDs, present)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVulnerabilitiesStore) CountVulnerabilities(ctx context.Context, projectID int64, states []string, reportTypes []report.ReportType, severities []report.Severity) (int64, error) {
	args := m.Called(ctx, projectID, states, reportTypes, severities)
	return args.Get(0).(int64), args.Error(1)
}

// MockPartitionsStore implements store.PartitionsStore
type MockPartitionsStore struct {
	mock.Mock
}

func (m *MockPartitionsStore) ActivePartition(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockPartitionsStore) EnsurePartition(ctx context.Context, n int) error {
	return m.Called(ctx, n).Error(0)
}

func (m *MockPartitionsStore) PartitionRowCount(ctx context.Context, n int) (int64, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPartitionsStore) DroppablePartitions(ctx context.Context, active int) ([]int, error) {
	args := m.Called(ctx, active)
	numbers, _ := args.Get(0).([]int)
	return numbers, args.Error(1)
}

func (m *MockPartitionsStore) DropPartition(ctx context.Context, n int) error {
	return m.Called(ctx, n).Error(0)
}

// MockApprovalRulesStore implements store.ApprovalRulesStore
type MockApprovalRulesStore struct {
	mock.Mock
}

func (m *MockApprovalRulesStore) ListApprovalRules(ctx context.Context, projectID int64) ([]model.ApprovalRule, error) {
	args := m.Called(ctx, projectID)
	rules, _ := args.Get(0).([]model.ApprovalRule)
	return rules, args.Error(1)
}

func (m *MockApprovalRulesStore) SaveApprovalRule(ctx context.Context, rule *model.ApprovalRule) error {
	return m.Called(ctx, rule).Error(0)
}

func (m *MockApprovalRulesStore) UpdateApprovalsRequired(ctx context.Context, rule *model.ApprovalRule, approvalsRequired int) error {
	args := m.Called(ctx, rule, approvalsRequired)
	if args.Error(0) == nil {
		rule.ApprovalsRequired = approvalsRequired
	}
	return args.Error(0)
}

// MockHealthStore implements store.HealthStore
type MockHealthStore struct {
	mock.Mock
}

func (m *MockHealthStore) CheckConnectivity(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var (
	_ store.PipelinesStore       = (*MockPipelinesStore)(nil)
	_ store.ArtifactsStore       = (*MockArtifactsStore)(nil)
	_ store.ScansStore           = (*MockScansStore)(nil)
	_ store.FindingsStore        = (*MockFindingsStore)(nil)
	_ store.ScannersStore        = (*MockScannersStore)(nil)
	_ store.VulnerabilitiesStore = (*MockVulnerabilitiesStore)(nil)
	_ store.PartitionsStore      = (*MockPartitionsStore)(nil)
	_ store.ApprovalRulesStore   = (*MockApprovalRulesStore)(nil)
	_ store.HealthStore          = (*MockHealthStore)(nil)
)

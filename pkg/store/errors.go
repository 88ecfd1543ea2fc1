package store

import "errors"

var (
	// ErrProjectNotFound is returned when a project doesn't exist
	ErrProjectNotFound = errors.New("project not found")

	// ErrPipelineNotFound is returned when a pipeline doesn't exist
	ErrPipelineNotFound = errors.New("pipeline not found")

	// ErrJobNotFound is returned when a job doesn't exist
	ErrJobNotFound = errors.New("job not found")

	// ErrArtifactNotFound is returned when a job has no artifact of the
	// requested type
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrScanNotFound is returned when a scan doesn't exist
	ErrScanNotFound = errors.New("scan not found")

	// ErrFindingsAlreadyStored is returned when findings are stored twice
	// for the same scan
	ErrFindingsAlreadyStored = errors.New("findings already stored for scan")

	// ErrInvalidReportType is returned for unknown report types
	ErrInvalidReportType = errors.New("invalid report type")
)

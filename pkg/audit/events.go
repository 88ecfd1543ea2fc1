package audit

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

func withError(msg, errMsg string) string {
	if errMsg != "" {
		return msg + ": " + errMsg
	}
	return msg
}

func id(n int64) string {
	return strconv.FormatInt(n, 10)
}

// ScanEvent is written once per security scan after ingestion.
type ScanEvent struct {
	ProjectID    int64
	PipelineID   int64
	BuildID      int64
	ScanID       int64
	ScanType     string
	Status       string
	Findings     int
	Success      bool
	ErrorMessage string
}

func (e ScanEvent) MessageID() string {
	return "scan"
}

func (e ScanEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("stored %s scan %d of pipeline %d with %d findings", e.ScanType, e.ScanID, e.PipelineID, e.Findings)
	}
	return withError(fmt.Sprintf("failed to store %s scan %d of pipeline %d (%s)", e.ScanType, e.ScanID, e.PipelineID, e.Status), e.ErrorMessage)
}

func (e ScanEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e ScanEvent) Facility() int {
	return FacilityAudit
}

func (e ScanEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDPipeline: {
			"project":  id(e.ProjectID),
			"pipeline": id(e.PipelineID),
			"build":    id(e.BuildID),
		},
		SDIDSubject: {
			"scan":      id(e.ScanID),
			"scan_type": e.ScanType,
			"status":    e.Status,
			"findings":  strconv.Itoa(e.Findings),
		},
		SDIDAction: {
			"operation": "store",
			"result":    result(e.Success),
		},
	}
}

// PurgeEvent is written after a purge run.
type PurgeEvent struct {
	Before     time.Time
	Scans      int64
	Findings   int64
	Partitions []int
	Success    bool

	ErrorMessage string
}

func (e PurgeEvent) MessageID() string {
	return "purge"
}

func (e PurgeEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("purged %d scans and %d findings created before %s", e.Scans, e.Findings, e.Before.UTC().Format(time.RFC3339))
	}
	return withError("failed to purge stale scans", e.ErrorMessage)
}

func (e PurgeEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityError
}

func (e PurgeEvent) Facility() int {
	return FacilityAudit
}

func (e PurgeEvent) StructuredData() map[string]map[string]string {
	partitions := make([]string, len(e.Partitions))
	for i, p := range e.Partitions {
		partitions[i] = strconv.Itoa(p)
	}
	return map[string]map[string]string{
		SDIDSubject: {
			"scans":      id(e.Scans),
			"findings":   id(e.Findings),
			"partitions": strings.Join(partitions, ","),
			"before":     e.Before.UTC().Format(time.RFC3339),
		},
		SDIDAction: {
			"operation": "purge",
			"result":    result(e.Success),
		},
	}
}

// RevocationEvent is written when leaked tokens are sent for revocation.
// Token values are never recorded.
type RevocationEvent struct {
	ProjectID    int64
	PipelineID   int64
	Tokens       int
	Success      bool
	ErrorMessage string
}

func (e RevocationEvent) MessageID() string {
	return "revocation"
}

func (e RevocationEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("submitted %d leaked tokens of pipeline %d for revocation", e.Tokens, e.PipelineID)
	}
	return withError(fmt.Sprintf("failed to submit %d leaked tokens of pipeline %d for revocation", e.Tokens, e.PipelineID), e.ErrorMessage)
}

func (e RevocationEvent) Severity() Severity {
	if e.Success {
		return SeverityNotice
	}
	return SeverityError
}

func (e RevocationEvent) Facility() int {
	return FacilityAuthPriv
}

func (e RevocationEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDPipeline: {
			"project":  id(e.ProjectID),
			"pipeline": id(e.PipelineID),
		},
		SDIDSubject: {
			"tokens": strconv.Itoa(e.Tokens),
		},
		SDIDAction: {
			"operation": "revoke",
			"result":    result(e.Success),
		},
	}
}

// ApprovalEvent is written for every approval rule evaluation.
type ApprovalEvent struct {
	ProjectID  int64
	PipelineID int64
	RuleID     int64
	RuleName   string
	Violated   bool
	Count      int64
	Allowed    int
	Reason     string
}

func (e ApprovalEvent) MessageID() string {
	return "approval"
}

func (e ApprovalEvent) Message() string {
	if e.Violated {
		return fmt.Sprintf("approval rule %s violated by pipeline %d: %s", e.RuleName, e.PipelineID, e.Reason)
	}
	return fmt.Sprintf("approval rule %s satisfied by pipeline %d", e.RuleName, e.PipelineID)
}

func (e ApprovalEvent) Severity() Severity {
	if e.Violated {
		return SeverityNotice
	}
	return SeverityInfo
}

func (e ApprovalEvent) Facility() int {
	return FacilityAudit
}

func (e ApprovalEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDPipeline: {
			"project":  id(e.ProjectID),
			"pipeline": id(e.PipelineID),
		},
		SDIDSubject: {
			"rule":     id(e.RuleID),
			"name":     e.RuleName,
			"count":    id(e.Count),
			"allowed":  strconv.Itoa(e.Allowed),
			"violated": strconv.FormatBool(e.Violated),
		},
		SDIDAction: {
			"operation": "evaluate",
			"result":    "success",
		},
	}
	if e.Reason != "" {
		sd[SDIDSubject]["reason"] = e.Reason
	}
	return sd
}

// RequestEvent records a state-changing API request and the token subject
// that made it.
type RequestEvent struct {
	Subject  string
	ClientIP string
	Method   string
	Path     string
	Status   int
}

func (e RequestEvent) MessageID() string {
	return "api"
}

func (e RequestEvent) Message() string {
	return fmt.Sprintf("%s %s %s: %d", e.Subject, e.Method, e.Path, e.Status)
}

func (e RequestEvent) Severity() Severity {
	if e.Status >= 400 {
		return SeverityWarning
	}
	return SeverityInfo
}

func (e RequestEvent) Facility() int {
	return FacilityAuthPriv
}

func (e RequestEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDAuth: {
			"user": e.Subject,
		},
		SDIDClient: {
			"ip": e.ClientIP,
		},
		SDIDAction: {
			"operation": strings.ToLower(e.Method),
			"path":      e.Path,
			"result":    result(e.Status < 400),
		},
	}
}

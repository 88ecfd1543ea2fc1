package audit

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

func TestLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger()
	logger.SetWriter(&buf)

	event := ScanEvent{
		ProjectID:  1,
		PipelineID: 7,
		ScanID:     42,
		ScanType:   "sast",
		Status:     "succeeded",
		Findings:   3,
		Success:    true,
	}

	logger.Log(event)

	output := buf.String()

	// <PRI> = facility * 8 + severity
	if !strings.HasPrefix(output, "<110>1 ") {
		t.Errorf("Expected PRI 110 prefix, got %q", output)
	}
	if !strings.Contains(output, "scanstore") {
		t.Error("Expected app name 'scanstore' in output")
	}
	if !strings.Contains(output, " scan ") {
		t.Error("Expected message ID 'scan' in output")
	}
	if !strings.Contains(output, `[action@32473 operation="store" result="success"]`) {
		t.Errorf("Expected sorted action SD element in output, got %q", output)
	}
	if !strings.Contains(output, "stored sast scan 42 of pipeline 7 with 3 findings") {
		t.Error("Expected success message in output")
	}
}

func TestFormatStructuredData(t *testing.T) {
	got := formatStructuredData(map[string]map[string]string{
		"b@1": {"z": "1", "a": `q"]\`},
		"a@1": {"k": "v"},
	})
	want := `[a@1 k="v"][b@1 a="q\"\]\\" z="1"]`
	if got != want {
		t.Errorf("formatStructuredData() = %q, want %q", got, want)
	}
	if formatStructuredData(nil) != "" {
		t.Error("Expected empty structured data for nil map")
	}
}

func TestScanEvent(t *testing.T) {
	tests := []struct {
		name    string
		event   ScanEvent
		wantMsg string
		wantSev Severity
	}{
		{
			name:    "stored",
			event:   ScanEvent{ScanType: "dast", ScanID: 1, PipelineID: 2, Success: true},
			wantMsg: "stored dast scan 1",
			wantSev: SeverityInfo,
		},
		{
			name: "failed",
			event: ScanEvent{
				ScanType:     "sast",
				ScanID:       1,
				PipelineID:   2,
				Status:       "preparation_failed",
				ErrorMessage: "connection reset",
			},
			wantMsg: "(preparation_failed): connection reset",
			wantSev: SeverityWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(tt.event.Message(), tt.wantMsg) {
				t.Errorf("Message() = %q, want to contain %q", tt.event.Message(), tt.wantMsg)
			}
			if tt.event.Severity() != tt.wantSev {
				t.Errorf("Severity() = %v, want %v", tt.event.Severity(), tt.wantSev)
			}
			if tt.event.Facility() != FacilityAudit {
				t.Errorf("Facility() = %v, want %v", tt.event.Facility(), FacilityAudit)
			}
		})
	}
}

func TestPurgeEvent(t *testing.T) {
	event := PurgeEvent{
		Before:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Scans:      5,
		Findings:   100,
		Partitions: []int{1, 2},
		Success:    true,
	}

	if event.MessageID() != "purge" {
		t.Errorf("MessageID() = %v, want 'purge'", event.MessageID())
	}
	if !strings.Contains(event.Message(), "purged 5 scans and 100 findings created before 2024-01-01T00:00:00Z") {
		t.Errorf("Message() = %q", event.Message())
	}
	if got := event.StructuredData()[SDIDSubject]["partitions"]; got != "1,2" {
		t.Errorf("partitions = %q, want '1,2'", got)
	}
}

func TestRevocationEvent(t *testing.T) {
	event := RevocationEvent{PipelineID: 9, Tokens: 2, ErrorMessage: "503"}

	if event.MessageID() != "revocation" {
		t.Errorf("MessageID() = %v, want 'revocation'", event.MessageID())
	}
	if event.Severity() != SeverityError {
		t.Errorf("Severity() = %v, want SeverityError", event.Severity())
	}
	if !strings.HasSuffix(event.Message(), ": 503") {
		t.Errorf("Message() = %q, want error suffix", event.Message())
	}
}

func TestApprovalEvent(t *testing.T) {
	violated := ApprovalEvent{RuleName: "critical", PipelineID: 3, Violated: true, Reason: "scan removed"}
	if !strings.Contains(violated.Message(), "violated by pipeline 3: scan removed") {
		t.Errorf("Message() = %q", violated.Message())
	}
	if violated.StructuredData()[SDIDSubject]["reason"] != "scan removed" {
		t.Error("Expected reason in structured data")
	}

	satisfied := ApprovalEvent{RuleName: "critical", PipelineID: 3}
	if !strings.Contains(satisfied.Message(), "satisfied") {
		t.Errorf("Message() = %q", satisfied.Message())
	}
	if _, ok := satisfied.StructuredData()[SDIDSubject]["reason"]; ok {
		t.Error("Expected no reason when rule is satisfied")
	}
}

func TestRequestEvent(t *testing.T) {
	event := RequestEvent{Subject: "ci-runner", Method: "PUT", Path: "/jobs/1/artifacts/sast", Status: 201}
	if event.Message() != "ci-runner PUT /jobs/1/artifacts/sast: 201" {
		t.Errorf("Message() = %q", event.Message())
	}
	if event.StructuredData()[SDIDAuth]["user"] != "ci-runner" {
		t.Error("Expected subject recorded as user")
	}

	event.Status = 404
	if event.Severity() != SeverityWarning {
		t.Errorf("Severity() = %v, want SeverityWarning", event.Severity())
	}
}

func TestIsEnabled(t *testing.T) {
	SetEnabled(false)
	defer SetEnabled(true)

	if IsEnabled() {
		t.Error("Expected audit to be disabled")
	}
}

package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doodlesbykumbi/scanstore/pkg/report"
)

var cwe89 = report.Identifier{ExternalType: "cwe", ExternalID: "89", Name: "CWE-89"}

func finding(scanner string, sev report.Severity, file string, line int, ids ...report.Identifier) *report.Finding {
	f := &report.Finding{
		ReportType:  report.ReportTypeSAST,
		Scanner:     &report.Scanner{ExternalID: scanner, Name: scanner},
		Identifiers: ids,
		Location:    &report.Location{Kind: report.ReportTypeSAST, File: file, StartLine: line, EndLine: line},
		Severity:    sev,
		CompareKey:  scanner + ":" + file,
		ProjectID:   1,
	}
	f.ComputeUUID(report.DefaultNamespace)
	return f
}

func reportOf(scanner string, findings ...*report.Finding) *report.Report {
	r := report.New(report.ReportTypeSAST, 1, time.Unix(0, 0))
	s := r.AddScanner(report.Scanner{ExternalID: scanner, Name: scanner})
	r.PrimaryScanner = &s
	for _, f := range findings {
		for _, id := range f.Identifiers {
			r.AddIdentifier(id)
		}
		r.AddFinding(f)
	}
	return r
}

func TestReports_Empty(t *testing.T) {
	assert.Nil(t, Reports())
}

func TestReports_PrefersBanditOverSemgrep(t *testing.T) {
	b303 := report.Identifier{ExternalType: "bandit_test_id", ExternalID: "B303"}
	semgrepID := report.Identifier{ExternalType: "semgrep_id", ExternalID: "bandit.B303"}

	semgrep := finding("semgrep", report.SeverityMedium, "app.py", 3, semgrepID, b303, cwe89)
	bandit := finding("bandit", report.SeverityMedium, "app.py", 3, b303, cwe89)

	merged := Reports(reportOf("semgrep", semgrep), reportOf("bandit", bandit))

	require.Len(t, merged.Findings, 1)
	assert.Same(t, bandit, merged.Findings[0])
	assert.Equal(t, "bandit", merged.PrimaryScanner.ExternalID)
	assert.Len(t, merged.Scanners, 2)
}

func TestReports_PrefersSemgrepOverGosec(t *testing.T) {
	g101 := report.Identifier{ExternalType: "gosec_rule_id", ExternalID: "G101"}
	semgrepID := report.Identifier{ExternalType: "semgrep_id", ExternalID: "gosec.G101-1"}

	gosec := finding("gosec", report.SeverityHigh, "main.go", 8, g101, cwe89)
	semgrep := finding("semgrep", report.SeverityHigh, "main.go", 8, semgrepID, g101)

	merged := Reports(reportOf("gosec", gosec), reportOf("semgrep", semgrep))

	require.Len(t, merged.Findings, 1)
	assert.Same(t, semgrep, merged.Findings[0])
}

func TestReports_TypeIdentifiersDoNotDeduplicate(t *testing.T) {
	a := finding("semgrep", report.SeverityLow, "a.py", 1, report.Identifier{ExternalType: "semgrep_id", ExternalID: "one"}, cwe89)
	b := finding("bandit", report.SeverityLow, "a.py", 1, report.Identifier{ExternalType: "bandit_test_id", ExternalID: "two"}, cwe89)

	merged := Reports(reportOf("semgrep", a), reportOf("bandit", b))
	assert.Len(t, merged.Findings, 2)
}

func TestReports_SortsBySeverityThenCompareKey(t *testing.T) {
	low := finding("semgrep", report.SeverityLow, "a.py", 1, report.Identifier{ExternalType: "x", ExternalID: "1"})
	critB := finding("semgrep", report.SeverityCritical, "b.py", 1, report.Identifier{ExternalType: "x", ExternalID: "2"})
	critA := finding("semgrep", report.SeverityCritical, "a.py", 2, report.Identifier{ExternalType: "x", ExternalID: "3"})

	merged := Reports(reportOf("semgrep", low, critB, critA))
	assert.Equal(t, []*report.Finding{critA, critB, low}, merged.Findings)
}

func TestReports_MergesScannedResourcesAndProblems(t *testing.T) {
	a := reportOf("zap")
	a.ScannedResources = []string{"GET /a"}
	a.AddWarning("Deprecation", "old")
	b := reportOf("zap")
	b.ScannedResources = []string{"GET /a", "GET /b"}
	b.AddError("ScanError", "boom")

	merged := Reports(a, b)
	assert.Equal(t, []string{"GET /a", "GET /b"}, merged.ScannedResources)
	assert.Len(t, merged.Warnings, 1)
	assert.Len(t, merged.Errors, 1)
}

func TestDeduplicate_SameUUID(t *testing.T) {
	a := finding("semgrep", report.SeverityLow, "a.py", 1, report.Identifier{ExternalType: "x", ExternalID: "1"})
	b := *a
	b.Identifiers = []report.Identifier{{ExternalType: "y", ExternalID: "2"}}

	out := Deduplicate([]*report.Finding{a, &b})
	assert.Equal(t, []*report.Finding{a}, out)
}

package report

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sha(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

func sastFinding(file string, line int, ids ...Identifier) *Finding {
	f := &Finding{
		ReportType:  ReportTypeSAST,
		Scanner:     &Scanner{ExternalID: "semgrep", Name: "Semgrep"},
		Identifiers: ids,
		Location:    &Location{Kind: ReportTypeSAST, File: file, StartLine: line, EndLine: line},
		Severity:    SeverityHigh,
		ProjectID:   1,
	}
	f.ComputeUUID(DefaultNamespace)
	return f
}

var (
	cve  = Identifier{ExternalType: "cve", ExternalID: "CVE-2021-1234", Name: "CVE-2021-1234"}
	rule = Identifier{ExternalType: "semgrep_id", ExternalID: "bandit.B303", Name: "B303"}
	cwe  = Identifier{ExternalType: "CWE", ExternalID: "327", Name: "CWE-327"}
)

func TestIdentifier_Fingerprint(t *testing.T) {
	assert.Equal(t, sha("cve:CVE-2021-1234"), cve.Fingerprint())
	assert.False(t, cve.IsTypeIdentifier())
	assert.True(t, cwe.IsTypeIdentifier())
	assert.True(t, Identifier{ExternalType: "wasc", ExternalID: "13"}.IsTypeIdentifier())
}

func TestLocation_FingerprintData(t *testing.T) {
	tests := []struct {
		name     string
		location Location
		want     string
	}{
		{"sast", Location{Kind: ReportTypeSAST, File: "app.py", StartLine: 3, EndLine: 5}, "app.py:3:5"},
		{"sast without end line", Location{Kind: ReportTypeSAST, File: "file", StartLine: 12}, "file:12:"},
		{"sast without lines", Location{Kind: ReportTypeSAST, File: "file"}, "file::"},
		{"secret detection", Location{Kind: ReportTypeSecretDetection, File: ".env", StartLine: 1, EndLine: 1}, ".env:1:1"},
		{"dependency scanning", Location{Kind: ReportTypeDependencyScanning, File: "Gemfile.lock", PackageName: "rack"}, "Gemfile.lock:rack"},
		{"container scanning", Location{Kind: ReportTypeContainerScanning, Image: "registry:5000/app:1.2", PackageName: "openssl"}, "registry:5000/app:openssl"},
		{"container scanning untagged", Location{Kind: ReportTypeContainerScanning, Image: "alpine", PackageName: "musl"}, "alpine:musl"},
		{"dast", Location{Kind: ReportTypeDAST, Path: "/login", Param: "user", Method: "POST"}, "/login:user:POST"},
		{"api fuzzing", Location{Kind: ReportTypeAPIFuzzing, Path: "/v1/items", Method: "GET"}, "/v1/items::GET"},
		{"coverage fuzzing", Location{Kind: ReportTypeCoverageFuzzing, CrashType: "Heap-buffer-overflow", CrashState: "parse\nread"}, "Heap-buffer-overflow:parse\nread"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.location.FingerprintData())
			assert.Equal(t, sha(tt.want), tt.location.Fingerprint())
		})
	}
}

func TestFinding_Keys(t *testing.T) {
	f := sastFinding("app.py", 10, cve, cwe, rule)
	keys := f.Keys()

	locFP := f.Location.Fingerprint()
	assert.Equal(t, []FindingKey{
		{LocationFingerprint: locFP, IdentifierFingerprint: cve.Fingerprint()},
		{LocationFingerprint: locFP, IdentifierFingerprint: rule.Fingerprint()},
		{UUID: f.UUID},
	}, keys)
}

func TestFinding_KeysWithSignatures(t *testing.T) {
	f := sastFinding("app.py", 10, cve)
	f.Signatures = []Signature{
		{Algorithm: AlgorithmHash, Value: "h"},
		{Algorithm: AlgorithmScopeOffset, Value: "so"},
		{Algorithm: "bogus", Value: "x"},
	}

	t.Run("disabled", func(t *testing.T) {
		assert.Len(t, f.Keys(), 2)
	})

	t.Run("enabled", func(t *testing.T) {
		f.SignaturesEnabled = true
		defer func() { f.SignaturesEnabled = false }()

		keys := f.Keys()
		require.Len(t, keys, 4)
		assert.Equal(t, sha("so"), keys[0].LocationFingerprint)
		assert.Equal(t, sha("h"), keys[1].LocationFingerprint)
		assert.Equal(t, f.Location.Fingerprint(), keys[2].LocationFingerprint)
		assert.Equal(t, sha("so"), f.LocationFingerprint())
	})
}

func TestFindingKey_Valid(t *testing.T) {
	assert.True(t, FindingKey{UUID: "u"}.Valid())
	assert.True(t, FindingKey{LocationFingerprint: "a", IdentifierFingerprint: "b"}.Valid())
	assert.False(t, FindingKey{LocationFingerprint: "a"}.Valid())
	assert.False(t, FindingKey{}.Valid())
}

func TestFinding_Valid(t *testing.T) {
	valid := sastFinding("a.go", 1, cve)
	assert.True(t, valid.Valid())

	noScanner := sastFinding("a.go", 1, cve)
	noScanner.Scanner = nil
	assert.False(t, noScanner.Valid())

	noIdentifiers := sastFinding("a.go", 1)
	assert.False(t, noIdentifiers.Valid())

	noLocation := sastFinding("a.go", 1, cve)
	noLocation.Location = nil
	assert.False(t, noLocation.Valid())
}

func TestFinding_Compare(t *testing.T) {
	b := &Finding{Severity: SeverityCritical, CompareKey: "b"}
	a := &Finding{Severity: SeverityCritical, CompareKey: "a"}
	high := &Finding{Severity: SeverityHigh, CompareKey: "a"}

	findings := []*Finding{high, b, a}
	sort.SliceStable(findings, func(i, j int) bool { return findings[i].Compare(findings[j]) < 0 })
	assert.Equal(t, []*Finding{a, b, high}, findings)
}

func TestFinding_ScannerOrderTo(t *testing.T) {
	bandit := &Finding{Scanner: &Scanner{ExternalID: "bandit"}}
	semgrep := &Finding{Scanner: &Scanner{ExternalID: "semgrep"}}
	gosec := &Finding{Scanner: &Scanner{ExternalID: "gosec"}}
	none := &Finding{}

	assert.Equal(t, -1, bandit.ScannerOrderTo(semgrep))
	assert.Equal(t, -1, semgrep.ScannerOrderTo(gosec))
	assert.Equal(t, 1, none.ScannerOrderTo(gosec))
	assert.Equal(t, -1, gosec.ScannerOrderTo(none))
	assert.Equal(t, 0, none.ScannerOrderTo(&Finding{}))
}

func TestFinding_Equal(t *testing.T) {
	a := sastFinding("a.go", 1, cve)
	b := sastFinding("a.go", 1, cve, rule)
	c := sastFinding("a.go", 2, cve)

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))

	a.Signatures = []Signature{{Algorithm: AlgorithmScopeOffset, Value: "x"}}
	c.Signatures = []Signature{{Algorithm: AlgorithmScopeOffset, Value: "x"}}
	a.SignaturesEnabled, c.SignaturesEnabled = true, true
	assert.True(t, a.Equal(c))
}

func TestFinding_UnsafeAndFalsePositive(t *testing.T) {
	f := sastFinding("a.go", 1, cve)
	assert.True(t, f.Unsafe([]Severity{SeverityHigh}, []ReportType{ReportTypeSAST}))
	assert.False(t, f.Unsafe([]Severity{SeverityLow}, []ReportType{ReportTypeSAST}))
	assert.False(t, f.Unsafe([]Severity{SeverityHigh}, []ReportType{ReportTypeDAST}))

	assert.False(t, f.FalsePositive())
	f.Flags = []Flag{{Type: "other"}, {Type: FlagFalsePositive, Origin: "vet"}}
	assert.True(t, f.FalsePositive())
}

func TestFinding_UpdateLocation(t *testing.T) {
	f := sastFinding("a.go", 1, cve)
	old := f.Location
	next := &Location{Kind: ReportTypeSAST, File: "b.go", StartLine: 2, EndLine: 2}

	f.UpdateLocation(next)
	assert.Same(t, old, f.OldLocation)
	assert.Same(t, next, f.Location)
}

func TestFinding_ProjectFingerprint(t *testing.T) {
	f := &Finding{CompareKey: "CVE-1"}
	assert.Equal(t, sha("CVE-1"), f.ProjectFingerprint())
}

func TestVulnerabilityUUID(t *testing.T) {
	a := VulnerabilityUUID(DefaultNamespace, ReportTypeSAST, "id", "loc", 1)
	b := VulnerabilityUUID(DefaultNamespace, ReportTypeSAST, "id", "loc", 1)
	c := VulnerabilityUUID(DefaultNamespace, ReportTypeSAST, "id", "loc", 2)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	parsed, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())
	assert.Equal(t, uuid.NewSHA1(DefaultNamespace, []byte("sast-id-loc-1")).String(), a)
}

func TestFinding_ComputeUUIDIgnoresSignatures(t *testing.T) {
	f := sastFinding("a.go", 1, cve)
	before := f.UUID

	f.Signatures = []Signature{{Algorithm: AlgorithmScopeOffset, Value: "x"}}
	f.SignaturesEnabled = true
	f.ComputeUUID(DefaultNamespace)
	assert.Equal(t, before, f.UUID)
}

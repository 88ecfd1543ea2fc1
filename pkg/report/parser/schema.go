package parser

import (
	"encoding/json"

	"github.com/doodlesbykumbi/scanstore/pkg/report"
)

type document struct {
	Version         string             `json:"version"`
	Vulnerabilities *[]json.RawMessage `json:"vulnerabilities"`
	Remediations    []remediation      `json:"remediations"`
	Scan            *scanSection       `json:"scan"`
}

type vulnerability struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Name        string `json:"name"`
	Message     string `json:"message"`
	Description string `json:"description"`
	CVE         string `json:"cve"`
	Severity    string `json:"severity"`
	Confidence  string `json:"confidence"`
	Solution    string `json:"solution"`

	Scanner     *scannerSection     `json:"scanner"`
	Identifiers []identifierSection `json:"identifiers"`
	Links       []report.Link       `json:"links"`
	Location    *locationSection    `json:"location"`
	Tracking    *trackingSection    `json:"tracking"`
	Flags       []report.Flag       `json:"flags"`

	Evidence             json.RawMessage `json:"evidence"`
	Details              json.RawMessage `json:"details"`
	Assets               json.RawMessage `json:"assets"`
	RawSourceCodeExtract string          `json:"raw_source_code_extract"`
}

type identifierSection struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value string `json:"value"`
	URL   string `json:"url"`
}

type locationSection struct {
	File      string `json:"file"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Class     string `json:"class"`
	Method    string `json:"method"`

	Dependency *struct {
		Package struct {
			Name string `json:"name"`
		} `json:"package"`
		Version string `json:"version"`
	} `json:"dependency"`
	Image           string `json:"image"`
	OperatingSystem string `json:"operating_system"`

	Hostname string `json:"hostname"`
	Path     string `json:"path"`
	Param    string `json:"param"`

	CrashType    string `json:"crash_type"`
	CrashAddress string `json:"crash_address"`
	CrashState   string `json:"crash_state"`

	Commit *struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type trackingSection struct {
	Type  string `json:"type"`
	Items []struct {
		File       string             `json:"file"`
		StartLine  int                `json:"start_line"`
		EndLine    int                `json:"end_line"`
		Signatures []report.Signature `json:"signatures"`
	} `json:"items"`
}

type remediation struct {
	Fixes []struct {
		ID  string `json:"id"`
		CVE string `json:"cve"`
	} `json:"fixes"`
	Summary string `json:"summary"`
	Diff    string `json:"diff"`
}

type scannerSection struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
	Vendor  *struct {
		Name string `json:"name"`
	} `json:"vendor"`
}

func (s *scannerSection) toScanner() report.Scanner {
	out := report.Scanner{ExternalID: s.ID, Name: s.Name, Version: s.Version}
	if s.Vendor != nil {
		out.Vendor = s.Vendor.Name
	}
	return out
}

type scanSection struct {
	Scanner          *scannerSection `json:"scanner"`
	Analyzer         *scannerSection `json:"analyzer"`
	Type             string          `json:"type"`
	Status           string          `json:"status"`
	StartTime        string          `json:"start_time"`
	EndTime          string          `json:"end_time"`
	Messages         []scanMessage   `json:"messages"`
	ScannedResources []struct {
		Method string `json:"method"`
		URL    string `json:"url"`
	} `json:"scanned_resources"`
}

type scanMessage struct {
	Level string `json:"level"`
	Value string `json:"value"`
}

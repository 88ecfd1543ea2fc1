package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/scanstore/pkg/report"
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Inspect security report files",
	Long:  `Parse and merge security report files without storing them.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

var reportFileRe = regexp.MustCompile(`^gl-([a-z-]+)-report\.json$`)

// reportTypeFromFilename reads the report type of a gl-<type>-report.json
// file name.
func reportTypeFromFilename(path string) (report.ReportType, bool) {
	m := reportFileRe.FindStringSubmatch(filepath.Base(path))
	if m == nil {
		return 0, false
	}
	t, err := report.ParseReportType(strings.ReplaceAll(m[1], "-", "_"))
	if err != nil {
		return 0, false
	}
	return t, true
}

// resolveReportType prefers the --type flag and falls back to the file name.
func resolveReportType(flag string, path string) (report.ReportType, error) {
	if flag != "" {
		return report.ParseReportType(flag)
	}
	if t, ok := reportTypeFromFilename(path); ok {
		return t, nil
	}
	return 0, fmt.Errorf("cannot infer the report type of %s, use --type", path)
}

type reportSummary struct {
	Type             report.ReportType `json:"type"`
	Version          string            `json:"version,omitempty"`
	PrimaryScanner   *report.Scanner   `json:"primary_scanner,omitempty"`
	FindingCount     int               `json:"finding_count"`
	ScannedResources int               `json:"scanned_resources"`
	Errors           []report.Error    `json:"errors,omitempty"`
	Warnings         []report.Error    `json:"warnings,omitempty"`
	Findings         []findingSummary  `json:"findings"`
}

type findingSummary struct {
	UUID        string              `json:"uuid"`
	Name        string              `json:"name"`
	Severity    report.Severity     `json:"severity"`
	Scanner     string              `json:"scanner,omitempty"`
	Identifiers []report.Identifier `json:"identifiers"`
	Location    *report.Location    `json:"location,omitempty"`
	Fingerprint string              `json:"location_fingerprint"`
}

func summarize(rep *report.Report) reportSummary {
	out := reportSummary{
		Type:             rep.Type,
		Version:          rep.Version,
		PrimaryScanner:   rep.PrimaryScanner,
		FindingCount:     len(rep.Findings),
		ScannedResources: len(rep.ScannedResources),
		Errors:           rep.Errors,
		Warnings:         rep.Warnings,
		Findings:         make([]findingSummary, 0, len(rep.Findings)),
	}
	for _, f := range rep.Findings {
		fs := findingSummary{
			UUID:        f.UUID,
			Name:        f.Name,
			Severity:    f.Severity,
			Identifiers: f.Identifiers,
			Location:    f.Location,
			Fingerprint: f.LocationFingerprint(),
		}
		if f.Scanner != nil {
			fs.Scanner = f.Scanner.ExternalID
		}
		out.Findings = append(out.Findings, fs)
	}
	return out
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Package finder lists the security findings of a pipeline.
package finder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/yuin/goldmark"

	"github.com/doodlesbykumbi/scanstore/pkg/model"
	"github.com/doodlesbykumbi/scanstore/pkg/report"
	"github.com/doodlesbykumbi/scanstore/pkg/store"
)

const (
	DefaultPerPage = 20
	MaxPerPage     = 100

	ScopeDismissed = "dismissed"
	ScopeAll       = "all"
)

var ErrInvalidParams = errors.New("invalid finder parameters")

// Params filters and paginates a finding listing. Unknown report types and
// severities are ignored.
type Params struct {
	Severities  []string
	ReportTypes []string
	Scanners    []string
	// Scope "dismissed" hides dismissed findings, "all" shows them.
	Scope   string
	States  []string
	Page    int
	PerPage int
}

// ParamsFromQuery reads params from a query string. List parameters may be
// repeated with or without the "[]" suffix.
func ParamsFromQuery(q url.Values) (Params, error) {
	p := Params{
		Severities:  list(q, "severity"),
		ReportTypes: list(q, "report_type"),
		Scanners:    list(q, "scanner"),
		States:      list(q, "state"),
		Scope:       q.Get("scope"),
	}
	var err error
	if p.Page, err = intParam(q, "page"); err != nil {
		return p, err
	}
	if p.PerPage, err = intParam(q, "per_page"); err != nil {
		return p, err
	}
	return p, nil
}

func list(q url.Values, name string) []string {
	return append(q[name], q[name+"[]"]...)
}

func intParam(q url.Values, name string) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", ErrInvalidParams, name)
	}
	return n, nil
}

// normalize applies defaults and bounds.
func (p Params) normalize() (Params, error) {
	switch p.Scope {
	case "":
		p.Scope = ScopeDismissed
	case ScopeDismissed, ScopeAll:
	default:
		return p, fmt.Errorf("%w: unknown scope %q", ErrInvalidParams, p.Scope)
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	// (Page-1)*PerPage must fit in an int.
	if maxPage := math.MaxInt / p.PerPage; p.Page > maxPage {
		p.Page = maxPage
	}
	return p, nil
}

// Finding is the presented form of a stored finding.
type Finding struct {
	ID              int64               `json:"id"`
	UUID            string              `json:"uuid"`
	Name            string              `json:"name"`
	Severity        report.Severity     `json:"severity"`
	ReportType      *report.ReportType  `json:"report_type,omitempty"`
	Scanner         *Scanner            `json:"scanner,omitempty"`
	Description     string              `json:"description,omitempty"`
	DescriptionHTML string              `json:"description_html,omitempty"`
	Solution        string              `json:"solution,omitempty"`
	Identifiers     []report.Identifier `json:"identifiers"`
	Location        *report.Location    `json:"location,omitempty"`
	FalsePositive   bool                `json:"false_positive"`
}

type Scanner struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Vendor     string `json:"vendor"`
}

// Result is one page of findings.
type Result struct {
	Findings []Finding
	Total    int64
	Page     int
	PerPage  int
}

type Finder struct {
	findings store.FindingsStore
	markdown goldmark.Markdown
}

func New(findings store.FindingsStore) *Finder {
	return &Finder{findings: findings, markdown: goldmark.New()}
}

// Execute returns the deduplicated findings of the latest succeeded scans of
// a pipeline, ordered by severity then id.
func (f *Finder) Execute(ctx context.Context, pipeline *model.Pipeline, params Params) (*Result, error) {
	params, err := params.normalize()
	if err != nil {
		return nil, err
	}

	filter := store.FindingFilter{
		PipelineID:         pipeline.ID,
		ScanTypes:          reportTypes(params.ReportTypes),
		Severities:         severities(params.Severities),
		ScannerExternalIDs: params.Scanners,
		States:             params.States,
		ExcludeDismissed:   params.Scope == ScopeDismissed,
		Limit:              params.PerPage,
		Offset:             (params.Page - 1) * params.PerPage,
	}
	rows, total, err := f.findings.ListFindings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list findings of pipeline %d: %w", pipeline.ID, err)
	}

	res := &Result{Findings: make([]Finding, 0, len(rows)), Total: total, Page: params.Page, PerPage: params.PerPage}
	for i := range rows {
		res.Findings = append(res.Findings, f.present(&rows[i]))
	}
	return res, nil
}

func (f *Finder) present(row *model.Finding) Finding {
	data := row.FindingData
	out := Finding{
		ID:            row.ID,
		UUID:          row.UUID,
		Name:          data.Name,
		Severity:      row.Severity,
		Description:   data.Description,
		Solution:      data.Solution,
		Identifiers:   data.Identifiers,
		Location:      data.Location,
		FalsePositive: data.FalsePositive,
	}
	if row.Scan != nil {
		t := row.Scan.ScanType
		out.ReportType = &t
	}
	if row.Scanner != nil {
		out.Scanner = &Scanner{ExternalID: row.Scanner.ExternalID, Name: row.Scanner.Name, Vendor: row.Scanner.Vendor}
	}
	if data.Description != "" {
		var buf bytes.Buffer
		if err := f.markdown.Convert([]byte(data.Description), &buf); err == nil {
			out.DescriptionHTML = buf.String()
		}
	}
	return out
}

func reportTypes(names []string) []report.ReportType {
	var out []report.ReportType
	for _, n := range names {
		if t, err := report.ParseReportType(n); err == nil {
			out = append(out, t)
		}
	}
	return out
}

func severities(names []string) []report.Severity {
	var out []report.Severity
	for _, n := range names {
		if s, err := report.ParseSeverity(n); err == nil {
			out = append(out, s)
		}
	}
	return out
}

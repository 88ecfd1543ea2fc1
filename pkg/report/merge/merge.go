// Package merge combines several reports of the same type into one,
// preferring findings from higher-priority analyzers.
package merge

import (
	"sort"

	"github.com/doodlesbykumbi/scanstore/pkg/report"
)

// Reports merges sources into a new report. The type, pipeline and creation
// time are taken from the first source. It returns nil when there are no
// sources.
//
// Findings are visited in analyzer priority order; a finding is dropped when
// any of its keys was already seen on an earlier finding.
func Reports(sources ...*report.Report) *report.Report {
	if len(sources) == 0 {
		return nil
	}

	first := sources[0]
	target := report.New(first.Type, first.PipelineID, first.CreatedAt)
	target.Version = first.Version

	var all []*report.Finding
	for _, src := range sources {
		for _, s := range src.Scanners {
			target.AddScanner(s)
		}
		for _, id := range src.Identifiers {
			target.AddIdentifier(id)
		}
		target.AddScannedResources(src.ScannedResources)
		target.Errors = append(target.Errors, src.Errors...)
		target.Warnings = append(target.Warnings, src.Warnings...)
		if src.PrimaryScanner != nil && (target.PrimaryScanner == nil || src.PrimaryScanner.Compare(*target.PrimaryScanner) < 0) {
			s := *src.PrimaryScanner
			target.PrimaryScanner = &s
		}
		all = append(all, src.Findings...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].ScannerOrderTo(all[j]) < 0
	})

	kept := Deduplicate(all)
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Compare(kept[j]) < 0
	})
	for _, f := range kept {
		target.AddFinding(f)
	}
	return target
}

// Deduplicate keeps the first finding for every key set, in input order.
func Deduplicate(findings []*report.Finding) []*report.Finding {
	seen := make(map[report.FindingKey]struct{})
	out := make([]*report.Finding, 0, len(findings))

	for _, f := range findings {
		keys := f.Keys()
		duplicate := false
		for _, k := range keys {
			if !k.Valid() {
				continue
			}
			if _, ok := seen[k]; ok {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		for _, k := range keys {
			if k.Valid() {
				seen[k] = struct{}{}
			}
		}
		out = append(out, f)
	}
	return out
}

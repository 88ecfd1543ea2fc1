package report

import (
	"math"
	"strings"
)

// analyzerOrder ranks analyzers that overlap with others. Lower runs first and
// wins deduplication. Analyzers not listed sort after every listed one, so
// semgrep is preferred over gosec but bandit is preferred over semgrep.
var analyzerOrder = map[string]int{
	"bundler_audit":    1,
	"retire.js":        2,
	"gemnasium":        3,
	"gemnasium-maven":  3,
	"gemnasium-python": 3,
	"bandit":           1,
	"semgrep":          2,
}

// Scanner is the analyzer that produced a finding.
type Scanner struct {
	ExternalID string `json:"id"`
	Name       string `json:"name"`
	Vendor     string `json:"vendor,omitempty"`
	Version    string `json:"version,omitempty"`
}

// Key identifies the scanner within a project.
func (s Scanner) Key() string {
	return s.ExternalID
}

// Order returns the analyzer priority. Unknown analyzers get math.MaxInt.
func (s Scanner) Order() int {
	if o, ok := analyzerOrder[strings.ToLower(s.ExternalID)]; ok {
		return o
	}
	return math.MaxInt
}

// Compare orders scanners by (order, external id, name, vendor).
func (s Scanner) Compare(other Scanner) int {
	if a, b := s.Order(), other.Order(); a != b {
		if a < b {
			return -1
		}
		return 1
	}
	if c := strings.Compare(s.ExternalID, other.ExternalID); c != 0 {
		return c
	}
	if c := strings.Compare(s.Name, other.Name); c != 0 {
		return c
	}
	return strings.Compare(s.Vendor, other.Vendor)
}

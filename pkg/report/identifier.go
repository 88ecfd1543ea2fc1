package report

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"
)

// Identifier is a scanner rule or advisory reference such as a CVE, CWE or
// an analyzer specific rule id.
type Identifier struct {
	ExternalType string `json:"type"`
	ExternalID   string `json:"value"`
	Name         string `json:"name"`
	URL          string `json:"url,omitempty"`
}

// Fingerprint returns the SHA1 hex digest of "<external_type>:<external_id>".
func (i Identifier) Fingerprint() string {
	return sha1Hex(i.ExternalType + ":" + i.ExternalID)
}

// Key is the deduplication key used when collecting identifiers on a report.
func (i Identifier) Key() string {
	return i.Fingerprint()
}

// IsTypeIdentifier reports whether the identifier names a weakness class
// (CWE, WASC) rather than a specific issue.
func (i Identifier) IsTypeIdentifier() bool {
	switch strings.ToLower(i.ExternalType) {
	case "cwe", "wasc":
		return true
	}
	return false
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

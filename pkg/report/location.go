package report

import (
	"fmt"
	"strconv"
	"strings"
)

// Location is where a finding was detected. The relevant fields depend on
// Kind: source findings use File and line numbers, dependency findings use
// File and PackageName, container findings use Image, web findings use
// Path/Param/Method and fuzzing findings use the crash fields.
type Location struct {
	Kind ReportType `json:"-"`

	File      string `json:"file,omitempty"`
	StartLine int    `json:"start_line,omitempty"`
	EndLine   int    `json:"end_line,omitempty"`
	Class     string `json:"class,omitempty"`
	Method    string `json:"method,omitempty"`

	PackageName     string `json:"package_name,omitempty"`
	PackageVersion  string `json:"package_version,omitempty"`
	Image           string `json:"image,omitempty"`
	OperatingSystem string `json:"operating_system,omitempty"`

	Hostname string `json:"hostname,omitempty"`
	Path     string `json:"path,omitempty"`
	Param    string `json:"param,omitempty"`

	CrashType    string `json:"crash_type,omitempty"`
	CrashAddress string `json:"crash_address,omitempty"`
	CrashState   string `json:"crash_state,omitempty"`

	CommitSHA string `json:"commit_sha,omitempty"`
}

// FingerprintData returns the kind specific string that identifies the
// location.
func (l Location) FingerprintData() string {
	switch l.Kind {
	case ReportTypeDependencyScanning:
		return fmt.Sprintf("%s:%s", l.File, l.PackageName)
	case ReportTypeContainerScanning, ReportTypeClusterImageScanning:
		return fmt.Sprintf("%s:%s", imageWithoutTag(l.Image), l.PackageName)
	case ReportTypeDAST, ReportTypeAPIFuzzing:
		return fmt.Sprintf("%s:%s:%s", l.Path, l.Param, l.Method)
	case ReportTypeCoverageFuzzing:
		return fmt.Sprintf("%s:%s", l.CrashType, l.CrashState)
	default:
		return l.File + ":" + lineNumber(l.StartLine) + ":" + lineNumber(l.EndLine)
	}
}

// lineNumber renders an unset line as an empty string.
func lineNumber(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// Fingerprint is the SHA1 hex digest of FingerprintData.
func (l Location) Fingerprint() string {
	return sha1Hex(l.FingerprintData())
}

// imageWithoutTag strips the tag (but not a registry port) from an image
// reference: "registry:5000/app:1.0" becomes "registry:5000/app".
func imageWithoutTag(image string) string {
	if i := strings.Index(image, "@"); i >= 0 {
		image = image[:i]
	}
	slash := strings.LastIndex(image, "/")
	if colon := strings.LastIndex(image, ":"); colon > slash {
		return image[:colon]
	}
	return image
}

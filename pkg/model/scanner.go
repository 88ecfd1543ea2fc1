package model

import (
	"time"

	"github.com/doodlesbykumbi/scanstore/pkg/report"
)

type Scanner struct {
	ID         int64
	ProjectID  int64
	ExternalID string
	Name       string
	Vendor     string
	CreatedAt  time.Time
}

func (Scanner) TableName() string {
	return "vulnerability_scanners"
}

// NewScanner builds the project scanner row for a report scanner.
func NewScanner(projectID int64, s report.Scanner) *Scanner {
	vendor := s.Vendor
	if vendor == "" {
		vendor = "GitLab"
	}
	return &Scanner{
		ProjectID:  projectID,
		ExternalID: s.ExternalID,
		Name:       s.Name,
		Vendor:     vendor,
	}
}

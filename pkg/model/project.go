package model

import "time"

const VisibilityPublic = "public"

type Project struct {
	ID            int64
	Name          string
	Visibility    string
	DefaultBranch string
	CreatedAt     time.Time
}

func (Project) TableName() string {
	return "projects"
}

// Public reports whether the project's repository is publicly readable.
func (p *Project) Public() bool {
	return p.Visibility == VisibilityPublic
}

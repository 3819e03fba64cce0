package domain

// Project is immutable reference data loaded from the project source file.
type Project struct {
	ID          string `db:"project_id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	Category    string `db:"category"`
	Status      string `db:"status"`
}

// ProjectFilter narrows a project listing. Empty fields match everything.
type ProjectFilter struct {
	Query      string
	Categories []string
	Statuses   []string
}

// IsZero reports whether the filter matches every project.
func (f ProjectFilter) IsZero() bool {
	return f.Query == "" && len(f.Categories) == 0 && len(f.Statuses) == 0
}

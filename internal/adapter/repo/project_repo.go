package repo

import (
	"context"
	"strings"

	"budget/internal/domain"
	"budget/internal/infra"
	"budget/internal/sqlinline"
)

// likeEscaper neutralises LIKE wildcards; the escape character is a backslash.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ProjectRepository implements domain.ProjectRepository.
type ProjectRepository struct {
	sql infra.SQLExecutor
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(sql infra.SQLExecutor) *ProjectRepository {
	return &ProjectRepository{sql: sql}
}

// List returns projects matching filter ordered by project id. Query text is
// matched literally and case-insensitively against name and description.
func (r *ProjectRepository) List(ctx context.Context, filter domain.ProjectFilter) ([]domain.Project, error) {
	var conditions []string
	var args []any

	if q := strings.TrimSpace(filter.Query); q != "" {
		conditions = append(conditions, `(search_name like ? escape '\' or search_description like ? escape '\')`)
		pattern := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		args = append(args, pattern, pattern)
	}
	if len(filter.Categories) > 0 {
		conditions = append(conditions, "category in (?)")
		args = append(args, filter.Categories)
	}
	if len(filter.Statuses) > 0 {
		conditions = append(conditions, "status in (?)")
		args = append(args, filter.Statuses)
	}

	query := sqlinline.QListProjects
	if len(conditions) > 0 {
		query += "where " + strings.Join(conditions, " and ") + "\n"
	}
	query += "order by project_id;"

	projects := []domain.Project{}
	if err := r.sql.Select(ctx, &projects, query, args...); err != nil {
		return nil, domain.NewStorageError("list projects", err)
	}
	return projects, nil
}

// Get fetches a project by id.
func (r *ProjectRepository) Get(ctx context.Context, id string) (*domain.Project, error) {
	var p domain.Project
	if err := r.sql.Get(ctx, &p, sqlinline.QSelectProjectByID, id); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.NewStorageError("get project", err)
	}
	return &p, nil
}

// Count returns the number of loaded projects.
func (r *ProjectRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.sql.Get(ctx, &n, sqlinline.QCountProjects); err != nil {
		return 0, domain.NewStorageError("count projects", err)
	}
	return n, nil
}

// Categories lists the distinct non-empty categories.
func (r *ProjectRepository) Categories(ctx context.Context) ([]string, error) {
	out := []string{}
	if err := r.sql.Select(ctx, &out, sqlinline.QListCategories); err != nil {
		return nil, domain.NewStorageError("list categories", err)
	}
	return out, nil
}

// Statuses lists the distinct non-empty statuses.
func (r *ProjectRepository) Statuses(ctx context.Context) ([]string, error) {
	out := []string{}
	if err := r.sql.Select(ctx, &out, sqlinline.QListStatuses); err != nil {
		return nil, domain.NewStorageError("list statuses", err)
	}
	return out, nil
}

// UpsertAll inserts or refreshes every project. Callers wanting an
// all-or-nothing load run it inside Store.WithTx.
func (r *ProjectRepository) UpsertAll(ctx context.Context, projects []domain.Project) error {
	for _, p := range projects {
		if _, err := r.sql.Exec(ctx, sqlinline.QUpsertProject,
			p.ID, p.Name, p.Description, p.Category, p.Status,
			strings.ToLower(p.Name), strings.ToLower(p.Description)); err != nil {
			return domain.NewStorageError("upsert project "+p.ID, err)
		}
	}
	return nil
}

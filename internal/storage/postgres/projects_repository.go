package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comilla/site-backend/internal/domain/attachments"
	"github.com/comilla/site-backend/internal/domain/projects"
	"github.com/comilla/site-backend/internal/metrics"
)

type ProjectRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const projectColumns = `id, name, description, location, image_keys, image_urls, created_at, updated_at`

func scanProject(row pgx.Row) (*projects.Project, error) {
	var (
		p    projects.Project
		keys []string
		urls []string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Location, &keys, &urls, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if isNoRows(err) {
			return nil, projects.ErrNotFound
		}
		return nil, err
	}
	p.Images = attachments.SlotsFromArrays(keys, urls)
	return &p, nil
}

func (r *ProjectRepository) List(ctx context.Context) (items []projects.Project, err error) {
	defer func(start time.Time) {
		metrics.RecordQuery("list_projects", start, err)
	}(time.Now())

	rows, err := pick(r.pool, r.tx).Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	items = make([]projects.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return items, nil
}

func (r *ProjectRepository) GetByID(ctx context.Context, id string) (project *projects.Project, err error) {
	defer func(start time.Time) {
		metrics.RecordQuery("get_project", start, ignoreNotFound(err, projects.ErrNotFound))
	}(time.Now())

	project, err = scanProject(pick(r.pool, r.tx).QueryRow(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil && err != projects.ErrNotFound {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return project, err
}

func (r *ProjectRepository) ExistsByName(ctx context.Context, name string) (exists bool, err error) {
	defer func(start time.Time) {
		metrics.RecordQuery("project_name_exists", start, err)
	}(time.Now())

	err = pick(r.pool, r.tx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM projects WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check project name: %w", err)
	}
	return exists, nil
}

func (r *ProjectRepository) Create(ctx context.Context, p projects.Project) (project *projects.Project, err error) {
	defer func(start time.Time) {
		metrics.RecordQuery("create_project", start, err)
	}(time.Now())

	project, err = scanProject(pick(r.pool, r.tx).QueryRow(ctx, `
INSERT INTO projects (id, name, description, location, image_keys, image_urls)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+projectColumns,
		p.ID, p.Name, p.Description, p.Location, p.Images.Keys(), p.Images.URLs()))
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return project, nil
}

func (r *ProjectRepository) Update(ctx context.Context, p projects.Project) (project *projects.Project, err error) {
	defer func(start time.Time) {
		metrics.RecordQuery("update_project", start, ignoreNotFound(err, projects.ErrNotFound))
	}(time.Now())

	project, err = scanProject(pick(r.pool, r.tx).QueryRow(ctx, `
UPDATE projects
   SET name = $2, description = $3, location = $4,
       image_keys = $5, image_urls = $6, updated_at = now()
 WHERE id = $1
RETURNING `+projectColumns,
		p.ID, p.Name, p.Description, p.Location, p.Images.Keys(), p.Images.URLs()))
	if err != nil && err != projects.ErrNotFound {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return project, err
}

func (r *ProjectRepository) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) {
		metrics.RecordQuery("delete_project", start, ignoreNotFound(err, projects.ErrNotFound))
	}(time.Now())

	tag, err := pick(r.pool, r.tx).Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return projects.ErrNotFound
	}
	return nil
}

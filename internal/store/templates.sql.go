package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

// PreprocessingTemplate is a stored rule set. ValueMappings holds a JSON
// object and ContainsMappings a JSON array of {find, replace} pairs.
type PreprocessingTemplate struct {
	ID               pgtype.UUID
	Name             string
	Description      pgtype.Text
	ValueMappings    []byte
	ContainsMappings []byte
	CreatedAt        pgtype.Timestamptz
	UpdatedAt        pgtype.Timestamptz
}

const templateColumns = `id, name, description, value_mappings, contains_mappings, created_at, updated_at`

func scanTemplate(row interface{ Scan(...interface{}) error }) (PreprocessingTemplate, error) {
	var t PreprocessingTemplate
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.ValueMappings,
		&t.ContainsMappings,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	return t, translate(err)
}

const createTemplate = `INSERT INTO preprocessing_templates (name, description, value_mappings, contains_mappings)
VALUES ($1, $2, $3, $4)
RETURNING ` + templateColumns

type CreateTemplateParams struct {
	Name             string
	Description      pgtype.Text
	ValueMappings    []byte
	ContainsMappings []byte
}

func (q *Queries) CreateTemplate(ctx context.Context, arg CreateTemplateParams) (PreprocessingTemplate, error) {
	row := q.db.QueryRow(ctx, createTemplate,
		arg.Name,
		arg.Description,
		arg.ValueMappings,
		arg.ContainsMappings,
	)
	return scanTemplate(row)
}

const getTemplate = `SELECT ` + templateColumns + ` FROM preprocessing_templates WHERE id = $1`

func (q *Queries) GetTemplate(ctx context.Context, id pgtype.UUID) (PreprocessingTemplate, error) {
	return scanTemplate(q.db.QueryRow(ctx, getTemplate, id))
}

const getTemplateByName = `SELECT ` + templateColumns + ` FROM preprocessing_templates WHERE lower(name) = lower($1)`

func (q *Queries) GetTemplateByName(ctx context.Context, name string) (PreprocessingTemplate, error) {
	return scanTemplate(q.db.QueryRow(ctx, getTemplateByName, name))
}

const listTemplates = `SELECT ` + templateColumns + ` FROM preprocessing_templates ORDER BY name`

func (q *Queries) ListTemplates(ctx context.Context) ([]PreprocessingTemplate, error) {
	rows, err := q.db.Query(ctx, listTemplates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []PreprocessingTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

const updateTemplate = `UPDATE preprocessing_templates
SET name = $2, description = $3, value_mappings = $4, contains_mappings = $5, updated_at = now()
WHERE id = $1
RETURNING ` + templateColumns

type UpdateTemplateParams struct {
	ID               pgtype.UUID
	Name             string
	Description      pgtype.Text
	ValueMappings    []byte
	ContainsMappings []byte
}

func (q *Queries) UpdateTemplate(ctx context.Context, arg UpdateTemplateParams) (PreprocessingTemplate, error) {
	row := q.db.QueryRow(ctx, updateTemplate,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.ValueMappings,
		arg.ContainsMappings,
	)
	return scanTemplate(row)
}

const deleteTemplate = `DELETE FROM preprocessing_templates WHERE id = $1`

// DeleteTemplate returns ErrNotFound when no row was removed.
func (q *Queries) DeleteTemplate(ctx context.Context, id pgtype.UUID) error {
	tag, err := q.db.Exec(ctx, deleteTemplate, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

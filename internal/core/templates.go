package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/badgemerge/internal/preprocess"
	"github.com/JonMunkholm/badgemerge/internal/store"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Template is a preprocessing rule set stored in the database.
type Template struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Values      map[string]string        `json:"value_mappings"`
	Contains    []preprocess.Replacement `json:"contains_mappings"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

// RuleSet returns the template as a preprocessing rule set.
func (t *Template) RuleSet() preprocess.RuleSet {
	return &preprocess.Rules{RuleName: t.Name, Values: t.Values, Contains: t.Contains}
}

// TemplateInput holds the editable fields of a template.
type TemplateInput struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description,omitempty"`
	Values      map[string]string        `json:"value_mappings"`
	Contains    []preprocess.Replacement `json:"contains_mappings"`
}

func (in *TemplateInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Values == nil {
		in.Values = map[string]string{}
	}
	if in.Contains == nil {
		in.Contains = []preprocess.Replacement{}
	}
	rs := &preprocess.Rules{RuleName: in.Name, Values: in.Values, Contains: in.Contains}
	return preprocess.ValidateRules(rs)
}

func (in *TemplateInput) marshal() (values, contains []byte, err error) {
	if values, err = json.Marshal(in.Values); err != nil {
		return nil, nil, fmt.Errorf("marshal value mappings: %w", err)
	}
	if contains, err = json.Marshal(in.Contains); err != nil {
		return nil, nil, fmt.Errorf("marshal contains mappings: %w", err)
	}
	return values, contains, nil
}

func parseTemplateID(id string) (pgtype.UUID, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return pgtype.UUID{}, fmt.Errorf("%w: invalid template ID %q", ErrInvalidRequest, id)
	}
	return pgtype.UUID{Bytes: uid, Valid: true}, nil
}

// CreateTemplate stores a new template.
func (s *Service) CreateTemplate(ctx context.Context, in TemplateInput) (*Template, error) {
	if s.queries == nil {
		return nil, ErrNoDatabase
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	values, contains, err := in.marshal()
	if err != nil {
		return nil, err
	}

	result, err := s.queries.CreateTemplate(ctx, store.CreateTemplateParams{
		Name:             in.Name,
		Description:      optionalText(in.Description),
		ValueMappings:    values,
		ContainsMappings: contains,
	})
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	s.logger.Info("template created", "name", in.Name, "values", len(in.Values), "contains", len(in.Contains))
	return dbTemplateToTemplate(result)
}

// GetTemplate retrieves a template by ID.
func (s *Service) GetTemplate(ctx context.Context, id string) (*Template, error) {
	if s.queries == nil {
		return nil, ErrNoDatabase
	}
	uid, err := parseTemplateID(id)
	if err != nil {
		return nil, err
	}
	result, err := s.queries.GetTemplate(ctx, uid)
	if err != nil {
		return nil, templateErr("get template", err)
	}
	return dbTemplateToTemplate(result)
}

// ListTemplates returns all templates ordered by name.
func (s *Service) ListTemplates(ctx context.Context) ([]Template, error) {
	if s.queries == nil {
		return nil, ErrNoDatabase
	}
	results, err := s.queries.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	templates := make([]Template, 0, len(results))
	for _, r := range results {
		t, err := dbTemplateToTemplate(r)
		if err != nil {
			s.logger.Warn("skipping unreadable template", "name", r.Name, "error", err)
			continue
		}
		templates = append(templates, *t)
	}
	return templates, nil
}

// UpdateTemplate replaces a template's fields.
func (s *Service) UpdateTemplate(ctx context.Context, id string, in TemplateInput) (*Template, error) {
	if s.queries == nil {
		return nil, ErrNoDatabase
	}
	uid, err := parseTemplateID(id)
	if err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}
	values, contains, err := in.marshal()
	if err != nil {
		return nil, err
	}

	result, err := s.queries.UpdateTemplate(ctx, store.UpdateTemplateParams{
		ID:               uid,
		Name:             in.Name,
		Description:      optionalText(in.Description),
		ValueMappings:    values,
		ContainsMappings: contains,
	})
	if err != nil {
		return nil, templateErr("update template", err)
	}
	s.logger.Info("template updated", "id", id, "name", in.Name)
	return dbTemplateToTemplate(result)
}

// DeleteTemplate removes a template.
func (s *Service) DeleteTemplate(ctx context.Context, id string) error {
	if s.queries == nil {
		return ErrNoDatabase
	}
	uid, err := parseTemplateID(id)
	if err != nil {
		return err
	}
	if err := s.queries.DeleteTemplate(ctx, uid); err != nil {
		return templateErr("delete template", err)
	}
	s.logger.Info("template deleted", "id", id)
	return nil
}

// templateByName finds a template whose name matches, ignoring case.
func (s *Service) templateByName(ctx context.Context, name string) (*Template, error) {
	result, err := s.queries.GetTemplateByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return dbTemplateToTemplate(result)
}

func templateErr(op string, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, ErrTemplateNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func optionalText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

// dbTemplateToTemplate converts a database row to the API type.
func dbTemplateToTemplate(t store.PreprocessingTemplate) (*Template, error) {
	var values map[string]string
	if err := json.Unmarshal(t.ValueMappings, &values); err != nil {
		return nil, fmt.Errorf("unmarshal value mappings: %w", err)
	}

	var contains []preprocess.Replacement
	if err := json.Unmarshal(t.ContainsMappings, &contains); err != nil {
		return nil, fmt.Errorf("unmarshal contains mappings: %w", err)
	}

	id := ""
	if t.ID.Valid {
		id = uuid.UUID(t.ID.Bytes).String()
	}

	out := &Template{
		ID:          id,
		Name:        t.Name,
		Description: t.Description.String,
		Values:      values,
		Contains:    contains,
	}
	if t.CreatedAt.Valid {
		out.CreatedAt = t.CreatedAt.Time
	}
	if t.UpdatedAt.Valid {
		out.UpdatedAt = t.UpdatedAt.Time
	}
	return out, nil
}

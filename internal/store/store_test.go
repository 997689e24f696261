package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// testTx opens a transaction against TEST_DATABASE_URL with the schema
// applied. Everything is rolled back when the test ends.
func testTx(t *testing.T) pgx.Tx {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { conn.Close(ctx) })

	tx, err := conn.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	t.Cleanup(func() { tx.Rollback(ctx) })

	if err := Migrate(ctx, tx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return tx
}

func TestTemplates_CRUD(t *testing.T) {
	tx := testTx(t)
	ctx := context.Background()
	q := New(tx)

	created, err := q.CreateTemplate(ctx, CreateTemplateParams{
		Name:             "Spring Gala",
		ValueMappings:    []byte(`{"Steak":"S"}`),
		ContainsMappings: []byte(`[{"find":"- Reserved","replace":""}]`),
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}
	if !created.ID.Valid || !created.CreatedAt.Valid {
		t.Fatalf("created template missing id or timestamp: %+v", created)
	}

	byName, err := q.GetTemplateByName(ctx, "spring gala")
	if err != nil {
		t.Fatalf("GetTemplateByName: %v", err)
	}
	if byName.ID != created.ID {
		t.Errorf("GetTemplateByName id = %v, want %v", byName.ID, created.ID)
	}

	_, err = q.CreateTemplate(ctx, CreateTemplateParams{
		Name:             "Spring Gala",
		ValueMappings:    []byte(`{}`),
		ContainsMappings: []byte(`[]`),
	})
	if !errors.Is(err, ErrDuplicateName) {
		t.Errorf("duplicate CreateTemplate error = %v, want ErrDuplicateName", err)
	}
}

func TestTemplates_UpdateAndDelete(t *testing.T) {
	tx := testTx(t)
	ctx := context.Background()
	q := New(tx)

	created, err := q.CreateTemplate(ctx, CreateTemplateParams{
		Name:             "Brunch",
		ValueMappings:    []byte(`{}`),
		ContainsMappings: []byte(`[]`),
	})
	if err != nil {
		t.Fatalf("CreateTemplate: %v", err)
	}

	updated, err := q.UpdateTemplate(ctx, UpdateTemplateParams{
		ID:               created.ID,
		Name:             "Brunch 2026",
		Description:      pgtype.Text{String: "renamed", Valid: true},
		ValueMappings:    []byte(`{"Fish":"F"}`),
		ContainsMappings: []byte(`[]`),
	})
	if err != nil {
		t.Fatalf("UpdateTemplate: %v", err)
	}
	if updated.Name != "Brunch 2026" || updated.Description.String != "renamed" {
		t.Errorf("UpdateTemplate = %+v", updated)
	}

	if err := q.DeleteTemplate(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTemplate: %v", err)
	}
	if err := q.DeleteTemplate(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteTemplate error = %v, want ErrNotFound", err)
	}
	if _, err := q.GetTemplate(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTemplate after delete error = %v, want ErrNotFound", err)
	}
}

func TestRuns_CreateAndList(t *testing.T) {
	tx := testTx(t)
	ctx := context.Background()
	q := New(tx)

	for _, event := range []string{"Gala", "Brunch"} {
		_, err := q.CreateRun(ctx, CreateRunParams{
			ID:        pgtype.UUID{Bytes: uuid.New(), Valid: true},
			Trigger:   "test",
			MainEvent: event,
			RuleSet:   "Default",
			RowCount:  3,
			Warnings:  []byte(`[]`),
		})
		if err != nil {
			t.Fatalf("CreateRun(%s): %v", event, err)
		}
	}

	runs, err := q.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) < 2 {
		t.Fatalf("ListRuns returned %d runs, want at least 2", len(runs))
	}
}

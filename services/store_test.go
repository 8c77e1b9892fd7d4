package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/tadeyemo32/outreach-batcher/models"
)

func TestGormProjectStore(t *testing.T) {
	store, err := OpenGormProjectStore(filepath.Join(t.TempDir(), "data", "projects.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()

	first := &models.Project{Name: "First", UserID: "u1", TargetDepartments: []string{"sales"}}
	if err := store.CreateProject(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.ID == "" {
		t.Fatalf("id not assigned")
	}
	second := &models.Project{Name: "Second", UserID: "u1", NoOfMailbox: 4}
	if err := store.CreateProject(ctx, second); err != nil {
		t.Fatalf("create: %v", err)
	}
	other := &models.Project{Name: "Other", UserID: "u2"}
	if err := store.CreateProject(ctx, other); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.GetProject(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "First" || got.NoOfMailbox != 1 || got.EmailsPerMailbox != 30 || got.BatchDurationDays != 2 {
		t.Fatalf("defaults not stored: %+v", got)
	}
	if len(got.TargetDepartments) != 1 || got.TargetDepartments[0] != "sales" {
		t.Fatalf("json list not round-tripped: %v", got.TargetDepartments)
	}

	ids, err := store.ListProjectIDs(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("want 2 ids, got %v", ids)
	}

	if _, err := store.GetProject(ctx, "does-not-exist"); !errors.Is(err, ErrProjectNotFound) {
		t.Fatalf("want ErrProjectNotFound, got %v", err)
	}
	if ids, _ := store.ListProjectIDs(ctx, "nobody"); len(ids) != 0 {
		t.Fatalf("want no ids, got %v", ids)
	}
}

func TestProjectBatchOptions(t *testing.T) {
	p := &models.Project{NoOfMailbox: 3, EmailsPerMailbox: 25, BatchDurationDays: 5}
	opts := p.BatchOptions(mustDay(t, "2024-02-01"))
	if opts.DailyCapacity() != 75 || opts.BatchDurationDays != 5 {
		t.Fatalf("opts = %+v", opts)
	}
	if err := opts.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

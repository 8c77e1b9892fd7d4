package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/tadeyemo32/outreach-batcher/batching"
	"github.com/tadeyemo32/outreach-batcher/models"
)

var ErrSheetUnavailable = errors.New("failed to access google sheet")

// PersonalizeService runs the full sheet flow: fetch, map columns, enrich,
// batch, export.
type PersonalizeService struct {
	Sheets   *SheetFetcher
	Projects ProjectStore
	Exporter Exporter
	Ledger   ExportLedger
	// NewPipeline builds the enrichment pipeline for one request, letting
	// request-supplied keys override the server's.
	NewPipeline func(req models.PersonalizedSheetRequest) *Pipeline
	Now         func() time.Time
	// Tiers overrides the built-in tier table when non-nil.
	Tiers batching.TierTable
}

func (s *PersonalizeService) Run(ctx context.Context, req models.PersonalizedSheetRequest, owner string) (models.PersonalizedSheetResponse, error) {
	var resp models.PersonalizedSheetResponse

	project, err := s.Projects.GetProject(ctx, req.ProjectID)
	if err != nil {
		return resp, err
	}

	table, err := s.Sheets.Fetch(ctx, req.OriginalSheetURL)
	if err != nil {
		return resp, fmt.Errorf("%w: %v", ErrSheetUnavailable, err)
	}
	log.Printf("[Personalize] Project %s: %d rows from sheet", project.ID, table.Len())

	p := s.NewPipeline(req)
	cols, err := p.Columns.Map(ctx, table)
	if err != nil {
		return resp, err
	}

	enriched, err := p.Enrich(ctx, table, cols, project.Description)
	if err != nil {
		return resp, fmt.Errorf("enrich sheet: %w", err)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	start, _ := batching.ParseStartDate("", now())
	opts := project.BatchOptions(start)
	opts.Tiers = s.Tiers
	annotated, records, err := batching.RunTable(enriched, cols.BatchColumns(), opts)
	if err != nil {
		return resp, err
	}
	summary := batching.Summarize(records)
	log.Printf("[Personalize] Batched %d / future %d / unbatchable %d", summary.Batched, summary.Future, summary.Unbatchable)

	prefix := owner
	if prefix == "" {
		prefix = project.UserID
	}
	file, err := s.Exporter.Export(ctx, prefix+"_sheet", annotated)
	if err != nil {
		return resp, fmt.Errorf("export: %w", err)
	}

	if s.Ledger != nil {
		run := models.ExportRun{
			ID:          uuid.NewString(),
			ProjectID:   project.ID,
			FileName:    file.Name,
			Link:        file.Link,
			Rows:        summary.Total,
			Batched:     summary.Batched,
			Future:      summary.Future,
			Unbatchable: summary.Unbatchable,
			CreatedAt:   now(),
		}
		if err := s.Ledger.Record(ctx, run); err != nil {
			log.Printf("[Personalize] warning: could not record export: %v", err)
		}
	}

	resp.SheetLink = file.Link
	resp.Summary = summary
	return resp, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/stwalsh4118/dmrb/internal/models"
	"github.com/stwalsh4118/dmrb/internal/source"
)

// Snapshot is one parsed copy of the make-ready workbook.
type Snapshot struct {
	LoadedAt time.Time
	Units    models.UnitTable
	Source   string
	Tasks    []models.TaskRecord
	Warnings []string
}

// WorkbookRepository defines the interface for workbook data access operations.
type WorkbookRepository interface {
	// Load returns a freshly parsed snapshot. The raw bytes may come from
	// cache; the parsed tables are never shared between callers.
	// Returns an error wrapping source.ErrSourceUnavailable when the workbook
	// cannot be fetched and a *models.SchemaError when the unit sheet is absent.
	Load(ctx context.Context) (*Snapshot, error)

	// Invalidate forces the next Load to refetch the workbook.
	Invalidate(ctx context.Context) error

	// Ping checks that the cache backend is reachable.
	Ping(ctx context.Context) error
}

// rawSource is the part of source.CachedSource the repository needs.
type rawSource interface {
	Load(ctx context.Context) (*source.Payload, error)
	Invalidate(ctx context.Context) error
	Ping(ctx context.Context) error
}

// workbookRepository is the concrete implementation of WorkbookRepository.
type workbookRepository struct {
	src  rawSource
	opts source.WorkbookOptions
}

// NewWorkbookRepository creates a new instance of WorkbookRepository.
func NewWorkbookRepository(src *source.CachedSource, opts source.WorkbookOptions) WorkbookRepository {
	return &workbookRepository{src: src, opts: opts}
}

// Load fetches (or reuses) the raw workbook bytes and parses them.
func (r *workbookRepository) Load(ctx context.Context) (*Snapshot, error) {
	payload, err := r.src.Load(ctx)
	if err != nil {
		return nil, err
	}

	wb, err := source.ParseWorkbook(payload.Data, r.opts)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workbook from %s: %w", payload.Source, err)
	}

	return &Snapshot{
		LoadedAt: payload.LoadedAt,
		Units:    wb.Units,
		Source:   payload.Source,
		Tasks:    wb.Tasks,
		Warnings: wb.Warnings,
	}, nil
}

func (r *workbookRepository) Invalidate(ctx context.Context) error {
	return r.src.Invalidate(ctx)
}

func (r *workbookRepository) Ping(ctx context.Context) error {
	return r.src.Ping(ctx)
}

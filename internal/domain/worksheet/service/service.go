package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/vadim/maxsupply/internal/domain/worksheet/entity"
)

// WorksheetRepository defines the interface for worksheet storage
type WorksheetRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Worksheet, error)
	SaveExampleQuantity(ctx context.Context, id string, entries []entity.SizeEntry) (time.Time, error)
}

// PatternSizeSource provides the pattern-size table of an order
type PatternSizeSource interface {
	ListPatternSizes(ctx context.Context, orderID string) ([]entity.SourceRow, error)
}

// Service handles worksheet example-quantity logic
type Service struct {
	repo  WorksheetRepository
	sizes PatternSizeSource
}

// New creates a new worksheet service
func New(repo WorksheetRepository, sizes PatternSizeSource) *Service {
	return &Service{repo: repo, sizes: sizes}
}

// SizesOutput is the size view of a worksheet
type SizesOutput struct {
	WorksheetID     string                                    `json:"worksheet_id"`
	Pattern         entity.GarmentPattern                     `json:"pattern"`
	Partitions      map[entity.PatternType][]entity.SizeEntry `json:"partitions"`
	PartitionTotals map[entity.PatternType]int                `json:"partition_totals"`
	Total           int                                       `json:"total"`
	AvailableSizes  []string                                  `json:"available_sizes"`
	UpdatedAt       time.Time                                 `json:"updated_at"`
}

// GetSizes returns the example quantities of a worksheet with totals
func (s *Service) GetSizes(ctx context.Context, worksheetID string) (*SizesOutput, error) {
	ws, err := s.getWorksheet(ctx, worksheetID)
	if err != nil {
		return nil, err
	}
	return sizesOutput(ws, ws.Ledger()), nil
}

// AvailableSizes returns the sizes that can still be added to a worksheet
func (s *Service) AvailableSizes(ctx context.Context, worksheetID string) ([]string, error) {
	ws, err := s.getWorksheet(ctx, worksheetID)
	if err != nil {
		return nil, err
	}
	return ws.Ledger().AvailableExtraSizes(), nil
}

// UpdateQuantityInput represents input for setting one size quantity
type UpdateQuantityInput struct {
	WorksheetID string
	PatternType entity.PatternType
	SizeName    string
	Quantity    entity.RawQuantity
}

// UpdateQuantity sets, changes or clears one size quantity and saves the worksheet
func (s *Service) UpdateQuantity(ctx context.Context, in UpdateQuantityInput) (*SizesOutput, error) {
	size := strings.TrimSpace(in.SizeName)
	if size == "" {
		return nil, entity.ErrEmptySizeName
	}

	ws, err := s.getWorksheet(ctx, in.WorksheetID)
	if err != nil {
		return nil, err
	}

	ledger := ws.Ledger()
	if _, err := ledger.Upsert(in.PatternType, size, in.Quantity); err != nil {
		return nil, err
	}

	return s.save(ctx, ws, ledger)
}

// SyncFromOrder rebuilds the example quantities from the order's pattern-size table
func (s *Service) SyncFromOrder(ctx context.Context, worksheetID string) (*SizesOutput, error) {
	ws, err := s.getWorksheet(ctx, worksheetID)
	if err != nil {
		return nil, err
	}
	if ws.OrderID == "" {
		return nil, entity.ErrNoSourceOrder
	}

	rows, err := s.sizes.ListPatternSizes(ctx, ws.OrderID)
	if err != nil {
		return nil, fmt.Errorf("listing pattern sizes: %w", err)
	}

	ledger := ws.Ledger()
	for _, pt := range ws.Pattern.Partitions() {
		if _, err := ledger.BulkSync(pt, rowsFor(ws.Pattern, pt, rows)); err != nil {
			return nil, err
		}
	}

	return s.save(ctx, ws, ledger)
}

// rowsFor picks the source rows that feed a partition. A unisex garment
// takes every row regardless of its tag.
func rowsFor(pattern entity.GarmentPattern, pt entity.PatternType, rows []entity.SourceRow) []entity.SourceRow {
	if pattern != entity.GarmentMenWomen {
		return rows
	}
	var out []entity.SourceRow
	for _, r := range rows {
		if r.PatternType == pt {
			out = append(out, r)
		}
	}
	return out
}

func (s *Service) save(ctx context.Context, ws *entity.Worksheet, ledger *entity.Ledger) (*SizesOutput, error) {
	entries := ledger.Flatten()
	updatedAt, err := s.repo.SaveExampleQuantity(ctx, ws.ID, entries)
	if err != nil {
		return nil, fmt.Errorf("saving worksheet: %w", err)
	}

	ws.ExampleQuantity = entries
	ws.UpdatedAt = updatedAt
	return sizesOutput(ws, ledger), nil
}

func (s *Service) getWorksheet(ctx context.Context, id string) (*entity.Worksheet, error) {
	ws, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting worksheet: %w", err)
	}
	if ws == nil {
		return nil, entity.ErrWorksheetNotFound
	}
	return ws, nil
}

func sizesOutput(ws *entity.Worksheet, ledger *entity.Ledger) *SizesOutput {
	out := &SizesOutput{
		WorksheetID:     ws.ID,
		Pattern:         ledger.Pattern(),
		Partitions:      ledger.Partitions(),
		PartitionTotals: make(map[entity.PatternType]int),
		Total:           ledger.Total(),
		AvailableSizes:  ledger.AvailableExtraSizes(),
		UpdatedAt:       ws.UpdatedAt,
	}
	for _, pt := range ledger.Pattern().Partitions() {
		out.PartitionTotals[pt] = ledger.PartitionTotal(pt)
	}
	return out
}

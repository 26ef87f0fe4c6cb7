package dao

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/maxsupply/internal/domain/worksheet/entity"
)

// WorksheetPostgres implements worksheet repository for PostgreSQL
type WorksheetPostgres struct {
	pool *pgxpool.Pool
}

// NewWorksheetPostgres creates a new PostgreSQL worksheet repository
func NewWorksheetPostgres(pool *pgxpool.Pool) *WorksheetPostgres {
	return &WorksheetPostgres{pool: pool}
}

// GetByID retrieves a worksheet by ID
func (r *WorksheetPostgres) GetByID(ctx context.Context, id string) (*entity.Worksheet, error) {
	query := `
		SELECT id, order_id, pattern, example_quantity, updated_at
		FROM worksheets
		WHERE id = $1
	`

	var ws entity.Worksheet
	var orderID *string
	var rows []byte

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&ws.ID,
		&orderID,
		&ws.Pattern,
		&rows,
		&ws.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting worksheet: %w", err)
	}

	if orderID != nil {
		ws.OrderID = *orderID
	}
	if len(rows) > 0 {
		if err := json.Unmarshal(rows, &ws.ExampleQuantity); err != nil {
			return nil, fmt.Errorf("decoding example quantity: %w", err)
		}
	}

	return &ws, nil
}

// SaveExampleQuantity replaces the example quantity rows of a worksheet
func (r *WorksheetPostgres) SaveExampleQuantity(ctx context.Context, id string, entries []entity.SizeEntry) (time.Time, error) {
	if entries == nil {
		entries = []entity.SizeEntry{}
	}
	payload, err := json.Marshal(entries)
	if err != nil {
		return time.Time{}, fmt.Errorf("encoding example quantity: %w", err)
	}

	var updatedAt time.Time
	err = r.pool.QueryRow(ctx,
		"UPDATE worksheets SET example_quantity = $2, updated_at = NOW() WHERE id = $1 RETURNING updated_at",
		id, payload,
	).Scan(&updatedAt)
	if err == pgx.ErrNoRows {
		return time.Time{}, entity.ErrWorksheetNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("saving example quantity: %w", err)
	}

	return updatedAt, nil
}

// PatternSizePostgres reads order pattern-size tables from PostgreSQL
type PatternSizePostgres struct {
	pool *pgxpool.Pool
}

// NewPatternSizePostgres creates a new PostgreSQL pattern-size source
func NewPatternSizePostgres(pool *pgxpool.Pool) *PatternSizePostgres {
	return &PatternSizePostgres{pool: pool}
}

// ListPatternSizes retrieves the size rows of an order in table order.
// Quantities are stored as entered, so they are read back as text.
func (r *PatternSizePostgres) ListPatternSizes(ctx context.Context, orderID string) ([]entity.SourceRow, error) {
	query := `
		SELECT pattern_type, size_name, COALESCE(quantity, '')
		FROM order_pattern_sizes
		WHERE order_id = $1
		ORDER BY position ASC
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("querying pattern sizes: %w", err)
	}
	defer rows.Close()

	var out []entity.SourceRow
	for rows.Next() {
		var row entity.SourceRow
		var qty string
		if err := rows.Scan(&row.PatternType, &row.SizeName, &qty); err != nil {
			return nil, fmt.Errorf("scanning pattern size: %w", err)
		}
		row.Quantity = entity.QuantityText(qty)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pattern sizes: %w", err)
	}

	return out, nil
}

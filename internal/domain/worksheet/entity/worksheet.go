package entity

import (
	"errors"
	"time"
)

// Worksheet is a production worksheet with its example quantities per size
type Worksheet struct {
	ID              string         `json:"id"`
	OrderID         string         `json:"order_id"`
	Pattern         GarmentPattern `json:"pattern"`
	ExampleQuantity []SizeEntry    `json:"example_quantity"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// Ledger builds a size ledger over the worksheet's rows
func (w *Worksheet) Ledger() *Ledger {
	return NewLedger(w.Pattern, w.ExampleQuantity)
}

// Domain errors for worksheets
var (
	ErrWorksheetNotFound  = errors.New("worksheet not found")
	ErrInvalidPatternType = errors.New("invalid pattern type, expected unisex, men or women")
	ErrPartitionMismatch  = errors.New("pattern type does not match the garment pattern")
	ErrEmptySizeName      = errors.New("size name cannot be empty")
	ErrNoSourceOrder      = errors.New("worksheet is not linked to an order")
	ErrForbidden          = errors.New("role is not allowed to edit worksheets")
)

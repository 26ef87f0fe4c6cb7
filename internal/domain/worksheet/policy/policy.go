package policy

import (
	"context"

	"github.com/vadim/maxsupply/internal/domain/access"
	"github.com/vadim/maxsupply/internal/domain/worksheet/entity"
	"github.com/vadim/maxsupply/internal/domain/worksheet/service"
)

// WorksheetService defines the interface for the worksheet service
type WorksheetService interface {
	GetSizes(ctx context.Context, worksheetID string) (*service.SizesOutput, error)
	AvailableSizes(ctx context.Context, worksheetID string) ([]string, error)
	UpdateQuantity(ctx context.Context, in service.UpdateQuantityInput) (*service.SizesOutput, error)
	SyncFromOrder(ctx context.Context, worksheetID string) (*service.SizesOutput, error)
}

// Policy handles worksheet size operations
type Policy struct {
	svc WorksheetService
}

// New creates a new worksheet policy
func New(svc WorksheetService) *Policy {
	return &Policy{svc: svc}
}

// SizesView is the size view of a worksheet with the caller's permissions
type SizesView struct {
	*service.SizesOutput
	Permissions access.Permissions `json:"permissions"`
}

// GetSizes returns the size rows of a worksheet
func (p *Policy) GetSizes(ctx context.Context, worksheetID string, role access.Role) (*SizesView, error) {
	out, err := p.svc.GetSizes(ctx, worksheetID)
	if err != nil {
		return nil, err
	}
	return &SizesView{SizesOutput: out, Permissions: access.For(role)}, nil
}

// AvailableSizes returns the sizes that can still be added
func (p *Policy) AvailableSizes(ctx context.Context, worksheetID string) ([]string, error) {
	return p.svc.AvailableSizes(ctx, worksheetID)
}

// UpdateQuantityInput represents input for editing one size quantity
type UpdateQuantityInput struct {
	WorksheetID string
	PatternType entity.PatternType
	SizeName    string
	Quantity    entity.RawQuantity
	Role        access.Role
}

// UpdateQuantity edits one size quantity
func (p *Policy) UpdateQuantity(ctx context.Context, in UpdateQuantityInput) (*SizesView, error) {
	perms := access.For(in.Role)
	if !perms.CanEdit {
		return nil, entity.ErrForbidden
	}

	out, err := p.svc.UpdateQuantity(ctx, service.UpdateQuantityInput{
		WorksheetID: in.WorksheetID,
		PatternType: in.PatternType,
		SizeName:    in.SizeName,
		Quantity:    in.Quantity,
	})
	if err != nil {
		return nil, err
	}
	return &SizesView{SizesOutput: out, Permissions: perms}, nil
}

// SyncFromOrder copies the order's pattern sizes into the worksheet
func (p *Policy) SyncFromOrder(ctx context.Context, worksheetID string, role access.Role) (*SizesView, error) {
	perms := access.For(role)
	if !perms.CanEdit {
		return nil, entity.ErrForbidden
	}

	out, err := p.svc.SyncFromOrder(ctx, worksheetID)
	if err != nil {
		return nil, err
	}
	return &SizesView{SizesOutput: out, Permissions: perms}, nil
}

package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vadim/maxsupply/internal/domain/access"
	"github.com/vadim/maxsupply/internal/domain/capacity/entity"
	"github.com/vadim/maxsupply/internal/domain/capacity/scheduler"
	"github.com/vadim/maxsupply/internal/domain/capacity/service"
)

// CapacityService defines the interface for job and statistics operations
type CapacityService interface {
	GetStatistics(ctx context.Context, filter entity.JobFilter) (*entity.CapacityStatistics, error)
	UpdateStatus(ctx context.Context, id string, status entity.JobStatus) (*entity.ProductionJob, error)
	RecordWorkCalculation(ctx context.Context, in service.RecordWorkCalculationInput) (*entity.ProductionJob, error)
}

// Refresher keeps a background copy of the default dashboard
type Refresher interface {
	Trigger()
	Latest() *scheduler.Snapshot
}

// SnapshotStore persists exported statistics documents
// This interface is defined here (consumer) not in the storage package (provider)
type SnapshotStore interface {
	PutSnapshot(ctx context.Context, in PutSnapshotInput) (*PutSnapshotOutput, error)
}

// PutSnapshotInput represents a document to store
type PutSnapshotInput struct {
	Prefix      string
	Body        []byte
	ContentType string
}

// PutSnapshotOutput represents where the document was stored
type PutSnapshotOutput struct {
	Key string
	URL string
}

// sharedLoadTimeout bounds a coalesced statistics load
const sharedLoadTimeout = 30 * time.Second

// Policy orchestrates dashboard use-cases
type Policy struct {
	svc       CapacityService
	refresher Refresher     // optional
	store     SnapshotStore // optional
	group     singleflight.Group
	now       func() time.Time
}

// New creates a new capacity policy
func New(svc CapacityService) *Policy {
	return &Policy{
		svc: svc,
		now: time.Now,
	}
}

// WithRefresher serves the default view from the background refresher
func (p *Policy) WithRefresher(r Refresher) *Policy {
	p.refresher = r
	return p
}

// WithSnapshotStore enables statistics export
func (p *Policy) WithSnapshotStore(s SnapshotStore) *Policy {
	p.store = s
	return p
}

// GetDashboardInput represents input for reading the dashboard
type GetDashboardInput struct {
	Filter entity.JobFilter
	Role   access.Role
}

// Dashboard is the statistics view offered to a caller
type Dashboard struct {
	Statistics  entity.CapacityStatistics `json:"statistics"`
	Permissions access.Permissions        `json:"permissions"`
	View        string                    `json:"view"`
	ComputedAt  time.Time                 `json:"computed_at"`
	Cached      bool                      `json:"cached"`
}

// GetDashboard returns capacity statistics for the requested view
func (p *Policy) GetDashboard(ctx context.Context, in GetDashboardInput) (*Dashboard, error) {
	dash := &Dashboard{
		Permissions: access.For(in.Role),
		View:        in.Filter.Key(),
	}

	if in.Filter.IsDefault() && p.refresher != nil {
		if snap := p.refresher.Latest(); snap != nil {
			dash.Statistics = snap.Statistics
			dash.ComputedAt = snap.ComputedAt
			dash.Cached = true
			return dash, nil
		}
	}

	stats, err := p.loadStatistics(ctx, in.Filter)
	if err != nil {
		return nil, err
	}

	dash.Statistics = *stats
	dash.ComputedAt = p.now()
	return dash, nil
}

// loadStatistics coalesces concurrent identical loads into one. The shared
// load is detached from any single caller; each caller still gives up on its
// own context.
func (p *Policy) loadStatistics(ctx context.Context, filter entity.JobFilter) (*entity.CapacityStatistics, error) {
	ch := p.group.DoChan(filter.Key(), func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLoadTimeout)
		defer cancel()
		return p.svc.GetStatistics(loadCtx, filter)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*entity.CapacityStatistics), nil
	}
}

// Refresh asks the background refresher to recompute the default view
func (p *Policy) Refresh(role access.Role) error {
	if !access.For(role).CanEdit {
		return entity.ErrForbidden
	}
	if p.refresher != nil {
		p.refresher.Trigger()
	}
	return nil
}

// UpdateJobStatusInput represents input for changing a job's status
type UpdateJobStatusInput struct {
	JobID  string
	Status entity.JobStatus
	Role   access.Role
}

// UpdateJobStatus changes a job's status and schedules a dashboard refresh
func (p *Policy) UpdateJobStatus(ctx context.Context, in UpdateJobStatusInput) (*entity.ProductionJob, error) {
	if !access.For(in.Role).CanEdit {
		return nil, entity.ErrForbidden
	}

	job, err := p.svc.UpdateStatus(ctx, in.JobID, in.Status)
	if err != nil {
		return nil, err
	}

	p.triggerRefresh()
	return job, nil
}

// RecordWorkCalculationInput represents input for recording work on a job
type RecordWorkCalculationInput struct {
	JobID          string
	ProductionType entity.ProductionType
	Points         int
	TotalQuantity  int
	Role           access.Role
}

// RecordWorkCalculation stores a job's work breakdown and schedules a dashboard refresh
func (p *Policy) RecordWorkCalculation(ctx context.Context, in RecordWorkCalculationInput) (*entity.ProductionJob, error) {
	if !access.For(in.Role).CanEdit {
		return nil, entity.ErrForbidden
	}

	job, err := p.svc.RecordWorkCalculation(ctx, service.RecordWorkCalculationInput{
		JobID:          in.JobID,
		ProductionType: in.ProductionType,
		Points:         in.Points,
		TotalQuantity:  in.TotalQuantity,
	})
	if err != nil {
		return nil, err
	}

	p.triggerRefresh()
	return job, nil
}

// ExportSnapshotInput represents input for exporting statistics
type ExportSnapshotInput struct {
	Filter entity.JobFilter
	Role   access.Role
}

// ExportSnapshotOutput represents the stored export
type ExportSnapshotOutput struct {
	Key        string    `json:"key"`
	URL        string    `json:"url"`
	View       string    `json:"view"`
	ExportedAt time.Time `json:"exported_at"`
}

// ExportSnapshot computes fresh statistics and stores them as a JSON document
func (p *Policy) ExportSnapshot(ctx context.Context, in ExportSnapshotInput) (*ExportSnapshotOutput, error) {
	if !access.For(in.Role).CanExport {
		return nil, entity.ErrForbidden
	}
	if p.store == nil {
		return nil, entity.ErrSnapshotStoreUnavailable
	}

	stats, err := p.loadStatistics(ctx, in.Filter)
	if err != nil {
		return nil, err
	}

	exportedAt := p.now()
	body, err := json.Marshal(struct {
		View       string                    `json:"view"`
		ExportedAt time.Time                 `json:"exported_at"`
		Statistics entity.CapacityStatistics `json:"statistics"`
	}{
		View:       in.Filter.Key(),
		ExportedAt: exportedAt,
		Statistics: *stats,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	out, err := p.store.PutSnapshot(ctx, PutSnapshotInput{
		Prefix:      "capacity",
		Body:        body,
		ContentType: "application/json",
	})
	if err != nil {
		return nil, fmt.Errorf("storing snapshot: %w", err)
	}

	return &ExportSnapshotOutput{
		Key:        out.Key,
		URL:        out.URL,
		View:       in.Filter.Key(),
		ExportedAt: exportedAt,
	}, nil
}

func (p *Policy) triggerRefresh() {
	if p.refresher != nil {
		p.refresher.Trigger()
	}
}

package policy

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadim/maxsupply/internal/domain/access"
	"github.com/vadim/maxsupply/internal/domain/capacity/entity"
	"github.com/vadim/maxsupply/internal/domain/capacity/scheduler"
	"github.com/vadim/maxsupply/internal/domain/capacity/service"
)

type fakeCapacityService struct {
	statsCalls atomic.Int64
	gate       chan struct{}
	stats      *entity.CapacityStatistics
	err        error

	updated  []entity.JobStatus
	recorded []service.RecordWorkCalculationInput
}

func (s *fakeCapacityService) GetStatistics(ctx context.Context, _ entity.JobFilter) (*entity.CapacityStatistics, error) {
	s.statsCalls.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.stats, nil
}

func (s *fakeCapacityService) UpdateStatus(_ context.Context, id string, status entity.JobStatus) (*entity.ProductionJob, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.updated = append(s.updated, status)
	return &entity.ProductionJob{ID: id, Status: status}, nil
}

func (s *fakeCapacityService) RecordWorkCalculation(_ context.Context, in service.RecordWorkCalculationInput) (*entity.ProductionJob, error) {
	s.recorded = append(s.recorded, in)
	return &entity.ProductionJob{ID: in.JobID}, nil
}

type fakeRefresher struct {
	triggers atomic.Int64
	snapshot *scheduler.Snapshot
}

func (r *fakeRefresher) Trigger() { r.triggers.Add(1) }
func (r *fakeRefresher) Latest() *scheduler.Snapshot { return r.snapshot }

type fakeStore struct {
	inputs []PutSnapshotInput
	err    error
}

func (s *fakeStore) PutSnapshot(_ context.Context, in PutSnapshotInput) (*PutSnapshotOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.inputs = append(s.inputs, in)
	return &PutSnapshotOutput{Key: "capacity/2024/03/13/abc.json", URL: "http://minio/snapshots/capacity/2024/03/13/abc.json"}, nil
}

func sampleStats(total int) *entity.CapacityStatistics {
	return &entity.CapacityStatistics{Total: total}
}

func TestGetDashboard_UsesRefresherForDefaultView(t *testing.T) {
	computedAt := time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)
	svc := &fakeCapacityService{stats: sampleStats(99)}
	ref := &fakeRefresher{snapshot: &scheduler.Snapshot{Statistics: *sampleStats(5), Token: 3, ComputedAt: computedAt}}
	p := New(svc).WithRefresher(ref)

	dash, err := p.GetDashboard(context.Background(), GetDashboardInput{
		Filter: entity.JobFilter{View: entity.ViewAll},
		Role:   access.RoleViewer,
	})
	require.NoError(t, err)

	assert.True(t, dash.Cached)
	assert.Equal(t, 5, dash.Statistics.Total)
	assert.Equal(t, computedAt, dash.ComputedAt)
	assert.Equal(t, access.Permissions{}, dash.Permissions)
	assert.Equal(t, int64(0), svc.statsCalls.Load())
}

func TestGetDashboard_ComputesOtherViews(t *testing.T) {
	svc := &fakeCapacityService{stats: sampleStats(4)}
	ref := &fakeRefresher{snapshot: &scheduler.Snapshot{Statistics: *sampleStats(5)}}
	p := New(svc).WithRefresher(ref)

	dash, err := p.GetDashboard(context.Background(), GetDashboardInput{
		Filter: entity.JobFilter{View: entity.ViewWeek},
		Role:   access.RoleManager,
	})
	require.NoError(t, err)

	assert.False(t, dash.Cached)
	assert.Equal(t, 4, dash.Statistics.Total)
	assert.Equal(t, "week", dash.View)
	assert.Equal(t, access.Permissions{CanEdit: true, CanExport: true}, dash.Permissions)
}

func TestGetDashboard_FallsBackBeforeFirstSnapshot(t *testing.T) {
	svc := &fakeCapacityService{stats: sampleStats(2)}
	p := New(svc).WithRefresher(&fakeRefresher{})

	dash, err := p.GetDashboard(context.Background(), GetDashboardInput{Filter: entity.JobFilter{View: entity.ViewAll}})
	require.NoError(t, err)
	assert.False(t, dash.Cached)
	assert.Equal(t, 2, dash.Statistics.Total)
}

func TestGetDashboard_CoalescesConcurrentLoads(t *testing.T) {
	svc := &fakeCapacityService{stats: sampleStats(1), gate: make(chan struct{})}
	p := New(svc)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*Dashboard, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dash, err := p.GetDashboard(context.Background(), GetDashboardInput{Filter: entity.JobFilter{View: entity.ViewDay}})
			assert.NoError(t, err)
			results[i] = dash
		}(i)
	}

	require.Eventually(t, func() bool { return svc.statsCalls.Load() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(svc.gate)
	wg.Wait()

	assert.Less(t, svc.statsCalls.Load(), int64(callers))
	for _, d := range results {
		require.NotNil(t, d)
		assert.Equal(t, 1, d.Statistics.Total)
	}
}

func TestGetDashboard_CancelledCallerDoesNotFailOthers(t *testing.T) {
	svc := &fakeCapacityService{stats: sampleStats(4), gate: make(chan struct{})}
	p := New(svc)
	in := GetDashboardInput{Filter: entity.JobFilter{View: entity.ViewDay}}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := p.GetDashboard(firstCtx, in)
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return svc.statsCalls.Load() == 1 }, time.Second, time.Millisecond)

	type result struct {
		dash *Dashboard
		err  error
	}
	second := make(chan result, 1)
	go func() {
		dash, err := p.GetDashboard(context.Background(), in)
		second <- result{dash: dash, err: err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(svc.gate)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Equal(t, 4, res.dash.Statistics.Total)
	case <-time.After(time.Second):
		t.Fatal("second caller did not return")
	}
	assert.Equal(t, int64(1), svc.statsCalls.Load())
}

func TestGetDashboard_Error(t *testing.T) {
	svc := &fakeCapacityService{err: errors.New("db down")}
	p := New(svc)

	_, err := p.GetDashboard(context.Background(), GetDashboardInput{Filter: entity.JobFilter{View: entity.ViewMonth}})
	assert.ErrorIs(t, err, svc.err)
}

func TestWrites_RequireEditAndTriggerRefresh(t *testing.T) {
	tests := []struct {
		role    access.Role
		allowed bool
	}{
		{role: access.RoleAdmin, allowed: true},
		{role: access.RoleManager, allowed: true},
		{role: access.RoleProduction, allowed: true},
		{role: access.RoleViewer, allowed: false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			svc := &fakeCapacityService{}
			ref := &fakeRefresher{}
			p := New(svc).WithRefresher(ref)
			ctx := context.Background()

			_, err := p.UpdateJobStatus(ctx, UpdateJobStatusInput{JobID: "a", Status: entity.JobStatusCompleted, Role: tt.role})
			_, err2 := p.RecordWorkCalculation(ctx, RecordWorkCalculationInput{
				JobID: "a", ProductionType: entity.ProductionTypeDTF, Points: 2, TotalQuantity: 3, Role: tt.role,
			})
			err3 := p.Refresh(tt.role)

			if !tt.allowed {
				assert.ErrorIs(t, err, entity.ErrForbidden)
				assert.ErrorIs(t, err2, entity.ErrForbidden)
				assert.ErrorIs(t, err3, entity.ErrForbidden)
				assert.Empty(t, svc.updated)
				assert.Equal(t, int64(0), ref.triggers.Load())
				return
			}

			require.NoError(t, err)
			require.NoError(t, err2)
			require.NoError(t, err3)
			assert.Equal(t, []entity.JobStatus{entity.JobStatusCompleted}, svc.updated)
			require.Len(t, svc.recorded, 1)
			assert.Equal(t, 3, svc.recorded[0].TotalQuantity)
			assert.Equal(t, int64(3), ref.triggers.Load())
		})
	}
}

func TestUpdateJobStatus_NoRefreshOnFailure(t *testing.T) {
	svc := &fakeCapacityService{err: entity.ErrJobNotFound}
	ref := &fakeRefresher{}
	p := New(svc).WithRefresher(ref)

	_, err := p.UpdateJobStatus(context.Background(), UpdateJobStatusInput{JobID: "x", Status: entity.JobStatusPending, Role: access.RoleAdmin})
	assert.ErrorIs(t, err, entity.ErrJobNotFound)
	assert.Equal(t, int64(0), ref.triggers.Load())
}

func TestExportSnapshot(t *testing.T) {
	now := time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()
	filter := entity.JobFilter{View: entity.ViewMonth}

	t.Run("stores statistics document", func(t *testing.T) {
		store := &fakeStore{}
		p := New(&fakeCapacityService{stats: sampleStats(12)}).WithSnapshotStore(store)
		p.now = func() time.Time { return now }

		out, err := p.ExportSnapshot(ctx, ExportSnapshotInput{Filter: filter, Role: access.RoleManager})
		require.NoError(t, err)

		assert.Equal(t, "capacity/2024/03/13/abc.json", out.Key)
		assert.Equal(t, "month", out.View)
		assert.Equal(t, now, out.ExportedAt)

		require.Len(t, store.inputs, 1)
		in := store.inputs[0]
		assert.Equal(t, "capacity", in.Prefix)
		assert.Equal(t, "application/json", in.ContentType)

		var doc struct {
			View       string                    `json:"view"`
			Statistics entity.CapacityStatistics `json:"statistics"`
		}
		require.NoError(t, json.Unmarshal(in.Body, &doc))
		assert.Equal(t, "month", doc.View)
		assert.Equal(t, 12, doc.Statistics.Total)
	})

	t.Run("production may not export", func(t *testing.T) {
		p := New(&fakeCapacityService{stats: sampleStats(1)}).WithSnapshotStore(&fakeStore{})
		_, err := p.ExportSnapshot(ctx, ExportSnapshotInput{Filter: filter, Role: access.RoleProduction})
		assert.ErrorIs(t, err, entity.ErrForbidden)
	})

	t.Run("store not configured", func(t *testing.T) {
		p := New(&fakeCapacityService{stats: sampleStats(1)})
		_, err := p.ExportSnapshot(ctx, ExportSnapshotInput{Filter: filter, Role: access.RoleAdmin})
		assert.ErrorIs(t, err, entity.ErrSnapshotStoreUnavailable)
	})

	t.Run("store failure", func(t *testing.T) {
		store := &fakeStore{err: errors.New("bucket missing")}
		p := New(&fakeCapacityService{stats: sampleStats(1)}).WithSnapshotStore(store)
		_, err := p.ExportSnapshot(ctx, ExportSnapshotInput{Filter: filter, Role: access.RoleAdmin})
		assert.ErrorIs(t, err, store.err)
	})
}

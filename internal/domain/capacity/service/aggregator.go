package service

import (
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/vadim/maxsupply/internal/domain/capacity/entity"
)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.New(5, -1)
)

// Aggregator turns a flat list of jobs into capacity statistics.
// It holds no mutable state and is safe for concurrent use.
type Aggregator struct {
	capacity entity.DailyCapacity
	logger   *slog.Logger
}

// NewAggregator creates an aggregator over the given daily capacity table
func NewAggregator(capacity entity.DailyCapacity, logger *slog.Logger) (*Aggregator, error) {
	if err := capacity.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := make(entity.DailyCapacity, len(capacity))
	for t, v := range capacity {
		c[t] = v
	}

	return &Aggregator{capacity: c, logger: logger}, nil
}

// Capacity returns a copy of the daily capacity table
func (a *Aggregator) Capacity() entity.DailyCapacity {
	c := make(entity.DailyCapacity, len(a.capacity))
	for t, v := range a.capacity {
		c[t] = v
	}
	return c
}

// Aggregate computes statistics over jobs. It never fails: a job with an
// unreadable work calculation payload keeps its status and type counts and
// is left out of the workload figures.
func (a *Aggregator) Aggregate(jobs []entity.ProductionJob) entity.CapacityStatistics {
	stats := entity.CapacityStatistics{
		Total:            len(jobs),
		StatusCounts:     make(map[entity.JobStatus]int, len(entity.JobStatuses)),
		ByProductionType: zeroCounts(),
		Work: entity.WorkStatistics{
			JobCount:        zeroCounts(),
			CurrentWorkload: zeroCounts(),
			Capacity:        a.capacity.Windows(),
			Utilization:     zeroCounts(),
			RemainingCapacity: entity.CapacityWindows{
				Daily:   zeroCounts(),
				Weekly:  zeroCounts(),
				Monthly: zeroCounts(),
			},
		},
	}
	for _, s := range entity.JobStatuses {
		stats.StatusCounts[s] = 0
	}

	work := &stats.Work
	for _, job := range jobs {
		stats.StatusCounts[job.Status]++

		if job.ProductionType.IsKnown() {
			stats.ByProductionType[job.ProductionType]++
		}

		if job.Status != entity.JobStatusInProgress || !job.WorkCalculations.IsPresent() {
			continue
		}

		calcs, err := job.WorkCalculations.Resolve()
		if err != nil {
			a.logger.Warn("skipping work calculations", "job_id", job.ID, "error", err)
			continue
		}

		for t, calc := range calcs {
			if !t.IsKnown() {
				continue
			}
			work.CurrentWorkload[t] += calc.TotalWork
			if calc.TotalWork > 0 {
				work.JobCount[t]++
			}
		}
	}

	for _, t := range entity.ProductionTypes {
		load := work.CurrentWorkload[t]

		if daily := work.Capacity.Daily[t]; daily > 0 {
			work.Utilization[t] = utilization(load, daily)
		}

		work.RemainingCapacity.Daily[t] = remaining(work.Capacity.Daily[t], load)
		work.RemainingCapacity.Weekly[t] = remaining(work.Capacity.Weekly[t], load)
		work.RemainingCapacity.Monthly[t] = remaining(work.Capacity.Monthly[t], load)
	}

	return stats
}

// utilization is round(load / capacity * 100) with halves rounded up
func utilization(load, capacity int) int {
	pct := decimal.NewFromInt(int64(load)).Mul(hundred).Div(decimal.NewFromInt(int64(capacity)))
	return int(pct.Add(half).Floor().IntPart())
}

func remaining(capacity, load int) int {
	return max(0, capacity-load)
}

func zeroCounts() entity.TypeCounts {
	c := make(entity.TypeCounts, len(entity.ProductionTypes))
	for _, t := range entity.ProductionTypes {
		c[t] = 0
	}
	return c
}

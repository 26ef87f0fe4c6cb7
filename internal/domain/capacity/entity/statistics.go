package entity

// Calendar-naive window lengths used to scale daily capacity
const (
	DaysPerWeek  = 7
	DaysPerMonth = 30
)

// TypeCounts maps a production type to a count or amount of work
type TypeCounts map[ProductionType]int

// DailyCapacity is the units of work each production type can absorb per day
type DailyCapacity map[ProductionType]int

// DefaultDailyCapacity returns the standard per-day capacity table
func DefaultDailyCapacity() DailyCapacity {
	return DailyCapacity{
		ProductionTypeScreen:      3000,
		ProductionTypeDTF:         2500,
		ProductionTypeSublimation: 500,
		ProductionTypeEmbroidery:  400,
	}
}

// Validate rejects negative capacities
func (c DailyCapacity) Validate() error {
	for _, v := range c {
		if v < 0 {
			return ErrInvalidCapacity
		}
	}
	return nil
}

// Windows expands the daily table into daily, weekly and monthly figures
func (c DailyCapacity) Windows() CapacityWindows {
	w := CapacityWindows{
		Daily:   make(TypeCounts, len(ProductionTypes)),
		Weekly:  make(TypeCounts, len(ProductionTypes)),
		Monthly: make(TypeCounts, len(ProductionTypes)),
	}
	for _, t := range ProductionTypes {
		daily := c[t]
		w.Daily[t] = daily
		w.Weekly[t] = daily * DaysPerWeek
		w.Monthly[t] = daily * DaysPerMonth
	}
	return w
}

// CapacityWindows holds one figure per production type for each window
type CapacityWindows struct {
	Daily   TypeCounts `json:"daily"`
	Weekly  TypeCounts `json:"weekly"`
	Monthly TypeCounts `json:"monthly"`
}

// WorkStatistics describes in-progress workload against capacity
type WorkStatistics struct {
	JobCount          TypeCounts      `json:"job_count"`        // in-progress jobs with work for the type
	CurrentWorkload   TypeCounts      `json:"current_workload"` // sum of total_work, in-progress only
	Capacity          CapacityWindows `json:"capacity"`
	Utilization       TypeCounts      `json:"utilization"` // percent of daily capacity, may exceed 100
	RemainingCapacity CapacityWindows `json:"remaining_capacity"`
}

// CapacityStatistics is the dashboard summary over a set of jobs
type CapacityStatistics struct {
	Total            int               `json:"total"`
	StatusCounts     map[JobStatus]int `json:"status_counts"`
	ByProductionType TypeCounts        `json:"by_production_type"`
	Work             WorkStatistics    `json:"work"`
}

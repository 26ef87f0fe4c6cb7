package service

import (
	"context"
	"fmt"

	"github.com/vadim/maxsupply/internal/domain/capacity/entity"
)

// JobRepository defines the interface for production job storage
type JobRepository interface {
	List(ctx context.Context, filter entity.JobFilter) ([]entity.ProductionJob, error)
	GetByID(ctx context.Context, id string) (*entity.ProductionJob, error)
	UpdateStatus(ctx context.Context, id string, status entity.JobStatus) error
	UpdateWorkCalculations(ctx context.Context, id string, calcs map[entity.ProductionType]entity.WorkCalc) error
}

// Service handles business logic for production jobs and their statistics
type Service struct {
	repo       JobRepository
	aggregator *Aggregator
}

// New creates a new capacity service
func New(repo JobRepository, aggregator *Aggregator) *Service {
	return &Service{
		repo:       repo,
		aggregator: aggregator,
	}
}

// ListJobs retrieves jobs matching the filter
func (s *Service) ListJobs(ctx context.Context, filter entity.JobFilter) ([]entity.ProductionJob, error) {
	jobs, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing jobs: %w", err)
	}
	return jobs, nil
}

// GetStatistics fetches the jobs for a filter and aggregates them
func (s *Service) GetStatistics(ctx context.Context, filter entity.JobFilter) (*entity.CapacityStatistics, error) {
	jobs, err := s.ListJobs(ctx, filter)
	if err != nil {
		return nil, err
	}

	stats := s.aggregator.Aggregate(jobs)
	return &stats, nil
}

// UpdateStatus changes the status of a job
func (s *Service) UpdateStatus(ctx context.Context, id string, status entity.JobStatus) (*entity.ProductionJob, error) {
	if _, err := entity.ParseJobStatus(string(status)); err != nil {
		return nil, err
	}

	job, err := s.getJob(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("updating job status: %w", err)
	}

	job.Status = status
	return job, nil
}

// RecordWorkCalculationInput represents input for recording work on a job
type RecordWorkCalculationInput struct {
	JobID          string
	ProductionType entity.ProductionType
	Points         int
	TotalQuantity  int
}

// RecordWorkCalculation stores the work breakdown of one production type on a job.
// Existing entries for other types are kept; an unreadable stored payload is replaced.
func (s *Service) RecordWorkCalculation(ctx context.Context, in RecordWorkCalculationInput) (*entity.ProductionJob, error) {
	if !in.ProductionType.IsKnown() {
		return nil, entity.ErrInvalidProductionType
	}
	if in.Points < 0 || in.TotalQuantity < 0 {
		return nil, entity.ErrNegativeQuantity
	}

	job, err := s.getJob(ctx, in.JobID)
	if err != nil {
		return nil, err
	}

	current, err := job.WorkCalculations.Resolve()
	if err != nil {
		current = nil
	}

	calcs := make(map[entity.ProductionType]entity.WorkCalc, len(current)+1)
	for t, c := range current {
		calcs[t] = c
	}
	calcs[in.ProductionType] = entity.NewWorkCalc(in.Points, in.TotalQuantity)

	if err := s.repo.UpdateWorkCalculations(ctx, job.ID, calcs); err != nil {
		return nil, fmt.Errorf("updating work calculations: %w", err)
	}

	job.WorkCalculations = entity.ParsedWorkCalculations(calcs)
	return job, nil
}

func (s *Service) getJob(ctx context.Context, id string) (*entity.ProductionJob, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting job: %w", err)
	}
	if job == nil {
		return nil, entity.ErrJobNotFound
	}
	return job, nil
}

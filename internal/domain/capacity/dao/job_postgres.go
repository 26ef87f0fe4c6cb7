package dao

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vadim/maxsupply/internal/domain/capacity/entity"
)

// JobPostgres implements job repository for PostgreSQL
type JobPostgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewJobPostgres creates a new PostgreSQL job repository
func NewJobPostgres(pool *pgxpool.Pool) *JobPostgres {
	return &JobPostgres{pool: pool, now: time.Now}
}

const jobColumns = `id, title, status, production_type, work_calculations, due_date, created_at, updated_at`

// List retrieves jobs whose due date falls into the filter window
func (r *JobPostgres) List(ctx context.Context, filter entity.JobFilter) ([]entity.ProductionJob, error) {
	query := `SELECT ` + jobColumns + ` FROM production_jobs`
	var args []interface{}

	if from, to, ok := filter.Range(r.now()); ok {
		query += ` WHERE due_date >= $1 AND due_date < $2`
		args = append(args, from, to)
	}
	query += ` ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying jobs: %w", err)
	}
	defer rows.Close()

	var jobs []entity.ProductionJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", err)
	}

	return jobs, nil
}

// GetByID retrieves a job by ID
func (r *JobPostgres) GetByID(ctx context.Context, id string) (*entity.ProductionJob, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM production_jobs WHERE id = $1`, id)

	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateStatus updates only the status of a job
func (r *JobPostgres) UpdateStatus(ctx context.Context, id string, status entity.JobStatus) error {
	result, err := r.pool.Exec(ctx,
		"UPDATE production_jobs SET status = $2, updated_at = NOW() WHERE id = $1",
		id, status,
	)
	if err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return entity.ErrJobNotFound
	}
	return nil
}

// UpdateWorkCalculations replaces the work calculation payload of a job
func (r *JobPostgres) UpdateWorkCalculations(ctx context.Context, id string, calcs map[entity.ProductionType]entity.WorkCalc) error {
	payload, err := json.Marshal(calcs)
	if err != nil {
		return fmt.Errorf("encoding work calculations: %w", err)
	}

	result, err := r.pool.Exec(ctx,
		"UPDATE production_jobs SET work_calculations = $2, updated_at = NOW() WHERE id = $1",
		id, payload,
	)
	if err != nil {
		return fmt.Errorf("updating work calculations: %w", err)
	}
	if result.RowsAffected() == 0 {
		return entity.ErrJobNotFound
	}
	return nil
}

func scanJob(row pgx.Row) (*entity.ProductionJob, error) {
	var job entity.ProductionJob
	var title *string
	var calcs []byte

	err := row.Scan(
		&job.ID,
		&title,
		&job.Status,
		&job.ProductionType,
		&calcs,
		&job.DueDate,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning job: %w", err)
	}

	if title != nil {
		job.Title = *title
	}
	// JSONB may hold the map itself or a double-encoded string
	if len(calcs) > 0 {
		if err := json.Unmarshal(calcs, &job.WorkCalculations); err != nil {
			job.WorkCalculations = entity.RawWorkCalculations(string(calcs))
		}
	}

	return &job, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oskarjolofsson/GSA1.0/internal/domain/entity"
)

var ErrJobNotFound = errors.New("analysis job not found")

type AnalysisJobRepository struct {
	pool *pgxpool.Pool
}

func NewAnalysisJobRepository(pool *pgxpool.Pool) *AnalysisJobRepository {
	return &AnalysisJobRepository{pool: pool}
}

const jobColumns = `id, user_id, video_key, sport, provider, status, result,
	error_kind, error_message, attempt, max_attempts,
	created_at, updated_at, completed_at`

func (r *AnalysisJobRepository) Create(ctx context.Context, job *entity.AnalysisJob) error {
	query := `INSERT INTO analysis_jobs (` + jobColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.UserID, job.VideoKey, string(job.Sport), string(job.Provider),
		string(job.Status), nullableJSON(job.Result),
		string(job.ErrorKind), job.ErrorMessage, job.Attempt, job.MaxAttempts,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis job: %w", err)
	}
	return nil
}

func (r *AnalysisJobRepository) Update(ctx context.Context, job *entity.AnalysisJob) error {
	query := `
		UPDATE analysis_jobs SET
			status=$2, result=$3, error_kind=$4, error_message=$5,
			attempt=$6, updated_at=$7, completed_at=$8
		WHERE id=$1`

	tag, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), nullableJSON(job.Result),
		string(job.ErrorKind), job.ErrorMessage, job.Attempt,
		job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update analysis job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update analysis job %s: %w", job.ID, ErrJobNotFound)
	}
	return nil
}

func (r *AnalysisJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.AnalysisJob, error) {
	query := `SELECT ` + jobColumns + ` FROM analysis_jobs WHERE id=$1`

	job, err := scanJob(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("find analysis job %s: %w", id, ErrJobNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find analysis job by id: %w", err)
	}
	return job, nil
}

// ListByUser returns the user's most recent jobs first.
func (r *AnalysisJobRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*entity.AnalysisJob, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + jobColumns + ` FROM analysis_jobs
		WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list analysis jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*entity.AnalysisJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan analysis job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*entity.AnalysisJob, error) {
	job := &entity.AnalysisJob{}
	var sport, provider, status, errorKind string
	var result []byte
	err := row.Scan(
		&job.ID, &job.UserID, &job.VideoKey, &sport, &provider, &status, &result,
		&errorKind, &job.ErrorMessage, &job.Attempt, &job.MaxAttempts,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Sport = entity.Sport(sport)
	job.Provider = entity.ProviderName(provider)
	job.Status = entity.JobStatus(status)
	job.ErrorKind = entity.ErrorKind(errorKind)
	job.Result = result
	return job, nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

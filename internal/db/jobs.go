package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const jobColumns = `id, platform, handle, canonical_url, status,
	from_year, to_year, from_date, to_date, max_snapshots,
	total_snapshots, processed, snapshots_found, sampled, with_metrics, cached, fetched,
	summary, error, created_at, started_at, finished_at`

func scanJob(row pgx.Row) (*Job, error) {
	var j Job
	err := row.Scan(&j.ID, &j.Platform, &j.Handle, &j.CanonicalURL, &j.Status,
		&j.FromYear, &j.ToYear, &j.FromDate, &j.ToDate, &j.MaxSnapshots,
		&j.TotalSnapshots, &j.Processed, &j.SnapshotsFound, &j.Sampled, &j.WithMetrics, &j.Cached, &j.Fetched,
		&j.Summary, &j.Error, &j.CreatedAt, &j.StartedAt, &j.FinishedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateJob inserts a queued job and returns its ID.
func (db *DB) CreateJob(ctx context.Context, j *Job) (uuid.UUID, error) {
	id := uuid.New()
	_, err := db.pool.Exec(ctx,
		`INSERT INTO wayback_jobs
		   (id, platform, handle, canonical_url, status,
		    from_year, to_year, from_date, to_date, max_snapshots)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, j.Platform, j.Handle, j.CanonicalURL, JobStatusQueued,
		j.FromYear, j.ToYear, j.FromDate, j.ToDate, j.MaxSnapshots,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create job: %w", err)
	}
	return id, nil
}

// GetJob retrieves a job by ID, or nil when it does not exist.
func (db *DB) GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	j, err := scanJob(db.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM wayback_jobs WHERE id = $1`, jobID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return j, nil
}

// ListJobs retrieves recent jobs, newest first. Empty platform or handle
// means no filter on that column.
func (db *DB) ListJobs(ctx context.Context, platform, handle string, limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM wayback_jobs
		 WHERE ($1 = '' OR platform = $1) AND ($2 = '' OR handle = $2)
		 ORDER BY created_at DESC LIMIT $3`, platform, handle, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, nil
}

// JobStatus retrieves just the status column, used by the worker's
// cancellation poll between snapshots.
func (db *DB) JobStatus(ctx context.Context, jobID uuid.UUID) (string, error) {
	var status string
	err := db.pool.QueryRow(ctx,
		`SELECT status FROM wayback_jobs WHERE id = $1`, jobID).Scan(&status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", nil
		}
		return "", fmt.Errorf("failed to get job status: %w", err)
	}
	return status, nil
}

// MarkJobRunning transitions a queued job to running. Returns false when the
// job was not in the queued state, for example after a pre-start cancel.
func (db *DB) MarkJobRunning(ctx context.Context, jobID uuid.UUID) (bool, error) {
	result, err := db.pool.Exec(ctx,
		`UPDATE wayback_jobs SET status = $1, started_at = NOW()
		 WHERE id = $2 AND status = $3`,
		JobStatusRunning, jobID, JobStatusQueued)
	if err != nil {
		return false, fmt.Errorf("failed to mark job running: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// UpdateJobDiscovery records the discovery and sampling counters once the
// index sweep is done.
func (db *DB) UpdateJobDiscovery(ctx context.Context, jobID uuid.UUID, total, found, sampled int) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE wayback_jobs
		 SET total_snapshots = $1, snapshots_found = $2, sampled = $3
		 WHERE id = $4`,
		total, found, sampled, jobID)
	if err != nil {
		return fmt.Errorf("failed to update job discovery: %w", err)
	}
	return nil
}

// UpdateJobProgress records per-snapshot progress counters.
func (db *DB) UpdateJobProgress(ctx context.Context, jobID uuid.UUID, processed, withMetrics, cached, fetched int) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE wayback_jobs
		 SET processed = $1, with_metrics = $2, cached = $3, fetched = $4
		 WHERE id = $5`,
		processed, withMetrics, cached, fetched, jobID)
	if err != nil {
		return fmt.Errorf("failed to update job progress: %w", err)
	}
	return nil
}

// CompleteJob marks a running job completed with an optional summary note.
func (db *DB) CompleteJob(ctx context.Context, jobID uuid.UUID, summary *string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE wayback_jobs SET status = $1, summary = $2, finished_at = NOW()
		 WHERE id = $3 AND status = $4`,
		JobStatusCompleted, summary, jobID, JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// FailJob marks a job failed, recording the error text.
func (db *DB) FailJob(ctx context.Context, jobID uuid.UUID, errText string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE wayback_jobs SET status = $1, error = $2, finished_at = NOW()
		 WHERE id = $3 AND status NOT IN ($4, $5)`,
		JobStatusFailed, errText, jobID, JobStatusCompleted, JobStatusCanceled)
	if err != nil {
		return fmt.Errorf("failed to fail job: %w", err)
	}
	return nil
}

// CancelJob requests cancellation. Returns false when the job was already in
// a terminal state. The worker observes the new status at its next poll and
// stops; rows processed so far are kept.
func (db *DB) CancelJob(ctx context.Context, jobID uuid.UUID) (bool, error) {
	result, err := db.pool.Exec(ctx,
		`UPDATE wayback_jobs SET status = $1, finished_at = NOW()
		 WHERE id = $2 AND status IN ($3, $4)`,
		JobStatusCanceled, jobID, JobStatusQueued, JobStatusRunning)
	if err != nil {
		return false, fmt.Errorf("failed to cancel job: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// DeleteJob deletes a job and its snapshot rows (via cascade).
func (db *DB) DeleteJob(ctx context.Context, jobID uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM wayback_jobs WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("job not found: %s", jobID)
	}
	return nil
}

package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// UpsertJobSnapshot stores one processed capture for a job.
func (db *DB) UpsertJobSnapshot(ctx context.Context, s *JobSnapshot) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO wayback_job_snapshots
		   (job_id, timestamp, original_url, archived_url,
		    followers, following, posts, subscribers, confidence, evidence, source)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (job_id, timestamp) DO UPDATE SET
		   original_url = $3, archived_url = $4,
		   followers = $5, following = $6, posts = $7, subscribers = $8,
		   confidence = $9, evidence = $10, source = $11`,
		s.JobID, s.Timestamp, s.OriginalURL, s.ArchivedURL,
		s.Followers, s.Following, s.Posts, s.Subscribers, s.Confidence, s.Evidence, s.Source,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert job snapshot: %w", err)
	}
	return nil
}

// ListJobSnapshots retrieves a job's processed captures, newest first.
func (db *DB) ListJobSnapshots(ctx context.Context, jobID uuid.UUID) ([]JobSnapshot, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT job_id, timestamp, original_url, archived_url,
		        followers, following, posts, subscribers, confidence, evidence, source
		 FROM wayback_job_snapshots
		 WHERE job_id = $1
		 ORDER BY timestamp DESC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list job snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []JobSnapshot
	for rows.Next() {
		var s JobSnapshot
		if err := rows.Scan(&s.JobID, &s.Timestamp, &s.OriginalURL, &s.ArchivedURL,
			&s.Followers, &s.Following, &s.Posts, &s.Subscribers, &s.Confidence, &s.Evidence, &s.Source); err != nil {
			return nil, fmt.Errorf("failed to scan job snapshot: %w", err)
		}
		snaps = append(snaps, s)
	}
	return snaps, nil
}

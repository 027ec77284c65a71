package db

import (
	"context"
	"fmt"
)

// UpsertSignalPoints stores a batch of series observations.
func (db *DB) UpsertSignalPoints(ctx context.Context, points []SignalPoint) error {
	for _, p := range points {
		_, err := db.pool.Exec(ctx,
			`INSERT INTO signal_points (series, date, value, fetched_at)
			 VALUES ($1, $2, $3, NOW())
			 ON CONFLICT (series, date) DO UPDATE SET value = $3, fetched_at = NOW()`,
			p.Series, p.Date, p.Value,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert signal point %s/%s: %w", p.Series, p.Date, err)
		}
	}
	return nil
}

// GetSignalPoints retrieves a series ordered by date ascending.
func (db *DB) GetSignalPoints(ctx context.Context, series string) ([]SignalPoint, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT series, date, value, fetched_at
		 FROM signal_points WHERE series = $1 ORDER BY date ASC`,
		series,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get signal points: %w", err)
	}
	defer rows.Close()

	var points []SignalPoint
	for rows.Next() {
		var p SignalPoint
		if err := rows.Scan(&p.Series, &p.Date, &p.Value, &p.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan signal point: %w", err)
		}
		points = append(points, p)
	}
	return points, nil
}

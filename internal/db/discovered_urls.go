package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/foodtruck-agent/internal/store"
	"github.com/jonathan/foodtruck-agent/internal/types"
)

// InsertDiscoveredURL stores a discovered URL and sets its ID. An irrelevant row for
// the same URL is reopened; any other existing row yields store.ErrDuplicateURL.
func (db *DB) InsertDiscoveredURL(ctx context.Context, u *types.DiscoveredURL) error {
	id := u.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	status := u.Status
	if status == "" {
		status = types.DiscoveredNew
	}

	err := db.pool.QueryRow(ctx,
		`INSERT INTO discovered_urls (id, url, source_directory_url, region, status, notes)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''))
		 ON CONFLICT (url) DO UPDATE SET
		     source_directory_url = EXCLUDED.source_directory_url,
		     region = EXCLUDED.region,
		     status = EXCLUDED.status,
		     notes = EXCLUDED.notes,
		     updated_at = NOW()
		 WHERE discovered_urls.status = 'irrelevant'
		 RETURNING id, discovered_at, updated_at`,
		id, u.URL, u.SourceDirectoryURL, u.Region, string(status), u.Notes,
	).Scan(&u.ID, &u.DiscoveredAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", u.URL, store.ErrDuplicateURL)
	}
	if err != nil {
		return fmt.Errorf("failed to insert discovered url %s: %w", u.URL, err)
	}
	u.Status = status
	return nil
}

// ListDiscoveredURLs returns discovered URLs in the given statuses, oldest first
func (db *DB) ListDiscoveredURLs(ctx context.Context, statuses ...types.DiscoveredURLStatus) ([]types.DiscoveredURL, error) {
	query := `SELECT id, url, COALESCE(source_directory_url, ''), COALESCE(region, ''), status,
			COALESCE(notes, ''), discovered_at, updated_at
		FROM discovered_urls`
	args := []any{}
	if len(statuses) > 0 {
		names := make([]string, len(statuses))
		for i, s := range statuses {
			names[i] = string(s)
		}
		query += ` WHERE status = ANY($1)`
		args = append(args, names)
	}
	query += ` ORDER BY discovered_at ASC, url ASC`

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list discovered urls: %w", err)
	}
	defer rows.Close()

	urls := []types.DiscoveredURL{}
	for rows.Next() {
		var u types.DiscoveredURL
		var status string
		if err := rows.Scan(&u.ID, &u.URL, &u.SourceDirectoryURL, &u.Region, &status,
			&u.Notes, &u.DiscoveredAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan discovered url: %w", err)
		}
		u.Status = types.DiscoveredURLStatus(status)
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

// UpdateDiscoveredURLStatus sets the triage status of a discovered URL
func (db *DB) UpdateDiscoveredURLStatus(ctx context.Context, id uuid.UUID, status types.DiscoveredURLStatus, notes string) error {
	result, err := db.pool.Exec(ctx,
		`UPDATE discovered_urls SET status = $2, notes = COALESCE(NULLIF($3, ''), notes), updated_at = NOW()
		 WHERE id = $1`,
		id, string(status), notes,
	)
	if err != nil {
		return fmt.Errorf("failed to update discovered url: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("discovered url %s: %w", id, store.ErrNotFound)
	}
	return nil
}

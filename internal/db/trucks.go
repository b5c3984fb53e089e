package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/foodtruck-agent/internal/store"
	"github.com/jonathan/foodtruck-agent/internal/types"
)

const truckColumns = `id, name, COALESCE(description, ''), current_location, operating_hours, menu,
	contact_info, social_media, cuisine_type, COALESCE(price_range, ''), specialties,
	data_quality_score, verification_status, source_urls, last_scraped_at, created_at, updated_at`

// truckJSON holds the JSONB encodings of a truck's nested fields.
type truckJSON struct {
	location, hours, menu, contact, social []byte
}

func encodeTruck(t *types.Truck) (*truckJSON, error) {
	var enc truckJSON
	var err error
	if enc.location, err = json.Marshal(t.CurrentLocation); err != nil {
		return nil, fmt.Errorf("failed to marshal current_location: %w", err)
	}
	hours := t.OperatingHours
	if hours == nil {
		hours = types.OperatingHours{}
	}
	if enc.hours, err = json.Marshal(hours); err != nil {
		return nil, fmt.Errorf("failed to marshal operating_hours: %w", err)
	}
	menu := t.Menu
	if menu == nil {
		menu = []types.MenuCategory{}
	}
	if enc.menu, err = json.Marshal(menu); err != nil {
		return nil, fmt.Errorf("failed to marshal menu: %w", err)
	}
	if enc.contact, err = json.Marshal(t.ContactInfo); err != nil {
		return nil, fmt.Errorf("failed to marshal contact_info: %w", err)
	}
	social := t.SocialMedia
	if social == nil {
		social = map[string]string{}
	}
	if enc.social, err = json.Marshal(social); err != nil {
		return nil, fmt.Errorf("failed to marshal social_media: %w", err)
	}
	return &enc, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func scanTruck(row pgx.Row) (*types.Truck, error) {
	var t types.Truck
	var location, hours, menu, contact, social []byte
	var priceRange string

	err := row.Scan(&t.ID, &t.Name, &t.Description, &location, &hours, &menu,
		&contact, &social, &t.CuisineTypes, &priceRange, &t.Specialties,
		&t.DataQualityScore, &t.VerificationStatus, &t.SourceURLs, &t.LastScrapedAt, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.PriceRange = types.PriceRange(priceRange)

	fields := []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"current_location", location, &t.CurrentLocation},
		{"operating_hours", hours, &t.OperatingHours},
		{"menu", menu, &t.Menu},
		{"contact_info", contact, &t.ContactInfo},
		{"social_media", social, &t.SocialMedia},
	}
	for _, f := range fields {
		if len(f.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", f.name, err)
		}
	}
	return &t, nil
}

// CreateTruck inserts a new truck and returns the stored record
func (db *DB) CreateTruck(ctx context.Context, truck *types.Truck) (*types.Truck, error) {
	enc, err := encodeTruck(truck)
	if err != nil {
		return nil, err
	}
	id := truck.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	verification := truck.VerificationStatus
	if verification == "" {
		verification = types.VerificationPending
	}

	row := db.pool.QueryRow(ctx,
		`INSERT INTO food_trucks (id, name, description, current_location, operating_hours, menu,
			contact_info, social_media, cuisine_type, price_range, specialties,
			data_quality_score, verification_status, source_urls, last_scraped_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, NULLIF($10, ''), $11, $12, $13, $14, $15)
		 RETURNING `+truckColumns,
		id, truck.Name, truck.Description, enc.location, enc.hours, enc.menu,
		enc.contact, enc.social, nonNil(truck.CuisineTypes), string(truck.PriceRange), nonNil(truck.Specialties),
		truck.DataQualityScore, verification, nonNil(truck.SourceURLs), truck.LastScrapedAt,
	)
	created, err := scanTruck(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create truck: %w", err)
	}
	return created, nil
}

// UpdateTruck overwrites a truck's fields, keeping its ID and created_at
func (db *DB) UpdateTruck(ctx context.Context, id uuid.UUID, truck *types.Truck) (*types.Truck, error) {
	enc, err := encodeTruck(truck)
	if err != nil {
		return nil, err
	}

	row := db.pool.QueryRow(ctx,
		`UPDATE food_trucks SET
			name = $2, description = NULLIF($3, ''), current_location = $4, operating_hours = $5, menu = $6,
			contact_info = $7, social_media = $8, cuisine_type = $9, price_range = NULLIF($10, ''),
			specialties = $11, data_quality_score = $12, verification_status = COALESCE(NULLIF($13, ''), verification_status),
			source_urls = $14, last_scraped_at = $15, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+truckColumns,
		id, truck.Name, truck.Description, enc.location, enc.hours, enc.menu,
		enc.contact, enc.social, nonNil(truck.CuisineTypes), string(truck.PriceRange), nonNil(truck.Specialties),
		truck.DataQualityScore, truck.VerificationStatus, nonNil(truck.SourceURLs), truck.LastScrapedAt,
	)
	updated, err := scanTruck(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("truck %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update truck: %w", err)
	}
	return updated, nil
}

// GetTruck retrieves a truck by ID
func (db *DB) GetTruck(ctx context.Context, id uuid.UUID) (*types.Truck, error) {
	row := db.pool.QueryRow(ctx, `SELECT `+truckColumns+` FROM food_trucks WHERE id = $1`, id)
	t, err := scanTruck(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("truck %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get truck: %w", err)
	}
	return t, nil
}

// ListTrucks returns a page of trucks ordered by creation time, plus the total count
func (db *DB) ListTrucks(ctx context.Context, limit, offset int) ([]types.Truck, int, error) {
	var total int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM food_trucks`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count trucks: %w", err)
	}

	query := `SELECT ` + truckColumns + ` FROM food_trucks ORDER BY created_at ASC, id ASC OFFSET $1`
	args := []any{offset}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	trucks, err := db.queryTrucks(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return trucks, total, nil
}

// ListTrucksByRadius returns trucks within radiusKm of a point, nearest first
func (db *DB) ListTrucksByRadius(ctx context.Context, lat, lng, radiusKm float64) ([]types.Truck, error) {
	query := `SELECT ` + truckColumns + ` FROM (
		SELECT *, 6371 * 2 * ASIN(SQRT(
			POWER(SIN(RADIANS((current_location->>'lat')::float8 - $1) / 2), 2) +
			COS(RADIANS($1)) * COS(RADIANS((current_location->>'lat')::float8)) *
			POWER(SIN(RADIANS((current_location->>'lng')::float8 - $2) / 2), 2)
		)) AS distance_km
		FROM food_trucks
		WHERE current_location->>'lat' IS NOT NULL AND current_location->>'lng' IS NOT NULL
	) nearby
	WHERE distance_km <= $3
	ORDER BY distance_km ASC`

	return db.queryTrucks(ctx, query, lat, lng, radiusKm)
}

// ListTruckSourceURLs returns every source URL recorded on any truck
func (db *DB) ListTruckSourceURLs(ctx context.Context) ([]string, error) {
	rows, err := db.pool.Query(ctx, `SELECT DISTINCT UNNEST(source_urls) FROM food_trucks`)
	if err != nil {
		return nil, fmt.Errorf("failed to list source urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("failed to scan source url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}

func (db *DB) queryTrucks(ctx context.Context, query string, args ...any) ([]types.Truck, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list trucks: %w", err)
	}
	defer rows.Close()

	trucks := []types.Truck{}
	for rows.Next() {
		t, err := scanTruck(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan truck: %w", err)
		}
		trucks = append(trucks, *t)
	}
	return trucks, rows.Err()
}

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"leadterm/internal/lead"
	"leadterm/internal/listing"
)

const listingColumns = `id, title, city, neighborhood, property_type, nightly_rate, description, amenities, bedrooms, bathrooms, guests, rating, lat, lng`

// CreateListing inserts a new listing enforcing unique identifiers.
func (s *Store) CreateListing(ctx context.Context, l *listing.Listing) error {
	if l == nil {
		return fmt.Errorf("nil listing")
	}
	if err := l.Validate(); err != nil {
		return err
	}
	var lat, lng interface{}
	if l.Coordinates != nil {
		lat, lng = l.Coordinates.Lat, l.Coordinates.Lng
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO listings (`+listingColumns+`, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Title, l.City, nullString(l.Neighborhood), string(l.PropertyType), l.NightlyRate,
		nullString(l.Description), nullString(strings.Join(l.Amenities, ",")),
		nullIntPtr(l.Bedrooms), nullIntPtr(l.Bathrooms), nullIntPtr(l.Guests), nullFloatPtr(l.Rating),
		lat, lng, formatTime(s.now()))
	if err != nil {
		if isUniqueConstraint(err) {
			return ErrListingExists
		}
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

// SeedListings installs listings that are not present yet and reports how
// many were added.
func (s *Store) SeedListings(ctx context.Context, listings []listing.Listing) (int, error) {
	added := 0
	for i := range listings {
		l := listings[i]
		if err := s.CreateListing(ctx, &l); err != nil {
			if errors.Is(err, ErrListingExists) {
				continue
			}
			return added, fmt.Errorf("seed %q: %w", l.Title, err)
		}
		added++
	}
	return added, nil
}

// ListListings implements listing.Repository.
func (s *Store) ListListings(ctx context.Context, f listing.Filter) ([]listing.Listing, error) {
	var where []string
	var args []any
	if text := strings.TrimSpace(f.Text); text != "" {
		like := fmt.Sprintf("%%%s%%", strings.ToLower(text))
		where = append(where, `(lower(title) LIKE ? OR lower(city) LIKE ? OR lower(coalesce(neighborhood, '')) LIKE ?)`)
		args = append(args, like, like, like)
	}
	if city := strings.TrimSpace(f.City); city != "" {
		where = append(where, `lower(city) = lower(?)`)
		args = append(args, city)
	}
	if f.PropertyType != "" {
		where = append(where, `property_type = ?`)
		args = append(args, string(f.PropertyType))
	}
	if f.MaxRate > 0 {
		where = append(where, `nightly_rate <= ?`)
		args = append(args, f.MaxRate)
	}
	query := `SELECT ` + listingColumns + ` FROM listings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY city COLLATE NOCASE, title COLLATE NOCASE`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query listings: %w", err)
	}
	defer rows.Close()

	var listings []listing.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listings rows: %w", err)
	}
	return listings, nil
}

// ListingByID implements listing.Repository.
func (s *Store) ListingByID(ctx context.Context, id string) (*listing.Listing, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, strings.TrimSpace(id))
	l, err := scanListing(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get listing: %w", err)
	}
	return &l, nil
}

// DeleteListing removes a listing and, through the foreign key, its favorites.
func (s *Store) DeleteListing(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete listing: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanListing(rs rowScanner) (listing.Listing, error) {
	var l listing.Listing
	var propertyType string
	var neighborhood, description, amenities sql.NullString
	var bedrooms, bathrooms, guests sql.NullInt64
	var rating, lat, lng sql.NullFloat64
	if err := rs.Scan(&l.ID, &l.Title, &l.City, &neighborhood, &propertyType, &l.NightlyRate, &description, &amenities,
		&bedrooms, &bathrooms, &guests, &rating, &lat, &lng); err != nil {
		return listing.Listing{}, err
	}
	l.PropertyType = lead.PropertyType(propertyType)
	l.Neighborhood = nullStringToString(neighborhood)
	l.Description = nullStringToString(description)
	if a := nullStringToString(amenities); a != "" {
		l.Amenities = strings.Split(a, ",")
	}
	l.Bedrooms = intFromNull(bedrooms)
	l.Bathrooms = intFromNull(bathrooms)
	l.Guests = intFromNull(guests)
	if rating.Valid {
		v := rating.Float64
		l.Rating = &v
	}
	if lat.Valid && lng.Valid {
		l.Coordinates = &lead.Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	return l, nil
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

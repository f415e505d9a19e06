package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"leadterm/internal/currency"
	"leadterm/internal/lead"
	"leadterm/internal/listing"
)

// ImportResult summarizes a CSV import operation.
type ImportResult struct {
	Created int
	Skipped int
	Errors  []string
}

// ImportListingsCSV ingests listings from a CSV reader. The header must name
// at least title, city, property_type and nightly_rate; neighborhood,
// description, amenities (semicolon separated), bedrooms, bathrooms, guests,
// rating, lat and lng are optional.
func (s *Store) ImportListingsCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	result := ImportResult{}
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return result, fmt.Errorf("read header: %w", err)
	}
	index := map[string]int{}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(h))
		if key != "" {
			index[key] = i
		}
	}
	for _, required := range []string{"title", "city", "property_type", "nightly_rate"} {
		if _, ok := index[required]; !ok {
			return result, fmt.Errorf("csv missing '%s' column", required)
		}
	}
	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", row, err))
			result.Skipped++
			continue
		}
		get := func(col string) string {
			if idx, ok := index[col]; ok && idx < len(record) {
				return strings.TrimSpace(record[idx])
			}
			return ""
		}
		l := listing.Listing{
			ID:           get("id"),
			Title:        get("title"),
			City:         get("city"),
			Neighborhood: get("neighborhood"),
			Description:  get("description"),
			PropertyType: lead.PropertyType(strings.ToLower(get("property_type"))),
			NightlyRate:  parseRate(get("nightly_rate")),
		}
		if a := get("amenities"); a != "" {
			for _, item := range strings.Split(a, ";") {
				if item = strings.TrimSpace(item); item != "" {
					l.Amenities = append(l.Amenities, item)
				}
			}
		}
		l.Bedrooms = parseOptionalInt(get("bedrooms"))
		l.Bathrooms = parseOptionalInt(get("bathrooms"))
		l.Guests = parseOptionalInt(get("guests"))
		if v, err := strconv.ParseFloat(get("rating"), 64); err == nil {
			l.Rating = &v
		}
		lat, latErr := strconv.ParseFloat(get("lat"), 64)
		lng, lngErr := strconv.ParseFloat(get("lng"), 64)
		if latErr == nil && lngErr == nil {
			l.Coordinates = &lead.Coordinates{Lat: lat, Lng: lng}
		}

		if err := s.CreateListing(ctx, &l); err != nil {
			result.Skipped++
			if errors.Is(err, ErrListingExists) {
				result.Errors = append(result.Errors, fmt.Sprintf("row %d: duplicate listing '%s'", row, l.ID))
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", row, err))
			continue
		}
		result.Created++
	}
	return result, nil
}

// parseRate accepts plain decimals ("480.50") and falls back to the
// digit-only currency rules for formatted values ("R$ 480").
func parseRate(value string) float64 {
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		return v
	}
	v, err := currency.Parse(value, currency.Whole)
	if err != nil {
		return 0
	}
	return v
}

func parseOptionalInt(value string) *int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &n
}

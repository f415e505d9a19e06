package storage

import (
	"context"
	"fmt"
	"strings"
)

// IsFavorite implements listing.Favorites.
func (s *Store) IsFavorite(ctx context.Context, owner, listingID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM favorites WHERE owner = ? AND listing_id = ?`,
		strings.TrimSpace(owner), strings.TrimSpace(listingID)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("get favorite: %w", err)
	}
	return n > 0, nil
}

// SetFavorite implements listing.Favorites. Marking an unknown listing as a
// favorite returns ErrNotFound.
func (s *Store) SetFavorite(ctx context.Context, owner, listingID string, favorite bool) error {
	owner = strings.TrimSpace(owner)
	listingID = strings.TrimSpace(listingID)
	if owner == "" {
		return fmt.Errorf("favorite owner required")
	}
	if !favorite {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE owner = ? AND listing_id = ?`, owner, listingID); err != nil {
			return fmt.Errorf("delete favorite: %w", err)
		}
		return nil
	}
	if _, err := s.ListingByID(ctx, listingID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO favorites (owner, listing_id, created_at) VALUES (?, ?, ?)`,
		owner, listingID, formatTime(s.now()))
	if err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

// ListFavorites implements listing.Favorites, newest first.
func (s *Store) ListFavorites(ctx context.Context, owner string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT listing_id FROM favorites WHERE owner = ? ORDER BY created_at DESC, listing_id`, strings.TrimSpace(owner))
	if err != nil {
		return nil, fmt.Errorf("query favorites: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

package listing

import (
	"context"
	"fmt"
	"strings"

	"github.com/gosimple/slug"

	"leadterm/internal/lead"
)

// Listing is a short-term rental shown in the catalogue. Optional fields are
// pointers or empty values; every view reads this one shape.
type Listing struct {
	ID           string
	Title        string
	City         string
	PropertyType lead.PropertyType
	NightlyRate  float64

	Neighborhood string
	Description  string
	Amenities    []string
	Bedrooms     *int
	Bathrooms    *int
	Guests       *int
	Rating       *float64
	Coordinates  *lead.Coordinates
}

// Address renders the listing location for display and geocoding.
func (l Listing) Address() string {
	parts := make([]string, 0, 2)
	if n := strings.TrimSpace(l.Neighborhood); n != "" {
		parts = append(parts, n)
	}
	if c := strings.TrimSpace(l.City); c != "" {
		parts = append(parts, c)
	}
	return strings.Join(parts, ", ")
}

// Validate checks the required fields and fills in the ID when missing.
func (l *Listing) Validate() error {
	l.Title = strings.TrimSpace(l.Title)
	l.City = strings.TrimSpace(l.City)
	if l.Title == "" {
		return fmt.Errorf("listing title required")
	}
	if l.City == "" {
		return fmt.Errorf("listing city required")
	}
	if !l.PropertyType.Valid() {
		return fmt.Errorf("unknown property type %q", l.PropertyType)
	}
	if l.NightlyRate < 0 {
		return fmt.Errorf("nightly rate must not be negative")
	}
	if strings.TrimSpace(l.ID) == "" {
		l.ID = MakeID(l.Title, l.City)
	}
	return nil
}

// MakeID derives a stable identifier from the title and city.
func MakeID(title, city string) string {
	return slug.Make(title + " " + city)
}

// Filter narrows a listing query. Zero values do not filter.
type Filter struct {
	Text         string
	City         string
	PropertyType lead.PropertyType
	MaxRate      float64
}

// Repository provides read access to the listing catalogue.
type Repository interface {
	ListListings(ctx context.Context, f Filter) ([]Listing, error)
	ListingByID(ctx context.Context, id string) (*Listing, error)
}

// Favorites is a per-user key-value store of favorited listing IDs.
type Favorites interface {
	IsFavorite(ctx context.Context, owner, listingID string) (bool, error)
	SetFavorite(ctx context.Context, owner, listingID string, favorite bool) error
	ListFavorites(ctx context.Context, owner string) ([]string, error)
}

// ToggleFavorite flips the favorite flag and returns the new value.
func ToggleFavorite(ctx context.Context, favs Favorites, owner, listingID string) (bool, error) {
	current, err := favs.IsFavorite(ctx, owner, listingID)
	if err != nil {
		return false, err
	}
	if err := favs.SetFavorite(ctx, owner, listingID, !current); err != nil {
		return current, err
	}
	return !current, nil
}

// Addresses returns the geocodable address of every listing with coordinates.
func Addresses(listings []Listing) []lead.Address {
	out := make([]lead.Address, 0, len(listings))
	for _, l := range listings {
		if l.Coordinates == nil {
			continue
		}
		out = append(out, lead.Address{Display: l.Address(), Coordinates: *l.Coordinates})
	}
	return out
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"leadterm/internal/lead"
)

// DefaultNominatimURL is the public OpenStreetMap search endpoint.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// Nominatim queries an OpenStreetMap Nominatim compatible search API.
type Nominatim struct {
	BaseURL   string
	UserAgent string
	// Countries restricts results to ISO 3166-1 alpha-2 codes, comma separated.
	Countries string
	Limit     int
	Client    *http.Client
}

// NewNominatim returns a client for baseURL with sensible defaults.
func NewNominatim(baseURL, userAgent string) *Nominatim {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultNominatimURL
	}
	if strings.TrimSpace(userAgent) == "" {
		userAgent = "leadterm"
	}
	return &Nominatim{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		UserAgent: userAgent,
		Countries: "br",
		Limit:     5,
		Client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// Search implements Geocoder.
func (n *Nominatim) Search(ctx context.Context, query string) ([]lead.Address, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "0")
	if n.Limit > 0 {
		params.Set("limit", strconv.Itoa(n.Limit))
	}
	if n.Countries != "" {
		params.Set("countrycodes", n.Countries)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.BaseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", n.UserAgent)
	req.Header.Set("Accept", "application/json")

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("nominatim request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("nominatim status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var places []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode nominatim response: %w", err)
	}
	results := make([]lead.Address, 0, len(places))
	for _, p := range places {
		lat, err := strconv.ParseFloat(p.Lat, 64)
		if err != nil {
			continue
		}
		lng, err := strconv.ParseFloat(p.Lon, 64)
		if err != nil {
			continue
		}
		results = append(results, lead.Address{
			Display:     p.DisplayName,
			Coordinates: lead.Coordinates{Lat: lat, Lng: lng},
		})
	}
	return results, nil
}

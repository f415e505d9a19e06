package lead

import (
	"fmt"
	"strconv"
	"strings"
)

// Category tags every lead produced by the owner wizard.
const Category = "proprietario-temporada"

// PropertyType is the kind of property an owner wants to list.
type PropertyType string

const (
	PropertyApartment PropertyType = "apartamento"
	PropertyHouse     PropertyType = "casa"
	PropertyStudio    PropertyType = "studio"
	PropertyPenthouse PropertyType = "cobertura"
	PropertyChalet    PropertyType = "chale"
)

// PropertyTypes lists the selectable property types in display order.
var PropertyTypes = []PropertyType{PropertyApartment, PropertyHouse, PropertyStudio, PropertyPenthouse, PropertyChalet}

// Label returns the human readable name.
func (p PropertyType) Label() string {
	switch p {
	case PropertyApartment:
		return "Apartamento"
	case PropertyHouse:
		return "Casa"
	case PropertyStudio:
		return "Studio"
	case PropertyPenthouse:
		return "Cobertura"
	case PropertyChalet:
		return "Chalé"
	default:
		return string(p)
	}
}

// Valid reports whether p is one of PropertyTypes.
func (p PropertyType) Valid() bool {
	for _, known := range PropertyTypes {
		if p == known {
			return true
		}
	}
	return false
}

// Platform is a listing channel the owner already uses.
type Platform string

const (
	PlatformAirbnb  Platform = "airbnb"
	PlatformBooking Platform = "booking"
	PlatformVrbo    Platform = "vrbo"
	PlatformOther   Platform = "outras"
	// PlatformNone is exclusive with every other platform.
	PlatformNone    Platform = "none"
)

// Platforms lists the selectable platforms in display order.
var Platforms = []Platform{PlatformAirbnb, PlatformBooking, PlatformVrbo, PlatformOther, PlatformNone}

// Label returns the human readable name.
func (p Platform) Label() string {
	switch p {
	case PlatformAirbnb:
		return "Airbnb"
	case PlatformBooking:
		return "Booking.com"
	case PlatformVrbo:
		return "Vrbo"
	case PlatformOther:
		return "Outras"
	case PlatformNone:
		return "Nenhuma ainda"
	default:
		return string(p)
	}
}

// Furnishing describes how furnished the property is.
type Furnishing string

const (
	FurnishingFull    Furnishing = "completo"
	FurnishingPartial Furnishing = "parcial"
	FurnishingEmpty   Furnishing = "vazio"
)

// Furnishings lists the selectable furnishing states in display order.
var Furnishings = []Furnishing{FurnishingFull, FurnishingPartial, FurnishingEmpty}

// Label returns the human readable name.
func (f Furnishing) Label() string {
	switch f {
	case FurnishingFull:
		return "Totalmente mobiliado"
	case FurnishingPartial:
		return "Parcialmente mobiliado"
	case FurnishingEmpty:
		return "Sem mobília"
	default:
		return string(f)
	}
}

// Valid reports whether f is one of Furnishings.
func (f Furnishing) Valid() bool {
	for _, known := range Furnishings {
		if f == known {
			return true
		}
	}
	return false
}

// Coordinates is a WGS84 latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinates) String() string {
	return strconv.FormatFloat(c.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(c.Lng, 'f', 6, 64)
}

// Address is a geocoded street address as chosen by the user.
type Address struct {
	Display     string      `json:"display"`
	Coordinates Coordinates `json:"coordinates"`
}

// Empty reports whether no address has been selected.
func (a Address) Empty() bool {
	return strings.TrimSpace(a.Display) == ""
}

// HasCoordinates reports whether the address was geocoded. Addresses typed
// by hand while geocoding is unavailable have zero coordinates.
func (a Address) HasCoordinates() bool {
	return a.Coordinates != Coordinates{}
}

// Fields is the set of inputs collected by the owner wizard.
type Fields struct {
	Name           string
	Email          string
	Phone          string
	PropertyType   PropertyType
	EstimatedValue float64
	Address        Address
	NightlyRate    float64
	Platforms      []Platform
	Furnishing     Furnishing
}

// Clone returns a deep copy safe to hand to another goroutine.
func (f Fields) Clone() Fields {
	out := f
	if f.Platforms != nil {
		out.Platforms = append([]Platform(nil), f.Platforms...)
	}
	return out
}

// HasPlatform reports whether p is selected.
func (f Fields) HasPlatform(p Platform) bool {
	for _, selected := range f.Platforms {
		if selected == p {
			return true
		}
	}
	return false
}

// TogglePlatform flips p in the selection. Selecting PlatformNone clears
// every other platform and selecting anything else clears PlatformNone.
func TogglePlatform(selected []Platform, p Platform) []Platform {
	for i, s := range selected {
		if s == p {
			out := append([]Platform(nil), selected[:i]...)
			return append(out, selected[i+1:]...)
		}
	}
	if p == PlatformNone {
		return []Platform{PlatformNone}
	}
	out := make([]Platform, 0, len(selected)+1)
	for _, s := range selected {
		if s != PlatformNone {
			out = append(out, s)
		}
	}
	return append(out, p)
}

// SplitName splits a full name into first name and the remainder.
func SplitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

// Record is the flat shape written by the remote insert.
type Record struct {
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name,omitempty"`
	Email           string  `json:"email"`
	Phone           string  `json:"phone"`
	Category        string  `json:"category"`
	PropertyType    string  `json:"property_type"`
	PropertyAddress string  `json:"property_address"`
	PropertyValue   float64 `json:"property_value"`
	NightlyRate     float64 `json:"nightly_rate"`
	Platforms       string  `json:"platforms"`
	Furnishing      string  `json:"furnishing"`
	Message         string  `json:"message"`
}

// Formatter renders amounts for the summary message.
type Formatter func(amount float64) string

// NewRecord flattens the collected fields. format renders currency amounts in
// the summary message; when nil plain numbers are used.
func NewRecord(f Fields, format Formatter) Record {
	if format == nil {
		format = func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }
	}
	first, last := SplitName(f.Name)
	platforms := make([]string, 0, len(f.Platforms))
	labels := make([]string, 0, len(f.Platforms))
	for _, p := range f.Platforms {
		platforms = append(platforms, string(p))
		labels = append(labels, p.Label())
	}
	rec := Record{
		FirstName:       first,
		LastName:        last,
		Email:           strings.TrimSpace(f.Email),
		Phone:           strings.TrimSpace(f.Phone),
		Category:        Category,
		PropertyType:    string(f.PropertyType),
		PropertyAddress: f.Address.Display,
		PropertyValue:   f.EstimatedValue,
		NightlyRate:     f.NightlyRate,
		Platforms:       strings.Join(platforms, ","),
		Furnishing:      string(f.Furnishing),
	}

	var b strings.Builder
	b.WriteString("Proprietário interessado em gestão de temporada.\n")
	fmt.Fprintf(&b, "Imóvel: %s em %s", f.PropertyType.Label(), f.Address.Display)
	if f.Address.HasCoordinates() {
		fmt.Fprintf(&b, " (%s)", f.Address.Coordinates)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "Valor estimado: %s\n", format(f.EstimatedValue))
	fmt.Fprintf(&b, "Diária desejada: %s\n", format(f.NightlyRate))
	fmt.Fprintf(&b, "Plataformas: %s\n", strings.Join(labels, ", "))
	fmt.Fprintf(&b, "Mobília: %s", f.Furnishing.Label())
	rec.Message = b.String()
	return rec
}

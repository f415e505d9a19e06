package listing

import "leadterm/internal/lead"

// Seed returns the sample catalogue installed on first run.
func Seed() []Listing {
	listings := []Listing{
		{
			Title:        "Studio moderno perto da Paulista",
			City:         "São Paulo",
			Neighborhood: "Rua Augusta, 1500, Consolação",
			PropertyType: lead.PropertyStudio,
			NightlyRate:  220,
			Description:  "Studio compacto a duas quadras do metrô, com varanda e cozinha equipada.",
			Amenities:    []string{"wifi", "ar-condicionado", "cozinha"},
			Bedrooms:     intPtr(1),
			Bathrooms:    intPtr(1),
			Guests:       intPtr(2),
			Rating:       floatPtr(4.87),
			Coordinates:  &lead.Coordinates{Lat: -23.5570, Lng: -46.6612},
		},
		{
			Title:        "Apartamento pé na areia",
			City:         "Rio de Janeiro",
			Neighborhood: "Avenida Atlântica, 1702, Copacabana",
			PropertyType: lead.PropertyApartment,
			NightlyRate:  480,
			Description:  "Vista frontal para o mar, dois quartos e portaria 24h.",
			Amenities:    []string{"wifi", "vista para o mar", "piscina"},
			Bedrooms:     intPtr(2),
			Bathrooms:    intPtr(2),
			Guests:       intPtr(5),
			Rating:       floatPtr(4.93),
			Coordinates:  &lead.Coordinates{Lat: -22.9711, Lng: -43.1822},
		},
		{
			Title:        "Casa com piscina em Trancoso",
			City:         "Porto Seguro",
			Neighborhood: "Quadrado, Trancoso",
			PropertyType: lead.PropertyHouse,
			NightlyRate:  1350,
			Description:  "Casa de quatro suítes a poucos passos do Quadrado.",
			Amenities:    []string{"piscina", "churrasqueira", "wifi"},
			Bedrooms:     intPtr(4),
			Bathrooms:    intPtr(5),
			Guests:       intPtr(10),
			Rating:       floatPtr(4.98),
			Coordinates:  &lead.Coordinates{Lat: -16.5903, Lng: -39.0936},
		},
		{
			Title:        "Cobertura duplex no Batel",
			City:         "Curitiba",
			Neighborhood: "Avenida do Batel, 1200, Batel",
			PropertyType: lead.PropertyPenthouse,
			NightlyRate:  690,
			Amenities:    []string{"terraço", "jacuzzi"},
			Bedrooms:     intPtr(3),
			Guests:       intPtr(6),
			Coordinates:  &lead.Coordinates{Lat: -25.4420, Lng: -49.2900},
		},
		{
			Title:        "Chalé na serra",
			City:         "Campos do Jordão",
			Neighborhood: "Capivari",
			PropertyType: lead.PropertyChalet,
			NightlyRate:  560,
			Description:  "Chalé com lareira e vista para as montanhas.",
			Amenities:    []string{"lareira", "estacionamento"},
			Bedrooms:     intPtr(2),
			Guests:       intPtr(4),
			Rating:       floatPtr(4.8),
			Coordinates:  &lead.Coordinates{Lat: -22.7396, Lng: -45.5912},
		},
		{
			Title:        "Apartamento no Pelourinho",
			City:         "Salvador",
			Neighborhood: "Largo do Pelourinho",
			PropertyType: lead.PropertyApartment,
			NightlyRate:  310,
			Guests:       intPtr(3),
		},
	}
	for i := range listings {
		listings[i].ID = MakeID(listings[i].Title, listings[i].City)
	}
	return listings
}

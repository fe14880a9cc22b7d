package models

// Airport is a static reference record resolved by ICAO identifier.
type Airport struct {
	Identifier string
	Name       string
	City       string
	Country    string
	Latitude   float64
	Longitude  float64
}

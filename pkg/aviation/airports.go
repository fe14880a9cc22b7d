package aviation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/kabili207/vatsim-listing/pkg/models"
)

// rawAirport matches one entry of the mwgg/Airports dataset
// (https://github.com/mwgg/Airports), keyed by ICAO identifier.
type rawAirport struct {
	ICAO      string  `json:"icao"`
	Name      string  `json:"name"`
	City      string  `json:"city"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Airports resolves ICAO identifiers against a static airport dataset
// loaded once from disk.
type Airports struct {
	path string

	once    sync.Once
	byICAO  map[string]models.Airport
	loadErr error
}

func NewAirports(path string) *Airports {
	return &Airports{path: path}
}

// Load reads the dataset. Safe to call repeatedly; the file is only read
// the first time.
func (a *Airports) Load() error {
	a.once.Do(func() {
		data, err := os.ReadFile(a.path)
		if err != nil {
			a.loadErr = fmt.Errorf("reading airport data: %w", err)
			return
		}

		var raw map[string]rawAirport
		if err := json.Unmarshal(data, &raw); err != nil {
			a.loadErr = fmt.Errorf("parsing airport data: %w", err)
			return
		}

		a.byICAO = make(map[string]models.Airport, len(raw))
		for icao, airport := range raw {
			a.byICAO[icao] = models.Airport{
				Identifier: icao,
				Name:       airport.Name,
				City:       airport.City,
				Country:    airport.Country,
				Latitude:   airport.Latitude,
				Longitude:  airport.Longitude,
			}
		}
		slog.Info("loaded airport data", "path", a.path, "count", len(a.byICAO))
	})
	return a.loadErr
}

// Lookup returns the airport for an ICAO identifier, or nil when unknown.
func (a *Airports) Lookup(identifier string) *models.Airport {
	if err := a.Load(); err != nil {
		return nil
	}
	if airport, ok := a.byICAO[identifier]; ok {
		return &airport
	}
	return nil
}

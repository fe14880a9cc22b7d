package listing

import (
	"strings"
	"testing"
	"time"

	"github.com/kabili207/vatsim-listing/pkg/models"
)

type stubAirports map[string]*models.Airport

func (s stubAirports) Lookup(identifier string) *models.Airport {
	return s[identifier]
}

var testAirports = stubAirports{
	"KJFK": {Identifier: "KJFK", Latitude: 40.6399, Longitude: -73.7787},
	"KLAX": {Identifier: "KLAX", Latitude: 33.9425, Longitude: -118.408},
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func testRenderer() *Renderer {
	r := NewRenderer(testAirports)
	r.Now = fixedClock(time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC))
	return r
}

func TestRenderEmptySections(t *testing.T) {
	r := testRenderer()
	overview := &models.NetworkOverview{LastUpdated: time.Date(2025, 6, 1, 15, 4, 0, 0, time.UTC)}

	got := r.Render(nil, nil, overview)

	if !strings.Contains(got, "No pilots are currently online.") {
		t.Errorf("missing empty flights notice in %q", got)
	}
	if !strings.Contains(got, "No controllers are currently online.") {
		t.Errorf("missing empty controllers notice in %q", got)
	}
	if !strings.Contains(got, "_VATSIM data last updated on 2025-06-01 1504Z_") {
		t.Errorf("missing footer in %q", got)
	}
}

func TestRenderDegradedFooter(t *testing.T) {
	r := testRenderer()

	got := r.Render(nil, nil, nil)
	if !strings.Contains(got, "_Unable to retrieve VATSIM data as of 2025-06-01 1530Z_") {
		t.Errorf("missing degraded footer in %q", got)
	}
	if strings.Contains(got, "last updated") {
		t.Errorf("degraded render should not claim a last-updated time: %q", got)
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	r := testRenderer()
	pilots := []PilotRow{
		{
			DisplayName: "alice",
			IsMember:    true,
			Pilot: models.Pilot{
				Callsign:  "DAL100",
				Latitude:  37.69,
				Longitude: -97.34,
				FlightPlan: &models.FlightPlan{
					AircraftShort: "B738",
					Departure:     "KJFK",
					Arrival:       "KLAX",
				},
			},
		},
	}
	overview := &models.NetworkOverview{LastUpdated: time.Date(2025, 6, 1, 15, 4, 0, 0, time.UTC)}

	first := r.Render(pilots, nil, overview)
	second := r.Render(pilots, nil, overview)
	if first != second {
		t.Error("identical inputs rendered different output")
	}
}

func TestRenderFlightRow(t *testing.T) {
	r := testRenderer()
	pilots := []PilotRow{
		{
			DisplayName: "alice",
			IsMember:    true,
			Pilot: models.Pilot{
				Callsign: "DAL100",
				// Roughly mid-route between KJFK and KLAX.
				Latitude:  37.69,
				Longitude: -97.34,
				FlightPlan: &models.FlightPlan{
					AircraftShort: "B738",
					Departure:     "KJFK",
					Arrival:       "KLAX",
				},
			},
		},
		{
			DisplayName: "bob",
			Pilot:       models.Pilot{Callsign: "N123AB"},
		},
	}
	overview := &models.NetworkOverview{LastUpdated: time.Date(2025, 6, 1, 15, 4, 0, 0, time.UTC)}

	got := r.Render(pilots, nil, overview)

	if !strings.Contains(got, "*alice") {
		t.Errorf("member row should carry the marker: %q", got)
	}
	if !strings.Contains(got, " bob") {
		t.Errorf("non-member row should pad the marker slot: %q", got)
	}
	if !strings.Contains(got, noFlightplanPlaceholder) {
		t.Errorf("pilot without flight plan should show placeholder: %q", got)
	}

	// The dashed separator matches the header width and every data row
	// lines up underneath it.
	lines := strings.Split(got, "\n")
	separatorIdx := -1
	for i, line := range lines {
		if line != "" && strings.Count(line, "-") == len(line) {
			separatorIdx = i
			break
		}
	}
	if separatorIdx < 1 {
		t.Fatalf("no dashed separator in %q", got)
	}
	header := strings.TrimPrefix(lines[separatorIdx-1], "```")
	if len(header) != len(lines[separatorIdx]) {
		t.Errorf("separator length %d does not match header length %d", len(lines[separatorIdx]), len(header))
	}
	if !strings.HasPrefix(header, " User") {
		t.Errorf("header should start with the user column, got %q", header)
	}
}

func TestProgressBarMidFlight(t *testing.T) {
	r := testRenderer()
	pilot := models.Pilot{Latitude: 37.69, Longitude: -97.34}
	fp := &models.FlightPlan{Departure: "KJFK", Arrival: "KLAX"}

	bar := r.progressBar(pilot, fp)
	if len(bar) != progressIntervals {
		t.Fatalf("bar length = %d, want %d", len(bar), progressIntervals)
	}
	filled := strings.Count(bar, progressFilled)
	if filled < 9 || filled > 13 {
		t.Errorf("mid-route flight should be roughly half complete, bar %q", bar)
	}
	if bar != strings.Repeat(progressFilled, filled)+strings.Repeat(progressEmpty, progressIntervals-filled) {
		t.Errorf("filled glyphs should be contiguous from the left, bar %q", bar)
	}
}

func TestProgressBarAtDeparture(t *testing.T) {
	r := testRenderer()
	pilot := models.Pilot{Latitude: 40.6399, Longitude: -73.7787}
	fp := &models.FlightPlan{Departure: "KJFK", Arrival: "KLAX"}

	bar := r.progressBar(pilot, fp)
	if bar != strings.Repeat(progressEmpty, progressIntervals) {
		t.Errorf("flight at the gate should render empty, got %q", bar)
	}
}

func TestProgressBarAtArrival(t *testing.T) {
	r := testRenderer()
	pilot := models.Pilot{Latitude: 33.9425, Longitude: -118.408}
	fp := &models.FlightPlan{Departure: "KJFK", Arrival: "KLAX"}

	bar := r.progressBar(pilot, fp)
	if bar != strings.Repeat(progressFilled, progressIntervals) {
		t.Errorf("arrived flight should render fully filled, got %q", bar)
	}
}

func TestProgressBarZeroLengthRoute(t *testing.T) {
	r := testRenderer()
	pilot := models.Pilot{Latitude: 37.69, Longitude: -97.34}
	fp := &models.FlightPlan{Departure: "KJFK", Arrival: "KJFK"}

	bar := r.progressBar(pilot, fp)
	if bar != strings.Repeat(progressEmpty, progressIntervals) {
		t.Errorf("zero-length route should render empty, got %q", bar)
	}
}

func TestProgressBarUnknownAirport(t *testing.T) {
	r := testRenderer()
	pilot := models.Pilot{Latitude: 37.69, Longitude: -97.34}
	fp := &models.FlightPlan{Departure: "ZZZZ", Arrival: "KLAX"}

	if bar := r.progressBar(pilot, fp); bar != "" {
		t.Errorf("unknown departure should suppress the bar, got %q", bar)
	}
}

func TestRenderControllerRow(t *testing.T) {
	r := testRenderer()
	controllers := []ControllerRow{
		{
			DisplayName: "carol",
			IsMember:    true,
			Controller: models.Controller{
				Callsign:  "BOS_TWR",
				LogonTime: time.Date(2025, 6, 1, 13, 5, 0, 0, time.UTC),
			},
		},
	}
	overview := &models.NetworkOverview{LastUpdated: time.Date(2025, 6, 1, 15, 4, 0, 0, time.UTC)}

	got := r.Render(nil, controllers, overview)

	if !strings.Contains(got, "**Air Traffic Control**") {
		t.Errorf("missing controllers heading in %q", got)
	}
	if !strings.Contains(got, "BOS_TWR") {
		t.Errorf("missing controller callsign in %q", got)
	}
	if !strings.Contains(got, "02:25") {
		t.Errorf("missing online duration in %q", got)
	}
}

func TestRenderSectionToggles(t *testing.T) {
	r := testRenderer()
	overview := &models.NetworkOverview{LastUpdated: time.Date(2025, 6, 1, 15, 4, 0, 0, time.UTC)}

	r.ShowControllers = false
	got := r.Render(nil, nil, overview)
	if strings.Contains(got, "**Air Traffic Control**") {
		t.Errorf("controllers section should be suppressed: %q", got)
	}
	if !strings.Contains(got, "**Flights**") {
		t.Errorf("flights section should remain: %q", got)
	}

	r.ShowControllers = true
	r.ShowFlights = false
	got = r.Render(nil, nil, overview)
	if strings.Contains(got, "**Flights**") {
		t.Errorf("flights section should be suppressed: %q", got)
	}
}

func TestFormatOnlineDuration(t *testing.T) {
	now := time.Date(2025, 6, 1, 15, 30, 0, 0, time.UTC)
	tests := []struct {
		name  string
		since time.Time
		want  string
	}{
		{"zero logon time", time.Time{}, ""},
		{"minutes only", now.Add(-25 * time.Minute), "00:25"},
		{"hours and minutes", now.Add(-(3*time.Hour + 7*time.Minute)), "03:07"},
		{"future logon clamps", now.Add(10 * time.Minute), "00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatOnlineDuration(now, tt.since); got != tt.want {
				t.Errorf("formatOnlineDuration() = %q, want %q", got, tt.want)
			}
		})
	}
}

package listing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kabili207/vatsim-listing/pkg/aviation"
	"github.com/kabili207/vatsim-listing/pkg/models"
)

const (
	// progressIntervals is the number of glyphs in the flight progress bar.
	progressIntervals = 20
	columnSeparator   = 3

	progressFilled = "+"
	progressEmpty  = "-"

	noFlightplanPlaceholder = "No flightplan filed"
	timestampFormat         = "2006-01-02 1504"
)

// AirportLookup resolves an ICAO identifier to a known airport, or nil.
type AirportLookup interface {
	Lookup(identifier string) *models.Airport
}

// Renderer formats correlated rows into the fixed-width listing message.
// Given identical inputs and an identical clock it always produces an
// identical string.
type Renderer struct {
	Airports AirportLookup
	// Now supplies the render-time clock used for controller online
	// durations and the degraded footer.
	Now func() time.Time

	ShowFlights     bool
	ShowControllers bool
}

func NewRenderer(airports AirportLookup) *Renderer {
	return &Renderer{
		Airports:        airports,
		Now:             time.Now,
		ShowFlights:     true,
		ShowControllers: true,
	}
}

// column describes one fixed-width table column. A cell occupies
// width+padding characters; left-aligned cells pad on the right.
type column struct {
	heading    string
	width      int
	padding    int
	alignRight bool
}

func newColumn(heading string, maxLength, padding int) column {
	width := len(heading)
	if maxLength > width {
		width = maxLength
	}
	return column{heading: heading, width: width, padding: padding}
}

func newRightColumn(heading string, maxLength, padding int) column {
	c := newColumn(heading, maxLength, padding)
	c.alignRight = true
	return c
}

func (c column) cell(value string) string {
	if c.alignRight {
		return fmt.Sprintf("%*s", c.width+c.padding, value)
	}
	return fmt.Sprintf("%-*s", c.width+c.padding, value)
}

func maxLength(values []string) int {
	max := 0
	for _, v := range values {
		if len(v) > max {
			max = len(v)
		}
	}
	return max
}

func memberMarker(isMember bool) string {
	if isMember {
		return "*"
	}
	return " "
}

// Render produces the full listing message. The overview is nil when no
// snapshot has ever been fetched; the footer then reports the outage
// instead of a last-updated time.
func (r *Renderer) Render(pilots []PilotRow, controllers []ControllerRow, overview *models.NetworkOverview) string {
	now := r.Now()
	var b strings.Builder

	if r.ShowFlights {
		r.renderFlights(&b, pilots)
	}
	if r.ShowControllers {
		r.renderControllers(&b, controllers, now)
	}

	if overview != nil {
		fmt.Fprintf(&b, "_VATSIM data last updated on %sZ_", overview.LastUpdated.UTC().Format(timestampFormat))
	} else {
		fmt.Fprintf(&b, "_Unable to retrieve VATSIM data as of %sZ_", now.UTC().Format(timestampFormat))
	}
	return b.String()
}

func (r *Renderer) renderFlights(b *strings.Builder, rows []PilotRow) {
	b.WriteString("**Flights**\n```")

	if len(rows) == 0 {
		b.WriteString("No pilots are currently online.\n")
		b.WriteString("```\n")
		return
	}

	names := make([]string, len(rows))
	callsigns := make([]string, len(rows))
	aircraft := make([]string, len(rows))
	for i, row := range rows {
		names[i] = row.DisplayName
		callsigns[i] = row.Pilot.Callsign
		if fp := row.Pilot.FlightPlan; fp != nil {
			aircraft[i] = fp.AircraftShort
		}
	}

	// The user column reserves one character for the member marker; the
	// departure column reserves the progress bar plus one space per side.
	userCol := newColumn(" User", maxLength(names)+1, columnSeparator)
	callsignCol := newColumn("ID", maxLength(callsigns), columnSeparator)
	aircraftCol := newColumn("A/C", maxLength(aircraft), columnSeparator)
	departureCol := newColumn("DEP", 4, 1+progressIntervals+1)
	arrivalCol := newRightColumn("ARR", 4, 0)

	header := userCol.cell(userCol.heading) +
		callsignCol.cell(callsignCol.heading) +
		aircraftCol.cell(aircraftCol.heading) +
		departureCol.cell(departureCol.heading) +
		arrivalCol.cell(arrivalCol.heading)

	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("-", len(header)) + "\n")

	for _, row := range rows {
		line := userCol.cell(memberMarker(row.IsMember) + row.DisplayName)
		line += callsignCol.cell(row.Pilot.Callsign)

		var aircraftShort string
		if fp := row.Pilot.FlightPlan; fp != nil {
			aircraftShort = fp.AircraftShort
		}
		line += aircraftCol.cell(aircraftShort)

		if fp := row.Pilot.FlightPlan; fp != nil && fp.Departure != "" {
			departure := fmt.Sprintf("%-5s", fp.Departure)
			departure += r.progressBar(row.Pilot, fp)
			line += departureCol.cell(departure)
			line += arrivalCol.cell(fp.Arrival)
		} else {
			line += departureCol.cell(noFlightplanPlaceholder)
		}

		b.WriteString(line + "\n")
	}

	b.WriteString("```\n")
}

// progressBar renders the fixed-width completion bar, or an empty string
// when either airport cannot be resolved.
func (r *Renderer) progressBar(pilot models.Pilot, fp *models.FlightPlan) string {
	if r.Airports == nil {
		return ""
	}
	departure := r.Airports.Lookup(fp.Departure)
	arrival := r.Airports.Lookup(fp.Arrival)
	if departure == nil || arrival == nil {
		return ""
	}

	remaining := aviation.GreatCircleKm(pilot.Latitude, pilot.Longitude, arrival.Latitude, arrival.Longitude)
	total := aviation.GreatCircleKm(departure.Latitude, departure.Longitude, arrival.Latitude, arrival.Longitude)
	if total == 0 {
		return strings.Repeat(progressEmpty, progressIntervals)
	}
	percentComplete := 100 * math.Abs(total-remaining) / total

	var bar strings.Builder
	for i := 0; i < progressIntervals; i++ {
		floor := 100 * float64(i) / progressIntervals

		// Percentages below the noise threshold render empty; near-complete
		// flights render fully filled to absorb floating-point error.
		if (percentComplete > 0.5 && percentComplete >= floor) || percentComplete >= 99.5 {
			bar.WriteString(progressFilled)
		} else {
			bar.WriteString(progressEmpty)
		}
	}
	return bar.String()
}

func (r *Renderer) renderControllers(b *strings.Builder, rows []ControllerRow, now time.Time) {
	b.WriteString("**Air Traffic Control**\n```")

	if len(rows) == 0 {
		b.WriteString("No controllers are currently online.\n")
		b.WriteString("```\n")
		return
	}

	names := make([]string, len(rows))
	callsigns := make([]string, len(rows))
	for i, row := range rows {
		names[i] = row.DisplayName
		callsigns[i] = row.Controller.Callsign
	}

	userCol := newColumn(" User", maxLength(names)+1, columnSeparator)
	callsignCol := newColumn("ID", maxLength(callsigns), columnSeparator)
	onlineCol := newColumn("Online", 6, 0)

	header := userCol.cell(userCol.heading) +
		callsignCol.cell(callsignCol.heading) +
		onlineCol.cell(onlineCol.heading)

	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("-", len(header)) + "\n")

	for _, row := range rows {
		line := userCol.cell(memberMarker(row.IsMember) + row.DisplayName)
		line += callsignCol.cell(row.Controller.Callsign)
		line += onlineCol.cell(formatOnlineDuration(now, row.Controller.LogonTime))
		b.WriteString(line + "\n")
	}

	b.WriteString("```\n")
}

// formatOnlineDuration renders elapsed time since logon as HH:MM.
func formatOnlineDuration(now, since time.Time) string {
	if since.IsZero() {
		return ""
	}
	elapsed := now.Sub(since)
	if elapsed < 0 {
		elapsed = 0
	}
	return fmt.Sprintf("%02d:%02d", int(elapsed.Hours()), int(elapsed.Minutes())%60)
}

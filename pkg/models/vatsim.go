package models

import "time"

// NetworkOverview is the `general` section of the VATSIM v3 data feed.
type NetworkOverview struct {
	Version     int       `json:"version"`
	Connections int       `json:"connected_clients"`
	Users       int       `json:"unique_users"`
	LastUpdated time.Time `json:"update_timestamp"`
}

// FlightPlan is a pilot's filed flight plan as published by the feed.
type FlightPlan struct {
	FlightRules   string `json:"flight_rules"`
	Aircraft      string `json:"aircraft"`
	AircraftFAA   string `json:"aircraft_faa"`
	AircraftShort string `json:"aircraft_short"`
	Departure     string `json:"departure"`
	Arrival       string `json:"arrival"`
	Alternate     string `json:"alternate"`
	CruiseSpeed   string `json:"cruise_tas"`
	Altitude      string `json:"altitude"`
	EnrouteTime   string `json:"enroute_time"`
	Route         string `json:"route"`
}

// Pilot is a connected pilot session.
type Pilot struct {
	CID         int         `json:"cid"`
	Name        string      `json:"name"`
	Server      string      `json:"server"`
	Callsign    string      `json:"callsign"`
	Latitude    float64     `json:"latitude"`
	Longitude   float64     `json:"longitude"`
	Altitude    int         `json:"altitude"`
	Groundspeed int         `json:"groundspeed"`
	FlightPlan  *FlightPlan `json:"flight_plan"`
	LogonTime   time.Time   `json:"logon_time"`
}

// Controller is a connected controller session. ATIS and other text-only
// broadcast stations appear in the feed as controllers too; they are
// filtered out downstream by callsign.
type Controller struct {
	CID       int       `json:"cid"`
	Name      string    `json:"name"`
	Callsign  string    `json:"callsign"`
	Frequency string    `json:"frequency"`
	Facility  int       `json:"facility"`
	LogonTime time.Time `json:"logon_time"`
}

// NetworkSnapshot is one fetched, immutable copy of the network state.
// Snapshots are replaced wholesale on refresh and never mutated in place.
type NetworkSnapshot struct {
	Overview    NetworkOverview
	Pilots      []Pilot
	Controllers []Controller
	FetchedAt   time.Time
}

package listing

import (
	"sort"
	"strings"

	"github.com/kabili207/vatsim-listing/pkg/models"
)

// PilotRow pairs a linked user with their live pilot connection.
type PilotRow struct {
	DisplayName string
	// IsMember marks links whose Discord account is currently a guild member.
	IsMember bool
	Pilot    models.Pilot
}

// ControllerRow pairs a linked user with their live controller connection.
type ControllerRow struct {
	DisplayName string
	IsMember    bool
	Controller  models.Controller
}

// Correlate joins stored user links, the current guild membership and the
// network snapshot into the row sets the renderer consumes. It performs no
// I/O and is deterministic over its inputs. A nil snapshot yields empty
// row sets.
func Correlate(links []models.UserLink, members []models.MemberRecord, snapshot *models.NetworkSnapshot) ([]PilotRow, []ControllerRow) {
	if snapshot == nil {
		return nil, nil
	}

	membersByID := make(map[string]models.MemberRecord, len(members))
	for _, m := range members {
		membersByID[m.ID] = m
	}

	pilotsByCID := make(map[int]models.Pilot, len(snapshot.Pilots))
	for _, p := range snapshot.Pilots {
		if _, ok := pilotsByCID[p.CID]; !ok {
			pilotsByCID[p.CID] = p
		}
	}

	controllersByCID := make(map[int]models.Controller, len(snapshot.Controllers))
	for _, c := range snapshot.Controllers {
		if !isStaffedPosition(c.Callsign) {
			continue
		}
		if _, ok := controllersByCID[c.CID]; !ok {
			controllersByCID[c.CID] = c
		}
	}

	var pilotRows []PilotRow
	var controllerRows []ControllerRow

	for _, link := range links {
		var member models.MemberRecord
		var isMember bool
		if link.DiscordID != "" {
			member, isMember = membersByID[link.DiscordID]
		}

		name := member.DisplayName
		if name == "" {
			name = link.Username
		}

		if pilot, ok := pilotsByCID[link.VatsimID]; ok {
			pilotRows = append(pilotRows, PilotRow{
				DisplayName: name,
				IsMember:    isMember,
				Pilot:       pilot,
			})
		}
		if controller, ok := controllersByCID[link.VatsimID]; ok {
			controllerRows = append(controllerRows, ControllerRow{
				DisplayName: name,
				IsMember:    isMember,
				Controller:  controller,
			})
		}
	}

	sort.Slice(pilotRows, func(i, j int) bool {
		return lessDisplayName(pilotRows[i].DisplayName, pilotRows[j].DisplayName)
	})
	sort.Slice(controllerRows, func(i, j int) bool {
		return lessDisplayName(controllerRows[i].DisplayName, controllerRows[j].DisplayName)
	})

	return pilotRows, controllerRows
}

// isStaffedPosition reports whether a controller callsign denotes a staffed
// sector position rather than an ATIS or other text-only broadcast.
func isStaffedPosition(callsign string) bool {
	return strings.Contains(callsign, "_") &&
		!strings.HasSuffix(strings.ToLower(callsign), "_atis")
}

// lessDisplayName orders names case-insensitively, falling back to a byte
// compare so equal-folded names still sort deterministically.
func lessDisplayName(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}

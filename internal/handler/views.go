package handler

import (
	"slices"
	"strings"

	"hzarena/internal/app/area"
	"hzarena/internal/app/user"
)

// OccupantInfo is the public view of an occupant.
type OccupantInfo struct {
	Name     string        `json:"name"`
	Identity user.Identity `json:"identity"`
	Away     bool          `json:"away"`
	Room     string        `json:"room,omitempty"`
}

// AreaInfo is the public view of an area.
type AreaInfo struct {
	Title         string         `json:"title"`
	OccupantCount int            `json:"occupantCount"`
	MaxOccupants  int            `json:"maxOccupants"`
	HasPassword   bool           `json:"hasPassword"`
	GuestsAllowed bool           `json:"guestsAllowed"`
	Observers     int            `json:"observers"`
	Rooms         []string       `json:"rooms,omitempty"`
	Creator       string         `json:"creator,omitempty"`
	Occupants     []OccupantInfo `json:"occupants,omitempty"`
}

func newOccupantInfo(a *area.Area, o *area.Occupant) OccupantInfo {
	info := OccupantInfo{
		Name:     o.DisplayName(),
		Identity: o.Identity(),
		Away:     o.IsAway(),
	}
	if r := o.Room(); r != nil && r != a.Room {
		info.Room = r.Title()
	}
	return info
}

// newAreaInfo summarises a. With detail it also lists the occupants by name.
func newAreaInfo(a *area.Area, detail bool) AreaInfo {
	info := AreaInfo{
		Title:         a.Title(),
		OccupantCount: a.OccupantCount(),
		MaxOccupants:  a.MaxOccupants(),
		HasPassword:   a.HasPassword(),
		GuestsAllowed: a.GuestsAllowed(),
		Observers:     a.ObserverCount(),
		Rooms:         a.RoomTitles(),
	}
	if creator := a.Creator(); creator != nil {
		info.Creator = creator.Name()
	}

	if detail {
		for _, o := range a.Occupants() {
			info.Occupants = append(info.Occupants, newOccupantInfo(a, o))
		}
		slices.SortFunc(info.Occupants, func(x, y OccupantInfo) int {
			return strings.Compare(x.Name, y.Name)
		})
	}
	return info
}

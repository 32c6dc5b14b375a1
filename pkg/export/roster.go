package export

import (
	"strings"
)

// RosterRow is one room line in an exported roster sheet.
type RosterRow struct {
	RoomID     string
	RoomName   string
	Supervisor string
	Observers  []string
	Status     string
	Origin     string
}

// RosterSheet is the printable view of a date/session roster set.
type RosterSheet struct {
	Date    string
	Session string
	Rows    []RosterRow
}

var rosterHeaders = []string{"Room", "Name", "Supervisor", "Observers", "Status", "Origin"}

func (s RosterSheet) title() string {
	return "Invigilation roster " + s.Date + " " + s.Session
}

func (r RosterRow) record() []string {
	supervisor := r.Supervisor
	if supervisor == "" {
		supervisor = "-"
	}
	observers := strings.Join(r.Observers, " ")
	if observers == "" {
		observers = "-"
	}
	return []string{r.RoomID, r.RoomName, supervisor, observers, r.Status, r.Origin}
}

package tracker

import "time"

type WeightUnit string

const (
	UnitKilograms WeightUnit = "kg"
	UnitPounds    WeightUnit = "lb"
)

// Set is a single entry within a workout session. Reps and Weight are
// never negative; invalid input falls back to 0 on normalization.
type Set struct {
	ID     string     `json:"id"`
	Reps   int        `json:"reps"`
	Weight float64    `json:"weight"`
	Unit   WeightUnit `json:"unit"`
}

// Session keeps its sets in insertion order (chronological entry order).
type Session struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
	Sets []Set     `json:"sets"`
}

// Machine is a gym machine or exercise. Sessions are kept newest first.
// Photo holds raw image bytes; PhotoUpdatedAt is unix millis of the last
// photo change and drives the incremental upload to the backup.
type Machine struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Groups         []MuscleGroup `json:"groups"`
	Photo          []byte        `json:"photo,omitempty"`
	PhotoMime      string        `json:"photoMime,omitempty"`
	PhotoUpdatedAt int64         `json:"photoUpdatedAt"`
	Sessions       []Session     `json:"sessions"`
}

func (m *Machine) HasPhoto() bool {
	return len(m.Photo) > 0
}

// Snapshot is the complete serializable application state: the full list
// of machines plus the unix-milli timestamp of the most recent local
// mutation. The same document shape is written to the local store and to
// the remote backup file.
type Snapshot struct {
	Machines  []Machine `json:"machines"`
	UpdatedAt int64     `json:"updatedAt"`
}

func (s Snapshot) Empty() bool {
	return len(s.Machines) == 0
}

func (s Snapshot) FindMachine(id string) *Machine {
	for i := range s.Machines {
		if s.Machines[i].ID == id {
			return &s.Machines[i]
		}
	}
	return nil
}

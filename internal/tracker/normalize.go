package tracker

import (
	"time"

	"github.com/google/uuid"
)

// NormalizeSet fills a missing id and clamps invalid numeric input to 0.
// An unknown weight unit falls back to kilograms.
func NormalizeSet(s Set) Set {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Reps < 0 {
		s.Reps = 0
	}
	if s.Weight < 0 || s.Weight != s.Weight { // NaN guard
		s.Weight = 0
	}
	if s.Unit != UnitPounds {
		s.Unit = UnitKilograms
	}
	return s
}

func NormalizeSession(s Session) Session {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Date.IsZero() {
		s.Date = time.Now()
	}
	sets := make([]Set, 0, len(s.Sets))
	for _, set := range s.Sets {
		sets = append(sets, NormalizeSet(set))
	}
	s.Sets = sets
	return s
}

func NormalizeMachine(m Machine) Machine {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.Groups = NormalizeGroups(m.Groups)
	if !m.HasPhoto() {
		m.Photo = nil
		m.PhotoMime = ""
		m.PhotoUpdatedAt = 0
	}
	sessions := make([]Session, 0, len(m.Sessions))
	for _, session := range m.Sessions {
		sessions = append(sessions, NormalizeSession(session))
	}
	m.Sessions = sessions
	return m
}

// NormalizeSnapshot is applied to every snapshot coming from outside the
// in-memory model: the local store on startup and the remote document on
// restore. Corrupt entries are repaired instead of rejected.
func NormalizeSnapshot(s Snapshot) Snapshot {
	machines := make([]Machine, 0, len(s.Machines))
	for _, m := range s.Machines {
		machines = append(machines, NormalizeMachine(m))
	}
	s.Machines = machines
	if s.UpdatedAt < 0 {
		s.UpdatedAt = 0
	}
	return s
}

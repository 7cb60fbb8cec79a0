package tracker

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMachineNotFound = errors.New("machine not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrSetNotFound     = errors.New("set not found")
)

// Tracker owns the in-memory application state. All mutations funnel
// through it, stamp the snapshot's UpdatedAt and mark the change tracker
// dirty. A single mutex serializes mutators against snapshot reads; the
// restore path replaces the whole snapshot through the same lock.
type Tracker struct {
	mu       sync.Mutex
	snapshot Snapshot
	changes  ChangeTracker

	// NowFunc is injectable for tests.
	NowFunc func() time.Time
}

func New(initial Snapshot) *Tracker {
	return &Tracker{
		snapshot: NormalizeSnapshot(initial),
		NowFunc:  time.Now,
	}
}

func (t *Tracker) Changes() *ChangeTracker {
	return &t.changes
}

// Snapshot returns a copy safe to serialize outside the lock: machines,
// sessions and sets all get fresh backing arrays, so a concurrent
// mutator (set updates write session elements in place) can never write
// under the encoder. Photo bytes and groups are shared, those are only
// ever replaced wholesale.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	machines := make([]Machine, len(t.snapshot.Machines))
	for i, machine := range t.snapshot.Machines {
		sessions := make([]Session, len(machine.Sessions))
		for j, session := range machine.Sessions {
			sets := make([]Set, len(session.Sets))
			copy(sets, session.Sets)
			session.Sets = sets
			sessions[j] = session
		}
		machine.Sessions = sessions
		machines[i] = machine
	}
	return Snapshot{
		Machines:  machines,
		UpdatedAt: t.snapshot.UpdatedAt,
	}
}

func (t *Tracker) IsDirty() bool {
	return t.changes.IsDirty()
}

func (t *Tracker) ClearDirty() {
	t.changes.Clear()
}

// ClearDirtyThrough marks the model clean only if nothing mutated after
// the given snapshot timestamp.
func (t *Tracker) ClearDirtyThrough(updatedAt int64) {
	t.changes.ClearThrough(updatedAt)
}

func (t *Tracker) LastUpdatedAt() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot.UpdatedAt
}

// Replace swaps the entire model, used when a remote backup wins the
// conflict resolution. The replaced state keeps the remote timestamp and
// is not marked dirty: it was just downloaded, there is nothing to push.
func (t *Tracker) Replace(s Snapshot) {
	t.mu.Lock()
	t.snapshot = NormalizeSnapshot(s)
	t.mu.Unlock()
	t.changes.Clear()
}

func (t *Tracker) nowMillis() int64 {
	return t.NowFunc().UnixMilli()
}

func (t *Tracker) markMutated() {
	now := t.nowMillis()
	t.snapshot.UpdatedAt = now
	t.changes.MarkDirty(now)
}

// AddMachine prepends a new machine, mirroring newest-first display order.
func (t *Tracker) AddMachine(name string, groups []MuscleGroup) Machine {
	t.mu.Lock()
	defer t.mu.Unlock()

	machine := NormalizeMachine(Machine{
		ID:       uuid.NewString(),
		Name:     name,
		Groups:   groups,
		Sessions: []Session{},
	})
	t.snapshot.Machines = append([]Machine{machine}, t.snapshot.Machines...)
	t.markMutated()
	return machine
}

func (t *Tracker) RemoveMachine(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	machines := make([]Machine, 0, len(t.snapshot.Machines))
	found := false
	for _, m := range t.snapshot.Machines {
		if m.ID == id {
			found = true
			continue
		}
		machines = append(machines, m)
	}
	if !found {
		return ErrMachineNotFound
	}
	t.snapshot.Machines = machines
	t.markMutated()
	return nil
}

func (t *Tracker) RenameMachine(id, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	machine := t.snapshot.FindMachine(id)
	if machine == nil {
		return ErrMachineNotFound
	}
	machine.Name = name
	t.markMutated()
	return nil
}

// SetPhoto attaches photo bytes to a machine and stamps PhotoUpdatedAt,
// which makes the photo eligible for the next incremental upload.
func (t *Tracker) SetPhoto(id string, photo []byte, mime string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	machine := t.snapshot.FindMachine(id)
	if machine == nil {
		return ErrMachineNotFound
	}
	machine.Photo = photo
	machine.PhotoMime = mime
	machine.PhotoUpdatedAt = t.nowMillis()
	t.markMutated()
	return nil
}

// RestorePhoto applies a photo downloaded from the remote backup. Unlike
// SetPhoto it does not mark the model dirty: the photo just came from the
// backup, there is nothing new to push.
func (t *Tracker) RestorePhoto(id string, photo []byte, mime string, updatedAt int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	machine := t.snapshot.FindMachine(id)
	if machine == nil {
		return ErrMachineNotFound
	}
	machine.Photo = photo
	machine.PhotoMime = mime
	machine.PhotoUpdatedAt = updatedAt
	return nil
}

func (t *Tracker) RemovePhoto(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	machine := t.snapshot.FindMachine(id)
	if machine == nil {
		return ErrMachineNotFound
	}
	machine.Photo = nil
	machine.PhotoMime = ""
	machine.PhotoUpdatedAt = 0
	t.markMutated()
	return nil
}

// AddSession prepends a new session with one empty set ready for input.
func (t *Tracker) AddSession(machineID string) (Session, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	machine := t.snapshot.FindMachine(machineID)
	if machine == nil {
		return Session{}, ErrMachineNotFound
	}
	session := Session{
		ID:   uuid.NewString(),
		Date: t.NowFunc(),
		Sets: []Set{NormalizeSet(Set{})},
	}
	machine.Sessions = append([]Session{session}, machine.Sessions...)
	t.markMutated()
	return session, nil
}

func (t *Tracker) RemoveSession(machineID, sessionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	machine := t.snapshot.FindMachine(machineID)
	if machine == nil {
		return ErrMachineNotFound
	}
	sessions := make([]Session, 0, len(machine.Sessions))
	found := false
	for _, s := range machine.Sessions {
		if s.ID == sessionID {
			found = true
			continue
		}
		sessions = append(sessions, s)
	}
	if !found {
		return ErrSessionNotFound
	}
	machine.Sessions = sessions
	t.markMutated()
	return nil
}

func (t *Tracker) findSession(machineID, sessionID string) (*Session, error) {
	machine := t.snapshot.FindMachine(machineID)
	if machine == nil {
		return nil, ErrMachineNotFound
	}
	for i := range machine.Sessions {
		if machine.Sessions[i].ID == sessionID {
			return &machine.Sessions[i], nil
		}
	}
	return nil, ErrSessionNotFound
}

func (t *Tracker) AddSet(machineID, sessionID string) (Set, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, err := t.findSession(machineID, sessionID)
	if err != nil {
		return Set{}, err
	}
	set := NormalizeSet(Set{})
	session.Sets = append(session.Sets, set)
	t.markMutated()
	return set, nil
}

func (t *Tracker) UpdateSet(machineID, sessionID string, set Set) (Set, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, err := t.findSession(machineID, sessionID)
	if err != nil {
		return Set{}, err
	}
	for i := range session.Sets {
		if session.Sets[i].ID != set.ID {
			continue
		}
		updated := NormalizeSet(set)
		session.Sets[i] = updated
		t.markMutated()
		return updated, nil
	}
	return Set{}, ErrSetNotFound
}

func (t *Tracker) RemoveSet(machineID, sessionID, setID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	session, err := t.findSession(machineID, sessionID)
	if err != nil {
		return err
	}
	sets := make([]Set, 0, len(session.Sets))
	found := false
	for _, s := range session.Sets {
		if s.ID == setID {
			found = true
			continue
		}
		sets = append(sets, s)
	}
	if !found {
		return ErrSetNotFound
	}
	session.Sets = sets
	t.markMutated()
	return nil
}

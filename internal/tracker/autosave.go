package tracker

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/2beens/gymtracker/internal/metrics"
)

// AutosaveInterval is how often dirty state is flushed to the local
// store. Overridable in tests.
var AutosaveInterval = 30 * time.Second

//go:generate mockgen -source=autosave.go -destination=autosave_mocks_test.go -package=tracker_test

type snapshotSaver interface {
	SaveSnapshot(ctx context.Context, s Snapshot) error
}

// Autosaver periodically flushes dirty state to the local store. A failed
// save is logged and reported, the dirty flag stays set and the next tick
// retries; the in-memory model remains the source of truth throughout.
type Autosaver struct {
	tracker *Tracker
	saver   snapshotSaver
	metrics *metrics.Manager

	// Status receives human readable autosave status updates.
	Status func(status string)
	// OnSaved fires after every successful save, it is the hook the sync
	// engine uses for its opportunistic trigger.
	OnSaved func()

	done chan struct{}
}

func NewAutosaver(tracker *Tracker, saver snapshotSaver, metricsManager *metrics.Manager) *Autosaver {
	return &Autosaver{
		tracker: tracker,
		saver:   saver,
		metrics: metricsManager,
		Status:  func(string) {},
		OnSaved: func() {},
		done:    make(chan struct{}),
	}
}

func (a *Autosaver) Start(ctx context.Context) {
	go func() {
		defer close(a.done)
		ticker := time.NewTicker(AutosaveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				// one last flush so a clean shutdown loses nothing
				_ = a.SaveNow(context.Background())
				return
			case <-ticker.C:
				if a.tracker.IsDirty() {
					_ = a.SaveNow(ctx)
				}
			}
		}
	}()
}

// Wait blocks until the autosave loop has exited.
func (a *Autosaver) Wait() {
	<-a.done
}

// SaveNow persists the current snapshot. The dirty flag is cleared only
// on success, and only up to the snapshot that was actually written: an
// edit landing while the save is in flight stays dirty for the next
// flush. On failure the flag stays set and the next tick retries.
func (a *Autosaver) SaveNow(ctx context.Context) error {
	snapshot := a.tracker.Snapshot()
	if err := a.saver.SaveSnapshot(ctx, snapshot); err != nil {
		log.Warnf("failed to save state: %s", err)
		a.Status("Save failed")
		return err
	}
	a.tracker.ClearDirtyThrough(snapshot.UpdatedAt)
	a.metrics.CounterLocalSaves.Inc()
	a.Status("Saved " + time.Now().Format("15:04"))
	a.OnSaved()
	return nil
}

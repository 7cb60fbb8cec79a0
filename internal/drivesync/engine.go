package drivesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/2beens/gymtracker/internal/metrics"
	"github.com/2beens/gymtracker/internal/store"
	"github.com/2beens/gymtracker/internal/tracker"
)

const (
	// FolderName is the well-known remote container, resolved by
	// lookup-or-create.
	FolderName = "GymTracker"
	// StateFileName is the fixed name of the remote state document.
	StateFileName = "gym-tracker-state.json"

	photoFilePrefix = "machine-"
)

var (
	// SyncMinInterval is the minimum gap between two opportunistic
	// syncs, bounding remote API call volume under frequent edits.
	SyncMinInterval = 60 * time.Second
	// SyncSettleDelay is how long to wait after a connect before the
	// first background sync attempt.
	SyncSettleDelay = 60 * time.Second
	// SyncInterval is the period of the background sync timer.
	SyncInterval = 30 * time.Second
)

// ErrAuthRequired is returned when a non-interactive sync finds no valid
// cached token. No network I/O is attempted in that case.
var ErrAuthRequired = errors.New("sign-in required to sync")

type model interface {
	Snapshot() tracker.Snapshot
	IsDirty() bool
	LastUpdatedAt() int64
	Replace(s tracker.Snapshot)
	RestorePhoto(id string, photo []byte, mime string, updatedAt int64) error
}

type stateStore interface {
	SaveSnapshot(ctx context.Context, s tracker.Snapshot) error
	LoadSyncState(ctx context.Context) (store.SyncState, error)
	SaveSyncState(ctx context.Context, state store.SyncState) error
	AutoSync(ctx context.Context) bool
}

type authManager interface {
	Acquire(ctx context.Context, interactive bool) (string, error)
	Valid() bool
	Invalidate()
	PreviouslyConnected(ctx context.Context) bool
	Disconnect(ctx context.Context) error
}

type snapshotFlusher interface {
	SaveNow(ctx context.Context) error
}

// Engine reconciles the local model with its Google Drive backup. One
// sync runs at a time (single-flight); callers arriving while one is in
// flight return immediately without effect, the next opportunistic
// trigger catches up. There is no cancellation: an in-flight sync runs to
// completion or failure.
type Engine struct {
	transport Transport
	auth      authManager
	model     model
	store     stateStore
	flusher   snapshotFlusher
	metrics   *metrics.Manager

	syncing       atomic.Bool
	loginRequired atomic.Bool
	lastSyncMs    atomic.Int64

	// bookkeeping is mutated only by sync/restore, never concurrently
	// with itself thanks to the single-flight guard, but restore can
	// overlap a timer-driven sync, hence the lock.
	mu    sync.Mutex
	state store.SyncState

	scheduler scheduler

	// Status receives human readable sync status updates for the UI.
	Status func(status string)
	// Gate is flipped when sign-in becomes required or satisfied.
	Gate func(required bool)

	// NowFunc is injectable for tests.
	NowFunc func() time.Time
}

func NewEngine(
	transport Transport,
	authMgr authManager,
	trackerModel model,
	stateStore stateStore,
	flusher snapshotFlusher,
	metricsManager *metrics.Manager,
) *Engine {
	e := &Engine{
		transport: transport,
		auth:      authMgr,
		model:     trackerModel,
		store:     stateStore,
		flusher:   flusher,
		metrics:   metricsManager,
		state:     store.NewSyncState(),
		Status:    func(string) {},
		Gate:      func(bool) {},
		NowFunc:   time.Now,
	}
	e.loginRequired.Store(true)
	return e
}

// LoadBookkeeping pulls persisted Drive bookkeeping into memory. Called
// once on startup; a failure just means clean remote lookups.
func (e *Engine) LoadBookkeeping(ctx context.Context) {
	state, err := e.store.LoadSyncState(ctx)
	if err != nil {
		log.Warnf("failed to load drive bookkeeping: %s", err)
		return
	}
	e.mu.Lock()
	e.state = state
	e.mu.Unlock()
}

func (e *Engine) LoginRequired() bool {
	return e.loginRequired.Load()
}

func (e *Engine) LastSync() time.Time {
	ms := e.lastSyncMs.Load()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

func (e *Engine) setLoginRequired(required bool) {
	e.loginRequired.Store(required)
	e.Gate(required)
}

// Connect acquires authorization, restores state from the backup and
// starts the background sync timer. Non-interactive connects are the
// silent startup reconnection path and never surface a prompt.
func (e *Engine) Connect(ctx context.Context, interactive bool) error {
	e.Status("Connecting...")

	if _, err := e.auth.Acquire(ctx, interactive); err != nil {
		e.connectFailed(ctx, err)
		return err
	}

	e.setLoginRequired(false)
	e.Status("Connected to Google Drive")

	if err := e.Restore(ctx, interactive); err != nil {
		e.connectFailed(ctx, err)
		return err
	}

	e.scheduler.start(func(schedCtx context.Context) {
		e.MaybeSync(schedCtx)
	})

	return nil
}

func (e *Engine) connectFailed(ctx context.Context, err error) {
	log.Warnf("drive sign-in failed: %s", err)
	e.auth.Invalidate()
	e.scheduler.stop()
	e.setLoginRequired(true)
	e.Status("Sign-in required")
}

// Disconnect invalidates the session and wipes all remote bookkeeping.
// An in-flight sync is not aborted; its next network call fails on the
// invalidated token.
func (e *Engine) Disconnect(ctx context.Context) error {
	e.scheduler.stop()

	if err := e.auth.Disconnect(ctx); err != nil {
		return err
	}

	e.mu.Lock()
	e.state = store.NewSyncState()
	e.mu.Unlock()
	e.lastSyncMs.Store(0)

	e.setLoginRequired(true)
	e.Status("Not connected")
	return nil
}

// MaybeSync is the opportunistic trigger, called after local saves and
// from the background timer. It no-ops unless all gates pass: auto sync
// on, nothing in flight, minimum interval elapsed, a valid token cached,
// and something local actually newer than the last successful sync.
func (e *Engine) MaybeSync(ctx context.Context) {
	if !e.store.AutoSync(ctx) {
		return
	}
	if e.syncing.Load() {
		return
	}
	now := e.NowFunc().UnixMilli()
	lastSync := e.lastSyncMs.Load()
	if now-lastSync < SyncMinInterval.Milliseconds() {
		return
	}
	if !e.auth.Valid() {
		return
	}
	if !e.model.IsDirty() && lastSync > 0 && e.model.LastUpdatedAt() <= lastSync {
		return
	}

	if err := e.Sync(ctx, false); err != nil {
		log.Warnf("opportunistic sync failed: %s", err)
	}
}

// Sync uploads the state document and any photos newer than their
// watermark. Single-flight: a call while another sync is in progress is
// a no-op. Any step's failure aborts the remaining steps and conservatively
// re-arms the sign-in gate (the failure may well be credential-related).
func (e *Engine) Sync(ctx context.Context, interactive bool) error {
	if !e.syncing.CompareAndSwap(false, true) {
		return nil
	}
	defer e.syncing.Store(false)

	if !interactive && !e.auth.Valid() {
		e.Status("Sign-in required to sync")
		e.setLoginRequired(true)
		return ErrAuthRequired
	}

	e.Status("Syncing...")
	start := e.NowFunc()

	err := e.doSync(ctx, interactive)
	e.metrics.HistSyncDuration.Observe(e.NowFunc().Sub(start).Seconds())

	if err != nil {
		log.Warnf("drive sync failed: %s", err)
		e.Status("Sync failed")
		e.setLoginRequired(true)
		e.metrics.CounterSyncFailures.Inc()
		return err
	}

	e.lastSyncMs.Store(e.NowFunc().UnixMilli())
	e.metrics.CounterSyncs.Inc()
	e.Status("Backup uploaded " + e.NowFunc().Format("2 Jan 2006, 15:04"))
	return nil
}

func (e *Engine) doSync(ctx context.Context, interactive bool) error {
	// flush pending edits first so the uploaded document is current
	if e.model.IsDirty() {
		if err := e.flusher.SaveNow(ctx); err != nil {
			return fmt.Errorf("flush local state: %w", err)
		}
	}

	if _, err := e.auth.Acquire(ctx, interactive); err != nil {
		return fmt.Errorf("acquire authorization: %w", err)
	}

	folderID, err := e.ensureFolder(ctx)
	if err != nil {
		return fmt.Errorf("ensure backup folder: %w", err)
	}

	if err := e.uploadStateFile(ctx, folderID); err != nil {
		return fmt.Errorf("upload state file: %w", err)
	}

	if err := e.uploadPhotos(ctx, folderID); err != nil {
		return fmt.Errorf("upload photos: %w", err)
	}

	return e.saveBookkeeping(ctx)
}

func (e *Engine) ensureFolder(ctx context.Context) (string, error) {
	e.mu.Lock()
	folderID := e.state.FolderID
	e.mu.Unlock()
	if folderID != "" {
		return folderID, nil
	}

	folderID, err := e.transport.EnsureFolder(ctx, FolderName)
	if err != nil {
		return "", err
	}

	e.mu.Lock()
	e.state.FolderID = folderID
	e.mu.Unlock()
	return folderID, nil
}

func (e *Engine) uploadStateFile(ctx context.Context, folderID string) error {
	snapshot := e.model.Snapshot()
	if snapshot.UpdatedAt == 0 {
		snapshot.UpdatedAt = e.NowFunc().UnixMilli()
	}

	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	e.mu.Lock()
	stateFileID := e.state.StateFileID
	e.mu.Unlock()

	uploadedID, err := e.transport.Upload(ctx, UploadParams{
		FolderID: folderID,
		FileID:   stateFileID,
		Name:     StateFileName,
		MimeType: "application/json",
		Data:     body,
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.state.StateFileID = uploadedID
	e.mu.Unlock()
	return nil
}

// uploadPhotos uploads only photos whose PhotoUpdatedAt exceeds the
// recorded per-machine watermark. Unchanged photos cost zero network
// writes.
func (e *Engine) uploadPhotos(ctx context.Context, folderID string) error {
	snapshot := e.model.Snapshot()

	for _, machine := range snapshot.Machines {
		if !machine.HasPhoto() {
			continue
		}

		e.mu.Lock()
		lastSynced := e.state.PhotoSyncedAt[machine.ID]
		fileID := e.state.PhotoFileIDs[machine.ID]
		e.mu.Unlock()

		if machine.PhotoUpdatedAt != 0 && machine.PhotoUpdatedAt <= lastSynced {
			continue
		}

		uploadedID, err := e.transport.Upload(ctx, UploadParams{
			FolderID: folderID,
			FileID:   fileID,
			Name:     photoFileName(machine),
			MimeType: machine.PhotoMime,
			Data:     machine.Photo,
		})
		if err != nil {
			return fmt.Errorf("upload photo for machine %s: %w", machine.ID, err)
		}

		watermark := machine.PhotoUpdatedAt
		if watermark == 0 {
			watermark = e.NowFunc().UnixMilli()
		}

		e.mu.Lock()
		e.state.PhotoFileIDs[machine.ID] = uploadedID
		e.state.PhotoSyncedAt[machine.ID] = watermark
		e.mu.Unlock()

		e.metrics.CounterPhotosUploaded.Inc()
	}

	return nil
}

func (e *Engine) saveBookkeeping(ctx context.Context) error {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()
	return e.store.SaveSyncState(ctx, state)
}

// Restore checks the backup on (re)connect. A missing backup triggers a
// proactive first-time upload when local data exists and the call is
// interactive. A malformed document is treated as absent data: local is
// kept. Otherwise the conflict policy decides, and when local wins an
// interactive restore immediately pushes outward instead of waiting.
func (e *Engine) Restore(ctx context.Context, interactive bool) error {
	e.Status("Checking Drive backup...")

	err := e.doRestore(ctx, interactive)
	if err != nil {
		log.Warnf("drive restore failed: %s", err)
		e.Status("Restore failed")
	}
	return err
}

func (e *Engine) doRestore(ctx context.Context, interactive bool) error {
	if _, err := e.auth.Acquire(ctx, interactive); err != nil {
		return fmt.Errorf("acquire authorization: %w", err)
	}

	folderID, err := e.ensureFolder(ctx)
	if err != nil {
		return fmt.Errorf("ensure backup folder: %w", err)
	}

	fileID, err := e.findStateFile(ctx, folderID)
	if err != nil {
		return fmt.Errorf("find state file: %w", err)
	}

	if fileID == "" {
		e.Status("No backup found yet")
		if interactive && !e.model.Snapshot().Empty() {
			return e.Sync(ctx, true)
		}
		return nil
	}

	e.mu.Lock()
	e.state.StateFileID = fileID
	e.mu.Unlock()

	body, err := e.transport.Download(ctx, fileID)
	if err != nil {
		return fmt.Errorf("download state file: %w", err)
	}

	var remote tracker.Snapshot
	if jsonErr := json.Unmarshal(body, &remote); jsonErr != nil || remote.Machines == nil {
		log.Warnf("failed to parse drive state file: %v", jsonErr)
		e.Status("Backup file was empty")
		return e.saveBookkeeping(ctx)
	}

	local := e.model.Snapshot()
	switch Resolve(local, remote) {
	case RemoteWins:
		if err := e.applyRemote(ctx, remote, folderID); err != nil {
			return err
		}
		e.Status("Backup downloaded " + e.NowFunc().Format("2 Jan 2006, 15:04"))
	case LocalWins:
		e.Status("Local data is newer; keeping this device")
		if interactive {
			if err := e.Sync(ctx, true); err != nil {
				return err
			}
		}
	}

	return e.saveBookkeeping(ctx)
}

func (e *Engine) findStateFile(ctx context.Context, folderID string) (string, error) {
	e.mu.Lock()
	fileID := e.state.StateFileID
	e.mu.Unlock()
	if fileID != "" {
		return fileID, nil
	}
	return e.transport.FindFile(ctx, folderID, StateFileName)
}

// applyRemote replaces the entire local model with the remote snapshot,
// persists it, then reconciles photos.
func (e *Engine) applyRemote(ctx context.Context, remote tracker.Snapshot, folderID string) error {
	e.model.Replace(remote)
	if err := e.store.SaveSnapshot(ctx, e.model.Snapshot()); err != nil {
		return fmt.Errorf("persist restored state: %w", err)
	}
	e.metrics.CounterRestores.Inc()

	if err := e.restorePhotos(ctx, folderID); err != nil {
		// photos are best effort, the state document already landed
		log.Warnf("photo restore incomplete: %s", err)
	}
	return nil
}

// restorePhotos downloads remote photo blobs named by the owning machine
// id and records file ids and watermarks, so the next incremental upload
// recognizes them as already synced.
func (e *Engine) restorePhotos(ctx context.Context, folderID string) error {
	files, err := e.transport.ListFiles(ctx, folderID, photoFilePrefix)
	if err != nil {
		return fmt.Errorf("list photo files: %w", err)
	}
	if len(files) == 0 {
		return nil
	}

	var restoreErr error
	restored := false
	for _, file := range files {
		machineID := parseMachineID(file.Name)
		if machineID == "" {
			continue
		}

		blob, err := e.transport.Download(ctx, file.ID)
		if err != nil {
			restoreErr = multierr.Append(restoreErr, fmt.Errorf("download photo %s: %w", file.Name, err))
			continue
		}

		syncedAt := e.NowFunc().UnixMilli()
		if err := e.model.RestorePhoto(machineID, blob, mimeFromFileName(file.Name), syncedAt); err != nil {
			// a photo for a machine the document no longer has
			log.Tracef("skipping photo %s: %s", file.Name, err)
			continue
		}
		restored = true

		e.mu.Lock()
		e.state.PhotoFileIDs[machineID] = file.ID
		e.state.PhotoSyncedAt[machineID] = syncedAt
		e.mu.Unlock()
	}

	if restored {
		if err := e.store.SaveSnapshot(ctx, e.model.Snapshot()); err != nil {
			restoreErr = multierr.Append(restoreErr, fmt.Errorf("persist restored photos: %w", err))
		}
	}

	return restoreErr
}

// StopScheduler stops the background sync timer, if running.
func (e *Engine) StopScheduler() {
	e.scheduler.stop()
}

func photoFileName(m tracker.Machine) string {
	return photoFilePrefix + m.ID + "." + extFromMime(m.PhotoMime)
}

func extFromMime(mime string) string {
	if idx := strings.IndexByte(mime, '/'); idx >= 0 && idx < len(mime)-1 {
		return mime[idx+1:]
	}
	return "jpg"
}

func mimeFromFileName(name string) string {
	if idx := strings.LastIndexByte(name, '.'); idx >= 0 && idx < len(name)-1 {
		return "image/" + name[idx+1:]
	}
	return "image/jpeg"
}

func parseMachineID(fileName string) string {
	if !strings.HasPrefix(fileName, photoFilePrefix) {
		return ""
	}
	trimmed := strings.TrimPrefix(fileName, photoFilePrefix)
	if idx := strings.IndexByte(trimmed, '.'); idx >= 0 {
		return trimmed[:idx]
	}
	return trimmed
}

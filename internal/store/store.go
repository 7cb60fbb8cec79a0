package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/gymtracker/internal/tracker"
)

//go:embed schema.sql
var schemaSQL string

const (
	snapshotKey  = "app"
	syncStateKey = "drive"

	settingConnected = "drive_connected"
	settingAutoSync  = "drive_auto_sync"
)

// SyncState is the Drive bookkeeping: ids of the remote folder and files
// plus per-machine photo sync watermarks. It lives in its own table so
// conflict resolution of the state document never touches it.
type SyncState struct {
	FolderID      string            `json:"folderId"`
	StateFileID   string            `json:"stateFileId"`
	PhotoFileIDs  map[string]string `json:"photoFileIds"`
	PhotoSyncedAt map[string]int64  `json:"photoSyncedAt"`
}

func NewSyncState() SyncState {
	return SyncState{
		PhotoFileIDs:  make(map[string]string),
		PhotoSyncedAt: make(map[string]int64),
	}
}

// Store is the durable local persistence layer on top of SQLite. Every
// save runs in a single transaction, so a crash can never leave a
// half-written snapshot behind.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// sqlite allows one writer at a time, keep the pool at one
	// connection to avoid SQLITE_BUSY
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// LoadSnapshot returns the persisted snapshot, or an empty one when the
// store has nothing (or holds something unreadable). A corrupt document
// is logged and treated as absent, startup is never blocked by it.
func (s *Store) LoadSnapshot(ctx context.Context) (tracker.Snapshot, bool) {
	empty := tracker.Snapshot{Machines: []tracker.Machine{}}

	var payload []byte
	err := s.db.
		QueryRowContext(ctx, `SELECT payload FROM app_state WHERE key = ?`, snapshotKey).
		Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return empty, false
	}
	if err != nil {
		log.Warnf("failed to load saved state: %s", err)
		return empty, false
	}

	var snapshot tracker.Snapshot
	if err := json.Unmarshal(payload, &snapshot); err != nil {
		log.Warnf("failed to decode saved state: %s", err)
		return empty, false
	}

	return tracker.NormalizeSnapshot(snapshot), true
}

func (s *Store) SaveSnapshot(ctx context.Context, snapshot tracker.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.putInTx(ctx, `
		INSERT INTO app_state (key, payload) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload`,
		snapshotKey, payload,
	)
}

func (s *Store) LoadSyncState(ctx context.Context) (SyncState, error) {
	state := NewSyncState()

	var payload []byte
	err := s.db.
		QueryRowContext(ctx, `SELECT payload FROM sync_state WHERE key = ?`, syncStateKey).
		Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return state, nil
	}
	if err != nil {
		return state, fmt.Errorf("load sync state: %w", err)
	}

	if err := json.Unmarshal(payload, &state); err != nil {
		log.Warnf("failed to decode sync state, starting clean: %s", err)
		return NewSyncState(), nil
	}
	if state.PhotoFileIDs == nil {
		state.PhotoFileIDs = make(map[string]string)
	}
	if state.PhotoSyncedAt == nil {
		state.PhotoSyncedAt = make(map[string]int64)
	}
	return state, nil
}

func (s *Store) SaveSyncState(ctx context.Context, state SyncState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal sync state: %w", err)
	}
	return s.putInTx(ctx, `
		INSERT INTO sync_state (key, payload) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload`,
		syncStateKey, payload,
	)
}

// ClearSyncState wipes all remote bookkeeping. Used on disconnect, the
// next connection starts from clean remote lookups.
func (s *Store) ClearSyncState(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sync_state WHERE key = ?`, syncStateKey)
	return err
}

func (s *Store) Connected(ctx context.Context) bool {
	return s.settingBool(ctx, settingConnected, false)
}

func (s *Store) SetConnected(ctx context.Context, connected bool) error {
	return s.setSettingBool(ctx, settingConnected, connected)
}

func (s *Store) AutoSync(ctx context.Context) bool {
	// auto sync defaults to on until explicitly turned off
	return s.settingBool(ctx, settingAutoSync, true)
}

func (s *Store) SetAutoSync(ctx context.Context, enabled bool) error {
	return s.setSettingBool(ctx, settingAutoSync, enabled)
}

func (s *Store) settingBool(ctx context.Context, key string, defaultVal bool) bool {
	var value string
	err := s.db.
		QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).
		Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return defaultVal
	}
	if err != nil {
		log.Warnf("failed to load setting %s: %s", key, err)
		return defaultVal
	}
	return value == "1"
}

func (s *Store) setSettingBool(ctx context.Context, key string, val bool) error {
	value := "0"
	if val {
		value = "1"
	}
	return s.putInTx(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
}

func (s *Store) putInTx(ctx context.Context, query string, args ...any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Errorf("rollback failed: %s", rbErr)
		}
		return fmt.Errorf("exec: %w", err)
	}
	return tx.Commit()
}

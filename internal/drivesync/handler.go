package drivesync

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type settings interface {
	AutoSync(ctx context.Context) bool
	SetAutoSync(ctx context.Context, enabled bool) error
}

// Handler exposes the sync engine to the settings UI: connect,
// disconnect, manual sync, auto-sync toggle and a status endpoint.
type Handler struct {
	engine   *Engine
	settings settings

	mu         sync.Mutex
	lastStatus string
}

func NewHandler(engine *Engine, settings settings) *Handler {
	handler := &Handler{
		engine:     engine,
		settings:   settings,
		lastStatus: "Not connected",
	}
	engine.Status = handler.setStatus
	return handler
}

func (handler *Handler) setStatus(status string) {
	handler.mu.Lock()
	handler.lastStatus = status
	handler.mu.Unlock()
	log.Debugf("drive status: %s", status)
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/drive/connect", handler.HandleConnect).Methods("POST")
	r.HandleFunc("/drive/disconnect", handler.HandleDisconnect).Methods("POST")
	r.HandleFunc("/drive/sync", handler.HandleSyncNow).Methods("POST")
	r.HandleFunc("/drive/status", handler.HandleStatus).Methods("GET")
	r.HandleFunc("/drive/autosync", handler.HandleAutoSync).Methods("PUT")
}

// ConnectTimeout bounds the interactive sign-in and restore flow. An
// abandoned consent screen would otherwise park the flow goroutine and
// its loopback listener forever.
var ConnectTimeout = 5 * time.Minute

// HandleConnect kicks off the interactive sign-in and restore flow. The
// consent round trip can take minutes, so it runs detached and the
// client polls the status endpoint.
func (handler *Handler) HandleConnect(w http.ResponseWriter, r *http.Request) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), ConnectTimeout)
		defer cancel()
		if err := handler.engine.Connect(ctx, true); err != nil {
			log.Warnf("drive connect failed: %s", err)
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

func (handler *Handler) HandleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := handler.engine.Disconnect(r.Context()); err != nil {
		log.Errorf("drive disconnect failed: %s", err)
		http.Error(w, "disconnect failed", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (handler *Handler) HandleSyncNow(w http.ResponseWriter, r *http.Request) {
	go func() {
		if err := handler.engine.Sync(context.Background(), true); err != nil {
			log.Warnf("manual sync failed: %s", err)
		}
	}()
	w.WriteHeader(http.StatusAccepted)
}

type StatusResponse struct {
	Status        string    `json:"status"`
	LoginRequired bool      `json:"loginRequired"`
	AutoSync      bool      `json:"autoSync"`
	LastSync      time.Time `json:"lastSync,omitzero"`
}

func (handler *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	handler.mu.Lock()
	status := handler.lastStatus
	handler.mu.Unlock()

	resp, err := json.Marshal(StatusResponse{
		Status:        status,
		LoginRequired: handler.engine.LoginRequired(),
		AutoSync:      handler.settings.AutoSync(r.Context()),
		LastSync:      handler.engine.LastSync(),
	})
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(resp); err != nil {
		log.Errorf("failed to write status response: %s", err)
	}
}

type AutoSyncRequest struct {
	Enabled bool `json:"enabled"`
}

func (handler *Handler) HandleAutoSync(w http.ResponseWriter, r *http.Request) {
	var req AutoSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := handler.settings.SetAutoSync(r.Context(), req.Enabled); err != nil {
		log.Errorf("failed to persist auto sync setting: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

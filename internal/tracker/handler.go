package tracker

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// maxPhotoSizeBytes caps photo uploads, enough for a cropped camera shot.
const maxPhotoSizeBytes = 8 << 20

// Handler exposes the edit operations of the model over a local HTTP
// API. It is the funnel the view layer uses, it never talks to the sync
// engine directly: mutations mark the change tracker and the autosave /
// sync machinery picks them up from there.
type Handler struct {
	tracker *Tracker

	// loginRequired gates mutation affordances while sign-in is needed.
	loginRequired func() bool
}

func NewHandler(tracker *Tracker, loginRequired func() bool) *Handler {
	if loginRequired == nil {
		loginRequired = func() bool { return false }
	}
	return &Handler{
		tracker:       tracker,
		loginRequired: loginRequired,
	}
}

func (handler *Handler) SetupRoutes(r *mux.Router) {
	r.HandleFunc("/machines", handler.HandleList).Methods("GET")
	r.HandleFunc("/machines", handler.HandleAddMachine).Methods("POST")
	r.HandleFunc("/machines/{id}", handler.HandleRenameMachine).Methods("PUT")
	r.HandleFunc("/machines/{id}", handler.HandleRemoveMachine).Methods("DELETE")
	r.HandleFunc("/machines/{id}/photo", handler.HandleSetPhoto).Methods("PUT")
	r.HandleFunc("/machines/{id}/photo", handler.HandleRemovePhoto).Methods("DELETE")
	r.HandleFunc("/machines/{id}/sessions", handler.HandleAddSession).Methods("POST")
	r.HandleFunc("/machines/{id}/sessions/{sessionId}", handler.HandleRemoveSession).Methods("DELETE")
	r.HandleFunc("/machines/{id}/sessions/{sessionId}/sets", handler.HandleAddSet).Methods("POST")
	r.HandleFunc("/machines/{id}/sessions/{sessionId}/sets/{setId}", handler.HandleUpdateSet).Methods("PUT")
	r.HandleFunc("/machines/{id}/sessions/{sessionId}/sets/{setId}", handler.HandleRemoveSet).Methods("DELETE")
}

func (handler *Handler) gate(w http.ResponseWriter) bool {
	if handler.loginRequired() {
		http.Error(w, "sign-in required", http.StatusForbidden)
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	resp, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("failed to marshal response: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(resp); err != nil {
		log.Errorf("failed to write response: %s", err)
	}
}

func (handler *Handler) writeMutationErr(w http.ResponseWriter, err error) {
	switch err {
	case ErrMachineNotFound, ErrSessionNotFound, ErrSetNotFound:
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		log.Errorf("mutation failed: %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	snapshot := handler.tracker.Snapshot()

	group := r.URL.Query().Get("group")
	if group == "" {
		writeJSON(w, http.StatusOK, snapshot)
		return
	}

	wanted := NormalizeGroups([]MuscleGroup{MuscleGroup(group)})
	var machines []Machine
	for _, m := range snapshot.Machines {
		if machineInGroups(m, wanted) {
			machines = append(machines, m)
		}
	}
	writeJSON(w, http.StatusOK, Snapshot{Machines: machines, UpdatedAt: snapshot.UpdatedAt})
}

func machineInGroups(m Machine, wanted []MuscleGroup) bool {
	for _, w := range wanted {
		for _, g := range m.Groups {
			if g == w {
				return true
			}
		}
	}
	return false
}

type AddMachineRequest struct {
	Name   string        `json:"name"`
	Groups []MuscleGroup `json:"groups"`
}

func (handler *Handler) HandleAddMachine(w http.ResponseWriter, r *http.Request) {
	if handler.gate(w) {
		return
	}
	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var req AddMachineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Tracef("add machine, unmarshal json params: %s", err)
		http.Error(w, "add machine failed", http.StatusBadRequest)
		return
	}

	machine := handler.tracker.AddMachine(req.Name, req.Groups)
	log.Debugf("machine added: %s [%s]", machine.ID, machine.Name)
	writeJSON(w, http.StatusCreated, machine)
}

type RenameMachineRequest struct {
	Name string `json:"name"`
}

func (handler *Handler) HandleRenameMachine(w http.ResponseWriter, r *http.Request) {
	if handler.gate(w) {
		return
	}
	vars := mux.Vars(r)

	var req RenameMachineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "rename machine failed", http.StatusBadRequest)
		return
	}

	if err := handler.tracker.RenameMachine(vars["id"], req.Name); err != nil {
		handler.writeMutationErr(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (handler *Handler) HandleRemoveMachine(w http.ResponseWriter, r *http.Request) {
	if handler.gate(w) {
		return
	}
	if err := handler.tracker.RemoveMachine(mux.Vars(r)["id"]); err != nil {
		handler.writeMutationErr(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (handler *Handler) HandleSetPhoto(w http.ResponseWriter, r *http.Request) {
	if handler.gate(w) {
		return
	}
	mime := r.Header.Get("Content-Type")
	if mime == "" {
		http.Error(w, "missing content type", http.StatusBadRequest)
		return
	}

	photo, err := io.ReadAll(io.LimitReader(r.Body, maxPhotoSizeBytes+1))
	if err != nil {
		http.Error(w, "read photo failed", http.StatusBadRequest)
		return
	}
	if len(photo) == 0 || len(photo) > maxPhotoSizeBytes {
		http.Error(w, "invalid photo size", http.StatusBadRequest)
		return
	}

	if err := handler.tracker.SetPhoto(mux.Vars(r)["id"], photo, mime); err != nil {
		handler.writeMutationErr(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (handler *Handler) HandleRemovePhoto(w http.ResponseWriter, r *http.Request) {
	if handler.gate(w) {
		return
	}
	if err := handler.tracker.RemovePhoto(mux.Vars(r)["id"]); err != nil {
		handler.writeMutationErr(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (handler *Handler) HandleAddSession(w http.ResponseWriter, r *http.Request) {
	if handler.gate(w) {
		return
	}
	session, err := handler.tracker.AddSession(mux.Vars(r)["id"])
	if err != nil {
		handler.writeMutationErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (handler *Handler) HandleRemoveSession(w http.ResponseWriter, r *http.Request) {
	if handler.gate(w) {
		return
	}
	vars := mux.Vars(r)
	if err := handler.tracker.RemoveSession(vars["id"], vars["sessionId"]); err != nil {
		handler.writeMutationErr(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (handler *Handler) HandleAddSet(w http.ResponseWriter, r *http.Request) {
	if handler.gate(w) {
		return
	}
	vars := mux.Vars(r)
	set, err := handler.tracker.AddSet(vars["id"], vars["sessionId"])
	if err != nil {
		handler.writeMutationErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, set)
}

type UpdateSetRequest struct {
	Reps   int        `json:"reps"`
	Weight float64    `json:"weight"`
	Unit   WeightUnit `json:"unit"`
}

func (handler *Handler) HandleUpdateSet(w http.ResponseWriter, r *http.Request) {
	if handler.gate(w) {
		return
	}
	vars := mux.Vars(r)

	var req UpdateSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "update set failed", http.StatusBadRequest)
		return
	}

	set, err := handler.tracker.UpdateSet(vars["id"], vars["sessionId"], Set{
		ID:     vars["setId"],
		Reps:   req.Reps,
		Weight: req.Weight,
		Unit:   req.Unit,
	})
	if err != nil {
		handler.writeMutationErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (handler *Handler) HandleRemoveSet(w http.ResponseWriter, r *http.Request) {
	if handler.gate(w) {
		return
	}
	vars := mux.Vars(r)
	if err := handler.tracker.RemoveSet(vars["id"], vars["sessionId"], vars["setId"]); err != nil {
		handler.writeMutationErr(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

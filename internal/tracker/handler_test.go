package tracker_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2beens/gymtracker/internal/tracker"
)

type handlerFixture struct {
	tracker       *tracker.Tracker
	router        *mux.Router
	loginRequired bool
}

func newHandlerFixture(t *testing.T) *handlerFixture {
	t.Helper()
	f := &handlerFixture{
		tracker: tracker.New(tracker.Snapshot{}),
		router:  mux.NewRouter(),
	}
	handler := tracker.NewHandler(f.tracker, func() bool {
		return f.loginRequired
	})
	handler.SetupRoutes(f.router)
	return f
}

func (f *handlerFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case []byte:
		reader = bytes.NewReader(b)
	default:
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func TestHandleAddMachine(t *testing.T) {
	f := newHandlerFixture(t)

	rr := f.do(t, "POST", "/machines", tracker.AddMachineRequest{
		Name:   "Leg Press",
		Groups: []tracker.MuscleGroup{"legs"},
	})
	require.Equal(t, http.StatusCreated, rr.Code)

	var machine tracker.Machine
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &machine))
	assert.NotEmpty(t, machine.ID)
	assert.Equal(t, "Leg Press", machine.Name)
	assert.Equal(t, []tracker.MuscleGroup{
		tracker.GroupQuads, tracker.GroupHamstrings, tracker.GroupCalves,
	}, machine.Groups)
}

func TestHandleAddMachine_InvalidRequests(t *testing.T) {
	f := newHandlerFixture(t)

	rr := f.do(t, "POST", "/machines", []byte("not json"))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest("POST", "/machines", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "text/plain")
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, req)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandleList(t *testing.T) {
	f := newHandlerFixture(t)
	f.tracker.AddMachine("Leg Press", []tracker.MuscleGroup{"legs"})
	f.tracker.AddMachine("Chest Press", []tracker.MuscleGroup{tracker.GroupChest})

	rr := f.do(t, "GET", "/machines", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var snapshot tracker.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snapshot))
	require.Len(t, snapshot.Machines, 2)
	assert.Equal(t, "Chest Press", snapshot.Machines[0].Name)
}

func TestHandleList_FilterByGroup(t *testing.T) {
	f := newHandlerFixture(t)
	f.tracker.AddMachine("Leg Press", []tracker.MuscleGroup{"legs"})
	f.tracker.AddMachine("Chest Press", []tracker.MuscleGroup{tracker.GroupChest})

	rr := f.do(t, "GET", "/machines?group=quads", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var snapshot tracker.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snapshot))
	require.Len(t, snapshot.Machines, 1)
	assert.Equal(t, "Leg Press", snapshot.Machines[0].Name)
}

func TestHandleRenameAndRemoveMachine(t *testing.T) {
	f := newHandlerFixture(t)
	machine := f.tracker.AddMachine("Leg Press", nil)

	rr := f.do(t, "PUT", "/machines/"+machine.ID, tracker.RenameMachineRequest{Name: "Hack Squat"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Hack Squat", f.tracker.Snapshot().Machines[0].Name)

	rr = f.do(t, "PUT", "/machines/no-such-machine", tracker.RenameMachineRequest{Name: "x"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = f.do(t, "DELETE", "/machines/"+machine.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, f.tracker.Snapshot().Machines)
}

func TestHandlePhoto(t *testing.T) {
	f := newHandlerFixture(t)
	machine := f.tracker.AddMachine("Leg Press", nil)

	req := httptest.NewRequest("PUT", "/machines/"+machine.ID+"/photo", bytes.NewReader([]byte("photo-bytes")))
	req.Header.Set("Content-Type", "image/jpeg")
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	got := f.tracker.Snapshot().Machines[0]
	assert.Equal(t, []byte("photo-bytes"), got.Photo)
	assert.Equal(t, "image/jpeg", got.PhotoMime)
	assert.NotZero(t, got.PhotoUpdatedAt)

	// empty body rejected
	req = httptest.NewRequest("PUT", "/machines/"+machine.ID+"/photo", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "image/jpeg")
	rr = httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	delRR := f.do(t, "DELETE", "/machines/"+machine.ID+"/photo", nil)
	require.Equal(t, http.StatusOK, delRR.Code)
	assert.Nil(t, f.tracker.Snapshot().Machines[0].Photo)
}

func TestHandleSessionsAndSets(t *testing.T) {
	f := newHandlerFixture(t)
	machine := f.tracker.AddMachine("Leg Press", nil)

	rr := f.do(t, "POST", "/machines/"+machine.ID+"/sessions", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	var session tracker.Session
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &session))
	require.Len(t, session.Sets, 1)

	base := fmt.Sprintf("/machines/%s/sessions/%s", machine.ID, session.ID)

	rr = f.do(t, "POST", base+"/sets", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	var set tracker.Set
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &set))

	rr = f.do(t, "PUT", base+"/sets/"+set.ID, tracker.UpdateSetRequest{
		Reps:   12,
		Weight: 80,
		Unit:   tracker.UnitKilograms,
	})
	require.Equal(t, http.StatusOK, rr.Code)
	var updated tracker.Set
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &updated))
	assert.Equal(t, 12, updated.Reps)

	rr = f.do(t, "DELETE", base+"/sets/"+set.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(t, "DELETE", base, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, f.tracker.Snapshot().Machines[0].Sessions)

	rr = f.do(t, "POST", "/machines/no-such-machine/sessions", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMutationsGatedWhileSignInRequired(t *testing.T) {
	f := newHandlerFixture(t)
	machine := f.tracker.AddMachine("Leg Press", nil)
	f.loginRequired = true

	rr := f.do(t, "POST", "/machines", tracker.AddMachineRequest{Name: "Chest Press"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(t, "DELETE", "/machines/"+machine.ID, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// reads stay available
	rr = f.do(t, "GET", "/machines", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

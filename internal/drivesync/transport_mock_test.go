package drivesync_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/2beens/gymtracker/internal/drivesync"
)

// transportMock is an in-memory remote store keyed by file name, with
// counters for asserting how many network writes a sync produced.
type transportMock struct {
	mu    sync.Mutex
	files map[string][]byte // name -> content
	ids   map[string]string // name -> file id
	names map[string]string // file id -> name

	ensureFolderCalls int
	uploadCalls       int
	uploadedNames     []string
	downloadCalls     int

	failUploads bool
	// enteredUpload (when set) gets a signal as an upload starts, and
	// blockUploads (when set) then holds the upload until closed.
	enteredUpload chan struct{}
	blockUploads  chan struct{}
}

func newTransportMock() *transportMock {
	return &transportMock{
		files: make(map[string][]byte),
		ids:   make(map[string]string),
		names: make(map[string]string),
	}
}

func (tm *transportMock) putRemoteFile(name string, data []byte) string {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.putLocked(name, data)
}

func (tm *transportMock) putLocked(name string, data []byte) string {
	id, ok := tm.ids[name]
	if !ok {
		id = "file-id-" + name
		tm.ids[name] = id
		tm.names[id] = name
	}
	tm.files[name] = data
	return id
}

func (tm *transportMock) remoteFile(name string) []byte {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.files[name]
}

func (tm *transportMock) EnsureFolder(_ context.Context, name string) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.ensureFolderCalls++
	return "folder-id-" + name, nil
}

func (tm *transportMock) FindFile(_ context.Context, _, name string) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if _, ok := tm.files[name]; !ok {
		return "", nil
	}
	return tm.ids[name], nil
}

func (tm *transportMock) Upload(_ context.Context, params drivesync.UploadParams) (string, error) {
	tm.mu.Lock()
	entered := tm.enteredUpload
	block := tm.blockUploads
	tm.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()
	if tm.failUploads {
		return "", errors.New("upload failed")
	}
	tm.uploadCalls++
	tm.uploadedNames = append(tm.uploadedNames, params.Name)
	return tm.putLocked(params.Name, params.Data), nil
}

func (tm *transportMock) Download(_ context.Context, fileID string) ([]byte, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.downloadCalls++
	name, ok := tm.names[fileID]
	if !ok {
		return nil, errors.New("file not found")
	}
	return tm.files[name], nil
}

func (tm *transportMock) ListFiles(_ context.Context, _, namePrefix string) ([]drivesync.RemoteFile, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	var files []drivesync.RemoteFile
	for name, id := range tm.ids {
		if strings.HasPrefix(name, namePrefix) {
			files = append(files, drivesync.RemoteFile{ID: id, Name: name})
		}
	}
	return files, nil
}

func (tm *transportMock) uploadsOf(name string) int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	count := 0
	for _, uploaded := range tm.uploadedNames {
		if uploaded == name {
			count++
		}
	}
	return count
}

func (tm *transportMock) totalUploads() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.uploadCalls
}

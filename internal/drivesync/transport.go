package drivesync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type RemoteFile struct {
	ID   string
	Name string
}

type UploadParams struct {
	FolderID string
	// FileID, when set, replaces the existing remote file in place
	// instead of creating a new one.
	FileID   string
	Name     string
	MimeType string
	Data     []byte
}

// Transport is the narrow remote-storage capability the sync engine
// depends on: upload a document or blob and get back an identity. The
// engine never constructs requests itself, so it is testable without a
// network.
type Transport interface {
	EnsureFolder(ctx context.Context, name string) (string, error)
	FindFile(ctx context.Context, folderID, name string) (string, error)
	Upload(ctx context.Context, params UploadParams) (string, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
	ListFiles(ctx context.Context, folderID, namePrefix string) ([]RemoteFile, error)
}

// DriveTransport implements Transport on the Google Drive v3 API.
type DriveTransport struct {
	service *drive.Service
}

func NewDriveTransport(ctx context.Context, tokenSource oauth2.TokenSource) (*DriveTransport, error) {
	driveService, err := drive.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve drive client: %w", err)
	}
	return &DriveTransport{service: driveService}, nil
}

// EnsureFolder looks the folder up by name and creates it when absent.
// The lookup-then-create race is accepted: single user, low frequency.
func (t *DriveTransport) EnsureFolder(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf(
		"mimeType = 'application/vnd.google-apps.folder' and trashed = false and name = '%s'",
		name,
	)
	folders, err := t.service.
		Files.List().
		Q(query).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve folders: %w", err)
	}

	if len(folders.Files) > 0 {
		return folders.Files[0].Id, nil
	}

	folderMeta := &drive.File{
		Name:     name,
		MimeType: "application/vnd.google-apps.folder",
	}
	created, err := t.service.
		Files.Create(folderMeta).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("create folder: %w", err)
	}

	return created.Id, nil
}

func (t *DriveTransport) FindFile(ctx context.Context, folderID, name string) (string, error) {
	query := fmt.Sprintf(
		"name = '%s' and '%s' in parents and trashed = false",
		name, folderID,
	)
	files, err := t.service.
		Files.List().
		Q(query).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve files: %w", err)
	}

	if len(files.Files) == 0 {
		return "", nil
	}
	return files.Files[0].Id, nil
}

func (t *DriveTransport) Upload(ctx context.Context, params UploadParams) (string, error) {
	media := bytes.NewReader(params.Data)

	if params.FileID != "" {
		updated, err := t.service.
			Files.Update(params.FileID, &drive.File{Name: params.Name}).
			Media(media).
			Fields("id").
			Context(ctx).
			Do()
		if err != nil {
			return "", fmt.Errorf("update file %s: %w", params.Name, err)
		}
		return updated.Id, nil
	}

	meta := &drive.File{
		Name:     params.Name,
		MimeType: params.MimeType,
		Parents:  []string{params.FolderID},
	}
	created, err := t.service.
		Files.Create(meta).
		Media(media).
		Fields("id, parents").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("create file %s: %w", params.Name, err)
	}
	return created.Id, nil
}

func (t *DriveTransport) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := t.service.
		Files.Get(fileID).
		Context(ctx).
		Download()
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	return data, nil
}

func (t *DriveTransport) ListFiles(ctx context.Context, folderID, namePrefix string) ([]RemoteFile, error) {
	query := fmt.Sprintf(
		"name contains '%s' and '%s' in parents and trashed = false",
		namePrefix, folderID,
	)
	files, err := t.service.
		Files.List().
		Q(query).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve files: %w", err)
	}

	remoteFiles := make([]RemoteFile, 0, len(files.Files))
	for _, f := range files.Files {
		if !strings.HasPrefix(f.Name, namePrefix) {
			continue
		}
		remoteFiles = append(remoteFiles, RemoteFile{ID: f.Id, Name: f.Name})
	}
	return remoteFiles, nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/donmikel/gitdrop/applications/server/adapters/inmemory"
	"github.com/donmikel/gitdrop/applications/server/domain"
	"github.com/donmikel/gitdrop/applications/server/interfaces"
)

type fakeStore struct {
	putErr  error
	putPath string
	putBody []byte
	getData []byte
	deleted []string
}

func (f *fakeStore) Put(ctx context.Context, path, message string, content []byte) (interfaces.PutResult, error) {
	f.putPath = path
	f.putBody = content
	if f.putErr != nil {
		return interfaces.PutResult{}, f.putErr
	}
	return interfaces.PutResult{DownloadURL: "https://x", SHA: "abc"}, nil
}

func (f *fakeStore) Get(ctx context.Context, path string) ([]byte, error) {
	return f.getData, nil
}

func (f *fakeStore) Delete(ctx context.Context, path, message, sha string) error {
	f.deleted = append(f.deleted, path)
	return nil
}

func (f *fakeStore) PublicURL(path string) string {
	return "https://raw.githubusercontent.com/owner/repo/main/" + path
}

func newTestService(store interfaces.ContentStore) (*service, interfaces.UploadRegistry) {
	registry := inmemory.NewUploadRegistry()
	svc := &service{
		store:    store,
		registry: registry,
		logger:   log.NewNopLogger(),
		newID:    func() string { return "ab12cd34" },
	}

	return svc, registry
}

func stageFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	return path
}

func TestRelay(t *testing.T) {
	content := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
	store := &fakeStore{}
	svc, registry := newTestService(store)
	tempPath := stageFile(t, "staged", content)

	got, err := svc.Relay(context.Background(), domain.IncomingUpload{
		OriginalName: "cat.png",
		TempPath:     tempPath,
	})

	require.NoError(t, err)
	assert.Equal(t, "ab12cd34", got.ID)
	assert.Equal(t, "cat.png", got.OriginalName)
	assert.Equal(t, "ab12cd34/cat.png", got.Path)
	assert.Equal(t, int64(10), got.Size)
	assert.Len(t, got.Hash, 16)
	assert.Equal(t, "https://raw.githubusercontent.com/owner/repo/main/ab12cd34/cat.png", got.URL)
	assert.Equal(t, "abc", got.SHA)

	assert.Equal(t, content, store.putBody)

	registered, err := registry.Get(context.Background(), "ab12cd34")
	require.NoError(t, err)
	assert.Equal(t, got, registered)

	assert.NoFileExists(t, tempPath)
}

func TestRelayUpstreamRejected(t *testing.T) {
	store := &fakeStore{putErr: &interfaces.RejectedError{Body: json.RawMessage(`{"message":"Invalid request"}`)}}
	svc, registry := newTestService(store)
	tempPath := stageFile(t, "staged", []byte("x"))

	_, err := svc.Relay(context.Background(), domain.IncomingUpload{
		OriginalName: "dup.png",
		TempPath:     tempPath,
	})

	var rejected *interfaces.RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.NoFileExists(t, tempPath)

	_, err = registry.Get(context.Background(), "ab12cd34")
	assert.ErrorIs(t, err, interfaces.ErrUploadNotFound)
}

func TestRelayNetworkError(t *testing.T) {
	store := &fakeStore{putErr: fmt.Errorf("store request failed: connection refused")}
	svc, _ := newTestService(store)
	tempPath := stageFile(t, "staged", []byte("x"))

	_, err := svc.Relay(context.Background(), domain.IncomingUpload{
		OriginalName: "cat.png",
		TempPath:     tempPath,
	})

	require.Error(t, err)
	var rejected *interfaces.RejectedError
	assert.False(t, errors.As(err, &rejected))
	assert.NoFileExists(t, tempPath)
}

func TestRelayUnreadableStagedFile(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(store)

	_, err := svc.Relay(context.Background(), domain.IncomingUpload{
		OriginalName: "cat.png",
		TempPath:     filepath.Join(t.TempDir(), "does-not-exist"),
	})

	require.Error(t, err)
	assert.Empty(t, store.putPath)
}

func TestRelaySanitizesFilename(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(store)
	tempPath := stageFile(t, "staged", []byte("x"))

	got, err := svc.Relay(context.Background(), domain.IncomingUpload{
		OriginalName: "../../etc/passwd",
		TempPath:     tempPath,
	})

	require.NoError(t, err)
	assert.Equal(t, "ab12cd34/passwd", got.Path)
}

func TestRelayRejectsInvalidFilename(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(store)
	tempPath := stageFile(t, "staged", []byte("x"))

	_, err := svc.Relay(context.Background(), domain.IncomingUpload{
		OriginalName: "..",
		TempPath:     tempPath,
	})

	require.Error(t, err)
	assert.Empty(t, store.putPath)
	assert.NoFileExists(t, tempPath)
}

func TestDownload(t *testing.T) {
	content := []byte("hello")
	store := &fakeStore{getData: content}
	svc, _ := newTestService(store)
	tempPath := stageFile(t, "staged", content)

	up, err := svc.Relay(context.Background(), domain.IncomingUpload{
		OriginalName: "hello.txt",
		TempPath:     tempPath,
	})
	require.NoError(t, err)

	gotUp, gotData, err := svc.Download(context.Background(), up.ID)

	require.NoError(t, err)
	assert.Equal(t, up, gotUp)
	assert.Equal(t, content, gotData)
}

func TestDownloadNotFound(t *testing.T) {
	svc, _ := newTestService(&fakeStore{})

	_, _, err := svc.Download(context.Background(), "missing")

	assert.ErrorIs(t, err, interfaces.ErrUploadNotFound)
}

func TestDelete(t *testing.T) {
	store := &fakeStore{}
	svc, registry := newTestService(store)
	tempPath := stageFile(t, "staged", []byte("x"))

	up, err := svc.Relay(context.Background(), domain.IncomingUpload{
		OriginalName: "cat.png",
		TempPath:     tempPath,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), up.ID))

	assert.Equal(t, []string{"ab12cd34/cat.png"}, store.deleted)

	_, err = registry.Get(context.Background(), up.ID)
	assert.ErrorIs(t, err, interfaces.ErrUploadNotFound)
}

func TestDeleteNotFound(t *testing.T) {
	store := &fakeStore{}
	svc, _ := newTestService(store)

	err := svc.Delete(context.Background(), "missing")

	assert.ErrorIs(t, err, interfaces.ErrUploadNotFound)
	assert.Empty(t, store.deleted)
}

func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "cat.png", want: "cat.png"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: `..\..\windows\system32`, want: "system32"},
		{in: "dir/name.txt", want: "name.txt"},
		{in: ".", wantErr: true},
		{in: "..", wantErr: true},
		{in: "", wantErr: true},
		{in: "/", wantErr: true},
	}

	for _, tc := range cases {
		got, err := sanitizeName(tc.in)
		if tc.wantErr {
			assert.Error(t, err, "input %q", tc.in)
			continue
		}
		assert.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/google/uuid"

	"github.com/donmikel/gitdrop/applications/server"
	"github.com/donmikel/gitdrop/applications/server/domain"
	"github.com/donmikel/gitdrop/applications/server/interfaces"
)

// hashLen is the number of hex chars of the sha256 digest kept as the
// recorded content hash.
const hashLen = 16

type service struct {
	store    interfaces.ContentStore
	registry interfaces.UploadRegistry
	logger   log.Logger
	newID    func() string
}

func NewService(store interfaces.ContentStore, registry interfaces.UploadRegistry, logger log.Logger) server.UploadService {
	return &service{
		store:    store,
		registry: registry,
		logger:   logger,
		newID:    newUploadID,
	}
}

func newUploadID() string {
	return uuid.New().String()[:8]
}

func (s *service) Relay(ctx context.Context, upload domain.IncomingUpload) (domain.Upload, error) {
	// The staged file is removed on every exit path, including read errors.
	defer func() {
		if err := os.Remove(upload.TempPath); err != nil && !os.IsNotExist(err) {
			level.Error(s.logger).Log("msg", "can't remove staged file",
				"path", upload.TempPath,
				"err", err,
			)
		}
	}()

	name, err := sanitizeName(upload.OriginalName)
	if err != nil {
		return domain.Upload{}, err
	}

	data, err := os.ReadFile(upload.TempPath)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("can't read staged file: %w", err)
	}

	id := s.newID()
	path := id + "/" + name

	result, err := s.store.Put(ctx, path, fmt.Sprintf("upload %s", name), data)
	if err != nil {
		return domain.Upload{}, fmt.Errorf("can't put content: %w", err)
	}

	sum := sha256.Sum256(data)
	up := domain.Upload{
		ID:           id,
		OriginalName: upload.OriginalName,
		Path:         path,
		Size:         int64(len(data)),
		Hash:         hex.EncodeToString(sum[:])[:hashLen],
		UploadedAt:   time.Now().UTC(),
		URL:          s.store.PublicURL(path),
		SHA:          result.SHA,
	}

	if err = s.registry.Add(ctx, up); err != nil {
		return domain.Upload{}, fmt.Errorf("can't register upload: %w", err)
	}

	level.Info(s.logger).Log("msg", "upload relayed",
		"id", up.ID,
		"path", up.Path,
		"size", humanize.Bytes(uint64(up.Size)),
	)

	return up, nil
}

func (s *service) Uploads(ctx context.Context) ([]domain.Upload, error) {
	uploads, err := s.registry.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("can't list uploads: %w", err)
	}

	return uploads, nil
}

func (s *service) Download(ctx context.Context, id string) (domain.Upload, []byte, error) {
	up, err := s.registry.Get(ctx, id)
	if err != nil {
		return domain.Upload{}, nil, fmt.Errorf("can't get upload: %w", err)
	}

	data, err := s.store.Get(ctx, up.Path)
	if err != nil {
		return domain.Upload{}, nil, fmt.Errorf("can't get content: %w", err)
	}

	return up, data, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	up, err := s.registry.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("can't get upload: %w", err)
	}

	if err = s.store.Delete(ctx, up.Path, fmt.Sprintf("delete %s", filepath.Base(up.Path)), up.SHA); err != nil {
		return fmt.Errorf("can't delete content: %w", err)
	}

	if err = s.registry.Remove(ctx, id); err != nil {
		return fmt.Errorf("can't remove upload: %w", err)
	}

	level.Info(s.logger).Log("msg", "upload deleted",
		"id", id,
		"path", up.Path,
	)

	return nil
}

// sanitizeName reduces a client-supplied filename to a single safe path
// segment. The stored path is additionally namespaced by the upload id, so
// two uploads of the same name never collide.
func sanitizeName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	if base == "" || base == "." || base == ".." || base == "/" {
		return "", fmt.Errorf("invalid filename %q", name)
	}

	return base, nil
}

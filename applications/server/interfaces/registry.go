package interfaces

import (
	"context"
	"errors"

	"github.com/donmikel/gitdrop/applications/server/domain"
)

// ErrUploadNotFound is returned by registry lookups for unknown ids.
var ErrUploadNotFound = errors.New("upload not found")

type UploadRegistry interface {
	Add(ctx context.Context, upload domain.Upload) error
	Get(ctx context.Context, id string) (domain.Upload, error)
	List(ctx context.Context) ([]domain.Upload, error)
	Remove(ctx context.Context, id string) error
}

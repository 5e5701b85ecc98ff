package server

import (
	"context"

	"github.com/donmikel/gitdrop/applications/server/domain"
)

type UploadService interface {
	Relay(ctx context.Context, upload domain.IncomingUpload) (domain.Upload, error)
	Uploads(ctx context.Context) ([]domain.Upload, error)
	Download(ctx context.Context, id string) (domain.Upload, []byte, error)
	Delete(ctx context.Context, id string) error
}

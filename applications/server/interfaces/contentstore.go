package interfaces

import (
	"context"
	"encoding/json"
	"fmt"
)

// PutResult carries the fields of the store response the service needs.
type PutResult struct {
	DownloadURL string
	SHA         string
}

type ContentStore interface {
	Put(ctx context.Context, path, message string, content []byte) (PutResult, error)
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path, message, sha string) error
	PublicURL(path string) string
}

// RejectedError means the store answered at the transport level but the
// response body lacks the success marker (bad credentials, path conflict,
// quota and the like). Body holds the raw upstream response verbatim.
type RejectedError struct {
	Body json.RawMessage
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("content store rejected request: %s", e.Body)
}

package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/donmikel/gitdrop/applications/server/domain"
	"github.com/donmikel/gitdrop/applications/server/interfaces"
)

type inMemoryUploadRegistry struct {
	uploads map[string]domain.Upload
	mutex   sync.RWMutex
}

func NewUploadRegistry() interfaces.UploadRegistry {
	return &inMemoryUploadRegistry{
		uploads: map[string]domain.Upload{},
	}
}

func (i *inMemoryUploadRegistry) Add(ctx context.Context, upload domain.Upload) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if _, ok := i.uploads[upload.ID]; ok {
		return fmt.Errorf("upload with id = %s already registered", upload.ID)
	}

	i.uploads[upload.ID] = upload

	return nil
}

func (i *inMemoryUploadRegistry) Get(ctx context.Context, id string) (domain.Upload, error) {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	u, ok := i.uploads[id]
	if !ok {
		return domain.Upload{}, fmt.Errorf("upload with id = %s: %w", id, interfaces.ErrUploadNotFound)
	}

	return u, nil
}

func (i *inMemoryUploadRegistry) List(ctx context.Context) ([]domain.Upload, error) {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	result := make([]domain.Upload, 0, len(i.uploads))
	for _, u := range i.uploads {
		result = append(result, u)
	}

	sort.Slice(result, func(a, b int) bool {
		return result[a].UploadedAt.Before(result[b].UploadedAt)
	})

	return result, nil
}

func (i *inMemoryUploadRegistry) Remove(ctx context.Context, id string) error {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	if _, ok := i.uploads[id]; !ok {
		return fmt.Errorf("upload with id = %s: %w", id, interfaces.ErrUploadNotFound)
	}

	delete(i.uploads, id)

	return nil
}

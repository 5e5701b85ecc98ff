package domain

import "time"

// IncomingUpload is the per-request view of a client upload. TempPath
// points at bytes staged by the HTTP layer; the service owns their removal.
type IncomingUpload struct {
	OriginalName string
	TempPath     string
}

// Upload describes a file that has been relayed to the content store.
type Upload struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_filename"`
	Path         string    `json:"path"`
	Size         int64     `json:"file_size"`
	Hash         string    `json:"file_hash"`
	UploadedAt   time.Time `json:"upload_time"`
	URL          string    `json:"url"`
	// SHA is the store-side blob identifier, required to delete the file.
	SHA string `json:"-"`
}

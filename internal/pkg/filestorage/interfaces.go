package filestorage

import (
	"context"
	"mime/multipart"
)

// StoredBlob describes an uploaded blob
type StoredBlob struct {
	// Locator is the backend key the blob can be deleted by
	Locator string
	// URL is where clients fetch the blob
	URL      string
	Filename string
	MimeType string
	Size     int64
}

// BlobStore stores attachment bytes outside the database
type BlobStore interface {
	// Put stores an uploaded file
	Put(ctx context.Context, fileHeader *multipart.FileHeader) (StoredBlob, error)

	// Delete removes a blob. Deleting a blob that does not exist is not an error.
	Delete(ctx context.Context, locator string) error
}

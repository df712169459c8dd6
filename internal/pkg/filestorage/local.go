package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/yigit/classjournal/internal/pkg/logger"
)

// LocalStorage handles saving files to the local filesystem.
type LocalStorage struct {
	basePath string // root directory where files are stored
	baseURL  string // URL prefix the directory is served under
}

// NewLocalStorage creates a new LocalStorage instance and ensures basePath exists
func NewLocalStorage(basePath, baseURL string) (*LocalStorage, error) {
	// Ensure the base path exists
	if err := os.MkdirAll(basePath, os.ModePerm); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Info().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}, nil
}

// Put copies the upload under a random name and returns that name as its locator
func (ls *LocalStorage) Put(ctx context.Context, fileHeader *multipart.FileHeader) (StoredBlob, error) {
	if err := ctx.Err(); err != nil {
		return StoredBlob{}, err
	}

	// Open the uploaded file
	file, err := fileHeader.Open()
	if err != nil {
		logger.Error().Err(err).Str("filename", fileHeader.Filename).Msg("Failed to open uploaded file")
		return StoredBlob{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	// Generate a unique filename to prevent collisions
	name := uuid.New().String() + strings.ToLower(filepath.Ext(fileHeader.Filename))
	dstPath := filepath.Join(ls.basePath, name)

	// Create the destination file
	dst, err := os.Create(dstPath)
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to create destination file")
		return StoredBlob{}, fmt.Errorf("failed to create destination file: %w", err)
	}

	// Copy the uploaded file content to the destination file
	written, err := io.Copy(dst, file)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		logger.Error().Err(err).Str("path", dstPath).Msg("Failed to copy uploaded file content")
		// Attempt to remove the partially created file
		_ = os.Remove(dstPath)
		return StoredBlob{}, fmt.Errorf("failed to save file content: %w", err)
	}

	// Construct the accessible URL
	url := "/uploads/" + name
	if ls.baseURL != "" {
		url = ls.baseURL + "/" + name
	}

	logger.Debug().Str("filename", fileHeader.Filename).Str("locator", name).Int64("size", written).Msg("Blob stored")
	return StoredBlob{
		Locator:  name,
		URL:      url,
		Filename: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Size:     written,
	}, nil
}

// Delete removes a stored file. A missing file counts as deleted.
func (ls *LocalStorage) Delete(_ context.Context, locator string) error {
	if locator == "" {
		return nil // Nothing to delete
	}

	// Ensure we're only getting the filename portion
	name := filepath.Base(locator)
	if name == "." || name == string(filepath.Separator) || name == ".." {
		return fmt.Errorf("invalid blob locator: %s", locator)
	}

	physicalPath := filepath.Join(ls.basePath, name)
	if err := os.Remove(physicalPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Warn().Str("path", physicalPath).Msg("Blob to delete does not exist")
			return nil // Idempotent delete
		}
		logger.Error().Err(err).Str("path", physicalPath).Msg("Failed to delete blob")
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Path returns the filesystem path of a locator
func (ls *LocalStorage) Path(locator string) string {
	return filepath.Join(ls.basePath, filepath.Base(locator))
}

package filestorage

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/yigit/classjournal/internal/pkg/logger"
)

// CloudinaryStorage keeps attachments in a Cloudinary folder. Locators have the form
// "<resource type>:<public id>" since deletion needs both.
type CloudinaryStorage struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStorage creates a client for the given account
func NewCloudinaryStorage(cloudName, apiKey, apiSecret, folder string) (*CloudinaryStorage, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &CloudinaryStorage{cld: cld, folder: folder}, nil
}

// Put uploads a file and lets Cloudinary detect its resource type
func (s *CloudinaryStorage) Put(ctx context.Context, fileHeader *multipart.FileHeader) (StoredBlob, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return StoredBlob{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()

	result, err := s.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:       s.folder,
		ResourceType: "auto",
	})
	if err != nil {
		return StoredBlob{}, fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if result.Error.Message != "" {
		return StoredBlob{}, fmt.Errorf("cloudinary rejected upload: %s", result.Error.Message)
	}

	logger.Debug().Str("publicID", result.PublicID).Str("resourceType", result.ResourceType).Msg("Blob uploaded to Cloudinary")
	return StoredBlob{
		Locator:  result.ResourceType + ":" + result.PublicID,
		URL:      result.SecureURL,
		Filename: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Size:     int64(result.Bytes),
	}, nil
}

// Delete destroys the asset. Cloudinary reports a missing asset as "not found", which is not an error here.
func (s *CloudinaryStorage) Delete(ctx context.Context, locator string) error {
	if locator == "" {
		return nil
	}
	resourceType, publicID, ok := strings.Cut(locator, ":")
	if !ok {
		resourceType, publicID = "image", locator
	}

	result, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID:     publicID,
		ResourceType: resourceType,
	})
	if err != nil {
		return fmt.Errorf("failed to delete from Cloudinary: %w", err)
	}
	if result.Result != "ok" && result.Result != "not found" {
		return fmt.Errorf("cloudinary destroy returned %q", result.Result)
	}
	return nil
}

package repository

import (
	"context"
	"fmt"

	apperrors "go-leaf-inspector/internal/errors"
	"go-leaf-inspector/internal/storage"
	"go-leaf-inspector/pkg/models"
	"go-leaf-inspector/pkg/validation"
)

// RemoteImageRepository routes URL references to an HTTP fetcher and blob
// references to blob storage
type RemoteImageRepository struct {
	urlFetcher  storage.ImageFetcher
	blobFetcher storage.ImageFetcher
	validator   *validation.URLValidator
}

// NewRemoteImageRepository creates a repository. blobFetcher may be nil when
// blob storage is not configured.
func NewRemoteImageRepository(urlFetcher, blobFetcher storage.ImageFetcher, validator *validation.URLValidator) *RemoteImageRepository {
	if validator == nil {
		validator = validation.NewURLValidator()
	}
	return &RemoteImageRepository{
		urlFetcher:  urlFetcher,
		blobFetcher: blobFetcher,
		validator:   validator,
	}
}

// ValidateReference checks a reference without touching the network
func (r *RemoteImageRepository) ValidateReference(ref models.ImageReference) error {
	if ref.IsBlob() {
		if ref.Container == "" || ref.Blob == "" {
			return apperrors.NewValidationError("Both container and blob are required.", ErrInvalidReference)
		}
		if r.blobFetcher == nil {
			return apperrors.NewNotFoundError("Blob storage is not available.", ErrBlobStorageDisabled)
		}
		return nil
	}
	return r.validator.ValidateImageURL(ref.URL)
}

// FetchImage downloads the referenced image
func (r *RemoteImageRepository) FetchImage(ctx context.Context, ref models.ImageReference) (*models.UploadedImage, error) {
	if err := r.ValidateReference(ref); err != nil {
		return nil, err
	}

	var (
		img *models.UploadedImage
		err error
	)
	if ref.IsBlob() {
		img, err = r.blobFetcher.FetchImage(ctx, storage.BlobLocation(ref.Container, ref.Blob))
	} else {
		img, err = r.urlFetcher.FetchImage(ctx, ref.URL)
	}
	if err != nil {
		return nil, apperrors.NewTransportError("Could not download the image. Please check the link and try again.",
			fmt.Errorf("fetch %s: %w", describe(ref), err))
	}
	return img, nil
}

func describe(ref models.ImageReference) string {
	if ref.IsBlob() {
		return "blob " + storage.BlobLocation(ref.Container, ref.Blob)
	}
	return ref.URL
}

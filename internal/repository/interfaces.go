package repository

import (
	"context"

	"go-leaf-inspector/pkg/models"
)

// ImageRepository resolves references to remote images into uploaded images
type ImageRepository interface {
	// FetchImage downloads the referenced image
	FetchImage(ctx context.Context, ref models.ImageReference) (*models.UploadedImage, error)

	// ValidateReference checks a reference without touching the network
	ValidateReference(ref models.ImageReference) error
}

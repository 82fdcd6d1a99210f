package validation

import (
	"mime"
	"strings"

	apperrors "go-leaf-inspector/internal/errors"
	"go-leaf-inspector/pkg/models"
)

// DefaultMaxImageSize is the largest accepted upload, 5 MiB
const DefaultMaxImageSize int64 = 5 * 1024 * 1024

const (
	MsgMissingImage     = "Please select an image file to analyze."
	MsgImageTooLarge    = "File size should be less than 5MB."
	MsgUnsupportedImage = "Only .jpg, .jpeg, and .png formats are supported."
)

// ImageValidator checks uploaded image metadata before any processing happens
type ImageValidator struct {
	maxSize      int64
	allowedTypes []string
}

// NewImageValidator creates a validator accepting JPEG and PNG up to 5 MiB
func NewImageValidator() *ImageValidator {
	return NewImageValidatorWithOptions(DefaultMaxImageSize, nil)
}

// NewImageValidatorWithOptions creates a validator with a custom size limit and type list.
// A nil type list keeps the defaults.
func NewImageValidatorWithOptions(maxSize int64, allowedTypes []string) *ImageValidator {
	if maxSize <= 0 {
		maxSize = DefaultMaxImageSize
	}
	if allowedTypes == nil {
		allowedTypes = []string{"image/jpeg", "image/png", "image/jpg"}
	}
	return &ImageValidator{
		maxSize:      maxSize,
		allowedTypes: allowedTypes,
	}
}

// MaxSize returns the size limit in bytes
func (v *ImageValidator) MaxSize() int64 {
	return v.maxSize
}

// ValidateImage checks presence, size and media type, in that order.
// Only metadata is inspected; the image content is never read.
func (v *ImageValidator) ValidateImage(img *models.UploadedImage) error {
	if img == nil || img.Size == 0 {
		return apperrors.NewValidationError(MsgMissingImage, nil)
	}

	if img.Size > v.maxSize {
		return apperrors.NewValidationError(MsgImageTooLarge, nil)
	}

	if !v.isTypeAllowed(img.ContentType) {
		return apperrors.NewValidationError(MsgUnsupportedImage, nil).
			WithDetails("content type: " + img.ContentType)
	}

	return nil
}

// isTypeAllowed compares the media type ignoring parameters and case
func (v *ImageValidator) isTypeAllowed(contentType string) bool {
	mediaType := NormalizeMediaType(contentType)
	if mediaType == "" {
		return false
	}
	for _, allowed := range v.allowedTypes {
		if mediaType == allowed {
			return true
		}
	}
	return false
}

// NormalizeMediaType strips parameters and lowercases a Content-Type value
func NormalizeMediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

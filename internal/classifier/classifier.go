package classifier

import (
	"context"

	"go-leaf-inspector/pkg/models"
)

const (
	// UnknownLabel is reported when no label has a positive confidence
	UnknownLabel = "Unknown"
	// HealthyLabel marks a leaf without disease; it is matched exactly
	HealthyLabel = "Healthy"
)

// Classifier sends an image to a disease classification model
type Classifier interface {
	Classify(ctx context.Context, img *models.UploadedImage) (models.Classification, error)
}

// SelectWinner returns the label with the strictly greatest confidence.
// The running maximum starts at ("Unknown", 0) and is only replaced by a strictly
// greater score, so the first of several tied labels wins and an empty or
// all-zero classification yields UnknownLabel.
func SelectWinner(classification models.Classification) (string, float64) {
	label, confidence := UnknownLabel, 0.0
	for _, entry := range classification {
		if entry.Confidence > confidence {
			label, confidence = entry.Label, entry.Confidence
		}
	}
	return label, confidence
}

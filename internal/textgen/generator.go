package textgen

import (
	"context"
	"errors"

	"go-leaf-inspector/pkg/models"
)

// ErrUnavailable is returned when no text generation backend is configured
var ErrUnavailable = errors.New("text generation is not configured")

// Generator produces explanatory text for a detected disease
type Generator interface {
	// GenerateTreatmentGuidance returns markdown treatment steps for disease
	GenerateTreatmentGuidance(ctx context.Context, disease string) (string, error)
	// GetDiseaseInfo returns a description, symptoms and cause for disease
	GetDiseaseInfo(ctx context.Context, disease string) (*models.DiseaseInfo, error)
}

// Unavailable is a Generator that always fails. It is installed when no
// provider is configured so every diseased result carries fallback content.
type Unavailable struct{}

func (Unavailable) GenerateTreatmentGuidance(context.Context, string) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) GetDiseaseInfo(context.Context, string) (*models.DiseaseInfo, error) {
	return nil, ErrUnavailable
}

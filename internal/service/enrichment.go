package service

import (
	"context"
	"fmt"
	"strings"

	apperrors "go-leaf-inspector/internal/errors"
	"go-leaf-inspector/internal/observer"
	"go-leaf-inspector/pkg/models"

	"golang.org/x/sync/errgroup"
)

const (
	FallbackTreatment   = "Could not generate AI treatment guidance at this time. Please consult a local agricultural expert."
	FallbackDescription = "Information not available."
	FallbackCause       = "Not available."
)

// FallbackInfo returns the disease info shown when text generation fails
func FallbackInfo() *models.DiseaseInfo {
	return &models.DiseaseInfo{
		Description: FallbackDescription,
		Symptoms:    []string{},
		Cause:       FallbackCause,
	}
}

// NormalizeLabel turns a classifier label into prompt and display text
func NormalizeLabel(label string) string {
	return strings.ReplaceAll(label, "_", " ")
}

// enrich runs both generator calls concurrently and waits for both.
// If either fails, both outputs are replaced by fallback content so the
// result never mixes generated and fallback text.
func (s *analysisService) enrich(ctx context.Context, label string) (*string, *models.DiseaseInfo) {
	disease := NormalizeLabel(label)

	var (
		treatment string
		info      *models.DiseaseInfo
		g         errgroup.Group
	)
	g.Go(func() error {
		text, err := s.generator.GenerateTreatmentGuidance(ctx, disease)
		if err != nil {
			return fmt.Errorf("treatment guidance: %w", err)
		}
		treatment = text
		return nil
	})
	g.Go(func() error {
		result, err := s.generator.GetDiseaseInfo(ctx, disease)
		if err != nil {
			return fmt.Errorf("disease info: %w", err)
		}
		if result == nil {
			return fmt.Errorf("disease info: empty result")
		}
		info = result
		return nil
	})

	if err := g.Wait(); err != nil {
		s.events.NotifyObservers(ctx, observer.AnalysisEvent{
			EventType:    observer.EnrichmentFallback,
			Disease:      label,
			ErrorType:    string(apperrors.ErrorTypeEnrichment),
			ErrorMessage: err.Error(),
		})
		fallback := FallbackTreatment
		return &fallback, FallbackInfo()
	}

	return &treatment, info
}

package service

import (
	"context"
	"encoding/base64"
	"time"

	"go-leaf-inspector/internal/classifier"
	apperrors "go-leaf-inspector/internal/errors"
	"go-leaf-inspector/internal/observer"
	"go-leaf-inspector/internal/repository"
	"go-leaf-inspector/internal/textgen"
	"go-leaf-inspector/pkg/models"
	"go-leaf-inspector/pkg/validation"
)

// Image sources reported in pipeline events
const (
	SourceUpload = "upload"
	SourceURL    = "url"
	SourceBlob   = "blob"
)

const (
	MsgUnidentified    = "Could not identify the disease from the image."
	MsgUnexpected      = "An unexpected error occurred. Please try again."
	MsgRemoteIntakeOff = "Analyzing images by reference is not available."
)

// AnalysisService runs the leaf analysis pipeline
type AnalysisService interface {
	// Analyze validates, classifies and, for diseased leaves, enriches an uploaded image
	Analyze(ctx context.Context, img *models.UploadedImage) models.AnalysisOutcome

	// AnalyzeRemote downloads the referenced image and analyzes it like an upload
	AnalyzeRemote(ctx context.Context, ref models.ImageReference) models.AnalysisOutcome
}

// analysisService holds no per-request state; every call is an independent pipeline run
type analysisService struct {
	validator  *validation.ImageValidator
	classifier classifier.Classifier
	generator  textgen.Generator
	images     repository.ImageRepository
	events     observer.Subject
}

// NewAnalysisService creates the analysis pipeline.
// images may be nil when remote intake is disabled, events may be nil.
func NewAnalysisService(
	validator *validation.ImageValidator,
	imageClassifier classifier.Classifier,
	generator textgen.Generator,
	images repository.ImageRepository,
	events observer.Subject,
) AnalysisService {
	if validator == nil {
		validator = validation.NewImageValidator()
	}
	if generator == nil {
		generator = textgen.Unavailable{}
	}
	if events == nil {
		events = observer.NewEventPublisher()
	}
	return &analysisService{
		validator:  validator,
		classifier: imageClassifier,
		generator:  generator,
		images:     images,
		events:     events,
	}
}

func (s *analysisService) Analyze(ctx context.Context, img *models.UploadedImage) models.AnalysisOutcome {
	return s.run(ctx, SourceUpload, func(context.Context) (*models.UploadedImage, error) {
		return img, nil
	})
}

func (s *analysisService) AnalyzeRemote(ctx context.Context, ref models.ImageReference) models.AnalysisOutcome {
	source := SourceURL
	if ref.IsBlob() {
		source = SourceBlob
	}
	return s.run(ctx, source, func(ctx context.Context) (*models.UploadedImage, error) {
		return s.fetch(ctx, source, ref)
	})
}

// run executes one pipeline. Outbound calls are detached from the caller's
// cancellation; only the transports' own timeouts bound them.
func (s *analysisService) run(ctx context.Context, source string, load func(context.Context) (*models.UploadedImage, error)) models.AnalysisOutcome {
	start := time.Now()
	ctx = context.WithoutCancel(ctx)

	s.events.NotifyObservers(ctx, observer.AnalysisEvent{EventType: observer.AnalysisStarted, Source: source})

	img, err := load(ctx)
	if err != nil {
		return s.fail(ctx, source, start, err)
	}

	result, err := s.analyze(ctx, img)
	if err != nil {
		return s.fail(ctx, source, start, err)
	}

	s.events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		Source:         source,
		Disease:        result.Disease,
		Confidence:     result.Confidence,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata: map[string]interface{}{
			"enriched": result.Info != nil,
		},
	})
	return models.SuccessOutcome(result)
}

func (s *analysisService) analyze(ctx context.Context, img *models.UploadedImage) (*models.AnalysisResult, error) {
	if err := s.validator.ValidateImage(img); err != nil {
		return nil, err
	}

	classification, err := s.classifier.Classify(ctx, img)
	if err != nil {
		return nil, err
	}

	disease, confidence := classifier.SelectWinner(classification)
	if disease == classifier.UnknownLabel {
		return nil, apperrors.NewAmbiguousError(MsgUnidentified)
	}

	result := &models.AnalysisResult{
		Disease:    disease,
		Confidence: confidence,
	}
	if disease != classifier.HealthyLabel {
		result.Treatment, result.Info = s.enrich(ctx, disease)
	}

	data, err := img.Bytes()
	if err != nil {
		return nil, apperrors.NewInternalError(MsgUnexpected, err)
	}
	result.ImageURL = EncodeDataURL(img.ContentType, data)

	return result, nil
}

func (s *analysisService) fetch(ctx context.Context, source string, ref models.ImageReference) (*models.UploadedImage, error) {
	if s.images == nil {
		return nil, apperrors.NewNotFoundError(MsgRemoteIntakeOff, repository.ErrBlobStorageDisabled)
	}

	img, err := s.images.FetchImage(ctx, ref)
	if err != nil {
		s.events.NotifyObservers(ctx, observer.AnalysisEvent{
			EventType:    observer.ImageFetchFailed,
			Source:       source,
			ErrorMessage: err.Error(),
		})
		return nil, err
	}

	s.events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType: observer.ImageFetched,
		Source:    source,
		Success:   true,
		Metadata: map[string]interface{}{
			"content_type": img.ContentType,
			"size":         img.Size,
		},
	})
	return img, nil
}

func (s *analysisService) fail(ctx context.Context, source string, start time.Time, err error) models.AnalysisOutcome {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.NewInternalError(MsgUnexpected, err)
	}

	s.events.NotifyObservers(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisFailed,
		Source:         source,
		ProcessingTime: time.Since(start),
		ErrorType:      string(appErr.Type),
		ErrorMessage:   appErr.Error(),
	})
	return models.FailureOutcome(string(appErr.Type), appErr.Message)
}

// EncodeDataURL embeds data as a base64 data URL of the given media type
func EncodeDataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

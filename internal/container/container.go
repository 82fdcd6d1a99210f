package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go-leaf-inspector/internal/classifier"
	"go-leaf-inspector/internal/config"
	"go-leaf-inspector/internal/factory"
	"go-leaf-inspector/internal/logger"
	"go-leaf-inspector/internal/observer"
	"go-leaf-inspector/internal/repository"
	"go-leaf-inspector/internal/service"
	"go-leaf-inspector/internal/storage"
	"go-leaf-inspector/internal/textgen"
	"go-leaf-inspector/internal/transport"
	"go-leaf-inspector/pkg/validation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Container holds all application dependencies
type Container struct {
	config          *config.Config
	registry        *prometheus.Registry
	classifier      classifier.Classifier
	generator       textgen.Generator
	imageRepository repository.ImageRepository
	events          *observer.EventPublisher
	analysisService service.AnalysisService
	handler         http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	components := factory.NewComponentFactory(cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observer.NewMetricsObserver(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	events := observer.NewEventPublisher(observer.NewLoggingObserver(logger.Logger), metrics)

	// Build dependency graph
	leafClassifier := classifier.NewHTTPClassifier(cfg.ClassifierURL, cfg.ClassifierTimeout)

	generator, err := components.TextGeneratorFactory.CreateGenerator(ctx, cfg.TextGenProvider)
	if err != nil {
		return nil, fmt.Errorf("failed to create text generator: %w", err)
	}

	urlFetcher, err := components.StorageFactory.CreateStorage(factory.HTTPStorage)
	if err != nil {
		return nil, fmt.Errorf("failed to create image fetcher: %w", err)
	}
	var blobFetcher storage.ImageFetcher
	blobFetcher, err = components.StorageFactory.CreateStorage(factory.AzureStorage)
	switch {
	case errors.Is(err, factory.ErrStorageNotConfigured):
		logger.Info("Blob storage intake disabled")
	case err != nil:
		return nil, fmt.Errorf("failed to create blob storage: %w", err)
	}

	imageRepository := repository.NewRemoteImageRepository(urlFetcher, blobFetcher, validation.NewURLValidator())
	analysisService := service.NewAnalysisService(
		validation.NewImageValidatorWithOptions(cfg.MaxImageSize, nil),
		leafClassifier,
		generator,
		imageRepository,
		events,
	)
	handler := transport.NewHandler(analysisService, registry, cfg)

	return &Container{
		config:          cfg,
		registry:        registry,
		classifier:      leafClassifier,
		generator:       generator,
		imageRepository: imageRepository,
		events:          events,
		analysisService: analysisService,
		handler:         handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// AnalysisService returns the analysis pipeline
func (c *Container) AnalysisService() service.AnalysisService {
	return c.analysisService
}

// Registry returns the Prometheus registry backing /metrics
func (c *Container) Registry() *prometheus.Registry {
	return c.registry
}

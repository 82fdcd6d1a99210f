package factory

import (
	"context"
	"errors"
	"fmt"

	"go-leaf-inspector/internal/config"
	"go-leaf-inspector/internal/storage"
	"go-leaf-inspector/internal/textgen"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
)

// ErrStorageNotConfigured is returned for a backend whose credentials are missing
var ErrStorageNotConfigured = errors.New("storage backend is not configured")

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.ImageFetcher, error)
}

// TextGeneratorFactory creates text generators
type TextGeneratorFactory interface {
	CreateGenerator(ctx context.Context, provider string) (textgen.Generator, error)
}

// storageFactory implements StorageFactory
type storageFactory struct {
	cfg *config.Config
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(cfg *config.Config) StorageFactory {
	return &storageFactory{cfg: cfg}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.ImageFetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPImageFetcher(f.cfg.ImageFetchTimeout, f.cfg.MaxImageSize), nil
	case AzureStorage:
		if !f.cfg.BlobStorageEnabled() {
			return nil, ErrStorageNotConfigured
		}
		blobs, err := storage.NewAzureStorage(f.cfg.AzureStorageAccount, f.cfg.AzureStorageKey, f.cfg.MaxImageSize)
		if err != nil {
			return nil, err
		}
		return blobs, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// textGeneratorFactory implements TextGeneratorFactory
type textGeneratorFactory struct {
	cfg *config.Config
}

// NewTextGeneratorFactory creates a new text generator factory
func NewTextGeneratorFactory(cfg *config.Config) TextGeneratorFactory {
	return &textGeneratorFactory{cfg: cfg}
}

// CreateGenerator creates a generator for the named provider
func (f *textGeneratorFactory) CreateGenerator(ctx context.Context, provider string) (textgen.Generator, error) {
	switch provider {
	case config.TextGenProviderGenAI:
		generator, err := textgen.NewGenAIGenerator(ctx, textgen.GenAIOptions{
			APIKey:  f.cfg.GeminiAPIKey,
			Model:   f.cfg.GeminiModel,
			Timeout: f.cfg.TextGenTimeout,
		})
		if err != nil {
			return nil, err
		}
		return generator, nil
	case config.TextGenProviderNone:
		return textgen.Unavailable{}, nil
	default:
		return nil, fmt.Errorf("unsupported text generation provider: %s", provider)
	}
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	StorageFactory       StorageFactory
	TextGeneratorFactory TextGeneratorFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{
		StorageFactory:       NewStorageFactory(cfg),
		TextGeneratorFactory: NewTextGeneratorFactory(cfg),
	}
}

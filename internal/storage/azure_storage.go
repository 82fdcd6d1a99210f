package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"go-leaf-inspector/pkg/models"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// BlobStorage reads images from Azure Blob Storage.
// Locations have the form "<container>/<blob name>".
type BlobStorage struct {
	client   *azblob.Client
	maxBytes int64
}

// NewAzureStorage creates blob storage for a storage account using a shared key
func NewAzureStorage(accountName, accountKey string, maxBytes int64) (*BlobStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("invalid storage credentials: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net/", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return NewBlobStorageWithClient(client, maxBytes), nil
}

// NewBlobStorageWithClient wraps an existing blob client
func NewBlobStorageWithClient(client *azblob.Client, maxBytes int64) *BlobStorage {
	return &BlobStorage{client: client, maxBytes: maxBytes}
}

// BlobLocation joins a container and blob name into a fetch location
func BlobLocation(container, blob string) string {
	return container + "/" + strings.TrimPrefix(blob, "/")
}

// FetchImage downloads the blob at location
func (s *BlobStorage) FetchImage(ctx context.Context, location string) (*models.UploadedImage, error) {
	containerName, blobName, ok := strings.Cut(strings.TrimPrefix(location, "/"), "/")
	if !ok || containerName == "" || blobName == "" {
		return nil, fmt.Errorf("invalid blob location %q", location)
	}

	resp, err := s.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	body := resp.Body
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read blob: %w", err)
	}

	contentType := ""
	if resp.ContentType != nil {
		contentType = *resp.ContentType
	}
	return models.NewImageFromBytes(path.Base(blobName), detectContentType(contentType, data), data), nil
}

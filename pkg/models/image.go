package models

import (
	"bytes"
	"fmt"
	"io"
)

// UploadedImage is an image submitted for analysis.
// Metadata is available up front; the content is read at most once through Bytes.
type UploadedImage struct {
	Filename    string
	ContentType string
	Size        int64

	open   func() (io.ReadCloser, error)
	data   []byte
	loaded bool
}

// NewUploadedImage creates an image whose content is read lazily from open
func NewUploadedImage(filename, contentType string, size int64, open func() (io.ReadCloser, error)) *UploadedImage {
	return &UploadedImage{
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		open:        open,
	}
}

// NewImageFromBytes creates an image from content already held in memory
func NewImageFromBytes(filename, contentType string, data []byte) *UploadedImage {
	img := NewUploadedImage(filename, contentType, int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
	return img
}

// Bytes returns the image content, reading it on first use
func (i *UploadedImage) Bytes() ([]byte, error) {
	if i.loaded {
		return i.data, nil
	}
	if i.open == nil {
		return nil, fmt.Errorf("image %q has no content", i.Filename)
	}

	rc, err := i.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	i.data = data
	i.loaded = true
	return data, nil
}

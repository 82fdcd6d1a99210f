package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go-leaf-inspector/pkg/models"
	"go-leaf-inspector/pkg/validation"

	"github.com/gabriel-vasile/mimetype"
)

// ImageFetcher downloads image bytes from a location
type ImageFetcher interface {
	FetchImage(ctx context.Context, location string) (*models.UploadedImage, error)
}

// HTTPImageFetcher downloads images over HTTP(S) with a small retry budget
type HTTPImageFetcher struct {
	client   *http.Client
	maxBytes int64
	attempts int
	backoff  time.Duration
}

// NewHTTPImageFetcher creates an HTTP image fetcher.
// At most maxBytes+1 bytes are read so that oversized images are still reported as oversized.
func NewHTTPImageFetcher(timeout time.Duration, maxBytes int64) *HTTPImageFetcher {
	transport := &http.Transport{
		Proxy:                  http.ProxyFromEnvironment,
		MaxIdleConns:           10,
		MaxIdleConnsPerHost:    2,
		IdleConnTimeout:        30 * time.Second,
		TLSHandshakeTimeout:    10 * time.Second,
		ResponseHeaderTimeout:  10 * time.Second,
		ExpectContinueTimeout:  1 * time.Second,
		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxBytes: maxBytes,
		attempts: 3,
		backoff:  time.Second,
	}
}

// WithBackoff sets the base delay between attempts
func (h *HTTPImageFetcher) WithBackoff(backoff time.Duration) *HTTPImageFetcher {
	h.backoff = backoff
	return h
}

// FetchImage downloads imageURL. Transport errors and 5xx responses are retried,
// 4xx responses are not.
func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (*models.UploadedImage, error) {
	var lastErr error

	for attempt := 0; attempt < h.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * h.backoff):
			}
		}

		img, retryable, err := h.fetchOnce(ctx, imageURL)
		if err == nil {
			return img, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}

	return nil, fmt.Errorf("failed to fetch image after %d attempts: %w", h.attempts, lastErr)
}

func (h *HTTPImageFetcher) fetchOnce(ctx context.Context, imageURL string) (*models.UploadedImage, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, */*")
	req.Header.Set("User-Agent", "Go-Leaf-Inspector/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("server error: status code %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, false, fmt.Errorf("client error: status code %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
	if err != nil {
		return nil, true, fmt.Errorf("failed to read image: %w", err)
	}

	return models.NewImageFromBytes(filenameFromURL(imageURL), detectContentType(resp.Header.Get("Content-Type"), data), data), false, nil
}

// detectContentType trusts an image Content-Type header and sniffs the bytes otherwise
func detectContentType(header string, data []byte) string {
	if mediaType := validation.NormalizeMediaType(header); strings.HasPrefix(mediaType, "image/") {
		return mediaType
	}
	return mimetype.Detect(data).String()
}

func filenameFromURL(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "image"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "image"
	}
	return name
}

package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	apperrors "go-leaf-inspector/internal/errors"
	"go-leaf-inspector/internal/logger"
	"go-leaf-inspector/pkg/models"

	"github.com/sirupsen/logrus"
)

const (
	// FormField is the multipart field the classifier reads the image from
	FormField = "file"

	MsgConnectFailed   = "Could not connect to the analysis service. Please check your network connection and try again."
	MsgInvalidResponse = "Analysis failed: The service returned an invalid response format."
	msgServiceError    = "Failed to analyze image. The service returned an error: %s"

	maxResponseBytes = 4 << 20
)

// HTTPClassifier calls a remote classification endpoint over HTTP.
// Each call is a single attempt; failures are never retried.
type HTTPClassifier struct {
	endpoint string
	client   *http.Client
}

// NewHTTPClassifier creates a classifier client for endpoint
func NewHTTPClassifier(endpoint string, timeout time.Duration) *HTTPClassifier {
	return NewHTTPClassifierWithClient(endpoint, &http.Client{Timeout: timeout})
}

// NewHTTPClassifierWithClient creates a classifier client using the given HTTP client
func NewHTTPClassifierWithClient(endpoint string, client *http.Client) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: endpoint,
		client:   client,
	}
}

// Classify posts the image as multipart field "file" and decodes the label scores
func (c *HTTPClassifier) Classify(ctx context.Context, img *models.UploadedImage) (models.Classification, error) {
	data, err := img.Bytes()
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to read the uploaded image.", err)
	}

	body, contentType, err := encodeMultipart(img, data)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to prepare the image for analysis.", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return nil, apperrors.NewInternalError("Failed to prepare the image for analysis.", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Bypass-Tunnel-Reminder", "true")

	resp, err := c.client.Do(req)
	if err != nil {
		logger.WithError(err).WithField("endpoint", c.endpoint).Error("Classifier request failed")
		return nil, apperrors.NewTransportError(MsgConnectFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		reason := statusText(resp)
		logger.WithFields(logrus.Fields{
			"endpoint":    c.endpoint,
			"status_code": resp.StatusCode,
			"status":      reason,
			"body":        string(errorBody),
		}).Error("Classifier returned an error status")
		return nil, apperrors.NewUpstreamError(fmt.Sprintf(msgServiceError, reason), nil).
			WithDetails(string(errorBody))
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		logger.WithError(err).WithField("endpoint", c.endpoint).Error("Failed to read classifier response")
		return nil, apperrors.NewTransportError(MsgConnectFailed, err)
	}

	var decoded models.ClassificationResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		logger.WithError(err).WithField("body", string(raw)).Error("Classifier response is not valid JSON")
		return nil, apperrors.NewUpstreamError(MsgInvalidResponse, err)
	}
	if decoded.Result == nil || decoded.Result.Classification == nil {
		logger.WithField("body", string(raw)).Error("Classifier response has no classification")
		return nil, apperrors.NewUpstreamError(MsgInvalidResponse, nil)
	}

	return decoded.Result.Classification, nil
}

func encodeMultipart(img *models.UploadedImage, data []byte) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filename := img.Filename
	if filename == "" {
		filename = "blob"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FormField, escapeQuotes(filename)))
	header.Set("Content-Type", img.ContentType)

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// statusText returns the reason phrase sent by the server, e.g. "Service Unavailable"
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

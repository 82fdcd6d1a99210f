package transport

import (
	"errors"
	"io"
	"net/http"
	"time"

	"go-leaf-inspector/internal/config"
	apperrors "go-leaf-inspector/internal/errors"
	"go-leaf-inspector/internal/logger"
	"go-leaf-inspector/internal/service"
	"go-leaf-inspector/pkg/models"
	"go-leaf-inspector/pkg/validation"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// ImageField is the multipart field carrying the uploaded leaf photo
const ImageField = "image"

const (
	msgInvalidForm    = "Could not read the uploaded form. Please try again."
	msgInvalidRequest = "Invalid request format."
	version           = "1.0.0"
)

// NewHandler builds the HTTP API. gatherer may be nil, in which case /metrics is not served.
func NewHandler(svc service.AnalysisService, gatherer prometheus.Gatherer, cfg *config.Config) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		cors.New(corsConfig(cfg.CORSAllowedOrigins)),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	// Configure routes
	r.GET("/health", healthCheck)
	if gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	api.POST("/analyze", analyzeUpload(svc))
	api.POST("/analyze/url", analyzeURL(svc))
	api.POST("/analyze/blob", analyzeBlob(svc))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   http.StatusText(http.StatusNotFound),
			Message: "no route for " + c.Request.Method + " " + c.Request.URL.Path,
		})
	})

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}

func analyzeUpload(svc service.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger.WithFields(requestFields(c)).Info("Processing leaf upload")

		var img *models.UploadedImage
		file, err := c.FormFile(ImageField)
		switch {
		case err == nil:
			img = models.NewUploadedImage(file.Filename, file.Header.Get("Content-Type"), file.Size, func() (io.ReadCloser, error) {
				return file.Open()
			})
		case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
			// no file; the validator reports it
		default:
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				_ = c.Error(apperrors.NewValidationError(validation.MsgImageTooLarge, err))
				return
			}
			_ = c.Error(apperrors.NewValidationError(msgInvalidForm, err))
			return
		}

		respondOutcome(c, svc.Analyze(c.Request.Context(), img))
	}
}

func analyzeURL(svc service.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger.WithFields(requestFields(c)).Info("Processing leaf image URL")

		var req models.AnalyzeURLRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperrors.NewValidationError(msgInvalidRequest, err))
			return
		}

		respondOutcome(c, svc.AnalyzeRemote(c.Request.Context(), models.ImageReference{URL: req.URL}))
	}
}

func analyzeBlob(svc service.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger.WithFields(requestFields(c)).Info("Processing leaf image blob")

		var req models.AnalyzeBlobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperrors.NewValidationError(msgInvalidRequest, err))
			return
		}

		ref := models.ImageReference{Container: req.Container, Blob: req.Blob}
		respondOutcome(c, svc.AnalyzeRemote(c.Request.Context(), ref))
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// respondOutcome writes the outcome with a status derived from its error type
func respondOutcome(c *gin.Context, outcome models.AnalysisOutcome) {
	status := http.StatusOK
	if !outcome.Success {
		status = apperrors.StatusCodeFor(apperrors.ErrorType(outcome.ErrorType))
	}
	c.JSON(status, outcome)
}

func requestFields(c *gin.Context) logrus.Fields {
	return logrus.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"ip":         c.ClientIP(),
	}
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// errorHandler turns errors attached by handlers into a failure outcome
func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		appErr, ok := apperrors.As(err)
		if !ok {
			appErr = apperrors.NewInternalError(service.MsgUnexpected, err)
		}

		fields := requestFields(c)
		fields["status_code"] = appErr.StatusCode
		logger.WithError(err).WithFields(fields).Error("Request failed")

		c.AbortWithStatusJSON(appErr.StatusCode, models.FailureOutcome(string(appErr.Type), appErr.Message))
	}
}

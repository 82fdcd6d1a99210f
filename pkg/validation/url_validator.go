package validation

import (
	"net/url"
	"strings"

	apperrors "go-leaf-inspector/internal/errors"
)

const (
	MsgMissingURL    = "Please provide an image URL to analyze."
	MsgInvalidURL    = "The image URL is not valid."
	MsgURLScheme     = "Only http and https image URLs are supported."
	MsgURLHost       = "The image URL must include a host."
	MsgURLHostDenied = "Images from this host are not accepted."
)

// URLValidator checks image URLs submitted for remote intake
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator creates a URL validator with default settings
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateImageURL validates if the provided URL can be fetched for analysis
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	if strings.TrimSpace(imageURL) == "" {
		return apperrors.NewValidationError(MsgMissingURL, nil)
	}

	parsedURL, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil {
		return apperrors.NewValidationError(MsgInvalidURL, err)
	}

	if !v.isSchemeAllowed(parsedURL.Scheme) {
		return apperrors.NewValidationError(MsgURLScheme, nil)
	}

	if parsedURL.Hostname() == "" {
		return apperrors.NewValidationError(MsgURLHost, nil)
	}

	if !v.isHostAllowed(parsedURL.Hostname()) {
		return apperrors.NewValidationError(MsgURLHostDenied, nil)
	}

	return nil
}

func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	scheme = strings.ToLower(scheme)
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed returns true if no host restrictions are set
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}

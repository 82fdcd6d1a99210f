package models

// AnalyzeURLRequest asks for analysis of an image reachable over HTTP(S)
type AnalyzeURLRequest struct {
	URL string `json:"url" binding:"required,url"`
}

// AnalyzeBlobRequest asks for analysis of an image stored in blob storage
type AnalyzeBlobRequest struct {
	Container string `json:"container" binding:"required"`
	Blob      string `json:"blob" binding:"required"`
}

// ImageReference locates a remote image. Exactly one of URL or Container/Blob is set.
type ImageReference struct {
	URL       string
	Container string
	Blob      string
}

// IsBlob reports whether the reference points into blob storage
func (r ImageReference) IsBlob() bool {
	return r.URL == "" && (r.Container != "" || r.Blob != "")
}

// ErrorResponse represents an error response outside the analysis pipeline
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

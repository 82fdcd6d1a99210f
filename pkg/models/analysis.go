package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LabelScore pairs a disease label with the classifier's confidence in it
type LabelScore struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classification is the classifier's label -> confidence mapping.
// Entries keep the key order of the response document they were decoded from.
type Classification []LabelScore

// UnmarshalJSON decodes a JSON object while preserving key order.
// A JSON null leaves the classification nil, an empty object yields an empty non-nil value.
func (c *Classification) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("classification must be a JSON object, got %v", tok)
	}

	entries := Classification{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected classification key %v", keyTok)
		}

		var confidence float64
		if err := dec.Decode(&confidence); err != nil {
			return fmt.Errorf("classification %q: %w", label, err)
		}
		entries = append(entries, LabelScore{Label: label, Confidence: confidence})
	}

	// closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}

	*c = entries
	return nil
}

// ClassificationResponse is the body returned by the remote classifier
type ClassificationResponse struct {
	Result *struct {
		Classification Classification `json:"classification"`
	} `json:"result"`
	Timing json.RawMessage `json:"timing,omitempty"`
}

// DiseaseInfo holds the generated explanation of a disease
type DiseaseInfo struct {
	Description string   `json:"description"`
	Symptoms    []string `json:"symptoms"`
	Cause       string   `json:"cause"`
}

// AnalysisResult is the successful outcome of a leaf analysis
type AnalysisResult struct {
	Disease    string       `json:"disease"`
	Confidence float64      `json:"confidence"`
	Info       *DiseaseInfo `json:"info,omitempty"`
	Treatment  *string      `json:"treatment,omitempty"`
	ImageURL   string       `json:"imageUrl"`
}

// AnalysisOutcome is either a success carrying Result or a failure carrying Error.
// ErrorType names the failure kind and is empty on success.
type AnalysisOutcome struct {
	Success   bool            `json:"success"`
	Result    *AnalysisResult `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorType string          `json:"error_type,omitempty"`
}

// SuccessOutcome wraps a result
func SuccessOutcome(result *AnalysisResult) AnalysisOutcome {
	return AnalysisOutcome{Success: true, Result: result}
}

// FailureOutcome builds a failed outcome with a human-readable message
func FailureOutcome(errorType, message string) AnalysisOutcome {
	return AnalysisOutcome{Success: false, Error: message, ErrorType: errorType}
}

package textgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"

	"go-leaf-inspector/pkg/models"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.0-flash"

// GenAIGenerator generates disease text with Google's Gemini API
type GenAIGenerator struct {
	client *genai.Client
	model  string
}

// GenAIOptions configures a GenAIGenerator
type GenAIOptions struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	// BaseURL overrides the Gemini API endpoint
	BaseURL string
}

type treatmentOutput struct {
	TreatmentGuidance string `json:"treatmentGuidance"`
}

var treatmentSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"treatmentGuidance": {
			Type:        genai.TypeString,
			Description: "The AI-generated treatment guidance for the detected disease.",
		},
	},
	Required: []string{"treatmentGuidance"},
}

var diseaseInfoSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"description": {
			Type:        genai.TypeString,
			Description: "A brief description of the disease.",
		},
		"symptoms": {
			Type:        genai.TypeArray,
			Description: "A list of common symptoms.",
			Items:       &genai.Schema{Type: genai.TypeString},
		},
		"cause": {
			Type:        genai.TypeString,
			Description: "The common cause of the disease.",
		},
	},
	Required: []string{"description", "symptoms", "cause"},
}

// NewGenAIGenerator creates a Gemini-backed generator
func NewGenAIGenerator(ctx context.Context, opts GenAIOptions) (*GenAIGenerator, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	cfg := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.BaseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIGenerator{
		client: client,
		model:  opts.Model,
	}, nil
}

// GenerateTreatmentGuidance asks the model for markdown treatment steps
func (g *GenAIGenerator) GenerateTreatmentGuidance(ctx context.Context, disease string) (string, error) {
	var out treatmentOutput
	if err := g.generateJSON(ctx, treatmentPrompt, disease, treatmentSchema, &out); err != nil {
		return "", fmt.Errorf("treatment guidance for %q: %w", disease, err)
	}
	if strings.TrimSpace(out.TreatmentGuidance) == "" {
		return "", fmt.Errorf("treatment guidance for %q: empty model output", disease)
	}
	return out.TreatmentGuidance, nil
}

// GetDiseaseInfo asks the model for a structured description of disease
func (g *GenAIGenerator) GetDiseaseInfo(ctx context.Context, disease string) (*models.DiseaseInfo, error) {
	var out models.DiseaseInfo
	if err := g.generateJSON(ctx, diseaseInfoPrompt, disease, diseaseInfoSchema, &out); err != nil {
		return nil, fmt.Errorf("disease info for %q: %w", disease, err)
	}
	if strings.TrimSpace(out.Description) == "" || strings.TrimSpace(out.Cause) == "" {
		return nil, fmt.Errorf("disease info for %q: incomplete model output", disease)
	}
	if out.Symptoms == nil {
		out.Symptoms = []string{}
	}
	return &out, nil
}

// Model returns the configured model name
func (g *GenAIGenerator) Model() string {
	return g.model
}

func (g *GenAIGenerator) generateJSON(ctx context.Context, tmpl *template.Template, disease string, schema *genai.Schema, out interface{}) error {
	prompt, err := render(tmpl, disease)
	if err != nil {
		return fmt.Errorf("render prompt: %w", err)
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	})
	if err != nil {
		return fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return fmt.Errorf("no content returned")
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	return nil
}

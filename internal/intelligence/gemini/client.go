package gemini

import (
	"context"
	"time"

	"google.golang.org/genai"

	"github.com/turtacn/ChemXGen/pkg/errors"
)

// DefaultModel is used when the configuration leaves the model empty.
const DefaultModel = "gemini-2.5-flash"

// Request is one structured generation call.
type Request struct {
	System string
	Prompt string
	Schema *genai.Schema
}

// Generator produces the raw JSON text for a request.  GenAIGenerator is the
// production implementation; tests substitute canned responses.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ClientConfig configures the genai-backed generator.
type ClientConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// GenAIGenerator calls the Gemini API through google.golang.org/genai.
type GenAIGenerator struct {
	client  *genai.Client
	model   string
	temp    float32
	timeout time.Duration
}

// NewGenAIGenerator creates a client for the Gemini developer API.
func NewGenAIGenerator(ctx context.Context, cfg ClientConfig) (*GenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New(errors.ErrCodeGatewayUnavailable, "gemini api key is not configured")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeGatewayUnavailable, "failed to create gemini client")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &GenAIGenerator{client: client, model: model, temp: cfg.Temperature, timeout: cfg.Timeout}, nil
}

// Model returns the model name requests are sent to.
func (g *GenAIGenerator) Model() string { return g.model }

// Generate sends req with JSON output constrained to req.Schema.
func (g *GenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   req.Schema,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if g.temp > 0 {
		cfg.Temperature = genai.Ptr(g.temp)
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

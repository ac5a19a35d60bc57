package flow

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"prism-board/schema"
)

// DefaultGeminiModel is used when neither the flow nor the config names one.
const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini calls Google's Gemini API for structured JSON output.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed model.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toGenaiSchema(req.Output),
		SafetySettings:   toGenaiSafety(req.Safety),
	}
	resp, err := g.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return "", err
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("no candidates returned")
	}
	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("empty candidate (finish reason %s)", resp.Candidates[0].FinishReason)
	}
	return text, nil
}

func toGenaiSafety(settings []SafetySetting) []*genai.SafetySetting {
	if len(settings) == 0 {
		return nil
	}
	out := make([]*genai.SafetySetting, 0, len(settings))
	for _, s := range settings {
		out = append(out, &genai.SafetySetting{
			Category:  genai.HarmCategory(s.Category),
			Threshold: genai.HarmBlockThreshold(s.Threshold),
		})
	}
	return out
}

func toGenaiSchema(s schema.Shape) *genai.Schema {
	out := &genai.Schema{Description: s.Description}
	switch s.Type {
	case schema.String:
		out.Type = genai.TypeString
		out.Enum = s.Enum
	case schema.Integer:
		out.Type = genai.TypeInteger
	case schema.Number:
		out.Type = genai.TypeNumber
	case schema.Boolean:
		out.Type = genai.TypeBoolean
	case schema.Array:
		out.Type = genai.TypeArray
		if s.Items != nil {
			out.Items = toGenaiSchema(*s.Items)
		}
	case schema.Object:
		out.Type = genai.TypeObject
		out.Properties = make(map[string]*genai.Schema, len(s.Fields))
		for _, f := range s.Fields {
			out.Properties[f.Name] = toGenaiSchema(f.Shape)
			out.PropertyOrdering = append(out.PropertyOrdering, f.Name)
			if !f.Optional {
				out.Required = append(out.Required, f.Name)
			}
		}
	}
	return out
}

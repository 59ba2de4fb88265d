package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/wolfman30/banyan-booking/pkg/logging"
)

// geminiGenerator calls Gemini with a JSON response schema.
type geminiGenerator struct {
	client  *genai.Client
	modelID string
}

// NewGeminiMatcher creates a matcher backed by Gemini.
func NewGeminiMatcher(ctx context.Context, apiKey, modelID string, directory CounselorLister, logger *logging.Logger) (*GeminiMatcher, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("matching: gemini api key is required")
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("matching: failed to create gemini client: %w", err)
	}
	return newMatcherWithGenerator(&geminiGenerator{client: client, modelID: modelID}, directory, logger), nil
}

func (g *geminiGenerator) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.modelID)
	model.SetTemperature(0.4)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"reason":       {Type: genai.TypeString},
			"counselorIds": {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
		},
		Required: []string{"reason", "counselorIds"},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}
	var out strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out.WriteString(string(text))
		}
	}
	return out.String(), nil
}

// Close releases the Gemini client.
func (m *GeminiMatcher) Close() error {
	if g, ok := m.gen.(*geminiGenerator); ok && g.client != nil {
		return g.client.Close()
	}
	return nil
}

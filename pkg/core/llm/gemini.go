package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google's Gemini
// models via the official GenAI SDK. Gemini handles both the text and the
// vision paths, so it can serve any agent slot.
type GeminiProvider struct {
	Model string // e.g. "gemini-2.0-flash-exp"
}

var _ Provider = (*GeminiProvider)(nil)

func (p *GeminiProvider) client(ctx context.Context) (*genai.Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}

func (p *GeminiProvider) model(options map[string]interface{}) string {
	model := p.Model
	if model == "" {
		model = "gemini-2.0-flash-exp"
	}
	return optString(options, "model", model)
}

func (p *GeminiProvider) generationConfig(prompt, systemPrompt string, options map[string]interface{}) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(optFloat(options, "temperature", 0.1))),
	}
	if wantsJSON(options) {
		config.ResponseMIMEType = "application/json"
	} else if strings.Contains(strings.ToLower(systemPrompt), "json") || strings.Contains(strings.ToLower(prompt), "json") {
		// Heuristic: callers asking for JSON in prose get JSON mode too.
		config.ResponseMIMEType = "application/json"
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemPrompt}},
		}
	}
	return config
}

func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	client, err := p.client(ctx)
	if err != nil {
		return "", err
	}

	result, err := client.Models.GenerateContent(
		ctx,
		p.model(options),
		genai.Text(prompt),
		p.generationConfig(prompt, systemPrompt, options),
	)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	return result.Text(), nil
}

func (p *GeminiProvider) GenerateVisionResponse(ctx context.Context, prompt string, imageBase64 string, options map[string]interface{}) (string, error) {
	client, err := p.client(ctx)
	if err != nil {
		return "", err
	}

	imgBytes, err := base64.StdEncoding.DecodeString(imageBase64)
	if err != nil {
		return "", fmt.Errorf("gemini vision: bad image payload: %w", err)
	}

	contents := []*genai.Content{
		{
			Parts: []*genai.Part{
				{Text: prompt},
				{InlineData: &genai.Blob{MIMEType: "image/png", Data: imgBytes}},
			},
		},
	}

	result, err := client.Models.GenerateContent(
		ctx,
		p.model(options),
		contents,
		p.generationConfig(prompt, "", options),
	)
	if err != nil {
		return "", fmt.Errorf("gemini vision generation failed: %w", err)
	}

	return result.Text(), nil
}

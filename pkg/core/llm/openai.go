package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// OpenAIProvider talks to an OpenAI-compatible chat-completions endpoint
// (Azure OpenAI deployments included). Both the text and vision paths go
// through the same /chat/completions route; vision attaches the page raster
// as an inline data URL.
type OpenAIProvider struct {
	Endpoint         string // e.g. https://myresource.openai.azure.com
	APIVersion       string
	Deployment       string
	VisionDeployment string
}

type chatMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"` // string, or []contentPart for vision
}

type contentPart struct {
	Type     string         `json:"type"`
	Text     string         `json:"text,omitempty"`
	ImageURL *imageURLBlock `json:"image_url,omitempty"`
}

type imageURLBlock struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *OpenAIProvider) apiKey(options map[string]interface{}) string {
	key := os.Getenv("MODEL_API_KEY")
	if val, ok := options["api_key"].(string); ok && val != "" {
		key = val
	}
	return key
}

func (p *OpenAIProvider) endpoint() string {
	if p.Endpoint != "" {
		return p.Endpoint
	}
	return os.Getenv("MODEL_ENDPOINT")
}

// requestURL builds the Azure-style deployment URL when an api version is
// configured, falling back to the plain OpenAI route otherwise.
func (p *OpenAIProvider) requestURL(deployment string) string {
	base := strings.TrimRight(p.endpoint(), "/")
	if p.APIVersion != "" {
		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s", base, deployment, p.APIVersion)
	}
	return base + "/chat/completions"
}

func (p *OpenAIProvider) complete(ctx context.Context, url string, messages []chatMessage, options map[string]interface{}) (string, error) {
	apiKey := p.apiKey(options)
	if apiKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY_MISSING: set MODEL_API_KEY env var")
	}

	reqBody := chatRequest{
		Messages:    messages,
		Temperature: optFloat(options, "temperature", 0.2),
		MaxTokens:   optInt(options, "max_tokens", 4096),
		Stream:      false,
	}
	if wantsJSON(options) {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	jsonBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("OPENAI_MARSHAL_ERROR: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBytes))
	if err != nil {
		return "", fmt.Errorf("OPENAI_REQ_CREATE_ERROR: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("api-key", apiKey)
	req.Header.Set("Authorization", "Bearer "+apiKey)

	client := &http.Client{}
	res, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("OPENAI_API_CALL_ERROR: %v", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("OPENAI_READ_BODY_ERROR: %v", err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("OPENAI_API_ERROR: status=%d body=%s", res.StatusCode, string(body))
	}

	var response chatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("OPENAI_UNMARSHAL_ERROR: %v", err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("OPENAI_API_ERROR: %s", response.Error.Message)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("OPENAI_NO_CHOICES: %s", string(body))
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}

func (p *OpenAIProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	deployment := optString(options, "model", p.Deployment)
	if deployment == "" {
		deployment = "gpt-4o"
	}

	messages := []chatMessage{}
	if systemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	return p.complete(ctx, p.requestURL(deployment), messages, options)
}

func (p *OpenAIProvider) GenerateVisionResponse(ctx context.Context, prompt string, imageBase64 string, options map[string]interface{}) (string, error) {
	deployment := optString(options, "model", p.VisionDeployment)
	if deployment == "" {
		deployment = p.Deployment
	}
	if deployment == "" {
		deployment = "gpt-4o"
	}

	messages := []chatMessage{
		{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURLBlock{
					URL: "data:image/png;base64," + imageBase64,
				}},
			},
		},
	}

	return p.complete(ctx, p.requestURL(deployment), messages, options)
}

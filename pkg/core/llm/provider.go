package llm

import (
	"context"
	"fmt"
)

// Provider is the interface for all model providers. Options accepts the
// usual knobs: "model", "temperature", "max_tokens", and
// "response_format" (map with {"type": "json_object"}).
type Provider interface {
	// GenerateResponse sends a text-only chat completion.
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// GenerateVisionResponse sends a prompt plus a base64 PNG and returns the
	// model's text. Providers without vision support return an error.
	GenerateVisionResponse(ctx context.Context, prompt string, imageBase64 string, options map[string]interface{}) (string, error)
}

// ErrVisionUnsupported is returned by text-only providers.
func ErrVisionUnsupported(name string) error {
	return fmt.Errorf("VISION_UNSUPPORTED: provider %s has no vision endpoint", name)
}

func optString(options map[string]interface{}, key, def string) string {
	if val, ok := options[key].(string); ok && val != "" {
		return val
	}
	return def
}

func optFloat(options map[string]interface{}, key string, def float64) float64 {
	switch v := options[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return def
}

func optInt(options map[string]interface{}, key string, def int) int {
	switch v := options[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

func wantsJSON(options map[string]interface{}) bool {
	if val, ok := options["response_format"].(map[string]interface{}); ok {
		return val["type"] == "json_object"
	}
	return false
}

package providers

import (
	"net/http"
	"os"

	"github.com/c360studio/semtag/llm"
)

// OpenAIProvider implements the OpenAI completions API.
// It shares the request/response format with OllamaProvider but uses the
// OpenAI base URL and always authenticates.
type OpenAIProvider struct {
	OllamaProvider // Embed for shared request/response format
}

func init() {
	llm.RegisterProvider(&OpenAIProvider{})
}

// Name returns the provider identifier.
func (o *OpenAIProvider) Name() string {
	return "openai"
}

// BuildURL constructs the OpenAI completions endpoint.
func (o *OpenAIProvider) BuildURL(baseURL string) string {
	return completionsURL(baseURL, "https://api.openai.com/v1")
}

// SetHeaders adds OpenAI authentication. OPENAI_API_KEY is used when no key
// is configured.
func (o *OpenAIProvider) SetHeaders(req *http.Request, apiKey string) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	if org := os.Getenv("OPENAI_ORGANIZATION"); org != "" {
		req.Header.Set("OpenAI-Organization", org)
	}
}

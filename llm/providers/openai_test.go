package providers

import (
	"net/http"
	"testing"

	"github.com/c360studio/semtag/llm"
	"github.com/stretchr/testify/assert"
)

func TestOpenAIProvider_Name(t *testing.T) {
	p := &OpenAIProvider{}
	assert.Equal(t, "openai", p.Name())
}

func TestOpenAIProvider_Registered(t *testing.T) {
	assert.NotNil(t, llm.GetProvider("openai"))
	assert.NotNil(t, llm.GetProvider("ollama"))
	assert.Equal(t, []string{"ollama", "openai"}, llm.ListProviders())
}

func TestOpenAIProvider_BuildURL(t *testing.T) {
	p := &OpenAIProvider{}

	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{
			name:    "empty uses default",
			baseURL: "",
			want:    "https://api.openai.com/v1/completions",
		},
		{
			name:    "custom base URL",
			baseURL: "https://proxy.example.com/openai/v1",
			want:    "https://proxy.example.com/openai/v1/completions",
		},
		{
			name:    "trailing slash handled",
			baseURL: "https://api.openai.com/v1/",
			want:    "https://api.openai.com/v1/completions",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.BuildURL(tt.baseURL)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestOpenAIProvider_SetHeaders(t *testing.T) {
	p := &OpenAIProvider{}

	t.Run("configured key wins", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "env-key")

		req, _ := http.NewRequest(http.MethodPost, "https://api.openai.com/v1/completions", nil)
		p.SetHeaders(req, "config-key")

		assert.Equal(t, "Bearer config-key", req.Header.Get("Authorization"))
	})

	t.Run("falls back to environment", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "env-key")
		t.Setenv("OPENAI_ORGANIZATION", "org-1")

		req, _ := http.NewRequest(http.MethodPost, "https://api.openai.com/v1/completions", nil)
		p.SetHeaders(req, "")

		assert.Equal(t, "Bearer env-key", req.Header.Get("Authorization"))
		assert.Equal(t, "org-1", req.Header.Get("OpenAI-Organization"))
	})
}

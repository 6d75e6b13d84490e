package providers

import (
	"net/http"

	"github.com/c360studio/ampdesign/llm"
)

var geminiFormat = chatCompletions{
	defaultURL: "https://generativelanguage.googleapis.com/v1beta/openai",
	apiKeyEnv:  "GEMINI_API_KEY",
}

// GeminiProvider uses the OpenAI-compatible endpoint of the Gemini API.
type GeminiProvider struct{}

func (g *GeminiProvider) Name() string {
	return "gemini"
}

func (g *GeminiProvider) BuildURL(baseURL, _ string) string {
	return geminiFormat.buildURL(baseURL)
}

func (g *GeminiProvider) SetHeaders(req *http.Request) {
	geminiFormat.setAuth(req)
}

func (g *GeminiProvider) BuildRequestBody(model string, messages []llm.Message, temperature *float64, maxTokens int) ([]byte, error) {
	return geminiFormat.buildRequestBody(model, messages, temperature, maxTokens)
}

func (g *GeminiProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	return geminiFormat.parseResponse(body, model)
}

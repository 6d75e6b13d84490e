package providers

import (
	"net/http"
	"os"

	"github.com/c360studio/ampdesign/llm"
)

var openAIFormat = chatCompletions{
	defaultURL: "https://api.openai.com/v1",
	apiKeyEnv:  "OPENAI_API_KEY",
}

// OpenAIProvider talks to OpenAI or OpenRouter.
type OpenAIProvider struct{}

func (o *OpenAIProvider) Name() string {
	return "openai"
}

func (o *OpenAIProvider) BuildURL(baseURL, _ string) string {
	return openAIFormat.buildURL(baseURL)
}

// SetHeaders adds the bearer token and the optional OpenRouter attribution headers.
func (o *OpenAIProvider) SetHeaders(req *http.Request) {
	openAIFormat.setAuth(req)

	if siteURL := os.Getenv("OPENROUTER_SITE_URL"); siteURL != "" {
		req.Header.Set("HTTP-Referer", siteURL)
	}
	if siteName := os.Getenv("OPENROUTER_SITE_NAME"); siteName != "" {
		req.Header.Set("X-Title", siteName)
	}
}

func (o *OpenAIProvider) BuildRequestBody(model string, messages []llm.Message, temperature *float64, maxTokens int) ([]byte, error) {
	return openAIFormat.buildRequestBody(model, messages, temperature, maxTokens)
}

func (o *OpenAIProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	return openAIFormat.parseResponse(body, model)
}

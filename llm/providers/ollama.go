package providers

import (
	"net/http"

	"github.com/c360studio/ampdesign/llm"
)

// ollamaFormat also serves vLLM and other OpenAI-compatible local servers.
// The key is optional and only sent when set.
var ollamaFormat = chatCompletions{
	defaultURL: "http://localhost:11434/v1",
	apiKeyEnv:  "OPENAI_API_KEY",
}

// OllamaProvider talks to a local OpenAI-compatible server.
type OllamaProvider struct{}

func (o *OllamaProvider) Name() string {
	return "ollama"
}

func (o *OllamaProvider) BuildURL(baseURL, _ string) string {
	return ollamaFormat.buildURL(baseURL)
}

func (o *OllamaProvider) SetHeaders(req *http.Request) {
	ollamaFormat.setAuth(req)
}

func (o *OllamaProvider) BuildRequestBody(model string, messages []llm.Message, temperature *float64, maxTokens int) ([]byte, error) {
	return ollamaFormat.buildRequestBody(model, messages, temperature, maxTokens)
}

func (o *OllamaProvider) ParseResponse(body []byte, model string) (*llm.Response, error) {
	return ollamaFormat.parseResponse(body, model)
}

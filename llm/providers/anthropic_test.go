package providers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/ampdesign/llm"
)

func TestAnthropicProvider_BuildURL(t *testing.T) {
	p := &AnthropicProvider{}
	for base, want := range map[string]string{
		"":                           "https://api.anthropic.com/v1/messages",
		"https://proxy.lab.internal": "https://proxy.lab.internal/v1/messages",
		"https://api.anthropic.com/": "https://api.anthropic.com/v1/messages",
	} {
		assert.Equal(t, want, p.BuildURL(base, "claude"), base)
	}
}

func TestAnthropicProvider_SetHeaders(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	req := httptest.NewRequest("POST", "/v1/messages", nil)
	(&AnthropicProvider{}).SetHeaders(req)
	assert.Equal(t, "sk-test", req.Header.Get("x-api-key"))
	assert.Equal(t, anthropicVersion, req.Header.Get("anthropic-version"))
}

func TestAnthropicProvider_BuildRequestBody(t *testing.T) {
	p := &AnthropicProvider{}
	temp := 0.2

	body, err := p.BuildRequestBody("claude-sonnet", []llm.Message{
		{Role: "system", Content: "You are an analog designer."},
		{Role: "system", Content: "Answer in JSON."},
		{Role: "user", Content: "Design a CS stage with gain 10"},
		{Role: "assistant", Content: `{"topology": "CS"}`},
		{Role: "user", Content: "Lower Rd to 5k"},
	}, &temp, 2048)
	require.NoError(t, err)

	var got messagesRequest
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "claude-sonnet", got.Model)
	assert.Equal(t, "You are an analog designer.\n\nAnswer in JSON.", got.System)
	assert.Equal(t, 2048, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.2, *got.Temperature, 1e-12)

	require.Len(t, got.Messages, 3)
	assert.Equal(t, []string{"user", "assistant", "user"},
		[]string{got.Messages[0].Role, got.Messages[1].Role, got.Messages[2].Role})
}

func TestAnthropicProvider_BuildRequestBody_Defaults(t *testing.T) {
	p := &AnthropicProvider{}

	body, err := p.BuildRequestBody("claude-sonnet", []llm.Message{{Role: "user", Content: "gain 10"}}, nil, 0)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"max_tokens":4096`)
	assert.NotContains(t, string(body), `"temperature"`)
	assert.NotContains(t, string(body), `"system"`)

	zero := 0.0
	body, err = p.BuildRequestBody("claude-sonnet", []llm.Message{{Role: "user", Content: "gain 10"}}, &zero, 0)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"temperature":0`)
}

func TestAnthropicProvider_ParseResponse(t *testing.T) {
	p := &AnthropicProvider{}

	resp, err := p.ParseResponse([]byte(`{
		"id": "msg_1",
		"type": "message",
		"model": "claude-sonnet-20250101",
		"content": [
			{"type": "text", "text": "Av = -gm(Rd||ro). "},
			{"type": "tool_use", "id": "t1"},
			{"type": "text", "text": "Use Rd = 10k."}
		],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 15, "output_tokens": 8}
	}`), "claude-sonnet")
	require.NoError(t, err)

	assert.Equal(t, "Av = -gm(Rd||ro). Use Rd = 10k.", resp.Content)
	assert.Equal(t, "claude-sonnet-20250101", resp.Model)
	assert.Equal(t, "end_turn", resp.FinishReason)
	assert.Equal(t, llm.TokenUsage{PromptTokens: 15, CompletionTokens: 8, TotalTokens: 23}, resp.Usage)
}

func TestAnthropicProvider_ParseResponse_Errors(t *testing.T) {
	p := &AnthropicProvider{}

	resp, err := p.ParseResponse([]byte(`{"content": []}`), "claude-sonnet")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet", resp.Model)
	assert.Empty(t, resp.Content)

	_, err = p.ParseResponse([]byte(`not json`), "claude-sonnet")
	assert.ErrorContains(t, err, "parse anthropic response")
}

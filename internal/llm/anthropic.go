package llm

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	anthropicBaseURL = "https://api.anthropic.com/v1"
	anthropicVersion = "2023-06-01"
	anthropicModel   = "claude-3-5-sonnet-20240620"
)

// AnthropicClient talks to the Anthropic messages API directly over HTTP.
type AnthropicClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{
		apiKey:     apiKey,
		baseURL:    anthropicBaseURL,
		model:      anthropicModel,
		httpClient: &http.Client{},
	}
}

// NewAnthropicClientWithBaseURL exists for tests pointing at a stub server.
func NewAnthropicClientWithBaseURL(apiKey, baseURL string) *AnthropicClient {
	c := NewAnthropicClient(apiKey)
	c.baseURL = strings.TrimSuffix(baseURL, "/")
	return c
}

func (c *AnthropicClient) Name() string {
	return ProviderAnthropic
}

func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, _ := sjson.Set("{}", "model", c.model)
	body, _ = sjson.Set(body, "max_tokens", 1000)
	body, _ = sjson.Set(body, "temperature", 0)
	body, _ = sjson.Set(body, "messages.0.role", "user")
	body, _ = sjson.Set(body, "messages.0.content", prompt)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", strings.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: ProviderAnthropic, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: ProviderAnthropic, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: ProviderAnthropic, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := gjson.GetBytes(respBody, "error.message").String()
		if msg == "" {
			msg = strings.TrimSpace(string(respBody))
		}
		return "", &ProviderError{
			Provider: ProviderAnthropic,
			Err:      fmt.Errorf("status %d: %s", resp.StatusCode, msg),
		}
	}

	text := gjson.GetBytes(respBody, "content.0.text").String()
	if text == "" {
		return "", &ProviderError{Provider: ProviderAnthropic, Err: fmt.Errorf("empty response")}
	}
	return text, nil
}

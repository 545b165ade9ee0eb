package ai

import (
	"encoding/json"
	"os"
	"strings"
)

func AnthropicConfig() *ProviderConfig {
	return &ProviderConfig{
		Name:       "anthropic",
		Endpoint:   "https://api.anthropic.com/v1/messages",
		APIKey:     os.Getenv("ANTHROPIC_API_KEY"),
		Model:      getEnvOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		AuthHeader: "x-api-key",
		AuthPrefix: "",
		ExtraHeaders: map[string]string{
			"anthropic-version": "2023-06-01",
		},
		BuildBody:     buildAnthropicBody,
		ParseResponse: parseAnthropicResponse,
	}
}

func OpenAIConfig() *ProviderConfig {
	return &ProviderConfig{
		Name:          "openai",
		Endpoint:      "https://api.openai.com/v1/chat/completions",
		APIKey:        os.Getenv("OPENAI_API_KEY"),
		Model:         getEnvOr("OPENAI_MODEL", "gpt-4o-mini"),
		AuthHeader:    "Authorization",
		AuthPrefix:    "Bearer ",
		BuildBody:     buildOpenAIBody,
		ParseResponse: parseOpenAIResponse,
	}
}

func GeminiConfig() *ProviderConfig {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	model := getEnvOr("GEMINI_MODEL", "gemini-2.5-flash")

	return &ProviderConfig{
		Name:          "gemini",
		Endpoint:      "https://generativelanguage.googleapis.com/v1beta/models/" + model + ":generateContent",
		APIKey:        apiKey,
		Model:         model,
		AuthHeader:    "x-goog-api-key",
		AuthPrefix:    "",
		BuildBody:     buildGeminiBody,
		ParseResponse: parseGeminiResponse,
	}
}

// ChatProviders builds every configured LLM backend. Unconfigured ones are
// still returned: the router skips them per call, and they become available
// the moment a key appears in the environment of a restart.
func ChatProviders() []ChatProvider {
	configs := []*ProviderConfig{
		AnthropicConfig(),
		OpenAIConfig(),
		GeminiConfig(),
	}

	providers := make([]ChatProvider, 0, len(configs))
	for _, cfg := range configs {
		providers = append(providers, NewHTTPProvider(cfg))
	}
	return providers
}

// Body builders

func buildAnthropicBody(cfg *ProviderConfig, req Request) map[string]any {
	body := map[string]any{
		"model":      cfg.Model,
		"max_tokens": maxTokensOr(req.MaxTokens, 2048),
		"messages":   []map[string]string{{"role": "user", "content": req.UserPrompt}},
	}
	if req.SystemPrompt != "" {
		body["system"] = req.SystemPrompt
	}
	return body
}

func buildOpenAIBody(cfg *ProviderConfig, req Request) map[string]any {
	messages := []map[string]string{}
	if req.SystemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.SystemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": req.UserPrompt})

	return map[string]any{
		"model":                 cfg.Model,
		"max_completion_tokens": maxTokensOr(req.MaxTokens, 2048),
		"messages":              messages,
	}
}

func buildGeminiBody(cfg *ProviderConfig, req Request) map[string]any {
	body := map[string]any{
		"contents": []map[string]any{
			{"role": "user", "parts": []map[string]string{{"text": req.UserPrompt}}},
		},
		"generationConfig": map[string]any{
			"maxOutputTokens": maxTokensOr(req.MaxTokens, 2048),
		},
	}
	if req.SystemPrompt != "" {
		body["systemInstruction"] = map[string]any{
			"parts": []map[string]string{{"text": req.SystemPrompt}},
		}
	}
	return body
}

// Response parsers

func parseAnthropicResponse(body []byte) (string, string, error) {
	var resp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", err
	}
	var texts []string
	for _, c := range resp.Content {
		if c.Type == "text" {
			texts = append(texts, c.Text)
		}
	}
	return strings.Join(texts, "\n\n"), resp.Model, nil
}

func parseOpenAIResponse(body []byte) (string, string, error) {
	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Model string `json:"model"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", err
	}
	if len(resp.Choices) > 0 {
		return resp.Choices[0].Message.Content, resp.Model, nil
	}
	return "", resp.Model, nil
}

func parseGeminiResponse(body []byte) (string, string, error) {
	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		ModelVersion string `json:"modelVersion"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", "", err
	}
	if len(resp.Candidates) > 0 && len(resp.Candidates[0].Content.Parts) > 0 {
		return resp.Candidates[0].Content.Parts[0].Text, resp.ModelVersion, nil
	}
	return "", resp.ModelVersion, nil
}

// Helpers

func getEnvOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func maxTokensOr(v, defaultVal int) int {
	if v > 0 {
		return v
	}
	return defaultVal
}

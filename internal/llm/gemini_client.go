package llm

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/logger"
)

var _ Completer = (*GeminiClient)(nil)

// GenerateFunc matches genai's Models.GenerateContent.
type GenerateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

type GeminiClient struct {
	model      string
	generateFn GenerateFunc
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized") {
			return nil, errors.ErrLLMConfigMissing.WithError(err)
		}
		return nil, errors.ErrLLMRequest.WithError(err)
	}
	return NewGeminiClientWithFunc(model, client.Models.GenerateContent), nil
}

func NewGeminiClientWithFunc(model string, fn GenerateFunc) *GeminiClient {
	return &GeminiClient{model: model, generateFn: fn}
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	temperature := float32(req.Temperature)
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: req.User}},
	}}

	logger.Debug(ctx, "calling gemini", "model", c.model, "prompt_chars", len(req.User))

	resp, err := c.generateFn(ctx, c.model, contents, config)
	if err != nil {
		return "", errors.ErrLLMRequest.WithError(err).WithContext("model", c.model)
	}

	text := responseText(resp)
	if text == "" {
		return "", errors.ErrLLMRequest.WithContext("model", c.model).WithContext("reason", "empty response")
	}
	return text, nil
}

// responseText joins the non-thought text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

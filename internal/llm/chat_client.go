package llm

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/fe-devtools/devflow/internal/errors"
	"github.com/fe-devtools/devflow/internal/httpclient"
	"github.com/fe-devtools/devflow/internal/logger"
)

var _ Completer = (*ChatClient)(nil)

// ChatClient talks to any chat-completions compatible endpoint.
type ChatClient struct {
	baseURL string
	apiKey  string
	model   string
	client  httpclient.HTTPClient
}

func NewChatClient(baseURL, apiKey, model string, client httpclient.HTTPClient) *ChatClient {
	return &ChatClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  client,
	}
}

type (
	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	chatRequest struct {
		Model       string        `json:"model"`
		Temperature float64       `json:"temperature"`
		Messages    []chatMessage `json:"messages"`
	}

	chatResponse struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
)

func (c *ChatClient) Complete(ctx context.Context, req Request) (string, error) {
	log := logger.FromContext(ctx)

	body := chatRequest{Model: c.model, Temperature: req.Temperature}
	if req.System != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.User})

	log.Debug("calling chat completions", "model", c.model, "prompt_chars", len(req.User))

	var resp chatResponse
	err := httpclient.DoJSON(ctx, c.client, httpclient.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + "/chat/completions",
		Header: http.Header{"Authorization": []string{"Bearer " + c.apiKey}},
		Body:   body,
	}, &resp)
	if err != nil {
		appErr := errors.ErrLLMRequest.WithError(err).WithContext("model", c.model)
		var statusErr *httpclient.StatusError
		if stderrors.As(err, &statusErr) {
			appErr = appErr.WithContext("status", statusErr.StatusCode)
		}
		return "", appErr
	}

	if len(resp.Choices) == 0 {
		return "", errors.ErrLLMRequest.WithContext("model", c.model).WithContext("reason", "no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

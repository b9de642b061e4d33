package ai

import (
	"context"
	"log"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"codstore.dev/storefront/pkg/global"
)

// Client wraps an OpenAI-compatible chat endpoint (Azure OpenAI in production).
type Client struct {
	api        *openai.Client
	deployment string
}

// NewClient returns nil when no credentials are configured.
func NewClient(cfg global.Config) *Client {
	if cfg.AIEndpoint == "" || cfg.AIAPIKey == "" {
		log.Println("AI service disabled - Azure OpenAI credentials not provided")
		return nil
	}

	api := openai.NewClient(
		option.WithBaseURL(cfg.AIEndpoint),
		option.WithAPIKey(cfg.AIAPIKey),
	)
	log.Println("AI service initialized with Azure OpenAI")
	return &Client{api: &api, deployment: cfg.AIDeployment}
}

// Complete sends one system and one user message and returns the reply.
func (c *Client) Complete(ctx context.Context, systemMessage, userMessage string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.deployment),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemMessage),
			openai.UserMessage(userMessage),
		},
		MaxTokens:   openai.Int(1000),
		Temperature: openai.Float(0.4),
	})
	if err != nil {
		log.Printf("AI API Error: %v", err)
		return "", &AIError{Message: "Failed to generate AI response", Cause: err}
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &AIError{Message: "AI returned empty response"}
	}
	return resp.Choices[0].Message.Content, nil
}

type AIError struct {
	Message string
	Cause   error
}

func (e *AIError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AIError) Unwrap() error {
	return e.Cause
}

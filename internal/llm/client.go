// Package llm wraps the OpenAI API for the two things the pipeline needs from
// it: JSON chat completions and still images.
package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/ivlev/faceless/internal/config"
	"github.com/ivlev/faceless/internal/logging"
)

// ErrEmptyResponse is returned when the API answers without content.
var ErrEmptyResponse = errors.New("empty response from model")

type Client struct {
	api        openai.Client
	model      string
	ImageModel string
	logger     *zap.Logger
}

// NewClient builds a client from the credentials. Failed requests are not
// retried. Extra request options are appended after the ones derived from creds.
func NewClient(creds config.Credentials, logger *zap.Logger, opts ...option.RequestOption) (*Client, error) {
	if creds.OpenAIKey == "" {
		return nil, &config.MissingCredentialError{Name: "OPENAI_API_KEY"}
	}

	base := []option.RequestOption{
		option.WithAPIKey(creds.OpenAIKey),
		option.WithMaxRetries(0),
	}
	if creds.OpenAIBaseURL != "" {
		base = append(base, option.WithBaseURL(creds.OpenAIBaseURL))
	}

	model := creds.OpenAIModel
	if model == "" {
		model = string(openai.ChatModelGPT4o)
	}

	return &Client{
		api:        openai.NewClient(append(base, opts...)...),
		model:      model,
		ImageModel: string(openai.ImageModelDallE3),
		logger:     logging.OrNop(logger),
	}, nil
}

func (c *Client) Model() string { return c.model }

// CompleteJSON sends a system and a user message and asks for a JSON object
// back. The raw message content is returned undecoded.
func (c *Client) CompleteJSON(ctx context.Context, system, user string, temperature float64) (string, error) {
	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Debug("chat completion",
		zap.String("model", c.model),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("took", time.Since(start)))
	return resp.Choices[0].Message.Content, nil
}

// GenerateImage renders prompt and returns the encoded image bytes.
func (c *Client) GenerateImage(ctx context.Context, prompt, size, quality string) ([]byte, error) {
	resp, err := c.api.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(c.ImageModel),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize(size),
		Quality:        openai.ImageGenerateParamsQuality(quality),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("image generation: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, ErrEmptyResponse
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return data, nil
}

package gpt

import (
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Client targets any OpenAI-compatible chat-completion endpoint. The
// simulation, test and expert models each get their own instance with a
// fixed base URL and model ID.
type Client struct {
	Client  openai.Client
	ModelID string
}

func NewClient(baseURL string, apiKey string, model string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model ID is required")
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(3),
	}
	// Local vLLM-style endpoints accept any key, including none.
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}

	return &Client{
		Client:  openai.NewClient(opts...),
		ModelID: model,
	}, nil
}

package gpt

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"

	"github.com/medeval/tcm-dialogue-bench/internal/llm"
)

func (c *Client) Complete(ctx context.Context, request llm.ChatRequest) (*llm.ChatResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(request.Messages))
	for _, m := range request.Messages {
		switch m.Role {
		case llm.RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case llm.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(request.MaxTokens)),
		Temperature:         openai.Float(request.Temperature),
		Model:               openai.ChatModel(c.ModelID),
	}

	output, err := c.Client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("unable to invoke model %s: %w", c.ModelID, err)
	}

	if len(output.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response from model %s", c.ModelID)
	}

	choice := output.Choices[0]
	return &llm.ChatResponse{
		Content:    stripReasoningPreamble(choice.Message.Content),
		StopReason: fmt.Sprint(choice.FinishReason),
	}, nil
}

var finalResponseMarkers = []string{"Final Response:", "Final Answer:"}

// stripReasoningPreamble drops a leading chain-of-thought section when the
// model separates it from the answer with a known marker. Output without a
// marker passes through untouched.
func stripReasoningPreamble(content string) string {
	for _, marker := range finalResponseMarkers {
		if idx := strings.Index(content, marker); idx != -1 {
			return strings.TrimSpace(content[idx+len(marker):])
		}
	}
	return strings.TrimSpace(content)
}

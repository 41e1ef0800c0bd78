package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/oskarjolofsson/GSA1.0/internal/domain/port"
	goopenai "github.com/sashabaranov/go-openai"
)

// FrameModel sends inline frames to the OpenAI chat completions API.
type FrameModel struct {
	client *goopenai.Client
	detail goopenai.ImageURLDetail
}

type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint; empty uses the public API.
	BaseURL string
}

func NewFrameModel(cfg Config) (*FrameModel, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key is required")
	}
	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &FrameModel{
		client: goopenai.NewClientWithConfig(clientCfg),
		detail: goopenai.ImageURLDetailLow,
	}, nil
}

func (m *FrameModel) GenerateFromImages(ctx context.Context, model, system, prompt string, images []port.InlineImage) (string, error) {
	parts := make([]goopenai.ChatMessagePart, 0, len(images)+1)
	parts = append(parts, goopenai.ChatMessagePart{Type: goopenai.ChatMessagePartTypeText, Text: prompt})
	for _, img := range images {
		parts = append(parts, goopenai.ChatMessagePart{
			Type: goopenai.ChatMessagePartTypeImageURL,
			ImageURL: &goopenai.ChatMessageImageURL{
				URL:    dataURL(img),
				Detail: m.detail,
			},
		})
	}

	resp, err := m.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

func dataURL(img port.InlineImage) string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

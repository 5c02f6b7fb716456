package textgen

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini 使用 generative-ai-go 调用 Gemini
type Gemini struct {
	client *genai.Client
	Model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create generative client: %w", err)
	}
	return &Gemini{client: client, Model: model}, nil
}

func (g *Gemini) Generate(ctx context.Context, msgs []*schema.Message, maxTokens int) (string, error) {
	// GenerativeModel 携带可变配置，每次调用单独创建
	model := g.client.GenerativeModel(g.Model)
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}

	var system []genai.Part
	var parts []genai.Part
	for _, m := range msgs {
		if m.Role == schema.System {
			system = append(system, genai.Text(m.Content))
			continue
		}
		parts = append(parts, genai.Text(m.Content))
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{Parts: system}
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", err
	}
	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// responseText 拼接第一个候选中的全部文本块
func responseText(resp *genai.GenerateContentResponse) string {
	var text string
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				text += string(txt)
			}
		}
	}
	return text
}

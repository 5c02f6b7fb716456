package textgen

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/eino/schema"
	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAI 使用官方 openai-go SDK（chat completions），也适用于兼容接口
type OpenAI struct {
	client openai.Client
	Model  string
}

func NewOpenAI(apiKey, baseURL, model string, opts ...option.RequestOption) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if model == "" {
		return nil, errors.New("llm model is required")
	}
	// SDK 默认重试两次，这里关闭
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)
	return &OpenAI{client: openai.NewClient(reqOpts...), Model: model}, nil
}

func (o *OpenAI) Generate(ctx context.Context, msgs []*schema.Message, maxTokens int) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.Model),
		Messages: toOpenAIMessages(msgs),
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

func toOpenAIMessages(msgs []*schema.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case schema.System:
			out = append(out, openai.SystemMessage(m.Content))
		case schema.Assistant:
			out = append(out, openai.ChatCompletionMessageParamOfAssistant(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

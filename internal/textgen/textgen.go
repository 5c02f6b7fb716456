// Package textgen 封装大模型文本生成。各提供方统一接收 eino 的 schema.Message，
// 返回回复中的文本块。
package textgen

import (
	"context"
	"errors"

	"github.com/cloudwego/eino/schema"
)

// ErrEmptyResponse 模型回复中没有文本块
var ErrEmptyResponse = errors.New("no valid text content in the response")

// Generator 给定系统/用户消息和 token 上限，返回模型回复的文本
type Generator interface {
	Generate(ctx context.Context, msgs []*schema.Message, maxTokens int) (string, error)
}

var (
	_ Generator = (*ChatGraph)(nil)
	_ Generator = (*OpenAI)(nil)
	_ Generator = (*Gemini)(nil)
)

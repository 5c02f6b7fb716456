package textgen

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

const chatNode = "model"

// ChatGraph 把任意 eino 聊天模型编译成 START -> model -> END 的图，启动时编译一次
type ChatGraph struct {
	runnable compose.Runnable[[]*schema.Message, *schema.Message]
}

// NewChatGraph 编译只包含一个聊天模型节点的图
func NewChatGraph(ctx context.Context, chatModel einomodel.BaseChatModel) (*ChatGraph, error) {
	graph := compose.NewGraph[[]*schema.Message, *schema.Message]()
	if err := graph.AddChatModelNode(chatNode, chatModel); err != nil {
		return nil, fmt.Errorf("failed to add chat model node: %w", err)
	}
	if err := graph.AddEdge(compose.START, chatNode); err != nil {
		return nil, err
	}
	if err := graph.AddEdge(chatNode, compose.END); err != nil {
		return nil, err
	}
	runnable, err := graph.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile graph: %w", err)
	}
	return &ChatGraph{runnable: runnable}, nil
}

// NewArk 用火山方舟聊天模型构建 ChatGraph
func NewArk(ctx context.Context, apiKey, baseURL, modelName string, httpClient *http.Client) (*ChatGraph, error) {
	// 失败不重试，错误直接交给调用方
	noRetry := 0
	chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		HTTPClient: httpClient,
		Model:      modelName,
		RetryTimes: &noRetry,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewChatGraph(ctx, chatModel)
}

func (g *ChatGraph) Generate(ctx context.Context, msgs []*schema.Message, maxTokens int) (string, error) {
	var opts []compose.Option
	if maxTokens > 0 {
		opts = append(opts, compose.WithChatModelOption(einomodel.WithMaxTokens(maxTokens)))
	}
	res, err := g.runnable.Invoke(ctx, msgs, opts...)
	if err != nil {
		return "", fmt.Errorf("graph invocation failed: %w", err)
	}
	if res == nil || strings.TrimSpace(res.Content) == "" {
		return "", ErrEmptyResponse
	}
	return res.Content, nil
}

// Package tools 把故事流水线包装成 eino 工具，供智能体或 HTTP 调用
package tools

import (
	"context"
	"encoding/json"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"storybook/internal/model"
)

// StoryGenerator 生成并保存一个带插画的故事
type StoryGenerator interface {
	Generate(ctx context.Context, req model.StoryRequest) (*model.Story, error)
}

// StoryTool 实现eino框架的故事生成工具
type StoryTool struct {
	svc StoryGenerator
}

func NewStoryTool(svc StoryGenerator) *StoryTool {
	return &StoryTool{svc: svc}
}

// Info 获取故事生成工具信息
func (t *StoryTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := map[string]*schema.ParameterInfo{
		"childName":      {Type: schema.String, Required: true, Desc: "孩子的名字"},
		"childAge":       {Type: schema.Integer, Required: true, Desc: "孩子的年龄（2-6岁）"},
		"storyTheme":     {Type: schema.String, Required: true, Desc: "故事主题"},
		"parentValue":    {Type: schema.String, Required: true, Desc: "希望故事传达的价值观和细节"},
		"parentName":     {Type: schema.String, Required: false, Desc: "家长的名字"},
		"favoriteAnimal": {Type: schema.String, Required: false, Desc: "孩子最喜欢的动物"},
	}
	return &schema.ToolInfo{
		Name:        "story_generate",
		Desc:        "为2-6岁儿童创作8-10页的睡前故事，每页配一张插画，保存后返回完整故事",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

// InvokableRun 执行故事生成任务，返回故事JSON
func (t *StoryTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...einotool.Option) (string, error) {
	var req model.StoryRequest
	if err := json.Unmarshal([]byte(argumentsInJSON), &req); err != nil {
		return "", &ArgumentError{Err: err}
	}
	if err := req.Validate(); err != nil {
		return "", &ArgumentError{Err: err}
	}

	story, err := t.svc.Generate(ctx, req)
	if err != nil {
		return "", err
	}

	b, err := json.Marshal(story)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// 确保StoryTool实现了einotool.InvokableTool接口
var _ einotool.InvokableTool = (*StoryTool)(nil)

// ArgumentError 工具参数无法解析或缺少必填字段
type ArgumentError struct {
	Err error
}

func (e *ArgumentError) Error() string { return "invalid arguments: " + e.Err.Error() }

func (e *ArgumentError) Unwrap() error { return e.Err }

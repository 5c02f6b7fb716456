package tools

import (
	"context"
	"encoding/json"
	"errors"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"storybook/internal/imagegen"
)

// ImageTool 直接用配置的插画服务出图，不落盘，用于调试提示词
type ImageTool struct {
	gen           imagegen.Generator
	GuidanceScale float64
	Steps         int
}

type ImageToolArgs struct {
	Prompt string `json:"prompt"`
}

type ImageToolResp struct {
	Images []string `json:"images"`
	Count  int      `json:"count"`
}

func NewImageTool(gen imagegen.Generator, guidanceScale float64, steps int) *ImageTool {
	return &ImageTool{gen: gen, GuidanceScale: guidanceScale, Steps: steps}
}

func (t *ImageTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := map[string]*schema.ParameterInfo{
		"prompt": {Type: schema.String, Required: true, Desc: "插画提示词"},
	}
	return &schema.ToolInfo{
		Name:        "image_generate",
		Desc:        "用故事流水线相同的参数生成一张插画，返回临时图片地址",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

func (t *ImageTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...einotool.Option) (string, error) {
	var args ImageToolArgs
	if err := json.Unmarshal([]byte(argumentsInJSON), &args); err != nil {
		return "", &ArgumentError{Err: err}
	}
	if args.Prompt == "" {
		return "", &ArgumentError{Err: errors.New("prompt required")}
	}
	urls, err := t.gen.Generate(ctx, imagegen.Request{
		Prompt:        args.Prompt,
		GuidanceScale: t.GuidanceScale,
		Steps:         t.Steps,
		NumImages:     1,
	})
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(ImageToolResp{Images: urls, Count: len(urls)})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ einotool.InvokableTool = (*ImageTool)(nil)

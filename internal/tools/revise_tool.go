package tools

import (
	"context"
	"encoding/json"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"storybook/internal/model"
)

// ImageReviser 按反馈重画故事中的某一页
type ImageReviser interface {
	Revise(ctx context.Context, req model.RevisionRequest) (*model.RevisionResult, error)
}

type ReviseTool struct {
	svc ImageReviser
}

func NewReviseTool(svc ImageReviser) *ReviseTool {
	return &ReviseTool{svc: svc}
}

func (t *ReviseTool) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := map[string]*schema.ParameterInfo{
		"storyId":        {Type: schema.String, Required: true, Desc: "故事ID"},
		"pageNumber":     {Type: schema.Integer, Required: true, Desc: "页码，从1开始"},
		"originalPrompt": {Type: schema.String, Required: true, Desc: "原插画提示词"},
		"userFeedback":   {Type: schema.String, Required: true, Desc: "家长对插画的修改意见"},
	}
	return &schema.ToolInfo{
		Name:        "image_revise",
		Desc:        "根据修改意见改写某页插画提示词并重新生成插画，只更新这一页",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

func (t *ReviseTool) InvokableRun(ctx context.Context, argumentsInJSON string, opts ...einotool.Option) (string, error) {
	var req model.RevisionRequest
	if err := json.Unmarshal([]byte(argumentsInJSON), &req); err != nil {
		return "", &ArgumentError{Err: err}
	}
	if err := req.Validate(); err != nil {
		return "", &ArgumentError{Err: err}
	}
	res, err := t.svc.Revise(ctx, req)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(res)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ einotool.InvokableTool = (*ReviseTool)(nil)

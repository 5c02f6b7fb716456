// Package imagegen 封装插画生成服务（fal.ai、火山方舟 Seedream）
package imagegen

import (
	"context"

	"storybook/internal/volc"
)

// Request 一次插画生成请求
type Request struct {
	Prompt        string
	GuidanceScale float64
	Steps         int
	NumImages     int
}

// Generator 根据提示词生成一张或多张图片，返回图片URL
type Generator interface {
	Generate(ctx context.Context, req Request) ([]string, error)
}

// ArkGenerator 通过 Seedream 生成插画；Seedream 不支持推理步数，Steps 被忽略
type ArkGenerator struct {
	ark   *volc.ArkClient
	Model string
}

func NewArkGenerator(ark *volc.ArkClient, model string) *ArkGenerator {
	return &ArkGenerator{ark: ark, Model: model}
}

func (g *ArkGenerator) Generate(ctx context.Context, req Request) ([]string, error) {
	return g.ark.GenerateImages(ctx, volc.ImageGenParams{
		Model:         g.Model,
		Prompt:        req.Prompt,
		GuidanceScale: req.GuidanceScale,
	})
}

var (
	_ Generator = (*ArkGenerator)(nil)
	_ Generator = (*FalClient)(nil)
)

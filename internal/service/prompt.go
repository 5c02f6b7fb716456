package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"storybook/internal/model"
)

const storySystemPrompt = `You are an AI-powered bedtime story creator for children aged 2-6. Create engaging, educational stories that instill values and ideas chosen by parents, while being entertaining and age-appropriate. Guidelines:
1. Generate a complete 8-10 page bedtime story with text and image prompt for each page.
2. Based on the input provided, decide whether to use the child as a character or create a story with fictional characters that align with the given theme.
3. Tailor the content to the child's age and incorporate the parent's chosen values and story details naturally.
4. Use engagement techniques like repetition, rhymes, and mild suspense.
5. Ensure cultural sensitivity and global appeal.
6. Maintain consistent character appearances and style across all pages.
7. Create vivid, colorful imagery suitable for young children.
8. For each image prompt, provide a detailed and consistent description of main characters, including their appearance, clothing, and any distinguishing features.
9. Ensure each image prompt can stand alone without relying on context from other images.`

// ImagePromptTemplate 每页插画提示词需要填写的模板
const ImagePromptTemplate = `Cute, simple children's illustration. [Character name], a [age]-year-old [boy/girl] with a round face, simple dot eyes, and a small smile. [He/She] has [hair description] and is wearing [clothing description]. [Action or situation]. Background: Simple, uncluttered [setting] with soft pastel colors. Style: Gentle watercolor effect with clean, simple outlines. Use a limited, pastel color palette. Characters should have rounded, cute features similar to child-friendly disney pixar character. Minimal details, focus on basic shapes. Include: [Any other important elements or secondary characters]. Soft, comforting, and appealing for children.`

const storyUserPrompt = `Create a bedtime story based on the following information:
- Child's name: {{.childName}}
- Child's age: {{.childAge}}
- Story theme: {{.storyTheme}}
- Story details and values: {{.parentValue}}
{{- if .parentName}}
- Parent's name: {{.parentName}}
{{- end}}
{{- if .favoriteAnimal}}
- Child's favorite animal: {{.favoriteAnimal}}
{{- end}}

For each page, provide:
1. Story text
2. An image prompt using this template:"{{.imageTemplate}}"
3. An optional parent interaction suggestion (only where it adds value to the story experience)

Ensure that the description of main characters remains consistent across all image prompts, and each prompt contains enough information to generate a coherent image without relying on other prompts.

Format the response as JSON:
{
  "title": "Story title",
  "pages": [
    {
      "page_number": int,
      "story_text": "Story text for this page",
      "image_prompt": "Image prompt using the template",
      "parent_interaction": "Parent-child interaction suggestion or null"
    }
  ],
  "summary": "Brief story summary",
  "values_explored": ["Key values in the story"]
}

Ensure proper JSON formatting and maintain character consistency across all pages. Incorporate the story theme and parent's values throughout the narrative.`

const reviseSystemPrompt = `You are an AI assistant specializing in refining image generation prompts. Your task is to take an original prompt and user feedback, then create an improved prompt that addresses the user's concerns while maintaining the original intent and style.`

const reviseUserPrompt = `Original prompt: "{{.originalPrompt}}"

User feedback: "{{.userFeedback}}"

Please provide a refined prompt that addresses the user's feedback while maintaining the original intent and style of the image description. The refined prompt should be suitable for use with an AI image generation model. Ensure the refined prompt maintains the cute, simple children's illustration style with soft watercolors and simple shapes, appropriate for young children.`

var (
	storyTemplate = prompt.FromMessages(schema.GoTemplate,
		schema.SystemMessage(storySystemPrompt),
		schema.UserMessage(storyUserPrompt),
	)
	reviseTemplate = prompt.FromMessages(schema.GoTemplate,
		schema.SystemMessage(reviseSystemPrompt),
		schema.UserMessage(reviseUserPrompt),
	)
)

// BuildStoryMessages 生成故事的系统/用户消息
func BuildStoryMessages(ctx context.Context, req model.StoryRequest) ([]*schema.Message, error) {
	msgs, err := storyTemplate.Format(ctx, map[string]any{
		"childName":      req.ChildName,
		"childAge":       strconv.Itoa(int(req.ChildAge)),
		"storyTheme":     req.ThemeValue(),
		"parentValue":    req.ParentValue,
		"parentName":     req.ParentName,
		"favoriteAnimal": req.FavoriteAnimal,
		"imageTemplate":  ImagePromptTemplate,
	})
	if err != nil {
		return nil, fmt.Errorf("format story prompt: %w", err)
	}
	return msgs, nil
}

// BuildReviseMessages 修改插画提示词的系统/用户消息
func BuildReviseMessages(ctx context.Context, originalPrompt, feedback string) ([]*schema.Message, error) {
	msgs, err := reviseTemplate.Format(ctx, map[string]any{
		"originalPrompt": originalPrompt,
		"userFeedback":   feedback,
	})
	if err != nil {
		return nil, fmt.Errorf("format revise prompt: %w", err)
	}
	return msgs, nil
}

package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"storybook/internal/model"
)

var errNoJSONObject = errors.New("no valid JSON object found in the response")

type rawPage struct {
	PageNumber        *int    `json:"page_number"`
	StoryText         string  `json:"story_text"`
	ImagePrompt       string  `json:"image_prompt"`
	ParentInteraction *string `json:"parent_interaction"`
}

type rawStory struct {
	Title          string    `json:"title"`
	Pages          []rawPage `json:"pages"`
	Story          []rawPage `json:"story"` // 旧版提示词使用的键名
	Summary        string    `json:"summary"`
	ValuesExplored []string  `json:"values_explored"`
}

// ExtractStory 从模型回复中取第一个 { 到最后一个 } 之间的内容解析为故事，
// 前后的说明文字会被忽略。页码缺失时按位置补齐，与位置不符视为解析失败。
func ExtractStory(text string) (*model.Story, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, newError(KindParse, "extract story", errNoJSONObject)
	}

	var raw rawStory
	if err := json.Unmarshal([]byte(text[start:end+1]), &raw); err != nil {
		return nil, newError(KindParse, "extract story", fmt.Errorf("decode story json: %w", err))
	}

	pages := raw.Pages
	if len(pages) == 0 {
		pages = raw.Story
	}
	if strings.TrimSpace(raw.Title) == "" {
		return nil, newError(KindParse, "extract story", errors.New("story has no title"))
	}
	if len(pages) == 0 {
		return nil, newError(KindParse, "extract story", errors.New("story has no pages"))
	}

	story := &model.Story{
		Title:          strings.TrimSpace(raw.Title),
		Summary:        strings.TrimSpace(raw.Summary),
		ValuesExplored: raw.ValuesExplored,
		Pages:          make([]model.StoryPage, 0, len(pages)),
	}
	if story.ValuesExplored == nil {
		story.ValuesExplored = []string{}
	}

	for i, p := range pages {
		want := i + 1
		if p.PageNumber != nil && *p.PageNumber != want {
			return nil, newError(KindParse, "extract story",
				fmt.Errorf("page at position %d has page_number %d", want, *p.PageNumber))
		}
		if strings.TrimSpace(p.StoryText) == "" {
			return nil, newError(KindParse, "extract story", fmt.Errorf("page %d has no story_text", want))
		}
		if strings.TrimSpace(p.ImagePrompt) == "" {
			return nil, newError(KindParse, "extract story", fmt.Errorf("page %d has no image_prompt", want))
		}
		story.Pages = append(story.Pages, model.StoryPage{
			PageNumber:        want,
			StoryText:         p.StoryText,
			ImagePrompt:       p.ImagePrompt,
			ParentInteraction: normalizeInteraction(p.ParentInteraction),
		})
	}
	return story, nil
}

// 模型偶尔把 null 写成字符串
func normalizeInteraction(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" || strings.EqualFold(v, "null") {
		return nil
	}
	return &v
}

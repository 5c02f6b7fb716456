package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StoryPage 故事的一页：正文、插画提示词和可选的插画地址
type StoryPage struct {
	PageNumber        int     `json:"page_number"`                  // 页码，从1开始
	StoryText         string  `json:"story_text"`                   // 本页正文
	ImagePrompt       string  `json:"image_prompt"`                 // 插画提示词
	ParentInteraction *string `json:"parent_interaction,omitempty"` // 亲子互动建议，可为空
	ImageURL          string  `json:"image_url,omitempty"`          // 持久化后的插画地址
}

// Story 一个完整的睡前故事
type Story struct {
	ID             string      `json:"id,omitempty"`
	Title          string      `json:"title"`
	Pages          []StoryPage `json:"pages"`
	Summary        string      `json:"summary"`
	ValuesExplored []string    `json:"values_explored"`
	CreatedAt      time.Time   `json:"created_at,omitzero"`
}

// StorySummary 故事列表中的一项
type StorySummary struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	ValuesExplored []string `json:"values_explored"`
}

// Summarize 返回故事的列表摘要
func (s *Story) Summarize() StorySummary {
	return StorySummary{
		ID:             s.ID,
		Title:          s.Title,
		Summary:        s.Summary,
		ValuesExplored: s.ValuesExplored,
	}
}

// Page 按页码查找页面，返回其下标
func (s *Story) Page(pageNumber int) (int, bool) {
	for i := range s.Pages {
		if s.Pages[i].PageNumber == pageNumber {
			return i, true
		}
	}
	return -1, false
}

// Clone 深拷贝故事，页面切片与可选字段不与原对象共享
func (s *Story) Clone() *Story {
	out := *s
	out.Pages = make([]StoryPage, len(s.Pages))
	for i, p := range s.Pages {
		if p.ParentInteraction != nil {
			v := *p.ParentInteraction
			p.ParentInteraction = &v
		}
		out.Pages[i] = p
	}
	if s.ValuesExplored != nil {
		out.ValuesExplored = append([]string(nil), s.ValuesExplored...)
	}
	return &out
}

// Age 孩子年龄，兼容数字和数字字符串两种JSON写法
type Age int

func (a *Age) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		*a = Age(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("childAge: %w", err)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*a = 0
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("childAge: %q is not a number", s)
	}
	*a = Age(n)
	return nil
}

// StoryRequest 家长提交的故事生成请求
type StoryRequest struct {
	ChildName      string `json:"childName"`
	ChildAge       Age    `json:"childAge"`
	StoryTheme     string `json:"storyTheme,omitempty"`
	Theme          string `json:"theme,omitempty"`
	ParentValue    string `json:"parentValue"`
	ParentName     string `json:"parentName,omitempty"`
	FavoriteAnimal string `json:"favoriteAnimal,omitempty"`
}

// ThemeValue 优先取 storyTheme，其次 theme
func (r StoryRequest) ThemeValue() string {
	if t := strings.TrimSpace(r.StoryTheme); t != "" {
		return t
	}
	return strings.TrimSpace(r.Theme)
}

// Validate 只检查必填字段是否存在，不检查内容
func (r StoryRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.ChildName) == "" {
		missing = append(missing, "childName")
	}
	if r.ChildAge <= 0 {
		missing = append(missing, "childAge")
	}
	if r.ThemeValue() == "" {
		missing = append(missing, "storyTheme")
	}
	if strings.TrimSpace(r.ParentValue) == "" {
		missing = append(missing, "parentValue")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	return nil
}

// RevisionRequest 单页插画修改请求
type RevisionRequest struct {
	StoryID        string `json:"storyId"`
	PageNumber     int    `json:"pageNumber"`
	OriginalPrompt string `json:"originalPrompt"`
	UserFeedback   string `json:"userFeedback"`
}

func (r RevisionRequest) Validate() error {
	if strings.TrimSpace(r.StoryID) == "" {
		return errors.New("storyId required")
	}
	if r.PageNumber <= 0 {
		return errors.New("pageNumber must be positive")
	}
	if strings.TrimSpace(r.OriginalPrompt) == "" {
		return errors.New("originalPrompt required")
	}
	if strings.TrimSpace(r.UserFeedback) == "" {
		return errors.New("userFeedback required")
	}
	return nil
}

// RevisionResult 修改后的插画地址与提示词
type RevisionResult struct {
	NewImageURL   string `json:"newImageUrl"`
	RefinedPrompt string `json:"refinedPrompt"`
}

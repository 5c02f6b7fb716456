// Package storage 持久化故事记录。表结构沿用 stories(id, title, story, summary,
// values_explored, created_at)，其中 story 列保存页面数组。
package storage

import (
	"context"
	"errors"
	"time"

	"storybook/internal/model"
)

// ErrNotFound 记录不存在
var ErrNotFound = errors.New("story not found")

// DefaultListLimit 列表接口返回的最大条数
const DefaultListLimit = 10

// StoryStore 故事记录存储
type StoryStore interface {
	// Create 插入故事并返回带有生成ID和创建时间的记录
	Create(ctx context.Context, story *model.Story) (*model.Story, error)
	Get(ctx context.Context, id string) (*model.Story, error)
	// ListRecent 按创建时间倒序返回最多 limit 条摘要
	ListRecent(ctx context.Context, limit int) ([]model.StorySummary, error)
	// Update 整条覆盖写回
	Update(ctx context.Context, story *model.Story) error
}

// storyRow 与 stories 表对应的行
type storyRow struct {
	ID             string            `json:"id,omitempty"`
	Title          string            `json:"title"`
	Story          []model.StoryPage `json:"story"`
	Summary        string            `json:"summary"`
	ValuesExplored []string          `json:"values_explored"`
	CreatedAt      *time.Time        `json:"created_at,omitempty"`
}

func toRow(s *model.Story) storyRow {
	row := storyRow{
		ID:             s.ID,
		Title:          s.Title,
		Story:          s.Pages,
		Summary:        s.Summary,
		ValuesExplored: s.ValuesExplored,
	}
	if row.Story == nil {
		row.Story = []model.StoryPage{}
	}
	if row.ValuesExplored == nil {
		row.ValuesExplored = []string{}
	}
	if !s.CreatedAt.IsZero() {
		ts := s.CreatedAt
		row.CreatedAt = &ts
	}
	return row
}

func (r storyRow) toStory() *model.Story {
	s := &model.Story{
		ID:             r.ID,
		Title:          r.Title,
		Pages:          r.Story,
		Summary:        r.Summary,
		ValuesExplored: r.ValuesExplored,
	}
	if r.CreatedAt != nil {
		s.CreatedAt = *r.CreatedAt
	}
	return s
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}

package storage

import (
	"context"
	"errors"
	"fmt"

	postgrest "github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"storybook/internal/model"
)

// SupabaseStore 通过 PostgREST 读写 Supabase 中的 stories 表
type SupabaseStore struct {
	client *supa.Client
	table  string
}

func NewSupabaseStore(client *supa.Client, table string) *SupabaseStore {
	if table == "" {
		table = "stories"
	}
	return &SupabaseStore{client: client, table: table}
}

func (s *SupabaseStore) Create(_ context.Context, story *model.Story) (*model.Story, error) {
	row := toRow(story)
	var inserted []storyRow
	if _, err := s.client.From(s.table).Insert(row, false, "", "representation", "").ExecuteTo(&inserted); err != nil {
		return nil, fmt.Errorf("insert story: %w", err)
	}
	if len(inserted) == 0 {
		return nil, errors.New("story was not created in the database, but no error was returned")
	}
	return inserted[0].toStory(), nil
}

func (s *SupabaseStore) Get(_ context.Context, id string) (*model.Story, error) {
	var rows []storyRow
	if _, err := s.client.From(s.table).Select("*", "", false).Eq("id", id).Limit(1, "").ExecuteTo(&rows); err != nil {
		return nil, fmt.Errorf("select story %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0].toStory(), nil
}

func (s *SupabaseStore) ListRecent(_ context.Context, limit int) ([]model.StorySummary, error) {
	var out []model.StorySummary
	_, err := s.client.From(s.table).
		Select("id, title, summary, values_explored", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(normalizeLimit(limit), "").
		ExecuteTo(&out)
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	if out == nil {
		out = []model.StorySummary{}
	}
	return out, nil
}

func (s *SupabaseStore) Update(_ context.Context, story *model.Story) error {
	row := toRow(story)
	row.ID = ""
	row.CreatedAt = nil
	var updated []storyRow
	if _, err := s.client.From(s.table).Update(row, "representation", "").Eq("id", story.ID).ExecuteTo(&updated); err != nil {
		return fmt.Errorf("update story %s: %w", story.ID, err)
	}
	if len(updated) == 0 {
		return ErrNotFound
	}
	return nil
}

var _ StoryStore = (*SupabaseStore)(nil)

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"storybook/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS stories (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    story JSONB NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    values_explored JSONB NOT NULL DEFAULT '[]',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_stories_created_at ON stories (created_at DESC);
`

// PostgresStore 直连 PostgreSQL（lib/pq 驱动）
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema 建表（已存在则跳过）
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, story *model.Story) (*model.Story, error) {
	out := story.Clone()
	if out.ID == "" {
		out.ID = uuid.NewString()
	}
	if out.CreatedAt.IsZero() {
		out.CreatedAt = time.Now().UTC()
	}
	pagesJSON, valuesJSON, err := marshalColumns(out)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO stories (id, title, story, summary, values_explored, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, out.ID, out.Title, pagesJSON, out.Summary, valuesJSON, out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert story: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*model.Story, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, story, summary, values_explored, created_at
		FROM stories
		WHERE id = $1
	`, id)

	var (
		story     model.Story
		pagesRaw  []byte
		valuesRaw []byte
	)
	if err := row.Scan(&story.ID, &story.Title, &pagesRaw, &story.Summary, &valuesRaw, &story.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select story %s: %w", id, err)
	}
	if err := json.Unmarshal(pagesRaw, &story.Pages); err != nil {
		return nil, fmt.Errorf("decode pages of story %s: %w", id, err)
	}
	if len(valuesRaw) > 0 {
		if err := json.Unmarshal(valuesRaw, &story.ValuesExplored); err != nil {
			return nil, fmt.Errorf("decode values of story %s: %w", id, err)
		}
	}
	return &story, nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]model.StorySummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, summary, values_explored
		FROM stories
		ORDER BY created_at DESC
		LIMIT $1
	`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list stories: %w", err)
	}
	defer rows.Close()

	result := []model.StorySummary{}
	for rows.Next() {
		var (
			sum       model.StorySummary
			valuesRaw []byte
		)
		if err := rows.Scan(&sum.ID, &sum.Title, &sum.Summary, &valuesRaw); err != nil {
			return nil, fmt.Errorf("scan story summary: %w", err)
		}
		if len(valuesRaw) > 0 {
			if err := json.Unmarshal(valuesRaw, &sum.ValuesExplored); err != nil {
				return nil, fmt.Errorf("decode values of story %s: %w", sum.ID, err)
			}
		}
		result = append(result, sum)
	}
	return result, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, story *model.Story) error {
	pagesJSON, valuesJSON, err := marshalColumns(story)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE stories
		SET title = $2, story = $3, summary = $4, values_explored = $5
		WHERE id = $1
	`, story.ID, story.Title, pagesJSON, story.Summary, valuesJSON)
	if err != nil {
		return fmt.Errorf("update story %s: %w", story.ID, err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalColumns(story *model.Story) ([]byte, []byte, error) {
	row := toRow(story)
	pagesJSON, err := json.Marshal(row.Story)
	if err != nil {
		return nil, nil, err
	}
	valuesJSON, err := json.Marshal(row.ValuesExplored)
	if err != nil {
		return nil, nil, err
	}
	return pagesJSON, valuesJSON, nil
}

var _ StoryStore = (*PostgresStore)(nil)

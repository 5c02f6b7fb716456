package storage

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	supa "github.com/supabase-community/supabase-go"
)

func newSupabaseStore(t *testing.T, handler http.HandlerFunc) *SupabaseStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := supa.NewClient(srv.URL, "service-key", nil)
	require.NoError(t, err)
	return NewSupabaseStore(client, "stories")
}

func TestSupabaseStore_CreateReturnsInsertedRow(t *testing.T) {
	var body map[string]any
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/stories"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"id":"uuid-1","title":"Fox","story":[{"page_number":1,"story_text":"once","image_prompt":"a fox","image_url":"https://cdn/1.png"}],"summary":"sum","values_explored":["kindness"],"created_at":"2024-05-01T20:00:00.123456+00:00"}]`))
	})

	created, err := s.Create(context.Background(), sampleStory("Fox"))
	require.NoError(t, err)
	assert.Equal(t, "uuid-1", created.ID)
	assert.Equal(t, 2024, created.CreatedAt.Year())
	require.Len(t, created.Pages, 1)

	assert.Contains(t, body, "story")
	assert.NotContains(t, body, "pages")
	assert.NotContains(t, body, "id")
}

func TestSupabaseStore_GetNotFound(t *testing.T) {
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.missing", r.URL.Query().Get("id"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSupabaseStore_ListRecent(t *testing.T) {
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.True(t, strings.HasPrefix(q.Get("order"), "created_at.desc"), q.Get("order"))
		assert.Equal(t, "10", q.Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"2","title":"Newer","summary":"s","values_explored":["sharing"]}]`))
	})

	list, err := s.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Newer", list[0].Title)
}

func TestSupabaseStore_ErrorStatus(t *testing.T) {
	s := newSupabaseStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"XX000","message":"boom"}`))
	})

	_, err := s.ListRecent(context.Background(), 10)
	assert.Error(t, err)
}

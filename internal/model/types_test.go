package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgeAcceptsNumberOrString(t *testing.T) {
	var req StoryRequest
	require.NoError(t, json.Unmarshal([]byte(`{"childAge":4}`), &req))
	assert.Equal(t, Age(4), req.ChildAge)

	require.NoError(t, json.Unmarshal([]byte(`{"childAge":" 5 "}`), &req))
	assert.Equal(t, Age(5), req.ChildAge)

	assert.Error(t, json.Unmarshal([]byte(`{"childAge":"four"}`), &req))
}

func TestStoryRequestValidate(t *testing.T) {
	req := StoryRequest{ChildName: "Luna", ChildAge: 4, Theme: "space", ParentValue: "sharing"}
	require.NoError(t, req.Validate())
	assert.Equal(t, "space", req.ThemeValue())

	req.StoryTheme = "ocean"
	assert.Equal(t, "ocean", req.ThemeValue())

	err := StoryRequest{ChildName: " "}.Validate()
	assert.EqualError(t, err, "missing required fields: childName, childAge, storyTheme, parentValue")
}

func TestRevisionRequestValidate(t *testing.T) {
	ok := RevisionRequest{StoryID: "s", PageNumber: 1, OriginalPrompt: "p", UserFeedback: "f"}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.PageNumber = 0
	assert.Error(t, bad.Validate())
}

func TestStoryCloneIsDeep(t *testing.T) {
	hint := "sing together"
	s := &Story{
		Title:          "T",
		Pages:          []StoryPage{{PageNumber: 1, ParentInteraction: &hint}},
		ValuesExplored: []string{"kindness"},
	}
	c := s.Clone()
	c.Pages[0].ImageURL = "x"
	*c.Pages[0].ParentInteraction = "changed"
	c.ValuesExplored[0] = "changed"

	assert.Empty(t, s.Pages[0].ImageURL)
	assert.Equal(t, "sing together", *s.Pages[0].ParentInteraction)
	assert.Equal(t, "kindness", s.ValuesExplored[0])

	idx, found := s.Page(1)
	assert.True(t, found)
	assert.Equal(t, 0, idx)
	_, found = s.Page(2)
	assert.False(t, found)
}

func TestStoryOmitsZeroCreatedAt(t *testing.T) {
	b, err := json.Marshal(&Story{Title: "T"})
	require.NoError(t, err)
	assert.NotContains(t, string(b), "created_at")

	b, err = json.Marshal(&Story{Title: "T", CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"created_at":"2024-05-01T00:00:00Z"`)
}

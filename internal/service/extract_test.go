package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractStory_ToleratesSurroundingProse(t *testing.T) {
	story, err := ExtractStory(storyReply(2))
	require.NoError(t, err)
	assert.Equal(t, "Luna and the Sleepy Moon", story.Title)
	assert.Equal(t, "Luna learns to share.", story.Summary)
	assert.Equal(t, []string{"sharing", "kindness"}, story.ValuesExplored)
	require.Len(t, story.Pages, 2)
	assert.Equal(t, 2, story.Pages[1].PageNumber)
}

func TestExtractStory_AcceptsStoryKey(t *testing.T) {
	text := `{"title":"T","story":[{"page_number":1,"story_text":"a","image_prompt":"b","parent_interaction":"Ask: what is your favourite star?"}],"summary":"s","values_explored":[]}`
	story, err := ExtractStory(text)
	require.NoError(t, err)
	require.Len(t, story.Pages, 1)
	require.NotNil(t, story.Pages[0].ParentInteraction)
	assert.Equal(t, "Ask: what is your favourite star?", *story.Pages[0].ParentInteraction)
}

func TestExtractStory_AssignsMissingPageNumbers(t *testing.T) {
	text := `{"title":"T","pages":[{"story_text":"a","image_prompt":"b"},{"story_text":"c","image_prompt":"d","parent_interaction":"null"}]}`
	story, err := ExtractStory(text)
	require.NoError(t, err)
	assert.Equal(t, 1, story.Pages[0].PageNumber)
	assert.Equal(t, 2, story.Pages[1].PageNumber)
	assert.Nil(t, story.Pages[1].ParentInteraction)
	assert.NotNil(t, story.ValuesExplored)
}

func TestExtractStory_Rejects(t *testing.T) {
	cases := map[string]string{
		"no braces":        "I could not write a story.",
		"only closing":     "oops } here",
		"malformed json":   `{"title": "T", "pages": [}`,
		"no title":         `{"pages":[{"story_text":"a","image_prompt":"b"}]}`,
		"no pages":         `{"title":"T","pages":[]}`,
		"missing text":     `{"title":"T","pages":[{"image_prompt":"b"}]}`,
		"missing prompt":   `{"title":"T","pages":[{"story_text":"a"}]}`,
		"page out of step": `{"title":"T","pages":[{"page_number":1,"story_text":"a","image_prompt":"b"},{"page_number":3,"story_text":"c","image_prompt":"d"}]}`,
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ExtractStory(text)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}

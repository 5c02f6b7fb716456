package volc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateImages(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/images/generations", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"data":[{"url":"https://img.example/1.png"},{"b64_json":"AAAA"}]}`))
	}))
	defer srv.Close()

	c := NewArkClient("key", srv.URL, time.Second, false)
	urls, err := c.GenerateImages(context.Background(), ImageGenParams{Model: "seedream", Prompt: "a fox", GuidanceScale: 3.5})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://img.example/1.png", "data:image/png;base64,AAAA"}, urls)
	assert.Equal(t, "seedream", got["model"])
	assert.Equal(t, "a fox", got["prompt"])
	assert.Equal(t, 3.5, got["guidance_scale"])
	assert.Equal(t, "1024x1024", got["size"])
}

func TestGenerateImagesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewArkClient("key", srv.URL, time.Second, false)
	_, err := c.GenerateImages(context.Background(), ImageGenParams{Model: "m", Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 429")
}

func TestGenerateImagesEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewArkClient("key", srv.URL, time.Second, false)
	_, err := c.GenerateImages(context.Background(), ImageGenParams{Model: "m", Prompt: "p"})
	assert.EqualError(t, err, "no images returned")
}

func TestGenerateImagesMock(t *testing.T) {
	c := NewArkClient("", "", 0, true)
	urls, err := c.GenerateImages(context.Background(), ImageGenParams{Prompt: "p"})
	require.NoError(t, err)
	require.Len(t, urls, 1)
	assert.True(t, strings.HasPrefix(urls[0], "data:image/png;base64,"))
}

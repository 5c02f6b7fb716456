package textgen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/generative-ai-go/genai"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChatModel struct {
	reply     string
	err       error
	gotMsgs   []*schema.Message
	maxTokens *int
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.gotMsgs = input
	f.maxTokens = einomodel.GetCommonOptions(nil, opts...).MaxTokens
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func TestChatGraphGenerate(t *testing.T) {
	fake := &fakeChatModel{reply: `Here you go: {"title":"x"}`}
	g, err := NewChatGraph(context.Background(), fake)
	require.NoError(t, err)

	msgs := []*schema.Message{schema.SystemMessage("sys"), schema.UserMessage("user")}
	out, err := g.Generate(context.Background(), msgs, 4096)
	require.NoError(t, err)
	assert.Equal(t, `Here you go: {"title":"x"}`, out)
	require.Len(t, fake.gotMsgs, 2)
	assert.Equal(t, "sys", fake.gotMsgs[0].Content)
	require.NotNil(t, fake.maxTokens)
	assert.Equal(t, 4096, *fake.maxTokens)
}

func TestChatGraphEmptyReply(t *testing.T) {
	g, err := NewChatGraph(context.Background(), &fakeChatModel{reply: "   "})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")}, 0)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestChatGraphModelError(t *testing.T) {
	g, err := NewChatGraph(context.Background(), &fakeChatModel{err: errors.New("rate limited")})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}

func TestOpenAIGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"gpt-test",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"refined prompt"}}]}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI("key", srv.URL, "gpt-test")
	require.NoError(t, err)
	out, err := o.Generate(context.Background(), []*schema.Message{schema.SystemMessage("sys"), schema.UserMessage("u")}, 1000)
	require.NoError(t, err)
	assert.Equal(t, "refined prompt", out)
	assert.Equal(t, "gpt-test", body["model"])
	assert.EqualValues(t, 1000, body["max_completion_tokens"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestOpenAIDoesNotRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer srv.Close()

	o, err := NewOpenAI("key", srv.URL, "gpt-test", option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	_, err = o.Generate(context.Background(), []*schema.Message{schema.UserMessage("u")}, 10)
	require.Error(t, err)
	assert.EqualValues(t, 1, hits.Load())
}

func TestArkDoesNotRetry(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"code":"InternalServiceError","message":"overloaded"}}`))
	}))
	defer srv.Close()

	g, err := NewArk(context.Background(), "key", srv.URL+"/api/v3", "doubao-test", &http.Client{Timeout: 5 * time.Second})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), []*schema.Message{schema.UserMessage("u")}, 10)
	require.Error(t, err)
	assert.EqualValues(t, 1, hits.Load())
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI("", "", "gpt")
	assert.Error(t, err)
	_, err = NewOpenAI("k", "", "")
	assert.Error(t, err)
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("{\"title\":"), genai.Blob{MIMEType: "image/png"}, genai.Text("\"x\"}")}},
		}},
	}
	assert.Equal(t, `{"title":"x"}`, responseText(resp))
	assert.Equal(t, "", responseText(nil))
	assert.Equal(t, "", responseText(&genai.GenerateContentResponse{}))
}

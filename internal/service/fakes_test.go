package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"storybook/internal/assets"
	"storybook/internal/imagegen"
	"storybook/internal/model"
	"storybook/internal/storage"
)

type fakeText struct {
	mu        sync.Mutex
	replies   []string
	err       error
	calls     [][]*schema.Message
	maxTokens []int
}

func (f *fakeText) Generate(_ context.Context, msgs []*schema.Message, maxTokens int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, msgs)
	f.maxTokens = append(f.maxTokens, maxTokens)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	reply := f.replies[0]
	if len(f.replies) > 1 {
		f.replies = f.replies[1:]
	}
	return reply, nil
}

// fakeImages 提示词包含 failOn 中任一子串时失败
type fakeImages struct {
	failOn   []string
	empty    bool
	delay    time.Duration
	delayFor func(prompt string) time.Duration
	calls    atomic.Int32
	inflight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	requests []imagegen.Request
	finished []string
}

func (f *fakeImages) finishedOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.finished...)
}

func (f *fakeImages) Generate(_ context.Context, req imagegen.Request) ([]string, error) {
	f.calls.Add(1)
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.delayFor != nil {
		time.Sleep(f.delayFor(req.Prompt))
	}
	f.mu.Lock()
	f.finished = append(f.finished, req.Prompt)
	f.mu.Unlock()
	for _, s := range f.failOn {
		if strings.Contains(req.Prompt, s) {
			return nil, fmt.Errorf("image service rejected %q", s)
		}
	}
	if f.empty {
		return nil, nil
	}
	fields := strings.Fields(req.Prompt)
	return []string{"https://fal.example/tmp/" + fields[len(fields)-1] + ".png"}, nil
}

type fakeFetcher struct {
	failOn string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, string, error) {
	if f.failOn != "" && strings.Contains(url, f.failOn) {
		return nil, "", errors.New("failed to fetch image: 404 Not Found")
	}
	return []byte("\x89PNG " + url), "image/png", nil
}

// recordingAssets 记录上传的文件名
type recordingAssets struct {
	*assets.MemoryStore
	mu    sync.Mutex
	names []string
	err   error
}

func newRecordingAssets() *recordingAssets {
	return &recordingAssets{MemoryStore: assets.NewMemoryStore("http://cdn.local")}
}

func (r *recordingAssets) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	r.mu.Lock()
	r.names = append(r.names, name)
	r.mu.Unlock()
	if r.err != nil {
		return "", r.err
	}
	return r.MemoryStore.Put(ctx, name, data, contentType)
}

type failingStore struct {
	storage.StoryStore
	createErr error
	updateErr error
}

func (f *failingStore) Create(ctx context.Context, s *model.Story) (*model.Story, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.StoryStore.Create(ctx, s)
}

func (f *failingStore) Update(ctx context.Context, s *model.Story) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	return f.StoryStore.Update(ctx, s)
}

type harness struct {
	svc     *StoryService
	text    *fakeText
	images  *fakeImages
	fetcher *fakeFetcher
	assets  *recordingAssets
	store   storage.StoryStore
	logs    *test.Hook
}

func newHarness(opts Options) *harness {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	h := &harness{
		text:    &fakeText{},
		images:  &fakeImages{},
		fetcher: &fakeFetcher{},
		assets:  newRecordingAssets(),
		store:   storage.NewMemoryStore(),
		logs:    hook,
	}
	if opts.GuidanceScale == 0 {
		opts.GuidanceScale = 3.5
	}
	if opts.InferenceSteps == 0 {
		opts.InferenceSteps = 25
	}
	h.svc = NewStoryService(h.text, h.images, h.fetcher, h.assets, h.store, opts, logger)
	return h
}

func storyReply(pages int) string {
	var b strings.Builder
	b.WriteString("Here is your story!\n```json\n{\n  \"title\": \"Luna and the Sleepy Moon\",\n  \"pages\": [")
	for i := 1; i <= pages; i++ {
		if i > 1 {
			b.WriteString(",")
		}
		fmt.Fprintf(&b, `{"page_number": %d, "story_text": "Page %d text.", "image_prompt": "Cute illustration scene-%d", "parent_interaction": null}`, i, i, i)
	}
	b.WriteString("],\n  \"summary\": \"Luna learns to share.\",\n  \"values_explored\": [\"sharing\", \"kindness\"]\n}\n```\nSweet dreams!")
	return b.String()
}

func validRequest() model.StoryRequest {
	return model.StoryRequest{ChildName: "Luna", ChildAge: 4, StoryTheme: "space", ParentValue: "sharing"}
}

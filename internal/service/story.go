// Package service 睡前故事流水线：生成文本、逐页插画、持久化，以及单页插画修改
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"storybook/internal/assets"
	"storybook/internal/imagegen"
	"storybook/internal/metrics"
	"storybook/internal/model"
	"storybook/internal/storage"
	"storybook/internal/textgen"
)

// Fetcher 下载生成的图片（http(s) 或 data: URL）
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, string, error)
}

// Options 流水线参数
type Options struct {
	StoryMaxTokens  int
	ReviseMaxTokens int
	GuidanceScale   float64
	InferenceSteps  int
	// RateInterval 两次插画请求之间的最小间隔，0 表示不限速
	RateInterval time.Duration
	// Concurrency 同时进行的插画请求上限，0 表示不限
	Concurrency int
}

type StoryService struct {
	text    textgen.Generator
	images  imagegen.Generator
	fetcher Fetcher
	assets  assets.Store
	store   storage.StoryStore
	opts    Options
	limiter *rate.Limiter
	log     logrus.FieldLogger
	now     func() time.Time

	onRevise []func(storyID string)
}

func NewStoryService(
	text textgen.Generator,
	images imagegen.Generator,
	fetcher Fetcher,
	assetStore assets.Store,
	store storage.StoryStore,
	opts Options,
	log logrus.FieldLogger,
) *StoryService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &StoryService{
		text:    text,
		images:  images,
		fetcher: fetcher,
		assets:  assetStore,
		store:   store,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
	if opts.RateInterval > 0 {
		s.limiter = rate.NewLimiter(rate.Every(opts.RateInterval), 1)
	}
	return s
}

// OnRevise 注册插画修改成功后的回调，例如清理分享页缓存
func (s *StoryService) OnRevise(fn func(storyID string)) {
	s.onRevise = append(s.onRevise, fn)
}

// Generate 生成故事、并行生成每页插画并保存，返回已入库的故事。
// 单页插画失败不影响整体，该页不带 image_url。
func (s *StoryService) Generate(ctx context.Context, req model.StoryRequest) (*model.Story, error) {
	start := time.Now()
	story, err := s.generate(ctx, req)
	metrics.RecordRun("generate", outcome(err), time.Since(start))
	return story, err
}

func (s *StoryService) generate(ctx context.Context, req model.StoryRequest) (*model.Story, error) {
	log := s.log.WithField("child", req.ChildName)

	msgs, err := BuildStoryMessages(ctx, req)
	if err != nil {
		return nil, err
	}

	log.Info("generating story content")
	t0 := time.Now()
	text, err := s.text.Generate(ctx, msgs, s.opts.StoryMaxTokens)
	if err != nil {
		return nil, newError(KindUpstream, "generate story text", err)
	}
	log.WithField("duration", time.Since(t0)).Debug("received story content")

	story, err := ExtractStory(text)
	if err != nil {
		return nil, err
	}

	log.WithField("pages", len(story.Pages)).Info("generating and saving images")
	s.illustrate(ctx, story.Pages)

	created, err := s.store.Create(ctx, story)
	if err != nil {
		return nil, newError(KindStorage, "save story", err)
	}
	log.WithField("story_id", created.ID).Info("story saved")
	return created, nil
}

// illustrate 每页一个 goroutine，结果写回各自下标，顺序与完成先后无关
func (s *StoryService) illustrate(ctx context.Context, pages []model.StoryPage) {
	var g errgroup.Group
	if s.opts.Concurrency > 0 {
		g.SetLimit(s.opts.Concurrency)
	}
	for i := range pages {
		i := i
		g.Go(func() error {
			log := s.log.WithField("page", pages[i].PageNumber)
			url, err := s.illustratePage(ctx, pages[i])
			if err != nil {
				log.WithError(err).Warn("page illustration failed, keeping page without image")
				return nil
			}
			pages[i].ImageURL = url
			log.WithField("image_url", url).Debug("page illustration saved")
			return nil
		})
	}
	_ = g.Wait()
}

func (s *StoryService) illustratePage(ctx context.Context, page model.StoryPage) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			metrics.RecordPageImage(metrics.PageImageGenerateFailed)
			return "", newError(KindUpstream, "wait for image slot", err)
		}
	}
	src, err := s.generateImage(ctx, page.ImagePrompt)
	if err != nil {
		metrics.RecordPageImage(metrics.PageImageGenerateFailed)
		return "", err
	}
	url, err := s.persist(ctx, src, func(contentType string) string {
		return assets.PageFileName(s.now(), page.PageNumber, contentType)
	})
	if err != nil {
		metrics.RecordPageImage(metrics.PageImagePersistFailed)
		return "", err
	}
	metrics.RecordPageImage(metrics.PageImageOK)
	return url, nil
}

func (s *StoryService) generateImage(ctx context.Context, prompt string) (string, error) {
	urls, err := s.images.Generate(ctx, imagegen.Request{
		Prompt:        prompt,
		GuidanceScale: s.opts.GuidanceScale,
		Steps:         s.opts.InferenceSteps,
		NumImages:     1,
	})
	if err != nil {
		return "", newError(KindUpstream, "generate image", err)
	}
	if len(urls) == 0 || strings.TrimSpace(urls[0]) == "" {
		return "", newError(KindUpstream, "generate image", errors.New("no image generated"))
	}
	return urls[0], nil
}

// persist 下载生成的图片并上传到资源存储，返回公开地址
func (s *StoryService) persist(ctx context.Context, src string, name func(contentType string) string) (string, error) {
	data, contentType, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		return "", newError(KindUpstream, "fetch image", err)
	}
	url, err := s.assets.Put(ctx, name(contentType), data, contentType)
	if err != nil {
		return "", newError(KindStorage, "upload image", err)
	}
	return url, nil
}

// Revise 根据家长反馈改写某页的插画提示词并重新生成插画，只更新该页
func (s *StoryService) Revise(ctx context.Context, req model.RevisionRequest) (*model.RevisionResult, error) {
	start := time.Now()
	res, err := s.revise(ctx, req)
	metrics.RecordRun("revise", outcome(err), time.Since(start))
	return res, err
}

func (s *StoryService) revise(ctx context.Context, req model.RevisionRequest) (*model.RevisionResult, error) {
	log := s.log.WithFields(logrus.Fields{"story_id": req.StoryID, "page": req.PageNumber})

	// 先确认故事和页面存在，避免为不可能完成的请求生成孤立的图片
	story, err := s.store.Get(ctx, req.StoryID)
	if err != nil {
		return nil, storeError("load story", err)
	}
	if _, ok := story.Page(req.PageNumber); !ok {
		return nil, newError(KindNotFound, "find page", fmt.Errorf("story %s has no page %d: %w", req.StoryID, req.PageNumber, ErrPageNotFound))
	}

	msgs, err := BuildReviseMessages(ctx, req.OriginalPrompt, req.UserFeedback)
	if err != nil {
		return nil, err
	}
	refined, err := s.text.Generate(ctx, msgs, s.opts.ReviseMaxTokens)
	if err != nil {
		return nil, newError(KindUpstream, "refine prompt", err)
	}
	refined = strings.TrimSpace(refined)
	if refined == "" {
		return nil, newError(KindUpstream, "refine prompt", errors.New("failed to generate refined prompt"))
	}
	log.Debug("prompt refined")

	src, err := s.generateImage(ctx, refined)
	if err != nil {
		return nil, err
	}
	newURL, err := s.persist(ctx, src, func(contentType string) string {
		return assets.RevisionFileName(req.StoryID, req.PageNumber, s.now(), contentType)
	})
	if err != nil {
		return nil, err
	}

	// 读-改-写，不做版本校验
	current, err := s.store.Get(ctx, req.StoryID)
	if err != nil {
		return nil, storeError("reload story", err)
	}
	idx, ok := current.Page(req.PageNumber)
	if !ok {
		return nil, newError(KindNotFound, "find page", fmt.Errorf("story %s has no page %d: %w", req.StoryID, req.PageNumber, ErrPageNotFound))
	}
	current.Pages[idx].ImageURL = newURL
	current.Pages[idx].ImagePrompt = refined
	if err := s.store.Update(ctx, current); err != nil {
		return nil, storeError("update story", err)
	}
	log.WithField("image_url", newURL).Info("page illustration revised")

	for _, fn := range s.onRevise {
		fn(req.StoryID)
	}
	return &model.RevisionResult{NewImageURL: newURL, RefinedPrompt: refined}, nil
}

func (s *StoryService) Get(ctx context.Context, id string) (*model.Story, error) {
	story, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, storeError("get story", err)
	}
	return story, nil
}

// ListRecent 最新的至多10个故事摘要
func (s *StoryService) ListRecent(ctx context.Context) ([]model.StorySummary, error) {
	list, err := s.store.ListRecent(ctx, storage.DefaultListLimit)
	if err != nil {
		return nil, newError(KindStorage, "list stories", err)
	}
	return list, nil
}

func storeError(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return newError(KindNotFound, op, err)
	}
	return newError(KindStorage, op, err)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return KindOf(err).String()
}

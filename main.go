package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
	_ "github.com/lib/pq"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"
	supa "github.com/supabase-community/supabase-go"

	"storybook/internal/assets"
	"storybook/internal/config"
	"storybook/internal/handler"
	"storybook/internal/imagegen"
	"storybook/internal/service"
	"storybook/internal/storage"
	"storybook/internal/textgen"
	"storybook/internal/tools"
	"storybook/internal/volc"
	"storybook/internal/web"
)

func main() {
	// 加载配置并初始化日志
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("加载配置失败")
	}
	logCloser, err := config.InitLogger(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("初始化日志失败")
	}
	if logCloser != nil {
		defer logCloser.Close()
	}

	ctx := context.Background()
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	text, closeText, err := newTextGenerator(ctx, cfg, httpClient)
	if err != nil {
		logrus.WithError(err).Fatal("初始化文本生成失败")
	}
	defer closeText()

	images := newImageGenerator(cfg)

	var supaClient *supa.Client
	if cfg.StoreBackend == "supabase" || cfg.AssetBackend == "supabase" {
		supaClient, err = supa.NewClient(cfg.SupabaseURL, cfg.SupabaseKey, nil)
		if err != nil {
			logrus.WithError(err).Fatal("初始化Supabase客户端失败")
		}
	}

	store, closeStore, err := newStoryStore(ctx, cfg, supaClient)
	if err != nil {
		logrus.WithError(err).Fatal("初始化故事存储失败")
	}
	defer closeStore()

	var (
		assetStore  assets.Store
		memoryAsset *assets.MemoryStore
	)
	switch cfg.AssetBackend {
	case "memory":
		memoryAsset = assets.NewMemoryStore(cfg.PublicBaseURL)
		assetStore = memoryAsset
	default:
		assetStore = assets.NewSupabaseStore(supaClient.Storage, cfg.SupabaseURL, cfg.SupabaseBucket)
	}

	svc := service.NewStoryService(
		text,
		images,
		assets.NewFetcher(cfg.HTTPTimeout),
		assetStore,
		store,
		service.Options{
			StoryMaxTokens:  cfg.StoryMaxTokens,
			ReviseMaxTokens: cfg.ReviseMaxTokens,
			GuidanceScale:   cfg.GuidanceScale,
			InferenceSteps:  cfg.InferenceSteps,
			RateInterval:    cfg.ImageRateInterval,
			Concurrency:     cfg.ImageConcurrency,
		},
		logrus.WithField("component", "story"),
	)

	share := web.NewSharePage(svc, cfg.ShareCacheTTL, logrus.WithField("component", "share"))
	svc.OnRevise(share.Invalidate)

	router := handler.NewRouter(handler.Deps{
		Stories: svc,
		Share:   share,
		Assets:  memoryAsset,
		Tools: map[string]einotool.InvokableTool{
			"story-generate": tools.NewStoryTool(svc),
			"image-revise":   tools.NewReviseTool(svc),
			"image-generate": tools.NewImageTool(images, cfg.GuidanceScale, cfg.InferenceSteps),
		},
		Log: logrus.WithField("component", "http"),
	})

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":   cfg.Addr(),
			"text":   cfg.TextProvider,
			"image":  cfg.ImageProvider,
			"store":  cfg.StoreBackend,
			"assets": cfg.AssetBackend,
		}).Info("服务器启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("启动服务器失败")
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("关闭服务器...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("服务器关闭失败")
		return
	}
	logrus.Info("服务器已关闭")
}

func newTextGenerator(ctx context.Context, cfg *config.Config, httpClient *http.Client) (textgen.Generator, func(), error) {
	noop := func() {}
	switch cfg.TextProvider {
	case "openai":
		gen, err := textgen.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel,
			option.WithHTTPClient(httpClient))
		return gen, noop, err
	case "gemini":
		gen, err := textgen.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, noop, err
		}
		return gen, func() { _ = gen.Close() }, nil
	default:
		// ARK_BASE_URL 是区域根地址，聊天接口位于 /api/v3 下
		var chatBase string
		if cfg.ArkBaseURL != "" {
			chatBase = strings.TrimSuffix(cfg.ArkBaseURL, "/") + "/api/v3"
		}
		gen, err := textgen.NewArk(ctx, cfg.ArkAPIKey, chatBase, cfg.ArkChatModel, httpClient)
		return gen, noop, err
	}
}

func newImageGenerator(cfg *config.Config) imagegen.Generator {
	if cfg.ImageProvider == "ark" {
		ark := volc.NewArkClient(cfg.ArkAPIKey, cfg.ArkBaseURL, cfg.HTTPTimeout, cfg.ArkMock)
		return imagegen.NewArkGenerator(ark, cfg.ArkImageModel)
	}
	return imagegen.NewFalClient(cfg.FalKey, cfg.FalBaseURL, cfg.FalModel, cfg.HTTPTimeout)
}

func newStoryStore(ctx context.Context, cfg *config.Config, supaClient *supa.Client) (storage.StoryStore, func(), error) {
	noop := func() {}
	switch cfg.StoreBackend {
	case "memory":
		return storage.NewMemoryStore(), noop, nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, noop, fmt.Errorf("open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("ping database: %w", err)
		}
		pg := storage.NewPostgresStore(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, noop, err
		}
		return pg, func() { db.Close() }, nil
	default:
		return storage.NewSupabaseStore(supaClient, cfg.SupabaseTable), noop, nil
	}
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

const (
	DefaultFalModel        = "fal-ai/aura-flow"
	DefaultArkChatModel    = "doubao-seed-1-6-250615"
	DefaultArkImageModel   = "doubao-seedream-4-0-250828"
	DefaultGuidanceScale   = 3.5
	DefaultInferenceSteps  = 25
	DefaultStoryMaxTokens  = 4096
	DefaultReviseMaxTokens = 1000
)

// Config 服务运行所需的全部配置，来自环境变量（可选 .env 文件）
type Config struct {
	Port        int           `env:"PORT,default=8080"`
	LogLevel    string        `env:"LOG_LEVEL,default=info"`
	LogFile     string        `env:"LOG_FILE"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT,default=2m"`

	// 文本生成
	TextProvider    string `env:"TEXT_PROVIDER,default=ark"`
	ArkAPIKey       string `env:"ARK_API_KEY"`
	ArkBaseURL      string `env:"ARK_BASE_URL"`
	ArkChatModel    string `env:"ARK_CHAT_MODEL"`
	ArkImageModel   string `env:"ARK_IMAGE_MODEL"`
	ArkMock         bool   `env:"ARK_MOCK,default=false"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `env:"OPENAI_BASE_URL"`
	OpenAIModel     string `env:"OPENAI_MODEL,default=gpt-4o-mini"`
	GeminiAPIKey    string `env:"GEMINI_API_KEY"`
	GeminiModel     string `env:"GEMINI_MODEL,default=gemini-2.5-flash"`
	StoryMaxTokens  int    `env:"STORY_MAX_TOKENS,default=4096"`
	ReviseMaxTokens int    `env:"REVISE_MAX_TOKENS,default=1000"`

	// 图片生成
	ImageProvider     string        `env:"IMAGE_PROVIDER,default=fal"`
	FalKey            string        `env:"FAL_KEY"`
	FalBaseURL        string        `env:"FAL_BASE_URL,default=https://fal.run"`
	FalModel          string        `env:"FAL_MODEL,default=fal-ai/aura-flow"`
	GuidanceScale     float64       `env:"GUIDANCE_SCALE,default=3.5"`
	InferenceSteps    int           `env:"INFERENCE_STEPS,default=25"`
	ImageRateInterval time.Duration `env:"IMAGE_RATE_INTERVAL,default=0s"`
	ImageConcurrency  int           `env:"IMAGE_CONCURRENCY,default=0"`

	// 存储
	StoreBackend   string `env:"STORE_BACKEND,default=supabase"`
	AssetBackend   string `env:"ASSET_BACKEND,default=supabase"`
	SupabaseURL    string `env:"SUPABASE_URL"`
	SupabaseKey    string `env:"SUPABASE_KEY"`
	SupabaseTable  string `env:"SUPABASE_TABLE,default=stories"`
	SupabaseBucket string `env:"SUPABASE_BUCKET,default=story-images"`
	DatabaseURL    string `env:"DATABASE_URL"`
	PublicBaseURL  string `env:"PUBLIC_BASE_URL"`

	ShareCacheTTL time.Duration `env:"SHARE_CACHE_TTL,default=10m"`
}

// Load 读取 .env（如果存在）并从环境变量解码配置
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && len(envFiles) > 0 {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("decode env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.TextProvider = strings.ToLower(strings.TrimSpace(c.TextProvider))
	c.ImageProvider = strings.ToLower(strings.TrimSpace(c.ImageProvider))
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	c.AssetBackend = strings.ToLower(strings.TrimSpace(c.AssetBackend))
	if c.ArkChatModel == "" {
		c.ArkChatModel = DefaultArkChatModel
	}
	if c.ArkImageModel == "" {
		c.ArkImageModel = DefaultArkImageModel
	}
	if c.FalModel == "" {
		c.FalModel = DefaultFalModel
	}
	if c.GuidanceScale <= 0 {
		c.GuidanceScale = DefaultGuidanceScale
	}
	if c.InferenceSteps <= 0 {
		c.InferenceSteps = DefaultInferenceSteps
	}
	if c.StoryMaxTokens <= 0 {
		c.StoryMaxTokens = DefaultStoryMaxTokens
	}
	if c.ReviseMaxTokens <= 0 {
		c.ReviseMaxTokens = DefaultReviseMaxTokens
	}
	if c.Port <= 0 {
		c.Port = 8080
	}
	c.SupabaseURL = strings.TrimSuffix(c.SupabaseURL, "/")
	c.PublicBaseURL = strings.TrimSuffix(c.PublicBaseURL, "/")
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = fmt.Sprintf("http://localhost:%d", c.Port)
	}
}

// Validate 检查所选的服务提供方与存储后端是否具备必需的凭据
func (c *Config) Validate() error {
	var errs []error

	switch c.TextProvider {
	case "ark":
		if c.ArkAPIKey == "" {
			errs = append(errs, errors.New("ARK_API_KEY is required for TEXT_PROVIDER=ark"))
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for TEXT_PROVIDER=openai"))
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for TEXT_PROVIDER=gemini"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported TEXT_PROVIDER %q", c.TextProvider))
	}

	switch c.ImageProvider {
	case "fal":
		if c.FalKey == "" {
			errs = append(errs, errors.New("FAL_KEY is required for IMAGE_PROVIDER=fal"))
		}
	case "ark":
		if c.ArkAPIKey == "" && !c.ArkMock {
			errs = append(errs, errors.New("ARK_API_KEY is required for IMAGE_PROVIDER=ark"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported IMAGE_PROVIDER %q", c.ImageProvider))
	}

	needSupabase := c.StoreBackend == "supabase" || c.AssetBackend == "supabase"
	switch c.StoreBackend {
	case "supabase", "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for STORE_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend))
	}
	switch c.AssetBackend {
	case "supabase", "memory":
	default:
		errs = append(errs, fmt.Errorf("unsupported ASSET_BACKEND %q", c.AssetBackend))
	}
	if needSupabase && (c.SupabaseURL == "" || c.SupabaseKey == "") {
		errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_KEY are required for the supabase backend"))
	}

	return errors.Join(errs...)
}

// Addr HTTP 监听地址
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

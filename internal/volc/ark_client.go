package volc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultBase = "https://ark.cn-beijing.volces.com"

	// 1x1 PNG，Mock 模式下返回
	mockPixel = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR4nGNgYAAAAAMAASsJTYQAAAAASUVORK5CYII="
)

// ArkClient 火山方舟 HTTP 客户端，目前只用于 Seedream 图片生成
type ArkClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Mock       bool
}

// NewArkClient 创建客户端，baseURL 为空时使用北京区域
func NewArkClient(apiKey, baseURL string, timeout time.Duration, mock bool) *ArkClient {
	if baseURL == "" {
		baseURL = defaultBase
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ArkClient{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: timeout},
		Mock:       mock,
	}
}

type ImageGenParams struct {
	Model         string
	Prompt        string
	Size          string
	GuidanceScale float64
	Seed          int64
}

// GenerateImages 调用 Seedream 生成单张图片，返回图片URL（或 data URL）
func (c *ArkClient) GenerateImages(ctx context.Context, p ImageGenParams) ([]string, error) {
	if c.Mock {
		return []string{"data:image/png;base64," + mockPixel}, nil
	}
	if p.Model == "" {
		return nil, errors.New("model required")
	}
	if p.Size == "" {
		p.Size = "1024x1024"
	}
	body := map[string]any{
		"model":                       p.Model,
		"prompt":                      p.Prompt,
		"size":                        p.Size,
		"response_format":             "url",
		"sequential_image_generation": "disabled",
		"watermark":                   false,
	}
	if p.GuidanceScale > 0 {
		body["guidance_scale"] = p.GuidanceScale
	}
	if p.Seed > 0 {
		body["seed"] = p.Seed
	}

	var resp struct {
		Data []struct {
			URL string `json:"url"`
			B64 string `json:"b64_json"`
		} `json:"data"`
		Error *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := c.postJSON(ctx, "/api/v3/images/generations", body, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("ark %s: %s", resp.Error.Code, resp.Error.Message)
	}
	urls := make([]string, 0, len(resp.Data))
	for _, d := range resp.Data {
		if d.URL != "" {
			urls = append(urls, d.URL)
			continue
		}
		if d.B64 != "" {
			urls = append(urls, "data:image/png;base64,"+d.B64)
		}
	}
	if len(urls) == 0 {
		return nil, errors.New("no images returned")
	}
	return urls, nil
}

func (c *ArkClient) postJSON(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")
	logrus.WithField("url", req.URL.String()).Debug("ark request")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	bodyBytes, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("http %d: %s", res.StatusCode, string(bodyBytes))
	}
	return json.Unmarshal(bodyBytes, out)
}

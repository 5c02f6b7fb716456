package imagegen

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
)

const defaultFalBase = "https://fal.run"

// FalClient 调用 fal.ai 的同步推理接口
type FalClient struct {
	BaseURL    string
	Key        string
	Model      string
	HTTPClient *http.Client
}

func NewFalClient(key, baseURL, model string, timeout time.Duration) *FalClient {
	if baseURL == "" {
		baseURL = defaultFalBase
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &FalClient{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		Key:        key,
		Model:      strings.Trim(model, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type falInput struct {
	Prompt            string  `json:"prompt"`
	NumImages         int     `json:"num_images"`
	GuidanceScale     float64 `json:"guidance_scale,omitempty"`
	NumInferenceSteps int     `json:"num_inference_steps,omitempty"`
}

type falResult struct {
	Images []struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type"`
	} `json:"images"`
}

func (c *FalClient) Generate(ctx context.Context, req Request) ([]string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.New("prompt required")
	}
	if req.NumImages <= 0 {
		req.NumImages = 1
	}
	b, err := json.Marshal(falInput{
		Prompt:            req.Prompt,
		NumImages:         req.NumImages,
		GuidanceScale:     req.GuidanceScale,
		NumInferenceSteps: req.Steps,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/"+c.Model, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Key "+c.Key)
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, fmt.Errorf("fal http %d: %s", res.StatusCode, string(body))
	}

	var out falResult
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode fal response: %w", err)
	}
	urls := make([]string, 0, len(out.Images))
	for _, img := range out.Images {
		if img.URL != "" {
			urls = append(urls, img.URL)
		}
	}
	if len(urls) == 0 {
		return nil, fmt.Errorf("no image generated from %s", c.Model)
	}
	return urls, nil
}

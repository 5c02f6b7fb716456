package assets

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxImageBytes 单张图片大小上限
var maxImageBytes int64 = 32 << 20

// Fetcher 从生成服务返回的临时地址下载图片字节，支持 http(s) 和 data URL
type Fetcher struct {
	HTTPClient *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{HTTPClient: &http.Client{Timeout: timeout}}
}

// Fetch 返回图片数据和内容类型
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	if strings.HasPrefix(url, "data:") {
		return decodeDataURL(url)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	res, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, "", fmt.Errorf("failed to fetch image: %s", res.Status)
	}
	data, err := io.ReadAll(io.LimitReader(res.Body, maxImageBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > maxImageBytes {
		return nil, "", fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}
	return data, contentTypeOf(res.Header.Get("Content-Type"), data), nil
}

func decodeDataURL(url string) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(url, "data:"), ",")
	if !ok {
		return nil, "", errors.New("malformed data url")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", errors.New("data url is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data url: %w", err)
	}
	return data, contentTypeOf(strings.TrimSuffix(meta, ";base64"), data), nil
}

func contentTypeOf(header string, data []byte) string {
	ct := strings.TrimSpace(strings.SplitN(header, ";", 2)[0])
	if strings.HasPrefix(ct, "image/") {
		return ct
	}
	return http.DetectContentType(data)
}

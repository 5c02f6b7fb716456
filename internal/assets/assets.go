// Package assets 保存生成的插画并返回可公开访问的地址
package assets

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Store 按文件名保存二进制资源，返回公开URL
type Store interface {
	Put(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// PageFileName 生成故事页插画的文件名：story_<毫秒时间戳>_page_<页码>.<扩展名>
func PageFileName(ts time.Time, pageNumber int, contentType string) string {
	return fmt.Sprintf("story_%d_page_%d.%s", ts.UnixMilli(), pageNumber, extension(contentType))
}

// RevisionFileName 生成修改后插画的文件名，带时间戳保证不覆盖旧图
func RevisionFileName(storyID string, pageNumber int, ts time.Time, contentType string) string {
	return fmt.Sprintf("story_%s_page_%d_%d.%s", storyID, pageNumber, ts.UnixMilli(), extension(contentType))
}

func extension(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	switch ct {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "png"
	}
}

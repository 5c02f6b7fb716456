package assets

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	storage_go "github.com/supabase-community/storage-go"
)

// SupabaseStore 把插画上传到 Supabase Storage 的公开 bucket
type SupabaseStore struct {
	storage *storage_go.Client
	baseURL string
	bucket  string
}

// NewSupabaseStore baseURL 为 Supabase 项目地址，用于拼接公开访问地址
func NewSupabaseStore(storage *storage_go.Client, baseURL, bucket string) *SupabaseStore {
	return &SupabaseStore{
		storage: storage,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		bucket:  bucket,
	}
}

func (s *SupabaseStore) Put(_ context.Context, name string, data []byte, contentType string) (string, error) {
	upsert := false
	if _, err := s.storage.UploadFile(s.bucket, name, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	return s.PublicURL(name), nil
}

// PublicURL <SUPABASE_URL>/storage/v1/object/public/<bucket>/<name>
func (s *SupabaseStore) PublicURL(name string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.baseURL, s.bucket, name)
}

var _ Store = (*SupabaseStore)(nil)

package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/phambaophuc/image-webhook/internal/config"
	"github.com/phambaophuc/image-webhook/pkg/utils"
	storage_go "github.com/supabase-community/storage-go"
)

// Mirror keeps a remote copy of each saved image.
type Mirror interface {
	Upload(ctx context.Context, data []byte, filename, id string) (string, error)
}

// SupabaseMirror uploads saved images to a Supabase Storage bucket.
type SupabaseMirror struct {
	sbClient *storage_go.Client
	bucket   string
}

func NewSupabaseMirror(cfg config.SupabaseConfig) *SupabaseMirror {
	sbClient := storage_go.NewClient(cfg.URL+"/storage/v1", cfg.KEY, nil)

	return &SupabaseMirror{
		sbClient: sbClient,
		bucket:   cfg.BUCKET,
	}
}

// Upload stores data under a fresh key and returns its public URL.
func (m *SupabaseMirror) Upload(ctx context.Context, data []byte, filename, id string) (string, error) {
	key := utils.GenerateStorageKey(filename, id)
	contentType := utils.DetectContentType(data)
	upsert := true

	_, err := m.sbClient.UploadFile(m.bucket, key, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to supabase: %w", err)
	}

	publicURL := m.sbClient.GetPublicUrl(m.bucket, key)
	return publicURL.SignedURL, nil
}

// HealthCheck lists the bucket root to confirm credentials and bucket name.
func (m *SupabaseMirror) HealthCheck(ctx context.Context) error {
	if _, err := m.sbClient.ListFiles(m.bucket, "", storage_go.FileSearchOptions{}); err != nil {
		return fmt.Errorf("supabase unavailable: %w", err)
	}
	return nil
}

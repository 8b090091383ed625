package utils

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageInfo describes an image payload without decoding its pixels.
type ImageInfo struct {
	Format string
	Width  int
	Height int
}

// DescribeImage reads the header of data. It fails for payloads that are
// not in a registered image format.
func DescribeImage(data []byte) (ImageInfo, error) {
	if len(data) == 0 {
		return ImageInfo{}, fmt.Errorf("empty image data")
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("unrecognized image data: %w", err)
	}

	return ImageInfo{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// DetectContentType sniffs data, falling back to image/png for the saved file.
func DetectContentType(data []byte) string {
	ct := http.DetectContentType(data)
	if !IsValidImageType(ct) {
		return "image/png"
	}
	return ct
}

// IsValidImageType checks if content type is a valid image type
func IsValidImageType(contentType string) bool {
	validTypes := []string{
		"image/jpeg",
		"image/jpg",
		"image/png",
		"image/gif",
		"image/webp",
		"image/bmp",
		"image/tiff",
	}

	ct := strings.ToLower(contentType)
	for _, validType := range validTypes {
		if strings.Contains(ct, validType) {
			return true
		}
	}
	return false
}

// GenerateStorageKey builds a unique object key for a mirrored copy of filename.
// id is embedded when present so mirrored copies can be traced to a submission.
func GenerateStorageKey(filename, id string) string {
	ext := filepath.Ext(filename)
	name := strings.TrimSuffix(filepath.Base(filename), ext)
	timestamp := time.Now().Unix()
	suffix := uuid.New().String()[:8]

	if id = sanitizeKeyPart(id); id != "" {
		return fmt.Sprintf("webhook/%s_%s_%d_%s%s", name, id, timestamp, suffix, ext)
	}
	return fmt.Sprintf("webhook/%s_%d_%s%s", name, timestamp, suffix, ext)
}

func sanitizeKeyPart(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return b.String()
}

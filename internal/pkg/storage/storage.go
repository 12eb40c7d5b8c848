// Package storage puts card media into object storage and removes it again.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/amorempixels/amor_server/config"
)

// Storage is the object storage used for published card media.
type Storage interface {
	// Put stores r under key and returns its public URL.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// New builds the driver selected by cfg.Driver.
func New(ctx context.Context, cfg *config.StorageConfig) (Storage, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "oss":
		return NewOSS(&cfg.OSS)
	case "s3":
		return NewS3(ctx, &cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// DraftKey is where a staged file lands when its draft is submitted.
func DraftKey(draftID, kind, fileID, ext string) string {
	return fmt.Sprintf("cards/%s/%s/%s%s", draftID, kind, fileID, ext)
}

// SiteKey is where files added from the dashboard land.
func SiteKey(siteID int64, kind, fileID, ext string) string {
	return fmt.Sprintf("cards/site-%d/%s/%s%s", siteID, kind, fileID, ext)
}

// DeleteAll removes every key and returns the first error; it keeps going
// after a failure.
func DeleteAll(ctx context.Context, s Storage, keys []string) error {
	var first error
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil && first == nil {
			first = fmt.Errorf("delete %s: %w", k, err)
		}
	}
	return first
}

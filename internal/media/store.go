package media

import (
	"context"
	"fmt"

	"picpal/internal/config"
)

// Store persists finished media assets. Put returns the durable public URL
// for the stored bytes; the key passed in doubles as the deletion handle.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// NewStoreFromConfig selects the store backend from configuration.
func NewStoreFromConfig(cfg *config.Config) (Store, error) {
	switch cfg.MediaDriver {
	case "memory":
		return NewMemoryStore(), nil
	case "filesystem":
		return NewFilesystemStore(cfg.MediaUploadDir, cfg.MediaBaseURL)
	case "s3":
		return NewS3Store(context.Background(), S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicURLPrefix: cfg.S3PublicURLPrefix,
		})
	default:
		return nil, fmt.Errorf("unknown media driver: %s", cfg.MediaDriver)
	}
}

package external

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

type StorageConfig struct {
	Bucket   string
	Region   string
	Endpoint string
	// BaseURL is prepended to object keys when building public capture URLs.
	// Defaults to the standard S3 virtual-hosted URL for the bucket.
	BaseURL string
}

// StorageClient uploads gate capture images to object storage. Uploads are
// best-effort from the engine's point of view; a failed upload degrades the
// stored URL to empty, it never fails check-in or finish.
type StorageClient struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewStorageClient(ctx context.Context, cfg StorageConfig) (*StorageClient, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
			o.UsePathStyle = true
		}
	})

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return &StorageClient{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Upload stores one capture under a per-plate subfolder and returns its URL.
// Metadata carries the plate and the capture kind (EntryFront, ExitBack, ...).
func (sc *StorageClient) Upload(ctx context.Context, data []byte, subfolder, name string, metadata map[string]string) (string, error) {
	key := fmt.Sprintf("captures/%s/%s-%s", subfolder, uuid.New().String(), name)

	contentType := "image/jpeg"
	_, err := sc.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &sc.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
		Metadata:    metadata,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload capture %s: %w", key, err)
	}

	return sc.baseURL + "/" + key, nil
}

// Package archive stores published election results in object storage.
package archive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/gravadigital/urna-api/internal/config"
	"github.com/gravadigital/urna-api/internal/logger"
)

// Archiver keeps a durable copy of a results payload and returns its object key
type Archiver interface {
	Store(ctx context.Context, electionID uuid.UUID, payload []byte) (string, error)
}

// ObjectKey is where the results of an election are stored
func ObjectKey(electionID uuid.UUID) string {
	return fmt.Sprintf("elections/%s/results.json", electionID)
}

// Noop archives nothing. Used when no object storage is configured.
type Noop struct{}

func (Noop) Store(context.Context, uuid.UUID, []byte) (string, error) {
	return "", nil
}

// MinioArchiver uploads results to an S3 compatible bucket
type MinioArchiver struct {
	client *minio.Client
	bucket string
	log    *log.Logger
}

// New returns a MinioArchiver when an endpoint is configured, Noop otherwise
func New(ctx context.Context, cfg *config.Config) (Archiver, error) {
	if cfg.Archive.Endpoint == "" {
		logger.Service("archive").Info("No archive endpoint configured, results stay in the database only")
		return Noop{}, nil
	}
	a, err := NewMinioArchiver(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// NewMinioArchiver connects and makes sure the bucket exists
func NewMinioArchiver(ctx context.Context, cfg *config.Config) (*MinioArchiver, error) {
	l := logger.Service("archive")

	client, err := minio.New(cfg.Archive.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Archive.AccessKey, cfg.Archive.SecretKey, ""),
		Secure: cfg.Archive.UseSSL,
		Region: cfg.Archive.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Archive.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.Archive.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Archive.Bucket, minio.MakeBucketOptions{Region: cfg.Archive.Region}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Archive.Bucket, err)
		}
		l.Info("Created results bucket", "bucket", cfg.Archive.Bucket)
	}

	l.Info("Results archive ready", "endpoint", cfg.Archive.Endpoint, "bucket", cfg.Archive.Bucket)
	return &MinioArchiver{client: client, bucket: cfg.Archive.Bucket, log: l}, nil
}

func (a *MinioArchiver) Store(ctx context.Context, electionID uuid.UUID, payload []byte) (string, error) {
	key := ObjectKey(electionID)

	info, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	a.log.Info("Archived election results", "election_id", electionID, "key", key, "size", info.Size)
	return key, nil
}

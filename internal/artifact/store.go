// Package artifact snapshots the trained classifier to Cloudflare R2 (or
// any S3-compatible store) so deploys on fresh disks can pull the model
// instead of retraining. Artifacts are zstd-compressed on the wire.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/klauspost/compress/zstd"

	"github.com/campusbot/campus-chatbot-go/internal/logger"
)

// ErrNotFound is returned when an artifact does not exist in the store.
var ErrNotFound = errors.New("artifact: object not found")

// Config holds object store configuration.
type Config struct {
	Endpoint    string // S3-compatible endpoint URL
	AccessKeyID string
	SecretKey   string
	BucketName  string
}

// Store uploads and downloads compressed artifacts.
type Store struct {
	s3     *s3.Client
	bucket string
	logger *logger.Logger
}

// New creates an artifact store client.
func New(ctx context.Context, cfg Config, log *logger.Logger) (*Store, error) {
	if cfg.Endpoint == "" || cfg.AccessKeyID == "" || cfg.SecretKey == "" || cfg.BucketName == "" {
		return nil, errors.New("artifact: all config fields are required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretKey,
			"",
		)),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("artifact: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true // Required for R2
	})

	return &Store{
		s3:     client,
		bucket: cfg.BucketName,
		logger: log.WithModule("artifact"),
	}, nil
}

// Upload compresses the local file and uploads it under key.
func (s *Store) Upload(ctx context.Context, localPath, key string) error {
	tmp, err := os.CreateTemp("", "artifact-*.zst")
	if err != nil {
		return fmt.Errorf("artifact: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	if err := CompressFile(localPath, tmpPath); err != nil {
		return err
	}

	f, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("artifact: open compressed file: %w", err)
	}
	defer f.Close()

	start := time.Now()
	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("application/zstd"),
	})
	if err != nil {
		return fmt.Errorf("artifact: upload %q: %w", key, err)
	}

	s.logger.WithFields(map[string]any{
		"key":         key,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("artifact uploaded")
	return nil
}

// Download fetches the object under key and decompresses it to localPath.
// Returns ErrNotFound when the object does not exist.
func (s *Store) Download(ctx context.Context, key, localPath string) error {
	result, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("artifact: download %q: %w", key, err)
	}
	defer result.Body.Close()

	if err := DecompressStream(result.Body, localPath); err != nil {
		return err
	}

	s.logger.WithField("key", key).Info("artifact downloaded")
	return nil
}

// Exists reports whether the object under key is present.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("artifact: head %q: %w", key, err)
	}
	return true, nil
}

// CompressFile compresses a file using zstd and writes to the destination path.
func CompressFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("compress: open source: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("compress: create dest: %w", err)
	}
	defer dst.Close()

	encoder, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("compress: create encoder: %w", err)
	}

	if _, err := io.Copy(encoder, src); err != nil {
		_ = encoder.Close()
		return fmt.Errorf("compress: copy: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("compress: close encoder: %w", err)
	}
	return nil
}

// DecompressStream decompresses a zstd stream to the destination path.
func DecompressStream(r io.Reader, dstPath string) error {
	decoder, err := zstd.NewReader(r)
	if err != nil {
		return fmt.Errorf("decompress: create decoder: %w", err)
	}
	defer decoder.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("decompress: create dest: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, decoder); err != nil {
		return fmt.Errorf("decompress: copy: %w", err)
	}
	return nil
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound", "404":
			return true
		}
	}
	var respErr *smithyhttp.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}
	return false
}

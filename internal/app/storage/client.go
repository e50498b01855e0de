package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"dmchat/internal/pkg/errs"
	"dmchat/internal/pkg/logx"
)

// s3Client implements Service and Presigner against an S3-compatible endpoint.
type s3Client struct {
	cfg      ServiceConfig
	s3Client *s3.Client
	uploader *manager.Uploader
}

// newS3Client builds a path-style client for cfg.S3Endpoint with static credentials.
func newS3Client(cfg ServiceConfig) (*s3Client, error) {
	if cfg.S3BucketName == "" || cfg.S3Endpoint == "" {
		return nil, errors.New("s3 storage requires a bucket name and an endpoint")
	}

	sdkCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	return &s3Client{
		cfg:      cfg,
		s3Client: client,
		uploader: manager.NewUploader(client),
	}, nil
}

// Put uploads data under name with a sniffed content type.
func (c *s3Client) Put(ctx context.Context, name string, data []byte) error {
	if _, err := cleanName(name); err != nil {
		return err
	}

	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.cfg.S3BucketName),
		Key:         aws.String(name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(http.DetectContentType(data)),
	})
	if err != nil {
		logx.Error(err, "S3 upload failed", "key", name)
		return errs.Wrap(errs.ErrStorage, err)
	}

	return nil
}

// Open streams the object stored under name.
func (c *s3Client) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.S3BucketName),
		Key:    aws.String(name),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		logx.Error(err, "S3 get failed", "key", name)
		return nil, errs.Wrap(errs.ErrStorage, err)
	}

	return out.Body, nil
}

// Delete removes the object stored under name.
func (c *s3Client) Delete(ctx context.Context, name string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.cfg.S3BucketName),
		Key:    aws.String(name),
	})
	if err != nil {
		logx.Error(err, "S3 delete failed", "key", name)
		return errs.Wrap(errs.ErrStorage, err)
	}

	return nil
}

// PresignDownload returns a time-limited GET URL for name.
func (c *s3Client) PresignDownload(ctx context.Context, name string, duration time.Duration) (string, error) {
	presignClient := s3.NewPresignClient(c.s3Client)

	out, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.cfg.S3BucketName),
		Key:    aws.String(name),
	}, s3.WithPresignExpires(duration))
	if err != nil {
		logx.Error(err, "Failed to presign download URL", "key", name)
		return "", errs.Wrap(errs.ErrStorage, err)
	}

	return out.URL, nil
}

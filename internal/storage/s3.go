package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"statement-pdf-service/pkg/errors"
	"statement-pdf-service/pkg/logger"
)

// PutObjectAPI is the part of the S3 client the sink needs
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink uploads outputs to a bucket
type S3Sink struct {
	client PutObjectAPI
	bucket string
	prefix string
	logger logger.Logger
}

// NewS3Sink creates a sink over an existing client
func NewS3Sink(client PutObjectAPI, bucket, prefix string) *S3Sink {
	return &S3Sink{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: logger.GetGlobalLogger().WithComponent("storage"),
	}
}

// NewS3SinkFromConfig loads the AWS shared configuration and builds a client.
// Endpoint switches to path-style addressing for S3 compatible stores.
func NewS3SinkFromConfig(ctx context.Context, cfg Config) (*S3Sink, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "storage.profile", cfg.Profile, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Sink(client, cfg.Bucket, cfg.Prefix), nil
}

func (s *S3Sink) Name() string { return KindS3 }

// Publish uploads localPath as prefix/key and returns the s3:// location
func (s *S3Sink) Publish(ctx context.Context, localPath, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", errors.FileError(errors.CodeFileNotFound, localPath, err)
	}
	defer f.Close()

	objectKey := ObjectKey(s.prefix, key)
	location := fmt.Sprintf("s3://%s/%s", s.bucket, objectKey)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        f,
		ContentType: aws.String(ContentType(key)),
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.InternalError(errors.CodeCancelled, "publish", ctx.Err())
		}
		return "", errors.StorageError(errors.CodeUploadFailed, location, err)
	}

	s.logger.WithField("location", location).Info("Output uploaded")
	return location, nil
}

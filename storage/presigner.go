package storage

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/anjiri1684/teacherin/configs"
)

var ErrNotConfigured = errors.New("object storage is not configured")

// Presigner hands out short-lived URLs for material files.
type Presigner interface {
	PresignUpload(ctx context.Context, objectKey string) (string, error)
	PresignDownload(ctx context.Context, objectKey string) (string, error)
}

type FilePresigner struct {
	client     *s3.PresignClient
	bucketName string
	expires    time.Duration
}

func NewFilePresigner(ctx context.Context, cfg appconfig.StorageConfig) (*FilePresigner, error) {
	if cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}

	awsCfg, err := config.LoadDefaultConfig(
		ctx,
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &FilePresigner{
		client:     s3.NewPresignClient(s3Client),
		bucketName: cfg.Bucket,
		expires:    time.Duration(cfg.PresignTTL) * time.Minute,
	}, nil
}

func (p *FilePresigner) PresignUpload(ctx context.Context, objectKey string) (string, error) {
	request, err := p.client.PresignPutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket: aws.String(p.bucketName),
			Key:    aws.String(objectKey),
		},
		s3.WithPresignExpires(p.expires),
	)
	if err != nil {
		return "", err
	}
	return request.URL, nil
}

func (p *FilePresigner) PresignDownload(ctx context.Context, objectKey string) (string, error) {
	request, err := p.client.PresignGetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: aws.String(p.bucketName),
			Key:    aws.String(objectKey),
		},
		s3.WithPresignExpires(p.expires),
	)
	if err != nil {
		return "", err
	}
	return request.URL, nil
}

// Unconfigured fails every call with ErrNotConfigured.
type Unconfigured struct{}

func (Unconfigured) PresignUpload(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

func (Unconfigured) PresignDownload(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}

// Package blob turns template object keys into URLs a browser can open.
// Templates live in a single S3 compatible bucket (AWS S3 or MinIO).
package blob

import (
	"context"
	"fmt"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/iliyamo/hospital-frontdesk/internal/config"
)

// Presigner issues time limited GET URLs for objects of one bucket.
type Presigner struct {
	bucket  string
	presign *s3.PresignClient
	ttl     time.Duration
}

// NewPresigner builds a presigner from the template settings.  Signing is
// local; no request is sent to the bucket.
func NewPresigner(ctx context.Context, cfg config.TemplateConfig) (*Presigner, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("TEMPLATE_BUCKET required for presigned template URLs")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	ttl := cfg.URLTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Presigner{bucket: cfg.Bucket, presign: s3.NewPresignClient(client), ttl: ttl}, nil
}

// PresignGet returns a GET URL for key valid for the configured TTL.
func (p *Presigner) PresignGet(ctx context.Context, key string) (string, error) {
	out, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: &p.bucket, Key: &key},
		func(po *s3.PresignOptions) { po.Expires = p.ttl })
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return out.URL, nil
}

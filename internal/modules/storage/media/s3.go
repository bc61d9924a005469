package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/himlearning/storyhub/internal/config"
	"github.com/himlearning/storyhub/internal/models"
)

// S3Provider stores media in an S3-compatible bucket.
type S3Provider struct {
	client            *s3.Client
	endpoint          *url.URL
	bucket            string
	region            string
	prefix            string
	customDomain      string
	pathStyle         bool
	thumbnailTemplate string
	now               func() time.Time
}

// NewS3Provider builds a provider from static credentials. Setting an
// endpoint selects path-style addressing, as most S3-compatible stores expect.
func NewS3Provider(opts config.S3Config, thumbnailTemplate string) (*S3Provider, error) {
	bucket := strings.TrimSpace(opts.Bucket)
	region := strings.TrimSpace(opts.Region)
	accessKey := strings.TrimSpace(opts.AccessKeyID)
	secretKey := strings.TrimSpace(opts.SecretAccessKey)
	if bucket == "" || region == "" || accessKey == "" || secretKey == "" {
		return nil, errors.New("incomplete s3 config: bucket/region/access_key_id/secret_access_key are required")
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	custom := endpoint != ""
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://s3.%s.amazonaws.com", region)
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	endpoint = strings.TrimSuffix(endpoint, "/")
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid s3 endpoint: %s", endpoint)
	}
	pathStyle := opts.PathStyle || custom

	cfg := aws.Config{
		Region:      region,
		Credentials: credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if custom {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = pathStyle
	})

	return &S3Provider{
		client:            client,
		endpoint:          parsed,
		bucket:            bucket,
		region:            region,
		prefix:            normalizeObjectKey(opts.Prefix),
		customDomain:      strings.TrimRight(strings.TrimSpace(opts.CustomDomain), "/"),
		pathStyle:         pathStyle,
		thumbnailTemplate: thumbnailTemplate,
		now:               time.Now,
	}, nil
}

func (p *S3Provider) Upload(ctx context.Context, folder string, up *Upload) (*Asset, error) {
	kind, ok := Classify(up.ContentType)
	if !ok {
		kind = models.MediaImage
	}
	key := objectKey(folder, up, p.now())
	if p.prefix != "" {
		key = normalizeObjectKey(p.prefix + "/" + key)
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        up.Reader,
		ContentType: aws.String(up.ContentType),
	}
	if up.Size > 0 {
		input.ContentLength = aws.Int64(up.Size)
	}
	if _, err := p.client.PutObject(ctx, input); err != nil {
		return nil, fmt.Errorf("s3 put %s: %w", key, err)
	}
	return &Asset{URL: p.publicURL(key), ID: key, Type: kind}, nil
}

func (p *S3Provider) Thumbnail(_ context.Context, asset *Asset) (string, error) {
	return expandThumbnail(p.thumbnailTemplate, asset), nil
}

// Duration is not probed for S3 objects; callers store 0.
func (p *S3Provider) Duration(context.Context, *Asset) (float64, error) {
	return 0, nil
}

func (p *S3Provider) Delete(ctx context.Context, id string) error {
	key := normalizeObjectKey(id)
	if key == "" {
		return nil
	}
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", key, err)
	}
	return nil
}

func (p *S3Provider) publicURL(key string) string {
	if p.customDomain != "" {
		return p.customDomain + "/" + key
	}
	encoded := encodeObjectKey(key)
	basePath := strings.TrimSuffix(p.endpoint.Path, "/")
	if p.pathStyle {
		return p.endpoint.Scheme + "://" + p.endpoint.Host + joinURLPath(basePath, p.bucket, encoded)
	}
	host := p.endpoint.Host
	if !strings.HasPrefix(strings.ToLower(host), strings.ToLower(p.bucket)+".") {
		host = p.bucket + "." + host
	}
	return p.endpoint.Scheme + "://" + host + joinURLPath(basePath, encoded)
}

func encodeObjectKey(key string) string {
	parts := strings.Split(normalizeObjectKey(key), "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

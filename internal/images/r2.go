package images

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// R2Config configures an S3-compatible bucket. PublicURL is the origin that
// serves the bucket's objects to browsers.
type R2Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
	MaxSize   int64
}

// R2Store keeps images in a Cloudflare R2 (or any S3-compatible) bucket.
type R2Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
	maxSize   int64
}

func NewR2Store(ctx context.Context, cfg R2Config) (*R2Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load r2 config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &R2Store{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
		maxSize:   cfg.MaxSize,
	}, nil
}

func (s *R2Store) Put(ctx context.Context, filename, contentType string, body io.Reader, size int64) (*Upload, error) {
	if err := Validate(contentType, size, s.maxSize); err != nil {
		return nil, err
	}

	// Buffer the body: request signing needs a seekable payload.
	buf, err := io.ReadAll(io.LimitReader(body, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(buf)) > s.maxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, s.maxSize)
	}

	key := NewKey(filename, contentType)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf),
		ContentLength: aws.Int64(int64(len(buf))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to r2: %w", err)
	}

	return &Upload{
		Filename:    key[len(KeyPrefix):],
		Key:         key,
		URL:         s.publicURL + "/" + key,
		ContentType: contentType,
		Size:        int64(len(buf)),
		UploadedAt:  time.Now().UTC(),
	}, nil
}

// Owns reports whether ref is a URL under the bucket's public origin or a bare key.
func (s *R2Store) Owns(ref string) bool {
	_, ok := s.key(ref)
	return ok
}

func (s *R2Store) key(ref string) (string, bool) {
	if ref == "" {
		return "", false
	}
	if isRemoteURL(ref) {
		rest, found := strings.CutPrefix(ref, s.publicURL+"/")
		if !found {
			return "", false
		}
		ref = rest
	}
	return cleanKey(ref)
}

func (s *R2Store) Delete(ctx context.Context, ref string) error {
	key, ok := s.key(ref)
	if !ok {
		return ErrNotOwned
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from r2: %w", key, err)
	}
	return nil
}

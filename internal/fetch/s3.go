package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cenkalti/backoff/v4"

	"github.com/outpost-tools/outpost-ctl/internal/resolver"
)

// S3Source fetches artifacts from s3://bucket/key URLs. Image mirrors are
// public buckets, so the client uses anonymous credentials.
type S3Source struct {
	client *s3.Client
}

// NewS3Source creates an S3 source for public buckets in the given region.
func NewS3Source(ctx context.Context, region string) (*S3Source, error) {
	cfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Source{client: s3.NewFromConfig(cfg)}, nil
}

func (s *S3Source) Open(ctx context.Context, ref resolver.ArtifactRef, offset int64) (io.ReadCloser, bool, error) {
	bucket, key, err := splitS3URL(ref.URL)
	if err != nil {
		return nil, false, backoff.Permanent(err)
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if offset > 0 {
		input.Range = aws.String(fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := s.client.GetObject(ctx, input)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get object s3://%s/%s: %w", bucket, key, err)
	}

	// S3 honors Range when ContentRange is set on the response.
	resumed := offset > 0 && resp.ContentRange != nil
	return resp.Body, resumed, nil
}

// splitS3URL parses s3://bucket/key/with/slashes.
func splitS3URL(raw string) (bucket, key string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("invalid s3 url %q: %w", raw, err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid s3 url %q", raw)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("s3 url %q is missing an object key", raw)
	}
	return u.Host, key, nil
}

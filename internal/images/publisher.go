package images

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// DefaultPublishExpiry is how long a published image url stays valid.
const DefaultPublishExpiry = time.Hour

// Publisher makes image bytes reachable by remote services through a url
// that carries no bot credentials.
type Publisher interface {
	Publish(ctx context.Context, blob *Blob) (string, error)
}

type s3Putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3GetPresigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type S3PublisherOpts struct {
	Endpoint  string // Empty uses AWS; set for MinIO and other S3 compatible stores
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	Prefix    string
}

// S3Publisher uploads images to a bucket and hands out presigned GET urls.
type S3Publisher struct {
	client    s3Putter
	presigner s3GetPresigner
	bucket    string
	prefix    string
	expiry    time.Duration
}

// NewS3Publisher creates a publisher. Without static keys the default AWS
// credential chain is used.
func NewS3Publisher(ctx context.Context, opts S3PublisherOpts) (*S3Publisher, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3Publisher(client, s3.NewPresignClient(client), opts), nil
}

func newS3Publisher(client s3Putter, presigner s3GetPresigner, opts S3PublisherOpts) *S3Publisher {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "tryon"
	}
	return &S3Publisher{
		client:    client,
		presigner: presigner,
		bucket:    opts.Bucket,
		prefix:    prefix,
		expiry:    DefaultPublishExpiry,
	}
}

func (p *S3Publisher) storageKey(contentType string) string {
	d := time.Now()
	return fmt.Sprintf("%s/%d/%02d/%02d/%s.%s", p.prefix, d.Year(), d.Month(), d.Day(), uuid.NewString(), ExtensionFor(contentType))
}

// Publish uploads blob under a random key and returns a presigned url for it.
func (p *S3Publisher) Publish(ctx context.Context, blob *Blob) (string, error) {
	key := p.storageKey(blob.ContentType)
	contentType := blob.ContentType
	if contentType == "" {
		contentType = "image/jpeg"
	}

	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(blob.Data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image to bucket: %w", err)
	}

	req, err := p.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign image url: %w", err)
	}
	return req.URL, nil
}

package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client wraps an S3-compatible object store (AWS, Spaces, MinIO)
type S3Client struct {
	client *s3.Client
	bucket string
	url    string
}

// UploadResult describes a stored object
type UploadResult struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// NewS3Client creates an S3 client for the given endpoint and bucket
func NewS3Client(endpoint, region, bucket, accessKeyID, secretAccessKey string) (*S3Client, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if service == s3.ServiceID && endpoint != "" {
			return aws.Endpoint{
				URL:           endpoint,
				SigningRegion: region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithEndpointResolverWithOptions(resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// Required for Spaces/MinIO style endpoints
		o.UsePathStyle = true
	})

	return &S3Client{
		client: client,
		bucket: bucket,
		url:    fmt.Sprintf("%s/%s", endpoint, bucket),
	}, nil
}

// Upload stores an object and returns its key, URL and size
func (c *S3Client) Upload(ctx context.Context, key string, data []byte, contentType string) (*UploadResult, error) {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", key, err)
	}

	return &UploadResult{
		Key:  key,
		URL:  fmt.Sprintf("%s/%s", c.url, key),
		Size: int64(len(data)),
	}, nil
}

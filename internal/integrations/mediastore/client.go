// Package mediastore persists audio and image blobs in S3. Records store
// the object key; public access always goes through a presigned URL derived
// from that key on read.
package mediastore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the minimal S3 interface required by Client.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// presignAPI is the presigning side, satisfied by *s3.PresignClient.
type presignAPI interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// presignTTL is how long derived download URLs stay valid.
const presignTTL = time.Hour

// Client wraps one S3 bucket.
type Client struct {
	api     s3API
	presign presignAPI
	bucket  string
}

// New creates a Client over the given bucket.
func New(api s3API, presign presignAPI, bucket string) (*Client, error) {
	if api == nil {
		return nil, errors.New("mediastore: api must not be nil")
	}
	if presign == nil {
		return nil, errors.New("mediastore: presign client must not be nil")
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("mediastore: bucket must not be empty")
	}
	return &Client{api: api, presign: presign, bucket: bucket}, nil
}

// Bucket returns the bucket name, used to build s3:// URIs for service jobs.
func (c *Client) Bucket() string {
	return c.bucket
}

// Put stores a blob under key.
func (c *Client) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if key == "" {
		return errors.New("mediastore: key must not be empty")
	}
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("mediastore: put %s: %w", key, err)
	}
	return nil
}

// Delete removes the object under key. Deleting an absent key is not an error.
func (c *Client) Delete(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("mediastore: key must not be empty")
	}
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("mediastore: delete %s: %w", key, err)
	}
	return nil
}

// PresignGet derives a time-limited download URL for the object under key.
func (c *Client) PresignGet(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", errors.New("mediastore: key must not be empty")
	}
	out, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = presignTTL
	})
	if err != nil {
		return "", fmt.Errorf("mediastore: presign %s: %w", key, err)
	}
	return out.URL, nil
}

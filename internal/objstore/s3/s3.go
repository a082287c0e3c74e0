// Package s3 implements objstore.Client on AWS S3 and S3-compatible services
// such as MinIO.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/rzbill/segstore/internal/objstore"
)

// maxDeleteBatch is the DeleteObjects request limit.
const maxDeleteBatch = 1000

// Credential providers accepted in Options.CredentialProvider.
const (
	CredentialsDefault = "default"
	CredentialsStatic  = "static"
)

// API is the subset of *s3.Client used by the backend.
type API interface {
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// Options configures the S3 client.
type Options struct {
	Bucket             string
	Region             string
	Endpoint           string
	ForcePathStyle     bool
	CredentialProvider string
	AccessKeyID        string
	SecretAccessKey    string
	// PageSize bounds ListObjectsV2 pages. Zero uses the service default.
	PageSize int32
}

// Client is the S3 backend.
type Client struct {
	api      API
	bucket   string
	pageSize int32
}

var _ objstore.Client = (*Client)(nil)

// New loads AWS configuration and builds a client bound to opts.Bucket.
func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	loaders := []func(*awsconfig.LoadOptions) error{}
	if opts.Region != "" {
		loaders = append(loaders, awsconfig.WithRegion(opts.Region))
	}
	switch opts.CredentialProvider {
	case "", CredentialsDefault:
	case CredentialsStatic:
		if opts.AccessKeyID == "" || opts.SecretAccessKey == "" {
			return nil, errors.New("s3: static credentials need an access key id and a secret access key")
		}
		loaders = append(loaders, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")))
	default:
		return nil, fmt.Errorf("s3: unknown credential provider %q", opts.CredentialProvider)
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}
	api := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.ForcePathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})
	return NewWithAPI(api, opts.Bucket, opts.PageSize), nil
}

// NewWithAPI wraps an existing S3 API implementation.
func NewWithAPI(api API, bucket string, pageSize int32) *Client {
	return &Client{api: api, bucket: bucket, pageSize: pageSize}
}

// Bucket returns the bound bucket.
func (c *Client) Bucket() string { return c.bucket }

// List issues one ListObjectsV2 call.
func (c *Client) List(ctx context.Context, prefix, pageToken string) (objstore.Page, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(c.bucket), Prefix: aws.String(prefix)}
	if pageToken != "" {
		in.ContinuationToken = aws.String(pageToken)
	}
	if c.pageSize > 0 {
		in.MaxKeys = aws.Int32(c.pageSize)
	}
	out, err := c.api.ListObjectsV2(ctx, in)
	if err != nil {
		return objstore.Page{}, classify("list", prefix, err)
	}
	page := objstore.Page{Objects: make([]objstore.Object, 0, len(out.Contents))}
	for _, o := range out.Contents {
		page.Objects = append(page.Objects, objstore.Object{Key: aws.ToString(o.Key), Size: aws.ToInt64(o.Size)})
	}
	if aws.ToBool(out.IsTruncated) {
		page.NextToken = aws.ToString(out.NextContinuationToken)
	}
	return page, nil
}

// GetRange issues a GET with an open-ended Range header.
func (c *Client) GetRange(ctx context.Context, key string, start int64) (io.ReadCloser, error) {
	in := &s3.GetObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key)}
	if start > 0 {
		in.Range = aws.String(fmt.Sprintf("bytes=%d-", start))
	}
	out, err := c.api.GetObject(ctx, in)
	if err != nil {
		return nil, classify("get", key, err)
	}
	return out.Body, nil
}

// HeadSize returns ContentLength from HeadObject.
func (c *Client) HeadSize(ctx context.Context, key string) (int64, error) {
	out, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key)})
	if err != nil {
		return 0, classify("head", key, err)
	}
	return aws.ToInt64(out.ContentLength), nil
}

// Put uploads body in a single PutObject request.
func (c *Client) Put(ctx context.Context, key string, body io.Reader, size int64) error {
	in := &s3.PutObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key), Body: body}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if _, err := c.api.PutObject(ctx, in); err != nil {
		return classify("put", key, err)
	}
	return nil
}

// Delete removes key. S3 reports success for absent keys.
func (c *Client) Delete(ctx context.Context, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(c.bucket), Key: aws.String(key)})
	if err != nil && !isNotFound(err) {
		return classify("delete", key, err)
	}
	return nil
}

// DeleteMany issues DeleteObjects in batches of at most 1000 keys.
func (c *Client) DeleteMany(ctx context.Context, keys []string) ([]objstore.DeleteResult, error) {
	out := make([]objstore.DeleteResult, 0, len(keys))
	for len(keys) > 0 {
		n := min(len(keys), maxDeleteBatch)
		batch := keys[:n]
		keys = keys[n:]

		ids := make([]types.ObjectIdentifier, len(batch))
		for i, k := range batch {
			ids[i] = types.ObjectIdentifier{Key: aws.String(k)}
		}
		resp, err := c.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return out, classify("delete", strings.Join(batch, ","), err)
		}
		failed := make(map[string]error, len(resp.Errors))
		for _, e := range resp.Errors {
			failed[aws.ToString(e.Key)] = fmt.Errorf("%s: %s", aws.ToString(e.Code), aws.ToString(e.Message))
		}
		for _, k := range batch {
			out = append(out, objstore.DeleteResult{Key: k, Err: failed[k]})
		}
	}
	return out, nil
}

// Close is a no-op; the SDK client holds no resources that need releasing.
func (c *Client) Close() error { return nil }

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

func classify(op, key string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s: %w", op, objstore.NotFound(key))
	}
	return objstore.Unavailable(op, key, err)
}

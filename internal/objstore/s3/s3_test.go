package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzbill/segstore/internal/objstore"
)

// fakeAPI serves a two-page listing and records request parameters.
type fakeAPI struct {
	objects     map[string]string
	lastRange   string
	lastLength  int64
	deleteCalls int
	denied      string
}

func (f *fakeAPI) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if aws.ToString(in.ContinuationToken) == "" {
		return &s3.ListObjectsV2Output{
			Contents:              []types.Object{{Key: aws.String("t/a"), Size: aws.Int64(1)}},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("page-2"),
		}, nil
	}
	return &s3.ListObjectsV2Output{
		Contents:    []types.Object{{Key: aws.String("t/b"), Size: aws.Int64(2)}},
		IsTruncated: aws.Bool(false),
	}, nil
}

func (f *fakeAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("gone")}
	}
	f.lastRange = aws.ToString(in.Range)
	start := 0
	if f.lastRange != "" {
		start, _ = strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(f.lastRange, "bytes="), "-"))
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(data[start:]))}, nil
}

func (f *fakeAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	data, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "NotFound", Message: "Not Found"}
	}
	return &s3.HeadObjectOutput{ContentLength: aws.Int64(int64(len(data)))}, nil
}

func (f *fakeAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	b, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.lastLength = aws.ToInt64(in.ContentLength)
	f.objects[aws.ToString(in.Key)] = string(b)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeAPI) DeleteObjects(_ context.Context, in *s3.DeleteObjectsInput, _ ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
	f.deleteCalls++
	out := &s3.DeleteObjectsOutput{}
	for _, id := range in.Delete.Objects {
		k := aws.ToString(id.Key)
		if k == f.denied {
			out.Errors = append(out.Errors, types.Error{Key: id.Key, Code: aws.String("AccessDenied"), Message: aws.String("denied")})
			continue
		}
		delete(f.objects, k)
	}
	return out, nil
}

func newFake() (*fakeAPI, *Client) {
	api := &fakeAPI{objects: map[string]string{"t/obj": "0123456789"}}
	return api, NewWithAPI(api, "bucket", 0)
}

func TestListFollowsContinuationToken(t *testing.T) {
	_, c := newFake()
	all, err := objstore.ListAll(context.Background(), c, "t/")
	require.NoError(t, err)
	assert.Equal(t, []objstore.Object{{Key: "t/a", Size: 1}, {Key: "t/b", Size: 2}}, all)
	assert.Equal(t, "bucket", c.Bucket())
}

func TestGetRangeSetsHeader(t *testing.T) {
	api, c := newFake()
	rc, err := c.GetRange(context.Background(), "t/obj", 7)
	require.NoError(t, err)
	b, _ := io.ReadAll(rc)
	assert.Equal(t, "789", string(b))
	assert.Equal(t, "bytes=7-", api.lastRange)

	rc, err = c.GetRange(context.Background(), "t/obj", 0)
	require.NoError(t, err)
	rc.Close()
	assert.Empty(t, api.lastRange, "offset 0 reads the whole object")
}

func TestNotFoundMapping(t *testing.T) {
	_, c := newFake()
	_, err := c.GetRange(context.Background(), "t/missing", 0)
	assert.ErrorIs(t, err, objstore.ErrNotFound)
	_, err = c.HeadSize(context.Background(), "t/missing")
	assert.ErrorIs(t, err, objstore.ErrNotFound)

	n, err := c.HeadSize(context.Background(), "t/obj")
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
}

func TestOtherErrorsAreUnavailable(t *testing.T) {
	err := classify("get", "k", &smithy.GenericAPIError{Code: "SlowDown"})
	assert.ErrorIs(t, err, objstore.ErrBackendUnavailable)
	assert.False(t, errors.Is(err, objstore.ErrNotFound))
}

func TestPutAndDelete(t *testing.T) {
	api, c := newFake()
	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "t/new", bytes.NewReader([]byte("abc")), 3))
	assert.Equal(t, int64(3), api.lastLength)
	assert.Equal(t, "abc", api.objects["t/new"])

	require.NoError(t, c.Delete(ctx, "t/new"))
	require.NoError(t, c.Delete(ctx, "t/new"))
	require.NoError(t, c.Close())
}

func TestDeleteManyBatchesAndReportsFailures(t *testing.T) {
	api, c := newFake()
	keys := make([]string, 0, maxDeleteBatch+5)
	for i := 0; i < maxDeleteBatch+5; i++ {
		keys = append(keys, "t/k"+strconv.Itoa(i))
	}
	api.denied = "t/k3"

	res, err := c.DeleteMany(context.Background(), keys)
	require.NoError(t, err)
	assert.Len(t, res, len(keys))
	assert.Equal(t, 2, api.deleteCalls)

	err = objstore.JoinDeleteErrors(res)
	assert.ErrorIs(t, err, objstore.ErrDeleteFailed)
	assert.Contains(t, err.Error(), "t/k3")
}

func TestNewValidatesCredentials(t *testing.T) {
	ctx := context.Background()
	_, err := New(ctx, Options{})
	assert.Error(t, err)
	_, err = New(ctx, Options{Bucket: "b", CredentialProvider: CredentialsStatic})
	assert.Error(t, err)
	_, err = New(ctx, Options{Bucket: "b", CredentialProvider: "vault"})
	assert.Error(t, err)

	c, err := New(ctx, Options{
		Bucket:             "b",
		Region:             "us-east-1",
		Endpoint:           "http://127.0.0.1:9000",
		ForcePathStyle:     true,
		CredentialProvider: CredentialsStatic,
		AccessKeyID:        "id",
		SecretAccessKey:    "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "b", c.Bucket())
}

package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeS3 struct {
	bucketExists bool
	putErr       error

	put     *s3.PutObjectInput
	putBody []byte
	deleted *s3.DeleteObjectInput
	created bool
	policy  string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	f.put = in
	f.putBody, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deleted = in
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if !f.bucketExists {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(context.Context, *s3.CreateBucketInput, ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.created = true
	f.bucketExists = true
	return &s3.CreateBucketOutput{}, nil
}

func (f *fakeS3) PutBucketPolicy(_ context.Context, in *s3.PutBucketPolicyInput, _ ...func(*s3.Options)) (*s3.PutBucketPolicyOutput, error) {
	f.policy = aws.ToString(in.Policy)
	return &s3.PutBucketPolicyOutput{}, nil
}

func TestS3Storage_PutAndRemove(t *testing.T) {
	fake := &fakeS3{}
	s := NewS3Storage(fake, "http://localhost:9000/")

	require.NoError(t, s.Put(context.Background(), "avatars", "k.png", []byte("img"), "image/png"))
	assert.Equal(t, "avatars", aws.ToString(fake.put.Bucket))
	assert.Equal(t, "k.png", aws.ToString(fake.put.Key))
	assert.Equal(t, "image/png", aws.ToString(fake.put.ContentType))
	assert.Equal(t, []byte("img"), fake.putBody)

	require.NoError(t, s.Remove(context.Background(), "avatars", "k.png"))
	assert.Equal(t, "k.png", aws.ToString(fake.deleted.Key))

	assert.Equal(t, "http://localhost:9000/avatars/k.png", s.PublicURL("avatars", "k.png"))
}

func TestS3Storage_PutError(t *testing.T) {
	s := NewS3Storage(&fakeS3{putErr: errors.New("boom")}, "http://x")

	err := s.Put(context.Background(), "b", "k", nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "put b/k")
}

func TestS3Storage_EnsureBucket(t *testing.T) {
	t.Run("creates missing bucket", func(t *testing.T) {
		fake := &fakeS3{}
		require.NoError(t, NewS3Storage(fake, "").EnsureBucket(context.Background(), "avatars"))
		assert.True(t, fake.created)
		assert.Contains(t, fake.policy, "arn:aws:s3:::avatars/*")
	})

	t.Run("keeps existing bucket", func(t *testing.T) {
		fake := &fakeS3{bucketExists: true}
		require.NoError(t, NewS3Storage(fake, "").EnsureBucket(context.Background(), "avatars"))
		assert.False(t, fake.created)
		assert.NotEmpty(t, fake.policy)
	})
}

func TestMemoryStorage(t *testing.T) {
	m := NewMemoryStorage("http://cdn")
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, "b", "k", []byte("x"), "image/gif"))
	obj, ok := m.Get("b", "k")
	require.True(t, ok)
	assert.Equal(t, "image/gif", obj.ContentType)
	assert.Equal(t, "http://cdn/b/k", m.PublicURL("b", "k"))

	require.NoError(t, m.Remove(ctx, "b", "k"))
	assert.Error(t, m.Remove(ctx, "b", "k"))
	assert.Equal(t, 0, m.Len())
}

package s3infra

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeObjects struct {
	key, contentType, body string
	err                    error
}

func (f *fakeObjects) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.key = aws.ToString(in.Key)
	f.contentType = aws.ToString(in.ContentType)
	b, _ := io.ReadAll(in.Body)
	f.body = string(b)
	return &s3.PutObjectOutput{}, f.err
}

type fakePresigner struct{}

func (fakePresigner) PresignGetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	return &v4.PresignedHTTPRequest{URL: "https://bucket.example/" + aws.ToString(in.Key) + "?sig=1"}, nil
}

func TestUpload(t *testing.T) {
	objs := &fakeObjects{}
	s := &Store{client: objs, presigner: fakePresigner{}, bucket: "exports"}

	uri, err := s.Upload(context.Background(), "exports/alice/1.json", strings.NewReader(`{"messages":[]}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "s3://exports/exports/alice/1.json", uri)
	assert.Equal(t, "application/json", objs.contentType)
	assert.Equal(t, `{"messages":[]}`, objs.body)

	url, err := s.PresignedURL(context.Background(), "exports/alice/1.json", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "https://bucket.example/exports/alice/1.json?sig=1", url)
}

func TestUpload_Error(t *testing.T) {
	s := &Store{client: &fakeObjects{err: errors.New("denied")}, presigner: fakePresigner{}, bucket: "exports"}
	_, err := s.Upload(context.Background(), "k", strings.NewReader("x"), "text/plain")
	assert.ErrorContains(t, err, "s3 put object: denied")
}

func TestPresignedURL_RealPresigner(t *testing.T) {
	client := NewClient(aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKID", "SECRET", ""),
	}, "http://localhost:4566")
	s := NewStore(client, "exports")

	url, err := s.PresignedURL(context.Background(), "alice/export.json", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:4566/exports/alice/export.json?"), url)
	assert.Contains(t, url, "X-Amz-Expires=900")
}

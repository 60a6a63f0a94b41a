package blob

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/comilla/site-backend/internal/config"
)

type recordedRequest struct {
	Method      string
	Path        string
	ContentType string
	Body        []byte
}

type fakeS3 struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method:      r.Method,
		Path:        r.URL.Path,
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	})
	status := f.status
	f.mu.Unlock()

	if status >= 400 {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`)
		return
	}
	if r.Method == http.MethodDelete {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func newWireStore(t *testing.T, fake *fakeS3) *Store {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	store, err := NewStore(context.Background(), config.S3Config{
		Bucket:          "site-images",
		Region:          "us-east-1",
		AccessKeyID:     "minioadmin",
		SecretAccessKey: "minioadmin",
		BaseEndpoint:    server.URL,
		UsePathStyle:    true,
	})
	require.NoError(t, err)
	return store
}

func TestStorePutAndDeleteWire(t *testing.T) {
	fake := &fakeS3{}
	store := newWireStore(t, fake)

	require.NoError(t, store.Put(context.Background(), "abc123", []byte("png-bytes"), "image/png"))
	require.NoError(t, store.Delete(context.Background(), "abc123"))

	require.Len(t, fake.requests, 2)
	put := fake.requests[0]
	require.Equal(t, http.MethodPut, put.Method)
	require.Equal(t, "/site-images/abc123", put.Path)
	require.Equal(t, "image/png", put.ContentType)
	require.Equal(t, []byte("png-bytes"), put.Body)

	del := fake.requests[1]
	require.Equal(t, http.MethodDelete, del.Method)
	require.Equal(t, "/site-images/abc123", del.Path)
}

func TestStorePutError(t *testing.T) {
	fake := &fakeS3{status: http.StatusForbidden}
	store := newWireStore(t, fake)

	err := store.Put(context.Background(), "abc123", []byte("x"), "")
	require.Error(t, err)
	require.Contains(t, err.Error(), "abc123")
}

func TestStoreURL(t *testing.T) {
	store := newStore(nil, config.S3Config{Bucket: "comilla-site", Region: "us-east-2"})
	require.Equal(t, "https://comilla-site.s3.us-east-2.amazonaws.com/deadbeef", store.URL("deadbeef"))

	cdn := newStore(nil, config.S3Config{Bucket: "comilla-site", Region: "us-east-2", PublicBaseURL: "https://cdn.example.com/images/"})
	require.Equal(t, "https://cdn.example.com/images/deadbeef", cdn.URL("deadbeef"))
}

func TestNewStoreRequiresBucket(t *testing.T) {
	_, err := NewStore(context.Background(), config.S3Config{Region: "us-east-1"})
	require.ErrorIs(t, err, ErrMissingBucket)
}

func TestNewStoreAppliesOptions(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		require.Equal(t, "eu-west-1", lo.Region)
		require.NotNil(t, lo.Credentials, "static credentials expected")
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	_, err := NewStore(context.Background(), config.S3Config{
		Bucket:       "b",
		Region:       "eu-west-1",
		AccessKeyID:  "id",
		BaseEndpoint: "http://minio:9000",
		UsePathStyle: true,
	})
	require.NoError(t, err)
	require.NotNil(t, opts.BaseEndpoint)
	require.Equal(t, "http://minio:9000", *opts.BaseEndpoint)
	require.True(t, opts.UsePathStyle)
}

func TestNewStoreLoadError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no config")
	}

	_, err := NewStore(context.Background(), config.S3Config{Bucket: "b", Region: "us-east-1"})
	require.ErrorContains(t, err, "load aws config")
}

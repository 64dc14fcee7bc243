package fileserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, raw string) *url.URL {
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestSharedHost(t *testing.T) {
	registry := NewRegistry(DefaultPrefix)
	host := NewSharedHost(registry, StaticBase(mustParse(t, "https://pub.example.com")))

	served, err := host.Serve(context.Background(), []byte("video"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(served.URL, "https://pub.example.com/media/"))
	assert.Equal(t, 1, registry.Len())

	require.NoError(t, served.Close())
	require.NoError(t, served.Close())
	assert.Zero(t, registry.Len())
}

func TestDedicatedHost(t *testing.T) {
	host := NewDedicatedHost("127.0.0.1:0", StaticBase(mustParse(t, "http://127.0.0.1")))

	first, err := host.Serve(context.Background(), []byte("first"))
	require.NoError(t, err)
	second, err := host.Serve(context.Background(), []byte("second"))
	require.NoError(t, err)
	assert.True(t, host.Running())

	require.NoError(t, first.Close())
	assert.True(t, host.Running(), "listener stays up while a file is still served")

	require.NoError(t, second.Close())
	assert.False(t, host.Running())

	// A later file starts a fresh listener
	third, err := host.Serve(context.Background(), []byte("third"))
	require.NoError(t, err)
	assert.True(t, host.Running())
	require.NoError(t, third.Close())
}

func TestDedicatedHostServesOverHTTP(t *testing.T) {
	host := NewDedicatedHost("127.0.0.1:0", StaticBase(mustParse(t, "http://unused")))
	served, err := host.Serve(context.Background(), []byte("hello world"))
	require.NoError(t, err)
	defer served.Close()

	host.mu.Lock()
	server := httptest.NewServer(host.server.Handler)
	host.mu.Unlock()
	defer server.Close()

	path := mustParse(t, served.URL).Path
	req, _ := http.NewRequest(http.MethodGet, server.URL+path, nil)
	req.Header.Set("Range", "bytes=6-")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusPartialContent, resp.StatusCode)
	assert.Equal(t, "world", string(body))
}

func TestDiscoverBase(t *testing.T) {
	calls := 0
	echo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte("203.0.113.7\n"))
	}))
	defer echo.Close()

	base := NewDiscoverBase(8081)
	base.EchoURL = echo.URL

	u, err := base.BaseURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "http://203.0.113.7:8081", u.String())

	_, err = base.BaseURL(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "discovered address should be cached")
}

func TestDiscoverBaseRejectsGarbage(t *testing.T) {
	echo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>captive portal</html>"))
	}))
	defer echo.Close()

	base := NewDiscoverBase(0)
	base.EchoURL = echo.URL
	_, err := base.BaseURL(context.Background())
	assert.ErrorContains(t, err, "is not an IP")
}

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(*params.Bucket, *params.Key)
	return &s3.PutObjectOutput{}, args.Error(0)
}

func (m *MockObjectStore) DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(*params.Bucket, *params.Key)
	return &s3.DeleteObjectOutput{}, args.Error(0)
}

type MockPresigner struct {
	mock.Mock
}

func (m *MockPresigner) PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	args := m.Called(*params.Bucket, *params.Key)
	return &v4.PresignedHTTPRequest{URL: args.String(0)}, args.Error(1)
}

func TestS3Host(t *testing.T) {
	t.Run("uploads, presigns and deletes once", func(t *testing.T) {
		store := new(MockObjectStore)
		store.On("PutObject", "bucket", mock.AnythingOfType("string")).Return(nil)
		store.On("DeleteObject", "bucket", mock.AnythingOfType("string")).Return(nil)
		presigner := new(MockPresigner)
		presigner.On("PresignGetObject", "bucket", mock.AnythingOfType("string")).Return("https://bucket.s3/key?X-Amz-Signature=abc", nil)

		host := newS3Host(store, presigner, "bucket", "/tmp/", 0)
		served, err := host.Serve(context.Background(), []byte("video"))
		require.NoError(t, err)
		assert.Equal(t, "https://bucket.s3/key?X-Amz-Signature=abc", served.URL)

		key := store.Calls[0].Arguments.String(1)
		assert.True(t, strings.HasPrefix(key, "tmp/"))
		assert.True(t, strings.HasSuffix(key, ".mp4"))

		require.NoError(t, served.Close())
		require.NoError(t, served.Close())
		store.AssertNumberOfCalls(t, "DeleteObject", 1)
		store.AssertCalled(t, "DeleteObject", "bucket", key)
	})

	t.Run("removes the object when presigning fails", func(t *testing.T) {
		store := new(MockObjectStore)
		store.On("PutObject", "bucket", mock.AnythingOfType("string")).Return(nil)
		store.On("DeleteObject", "bucket", mock.AnythingOfType("string")).Return(nil)
		presigner := new(MockPresigner)
		presigner.On("PresignGetObject", "bucket", mock.AnythingOfType("string")).Return("", errors.New("no credentials"))

		host := newS3Host(store, presigner, "bucket", "", 0)
		_, err := host.Serve(context.Background(), []byte("video"))
		assert.ErrorContains(t, err, "no credentials")
		store.AssertNumberOfCalls(t, "DeleteObject", 1)
	})
}

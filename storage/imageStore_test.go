package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	appconfig "github.com/Kariqs/sweet-shop/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedPut struct {
	method      string
	path        string
	acl         string
	contentType string
}

func fakeS3(t *testing.T, status int) (*httptest.Server, func() []recordedPut) {
	t.Helper()
	var (
		mu   sync.Mutex
		puts []recordedPut
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		mu.Lock()
		puts = append(puts, recordedPut{
			method:      r.Method,
			path:        r.URL.Path,
			acl:         r.Header.Get("X-Amz-Acl"),
			contentType: r.Header.Get("Content-Type"),
		})
		mu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`))
			return
		}
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedPut {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedPut(nil), puts...)
	}
}

func testConfig(endpoint string) appconfig.S3Config {
	return appconfig.S3Config{
		Bucket:          "product-images",
		Region:          "us-east-1",
		Endpoint:        endpoint,
		AccessKeyID:     "test",
		SecretAccessKey: "test-secret",
		PublicBaseURL:   "https://cdn.example.com/product-images/",
		UsePathStyle:    true,
	}
}

func TestS3ImageStoreUploadsPublicObject(t *testing.T) {
	srv, puts := fakeS3(t, http.StatusOK)
	store, err := NewS3ImageStore(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	url, err := store.Upload(context.Background(), "a1b2-1700000000000.png", "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/product-images/a1b2-1700000000000.png", url)

	recorded := puts()
	require.Len(t, recorded, 1)
	assert.Equal(t, http.MethodPut, recorded[0].method)
	assert.Equal(t, "/product-images/a1b2-1700000000000.png", recorded[0].path)
	assert.Equal(t, "public-read", recorded[0].acl)
	assert.Equal(t, "image/png", recorded[0].contentType)
}

func TestS3ImageStoreReportsFailure(t *testing.T) {
	srv, _ := fakeS3(t, http.StatusForbidden)
	store, err := NewS3ImageStore(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)

	_, err = store.Upload(context.Background(), "x.png", "image/png", strings.NewReader("png-bytes"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uploading x.png")
}

func TestPublicURLFallsBackToLocation(t *testing.T) {
	store := &S3ImageStore{}
	assert.Equal(t, "http://s3.local/b/x.png", store.PublicURL("x.png", "http://s3.local/b/x.png"))
}

package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-backend/config"
)

func newTestStore(t *testing.T, endpoint string) *S3Store {
	t.Helper()
	store, err := NewS3Store(context.Background(), config.Storage{
		Region:          "ap-northeast-1",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "wJalrXUtnFEMI/K7MDENG+bPxRfiCYEXAMPLEKEY",
		Endpoint:        endpoint,
	})
	require.NoError(t, err)
	return store
}

func TestS3GetObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/assets/brave-birth.pdf", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	obj, err := newTestStore(t, srv.URL).GetObject(context.Background(), "assets", "brave-birth.pdf")
	require.NoError(t, err)
	defer obj.Body.Close()

	body, err := io.ReadAll(obj.Body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(body))
	assert.Equal(t, "application/pdf", obj.ContentType)
}

func TestS3GetObjectMissingKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`))
	}))
	defer srv.Close()

	_, err := newTestStore(t, srv.URL).GetObject(context.Background(), "assets", "missing.pdf")
	require.ErrorIs(t, err, ErrObjectNotFound)
}

func TestS3PresignGet(t *testing.T) {
	store := newTestStore(t, "http://localhost:9000")

	url, err := store.PresignGet(context.Background(), "assets", "brave-birth.pdf", 10*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, url, "/assets/brave-birth.pdf")
	assert.Contains(t, url, "X-Amz-Expires=600")
	assert.Contains(t, url, "X-Amz-Signature=")
}

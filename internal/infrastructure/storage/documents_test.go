package storage

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/freightmarket/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func minioConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Enabled:      true,
		Endpoint:     "localhost:9000",
		Bucket:       "proof-of-delivery",
		AccessKey:    "minio",
		SecretKey:    "minio-secret",
		UsePathStyle: true,
	}
}

func TestNewDocumentStore_RejectsIncompleteConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.StorageConfig
		wantErr string
	}{
		{"nil config", nil, "configuration is required"},
		{"missing bucket", &config.StorageConfig{AccessKey: "a", SecretKey: "b"}, "bucket is required"},
		{"missing credentials", &config.StorageConfig{Bucket: "b"}, "secret key are required"},
		{"bad endpoint", &config.StorageConfig{Bucket: "b", AccessKey: "a", SecretKey: "b", Endpoint: "http://"}, "invalid storage endpoint"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDocumentStore(tt.cfg, nil, 0)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		in     string
		useSSL bool
		want   string
	}{
		{"", false, ""},
		{"localhost:9000", false, "http://localhost:9000"},
		{"s3.internal", true, "https://s3.internal"},
		{"https://minio.example.com", false, "https://minio.example.com"},
	}
	for _, tt := range tests {
		got, err := endpointURL(tt.in, tt.useSSL)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestNewDocumentStore_ExpiryPrecedence(t *testing.T) {
	s, err := NewDocumentStore(minioConfig(), zaptest.NewLogger(t), 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "proof-of-delivery", s.Bucket())
	assert.Equal(t, 5*time.Minute, s.expiry)

	cfg := minioConfig()
	cfg.PresignExpiration = time.Hour
	s, err = NewDocumentStore(cfg, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, s.expiry)

	s, err = NewDocumentStore(minioConfig(), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultExpiry, s.expiry)
}

// Presigning signs locally, so no server is needed.
func TestGenerateUploadURL(t *testing.T) {
	s, err := NewDocumentStore(minioConfig(), nil, 0)
	require.NoError(t, err)

	_, _, err = s.GenerateUploadURL(context.Background(), "", "application/pdf", time.Minute)
	assert.ErrorIs(t, err, errEmptyKey)

	key := "proof-of-delivery/5c1d/doc.pdf"
	raw, expiresAt, err := s.GenerateUploadURL(context.Background(), key, "application/pdf", 10*time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), expiresAt, 5*time.Second)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9000", u.Host)
	assert.Equal(t, "/proof-of-delivery/"+key, u.Path)
	assert.Equal(t, "600", u.Query().Get("X-Amz-Expires"))
	assert.Contains(t, u.Query().Get("X-Amz-SignedHeaders"), "content-type")
}

func TestGenerateDownloadURL_DefaultExpiry(t *testing.T) {
	s, err := NewDocumentStore(minioConfig(), nil, 0)
	require.NoError(t, err)

	raw, _, err := s.GenerateDownloadURL(context.Background(), "proof-of-delivery/x/doc.pdf", 0)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/contactbook/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryBackend struct {
	objects map[string][]byte
	ensured bool
}

func (m *memoryBackend) EnsureBucket(context.Context) error {
	m.ensured = true
	return nil
}

func (m *memoryBackend) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	return nil
}

func (m *memoryBackend) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryBackend) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryBackend) Bucket() string { return "snapshots" }

func TestStorageDelegatesToBackend(t *testing.T) {
	backend := &memoryBackend{objects: map[string][]byte{}}
	s := NewStorage(backend)
	ctx := context.Background()

	require.NoError(t, s.EnsureBucket(ctx))
	assert.True(t, backend.ensured)

	payload := []byte(`{"count":0}`)
	require.NoError(t, s.Put(ctx, "exports/a.json", bytes.NewReader(payload), int64(len(payload)), "application/json"))

	body, err := s.Get(ctx, "exports/a.json")
	require.NoError(t, err)
	got, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	require.NoError(t, s.Delete(ctx, "exports/a.json"))
	_, err = s.Get(ctx, "exports/a.json")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Equal(t, "snapshots", s.Bucket())
}

func TestOpenRejectsIncompleteConfig(t *testing.T) {
	ctx := context.Background()

	_, err := Open(ctx, config.StorageConfig{Backend: "ftp"})
	assert.ErrorContains(t, err, "unknown storage backend")

	_, err = Open(ctx, config.StorageConfig{Backend: "minio", Minio: config.MinioConfig{Endpoint: "localhost:9000", Bucket: "b"}})
	assert.ErrorContains(t, err, "access key")

	_, err = Open(ctx, config.StorageConfig{Backend: "gcs"})
	assert.ErrorContains(t, err, "gcs bucket is required")

	_, err = Open(ctx, config.StorageConfig{Backend: "s3"})
	assert.ErrorContains(t, err, "s3 bucket is required")
}

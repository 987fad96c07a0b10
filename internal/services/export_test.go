package services_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/contactbook/apiserver/internal/services"
	"github.com/contactbook/apiserver/internal/store/storetest"
	"github.com/contactbook/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryObjects struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memoryObjects) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	m.objects[key] = data
	m.contentTypes[key] = contentType
	return nil
}

func (m *memoryObjects) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryObjects) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memoryObjects) Bucket() string { return "contactbook-test" }

func TestExportServiceWritesEveryContact(t *testing.T) {
	contacts := storetest.NewContacts()
	svc := services.NewContactService(contacts)
	ctx := context.Background()

	ana, err := svc.Create(ctx, anaPatch())
	require.NoError(t, err)
	_, err = svc.Create(ctx, types.ContactPatch{Name: types.Some("Bob"), Email: types.Some("bob@example.com")})
	require.NoError(t, err)
	_, err = svc.Delete(ctx, ana.ID)
	require.NoError(t, err)

	objects := newMemoryObjects()
	exporter := services.NewExportService(contacts, objects)

	result, err := exporter.Export(ctx)
	require.NoError(t, err)

	assert.Equal(t, "contactbook-test", result.Bucket)
	assert.Equal(t, 2, result.Count)
	assert.True(t, strings.HasPrefix(result.Key, "exports/contacts-"))
	assert.True(t, strings.HasSuffix(result.Key, ".json"))
	assert.Equal(t, "application/json", objects.contentTypes[result.Key])

	var snapshot services.Snapshot
	require.NoError(t, json.Unmarshal(objects.objects[result.Key], &snapshot))
	require.Len(t, snapshot.Contacts, 2)
	assert.False(t, snapshot.Contacts[0].Active, "soft-deleted contacts are exported too")
	assert.True(t, snapshot.Contacts[1].Active)

	read, err := exporter.Read(ctx, result.Key)
	require.NoError(t, err)
	assert.Equal(t, 2, read.Count)

	require.NoError(t, exporter.Remove(ctx, result.Key))
	assert.Empty(t, objects.objects)
}

func TestExportServiceRejectsForeignKeys(t *testing.T) {
	exporter := services.NewExportService(storetest.NewContacts(), newMemoryObjects())

	_, err := exporter.Read(context.Background(), "secrets/passwords.json")
	requireKind(t, err, services.KindMalformed)

	err = exporter.Remove(context.Background(), "../etc/passwd")
	requireKind(t, err, services.KindMalformed)
}

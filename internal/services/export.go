package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/contactbook/apiserver/types"
)

const exportKeyPrefix = "exports/contacts-"

// ContactSnapshotSource lists every contact for an export.
type ContactSnapshotSource interface {
	ListAll(ctx context.Context) ([]types.Contact, error)
}

// ObjectStore holds export snapshots.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
}

// ExportService writes JSON snapshots of the address book to object storage.
type ExportService struct {
	contacts ContactSnapshotSource
	objects  ObjectStore
	now      func() time.Time
}

// ExportResult describes an uploaded snapshot.
type ExportResult struct {
	Bucket string
	Key    string
	Count  int
}

// Snapshot is the document written by Export.
type Snapshot struct {
	ExportedAt time.Time       `json:"exportedAt"`
	Count      int             `json:"count"`
	Contacts   []types.Contact `json:"contacts"`
}

func NewExportService(contacts ContactSnapshotSource, objects ObjectStore) *ExportService {
	return &ExportService{contacts: contacts, objects: objects, now: time.Now}
}

// Export uploads every contact, active and soft-deleted, as one JSON document.
func (s *ExportService) Export(ctx context.Context) (ExportResult, error) {
	contacts, err := s.contacts.ListAll(ctx)
	if err != nil {
		return ExportResult{}, fmt.Errorf("load contacts: %w", err)
	}

	exportedAt := s.now().UTC()
	data, err := json.MarshalIndent(Snapshot{
		ExportedAt: exportedAt,
		Count:      len(contacts),
		Contacts:   contacts,
	}, "", "  ")
	if err != nil {
		return ExportResult{}, fmt.Errorf("encode snapshot: %w", err)
	}

	key := exportKeyPrefix + exportedAt.Format("20060102T150405Z") + ".json"
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		return ExportResult{}, fmt.Errorf("upload snapshot: %w", err)
	}

	return ExportResult{Bucket: s.objects.Bucket(), Key: key, Count: len(contacts)}, nil
}

// Read downloads and decodes the snapshot stored under key.
func (s *ExportService) Read(ctx context.Context, key string) (Snapshot, error) {
	if !strings.HasPrefix(key, exportKeyPrefix) {
		return Snapshot{}, Malformed(fmt.Sprintf("%q is not an export key", key))
	}

	body, err := s.objects.Get(ctx, key)
	if err != nil {
		return Snapshot{}, fmt.Errorf("download snapshot: %w", err)
	}
	defer body.Close()

	var snapshot Snapshot
	if err := json.NewDecoder(body).Decode(&snapshot); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}
	return snapshot, nil
}

// Remove deletes the snapshot stored under key.
func (s *ExportService) Remove(ctx context.Context, key string) error {
	if !strings.HasPrefix(key, exportKeyPrefix) {
		return Malformed(fmt.Sprintf("%q is not an export key", key))
	}
	if err := s.objects.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

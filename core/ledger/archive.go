package ledger

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"meraki-sync/core/storage"

	"github.com/goccy/go-json"
	"github.com/minio/minio-go/v7"
)

// ArchiveDocument is the JSON form of a collected review session.
type ArchiveDocument struct {
	ArchivedAt time.Time     `json:"archived_at"`
	Run        *RunRecord    `json:"run,omitempty"`
	Session    ReviewSession `json:"session"`
}

// Archiver stores review sessions before they are deleted.
type Archiver interface {
	Archive(ctx context.Context, doc *ArchiveDocument) error
}

// ArchiveObject describes a stored archive.
type ArchiveObject struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

// StorageArchiver writes archives to an object storage bucket.
type StorageArchiver struct {
	client storage.Client
	bucket string
	prefix string
}

// NewStorageArchiver creates an archiver writing under prefix in bucket.
func NewStorageArchiver(client storage.Client, bucket, prefix string) *StorageArchiver {
	return &StorageArchiver{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object name of a session archive.
func (a *StorageArchiver) Key(runID, sessionID uint) string {
	return path.Join(a.prefix, fmt.Sprintf("%d-%d.json", runID, sessionID))
}

// Archive uploads the document as JSON.
func (a *StorageArchiver) Archive(ctx context.Context, doc *ArchiveDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode archive: %w", err)
	}
	key := a.Key(doc.Session.RunID, doc.Session.ID)
	_, err = a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload archive %s: %w", key, err)
	}
	return nil
}

// listPrefix is the object prefix shared by every archive. It is empty when
// archives are stored at the bucket root.
func (a *StorageArchiver) listPrefix() string {
	if a.prefix == "" {
		return ""
	}
	return a.prefix + "/"
}

func (a *StorageArchiver) owns(key string) bool {
	return key != "" && strings.HasPrefix(key, a.listPrefix()) && !strings.Contains(key, "..")
}

// List returns every archive under the prefix.
func (a *StorageArchiver) List(ctx context.Context) ([]ArchiveObject, error) {
	// Stops the listing goroutine when returning early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var out []ArchiveObject
	for obj := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: a.listPrefix(), Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list archives: %w", obj.Err)
		}
		out = append(out, ArchiveObject{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	return out, nil
}

// Open reads one archive. Keys outside the prefix are rejected.
func (a *StorageArchiver) Open(ctx context.Context, key string) (*ArchiveDocument, error) {
	if !a.owns(key) {
		return nil, fmt.Errorf("archive %s: %w", key, ErrNotFound)
	}
	rc, err := a.client.GetObject(ctx, a.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", key, err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read archive %s: %w", key, err)
	}
	var doc ArchiveDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode archive %s: %w", key, err)
	}
	return &doc, nil
}

// Remove deletes one archive.
func (a *StorageArchiver) Remove(ctx context.Context, key string) error {
	if !a.owns(key) {
		return fmt.Errorf("archive %s: %w", key, ErrNotFound)
	}
	if err := a.client.RemoveObject(ctx, a.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove archive %s: %w", key, err)
	}
	return nil
}

// Prune deletes every archive last modified before cutoff and returns how many were removed.
func (a *StorageArchiver) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	objects, err := a.List(ctx)
	if err != nil {
		return 0, err
	}

	objectsCh := make(chan minio.ObjectInfo, len(objects))
	queued := 0
	for _, obj := range objects {
		if obj.LastModified.Before(cutoff) {
			objectsCh <- minio.ObjectInfo{Key: obj.Key}
			queued++
		}
	}
	close(objectsCh)
	if queued == 0 {
		return 0, nil
	}

	var failures []string
	for rerr := range a.client.RemoveObjects(ctx, a.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", rerr.ObjectName, rerr.Err))
		}
	}
	if len(failures) > 0 {
		return queued - len(failures), fmt.Errorf("failed to remove %d archive(s): %s", len(failures), strings.Join(failures, "; "))
	}
	return queued, nil
}

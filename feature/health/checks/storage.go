package checks

import (
	"context"
	"fmt"
	"strings"

	"meraki-sync/core/storage"

	"github.com/minio/minio-go/v7"
)

// StorageReport describes the review archive bucket.
type StorageReport struct {
	Bucket        string `json:"bucket"`
	Exists        bool   `json:"exists"`
	Prefix        string `json:"prefix"`
	ArchiveExists bool   `json:"archive_exists"`
}

// CheckStorage reports whether the bucket exists and whether any archive has been written under prefix.
func CheckStorage(ctx context.Context, client storage.Client, bucket, prefix string) (*StorageReport, error) {
	report := &StorageReport{Bucket: bucket, Prefix: strings.Trim(prefix, "/")}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket existence: %w", err)
	}
	report.Exists = exists
	if !exists {
		return report, nil
	}

	opts := minio.ListObjectsOptions{
		Prefix:    report.Prefix + "/",
		Recursive: false,
		MaxKeys:   1,
	}
	for obj := range client.ListObjects(ctx, bucket, opts) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list archives: %w", obj.Err)
		}
		report.ArchiveExists = true
		break
	}
	return report, nil
}

// FixStorage creates the bucket when it is missing.
func FixStorage(ctx context.Context, client storage.Client, bucket, region string) error {
	return storage.EnsureBucket(ctx, client, bucket, region)
}

// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind the Client interface so that callers can be
// tested with the mock in core/storage/mocks. The sync service uses it to archive
// review sessions before they are garbage-collected and to serve those archives
// back over HTTP.
//
// # Usage
//
//	client, err := storage.NewClient(cfg.Storage)
//	err = storage.EnsureBucket(ctx, client, cfg.Storage.Bucket, cfg.Storage.Region)
package storage

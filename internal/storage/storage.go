// Package storage provides the run's scratch area on local disk and optional
// delivery of finished outputs to S3.
package storage

import "context"

// Storage is what the pipeline needs from storage: a private scratch
// directory per group and a way to publish finished outputs.
type Storage interface {
	// GroupDir returns the scratch directory for a group, creating it if
	// needed. Intermediate files for the group are written there.
	GroupDir(groupKey string) (string, error)

	// Upload publishes a local file under key and returns its URL.
	// Returns ErrS3NotConfigured when uploads are disabled.
	Upload(ctx context.Context, localPath, key string) (url string, err error)
}

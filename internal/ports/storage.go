package ports

import "context"

// ArtifactStore persists finished export payloads. Write must be atomic from
// the reader's point of view: either the full artifact appears under the
// returned path or nothing does.
type ArtifactStore interface {
	Write(ctx context.Context, filename string, data []byte) (path string, err error)
	Read(ctx context.Context, path string) ([]byte, error)
	Remove(ctx context.Context, path string) error
}

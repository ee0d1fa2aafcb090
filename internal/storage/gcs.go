package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCS stores files as Cloud Storage objects addressed by gs://bucket/object URIs.
type GCS struct {
	client  *storage.Client
	timeout time.Duration
}

// NewGCS creates a Cloud Storage client. With an empty credentialsFile,
// Application Default Credentials are used (gcloud auth application-default login).
func NewGCS(ctx context.Context, credentialsFile string) (*GCS, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewGCS: create storage client: %w", err)
	}
	return &GCS{client: client, timeout: 2 * time.Minute}, nil
}

// Close releases the client.
func (g *GCS) Close() error {
	return g.client.Close()
}

// Read implements Store.
func (g *GCS) Read(ctx context.Context, uri string) ([]byte, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return nil, err
	}

	rc, err := g.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("GCS.Read: reading object %s/%s: %w", bucket, object, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("GCS.Read: reading bytes: %w", err)
	}
	return data, nil
}

// Write implements Store. The object only becomes visible once the upload
// is finalized.
func (g *GCS) Write(ctx context.Context, uri string, data []byte) error {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	w := g.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = "text/csv; charset=iso-8859-1"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("GCS.Write: copy to %s/%s: %w", bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("GCS.Write: finalize upload: %w", err)
	}
	return nil
}

// Exists implements Store.
func (g *GCS) Exists(ctx context.Context, uri string) (bool, error) {
	bucket, object, err := ParseGCSURI(uri)
	if err != nil {
		return false, err
	}
	_, err = g.client.Bucket(bucket).Object(object).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("GCS.Exists: %s/%s: %w", bucket, object, err)
	}
	return true, nil
}

// ParseGCSURI splits gs://bucket/path/to/file.csv into bucket and object.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !IsGCSURI(uri) {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// BaseName returns the file name of a local path or GCS URI.
// e.g., "gs://bucket/folder/file.csv" → "file.csv"
func BaseName(p string) string {
	if _, object, err := ParseGCSURI(p); err == nil {
		return path.Base(object)
	}
	return path.Base(p)
}

package pinning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
)

const gcsPublicBaseURL = "https://storage.googleapis.com"

// GCSPinner stores assets in a Google Cloud Storage bucket and returns their
// public object URLs. The bucket must allow public reads.
type GCSPinner struct {
	bucket string
	prefix string

	newWriter func(ctx context.Context, object, contentType string) io.WriteCloser
	newID     func() string
}

var _ Pinner = (*GCSPinner)(nil)

// NewGCSPinner creates a pinner that writes under gs://bucket/prefix.
func NewGCSPinner(client *storage.Client, bucket, prefix string) (*GCSPinner, error) {
	if client == nil {
		return nil, fmt.Errorf("gcs: storage client is nil")
	}
	b := strings.TrimSpace(bucket)
	if b == "" {
		return nil, fmt.Errorf("gcs: bucket is empty")
	}

	return &GCSPinner{
		bucket: b,
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
		newWriter: func(ctx context.Context, object, contentType string) io.WriteCloser {
			w := client.Bucket(b).Object(object).NewWriter(ctx)
			w.ContentType = contentType
			w.CacheControl = "public, max-age=31536000, immutable"
			return w
		},
		newID: uuid.NewString,
	}, nil
}

// PinFile writes r to a fresh object and returns its public URL.
func (p *GCSPinner) PinFile(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if r == nil {
		return "", uploadErr("gcs", fmt.Errorf("empty file %q", name))
	}

	object := p.objectName(name)
	w := p.newWriter(ctx, object, contentType)
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return "", uploadErr("gcs", fmt.Errorf("write %s: %w", object, err))
	}
	if err := w.Close(); err != nil {
		return "", uploadErr("gcs", fmt.Errorf("close %s: %w", object, err))
	}

	return p.PublicURL(object), nil
}

// PinJSON marshals v and stores it as application/json.
func (p *GCSPinner) PinJSON(ctx context.Context, name string, v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", uploadErr("gcs", fmt.Errorf("marshal %q: %w", name, err))
	}
	return p.PinFile(ctx, name, "application/json", bytes.NewReader(data))
}

// PublicURL returns the public HTTPS URL of object.
func (p *GCSPinner) PublicURL(object string) string {
	segs := strings.Split(object, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/%s/%s", gcsPublicBaseURL, p.bucket, strings.Join(segs, "/"))
}

// objectName returns <prefix>/<uuid>/<base name>.
func (p *GCSPinner) objectName(name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "file"
	}
	if p.prefix == "" {
		return p.newID() + "/" + base
	}
	return p.prefix + "/" + p.newID() + "/" + base
}

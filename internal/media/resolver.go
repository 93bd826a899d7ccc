package media

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/thekoushikdurgas/diary/internal/model"
)

// Blobs is an object store for large payloads.
type Blobs interface {
	Put(ctx context.Context, key string, data []byte, mimeType string) (string, error)
	Get(ctx context.Context, ref string) ([]byte, string, error)
	Delete(ctx context.Context, ref string) error
}

// URLSigner is implemented by blob stores that can hand out download URLs.
type URLSigner interface {
	PresignGet(ctx context.Context, ref string, ttl time.Duration) (string, error)
}

// Resolver turns item content into bytes, whether the payload is inline or
// offloaded, and decides which payloads to offload on create.
type Resolver struct {
	blobs     Blobs
	threshold int
}

// NewResolver returns a resolver. blobs may be nil, in which case payloads
// always stay inline and references cannot be resolved.
func NewResolver(blobs Blobs, offloadThreshold int) *Resolver {
	return &Resolver{blobs: blobs, threshold: offloadThreshold}
}

// Fetch returns the binary payload and mime type stored in content.
func (r *Resolver) Fetch(ctx context.Context, content string) ([]byte, string, error) {
	switch {
	case IsDataURI(content):
		return ParseDataURI(content)
	case IsRef(content):
		if r.blobs == nil {
			return nil, "", fmt.Errorf("object storage not configured for %s", content)
		}
		return r.blobs.Get(ctx, content)
	default:
		return nil, "", model.NewValidationError("content", "binary content must be a data URI or an object reference")
	}
}

// Offload moves a large inline payload to object storage and returns the
// draft pointing at it. Small payloads and non-binary drafts are returned
// unchanged.
func (r *Resolver) Offload(ctx context.Context, userID string, d model.Draft) (model.Draft, error) {
	if r.blobs == nil || !d.Type.IsBinary() || !IsDataURI(d.Content) || len(d.Content) <= r.threshold {
		return d, nil
	}
	data, mimeType, err := ParseDataURI(d.Content)
	if err != nil {
		return d, model.NewValidationError("content", err.Error())
	}
	if mimeType == "" {
		mimeType = d.MimeType
	}
	key := fmt.Sprintf("%s/%s/%s", userID, d.Type, uuid.New().String())
	ref, err := r.blobs.Put(ctx, key, data, mimeType)
	if err != nil {
		return d, err
	}
	d.Content = ref
	return d, nil
}

// DownloadURL returns a presigned URL for offloaded content, or "" when the
// payload is inline or the store cannot sign URLs.
func (r *Resolver) DownloadURL(ctx context.Context, content string, ttl time.Duration) (string, error) {
	if !IsRef(content) {
		return "", nil
	}
	signer, ok := r.blobs.(URLSigner)
	if !ok {
		return "", nil
	}
	return signer.PresignGet(ctx, content, ttl)
}

// Discard deletes the offloaded object behind content. Inline payloads need
// no cleanup.
func (r *Resolver) Discard(ctx context.Context, content string) error {
	if !IsRef(content) || r.blobs == nil {
		return nil
	}
	return r.blobs.Delete(ctx, content)
}

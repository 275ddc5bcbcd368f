package article

import (
	"context"
	"io"
	"time"
)

// Repository persists articles.
type Repository interface {
	Create(ctx context.Context, draft Draft) (Article, error)
	FindAll(ctx context.Context, filter Filter) ([]Article, error)
	FindByID(ctx context.Context, id string) (Article, error)
	MarkSaved(ctx context.Context, id string) (Article, error)
	DeleteByID(ctx context.Context, id string) (Article, error)
	ClearAll(ctx context.Context) (int64, error)
}

// Fetcher retrieves the raw markup behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes pass summaries to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes content digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record and pass IDs.
type IDGenerator interface {
	NewID() (string, error)
}

package source

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lox/wattpipe/internal/blob"
	"github.com/lox/wattpipe/internal/models"
)

// Source is one delivery channel for raw batch files. The watcher treats
// every channel the same: list what has arrived, fetch it, decode it.
type Source interface {
	Name() string
	List(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
}

// DecodeBatch parses a raw batch file into readings. A malformed document
// is fatal to that batch: no records from it are processed.
func DecodeBatch(data []byte) ([]models.RawReading, error) {
	var readings []models.RawReading
	if err := json.Unmarshal(data, &readings); err != nil {
		return nil, fmt.Errorf("decode batch: %w", err)
	}
	return readings, nil
}

// ObjectStore adapts the blob store to the Source interface.
type ObjectStore struct {
	store *blob.Store
}

func NewObjectStore(store *blob.Store) *ObjectStore {
	return &ObjectStore{store: store}
}

func (o *ObjectStore) Name() string { return "minio" }

func (o *ObjectStore) List(ctx context.Context, prefix string) ([]string, error) {
	return o.store.List(ctx, prefix)
}

func (o *ObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	return o.store.Get(ctx, key)
}

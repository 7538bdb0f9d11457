package domain

import (
	"context"
	"time"
)

// StateStore is a durable key-value slot store. It replaces the browser's
// local storage: values are opaque JSON documents, a zero ttl never expires.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ProgramSource fetches the raw catalog datasets
type ProgramSource interface {
	// FetchMain returns the detail-rich records. An unconfigured main source yields (nil, nil).
	FetchMain(ctx context.Context) ([]RawMainRecord, error)
	// FetchExtended returns the complete roster records
	FetchExtended(ctx context.Context) ([]RawExtendedRecord, error)
}

// ProgramResolver looks up a catalog program by id
type ProgramResolver interface {
	Get(id int) (Program, error)
}

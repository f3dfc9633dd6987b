package docstore

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// ErrNoDocument is returned by Get when the document does not exist.
var ErrNoDocument = errors.New("docstore: no such document")

// Document is a raw record returned by Query. Callers decode and
// validate the payload at the read boundary.
type Document struct {
	ID   string
	Data json.RawMessage
}

type Filter struct {
	Field string
	Op    string // "==", ">=" or "<="
	Value any
}

type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

// Store is the document-database surface the services depend on:
// whole-document reads and overwrites plus filtered collection scans.
type Store interface {
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	Set(ctx context.Context, collection, id string, doc any) error
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
}

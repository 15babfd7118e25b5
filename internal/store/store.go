// Package store is the record-store adapter: a path-addressed document store
// with filtered collection queries and atomic multi-record writes. It is the
// only persistence surface the lifecycle components see.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Op is a filter operator. Equality and a single-field range bound are the
// only operations the contract supports; filters combine with AND.
type Op string

const (
	OpEq  Op = "=="
	OpLte Op = "<="
	OpGte Op = ">="
)

// Filter narrows a collection query on one field.
type Filter struct {
	Field string
	Op    Op
	Value interface{}
}

// Record is one stored document.
type Record struct {
	Path   string
	Fields map[string]interface{}
}

// Write merges Fields into the record at Path, creating it when absent.
type Write struct {
	Path   string
	Fields map[string]interface{}
}

// Store is the record-store contract. BatchWrite is atomic: either every
// write in the batch is applied or none are.
type Store interface {
	// Query returns all records of a collection matching every filter.
	// An empty result is a normal outcome, not an error.
	Query(ctx context.Context, collection string, filters []Filter) ([]Record, error)

	// Get returns the record at path, or (nil, nil) when absent.
	Get(ctx context.Context, path string) (*Record, error)

	// BatchWrite applies all writes as a single atomic unit.
	BatchWrite(ctx context.Context, writes []Write) error
}

// CollectionOf returns the collection a document path belongs to
// (everything before the final segment).
func CollectionOf(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// FormatValue renders a filter or field value the way records store it.
// Times are normalized to UTC RFC3339 so that range comparisons on stored
// date strings are ordered correctly.
func FormatValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Package store is the gateway to the persistence backend: uniform
// read-one/read-many access to the named collections plus an all-or-nothing
// write batch guarded by optimistic version tokens.
package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Collection names. The backend stores each as a flat table keyed by an
// opaque id with an updated_at version column.
const (
	CollectionProfiles      = "profiles"
	CollectionDeposits      = "deposits"
	CollectionVerifications = "verifications"
)

// Record is one row of a collection. Version is the row's updated_at token
// captured at read time; a write carrying a stale Version fails the whole
// batch with ErrConflict. Field values are string, bool, time.Time,
// []string or decimal.Decimal.
type Record struct {
	ID      string
	Version time.Time
	Fields  map[string]any
}

// Clone returns an independent copy of the record.
func (r Record) Clone() Record {
	fields := make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		if s, ok := v.([]string); ok {
			v = append([]string(nil), s...)
		}
		fields[k] = v
	}
	return Record{ID: r.ID, Version: r.Version, Fields: fields}
}

type WriteKind string

const (
	OpInsert WriteKind = "insert"
	OpUpdate WriteKind = "update"
	OpDelete WriteKind = "delete"
)

// WriteOp is one write of a batch. Updates and deletes carry the Version
// captured when the row was read; inserts leave it zero.
type WriteOp struct {
	Collection string
	Kind       WriteKind
	ID         string
	Payload    map[string]any
	Version    time.Time
}

// Filter narrows a GetMany call. Eq matches columns for equality; OrderBy
// names a column to sort on. Zero Limit means no limit.
type Filter struct {
	Eq         map[string]any
	OrderBy    string
	Descending bool
	Limit      uint64
}

// Gateway is the narrow interface over the persistence layer. WriteBatch is
// atomic: either every op is applied and the returned commit timestamp is the
// new version of every written row, or nothing is visible to later reads.
type Gateway interface {
	GetOne(ctx context.Context, collection, id string) (*Record, error)
	GetMany(ctx context.Context, collection string, filter Filter) ([]Record, error)
	WriteBatch(ctx context.Context, ops []WriteOp) (time.Time, error)
}

// valuesEqual compares field values the way filters and version checks need:
// decimals by numeric value, everything else by ==.
func valuesEqual(a, b any) bool {
	if da, ok := a.(decimal.Decimal); ok {
		if db, ok := b.(decimal.Decimal); ok {
			return da.Equal(db)
		}
		return false
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
		return false
	}
	switch a.(type) {
	case []string:
		return false
	}
	return a == b
}

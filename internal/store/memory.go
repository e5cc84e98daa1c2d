package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryGateway is an in-process implementation of Gateway with the same
// version-token semantics as the Postgres one. It backs unit tests and the
// db.in_memory development mode; nothing survives a restart.
type MemoryGateway struct {
	mu   sync.Mutex
	data map[string]map[string]Record
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		data: map[string]map[string]Record{
			CollectionProfiles:      {},
			CollectionDeposits:      {},
			CollectionVerifications: {},
		},
	}
}

// Seed inserts a record directly, bypassing batch semantics. A zero version
// is stamped with the current time.
func (m *MemoryGateway) Seed(collection string, record Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if record.Version.IsZero() {
		record.Version = time.Now().UTC().Truncate(time.Microsecond)
	}
	m.data[collection][record.ID] = record.Clone()
}

func (m *MemoryGateway) GetOne(ctx context.Context, collection, id string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.data[collection]
	if !ok {
		return nil, classify(fmt.Errorf("unknown collection %q", collection))
	}

	record, ok := rows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}

	clone := record.Clone()
	return &clone, nil
}

func (m *MemoryGateway) GetMany(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, classify(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.data[collection]
	if !ok {
		return nil, classify(fmt.Errorf("unknown collection %q", collection))
	}

	var records []Record
	for _, record := range rows {
		if matchesFilter(record, filter) {
			records = append(records, record.Clone())
		}
	}

	sortRecords(records, filter)

	if filter.Limit > 0 && uint64(len(records)) > filter.Limit {
		records = records[:filter.Limit]
	}

	return records, nil
}

func (m *MemoryGateway) WriteBatch(ctx context.Context, ops []WriteOp) (time.Time, error) {
	if len(ops) == 0 {
		return time.Time{}, nil
	}
	if err := ctx.Err(); err != nil {
		return time.Time{}, classify(err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Validate every op before touching anything so a failure mid-batch
	// cannot leave partial effects behind.
	for _, op := range ops {
		rows, ok := m.data[op.Collection]
		if !ok {
			return time.Time{}, classify(fmt.Errorf("unknown collection %q", op.Collection))
		}

		switch op.Kind {
		case OpInsert:
			if _, exists := rows[op.ID]; exists {
				return time.Time{}, fmt.Errorf("%w: duplicate id %s/%s", ErrBackend, op.Collection, op.ID)
			}
		case OpUpdate, OpDelete:
			current, exists := rows[op.ID]
			if !exists {
				return time.Time{}, fmt.Errorf("%w: %s/%s", ErrNotFound, op.Collection, op.ID)
			}
			if !current.Version.Equal(op.Version) {
				return time.Time{}, fmt.Errorf("%w: %s/%s", ErrConflict, op.Collection, op.ID)
			}
		default:
			return time.Time{}, classify(fmt.Errorf("unknown write kind %q", op.Kind))
		}
	}

	commitAt := time.Now().UTC().Truncate(time.Microsecond)

	for _, op := range ops {
		rows := m.data[op.Collection]
		switch op.Kind {
		case OpInsert:
			record := Record{ID: op.ID, Version: commitAt, Fields: op.Payload}
			rows[op.ID] = record.Clone()
		case OpUpdate:
			updated := rows[op.ID].Clone()
			for k, v := range op.Payload {
				updated.Fields[k] = v
			}
			updated.Version = commitAt
			rows[op.ID] = updated
		case OpDelete:
			delete(rows, op.ID)
		}
	}

	return commitAt, nil
}

func matchesFilter(record Record, filter Filter) bool {
	for key, want := range filter.Eq {
		got, ok := record.Fields[key]
		if !ok || !valuesEqual(got, want) {
			return false
		}
	}
	return true
}

func sortRecords(records []Record, filter Filter) {
	if filter.OrderBy == "" {
		sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
		return
	}

	less := func(i, j int) bool {
		a, b := records[i].Fields[filter.OrderBy], records[j].Fields[filter.OrderBy]
		switch av := a.(type) {
		case time.Time:
			if bv, ok := b.(time.Time); ok {
				return av.Before(bv)
			}
		case string:
			if bv, ok := b.(string); ok {
				return av < bv
			}
		}
		return records[i].ID < records[j].ID
	}

	if filter.Descending {
		sort.Slice(records, func(i, j int) bool { return less(j, i) })
		return
	}
	sort.Slice(records, less)
}

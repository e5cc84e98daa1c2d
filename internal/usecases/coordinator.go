package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bitrust/admin-backend/internal/store"
)

// ErrPreconditionFailed reports a business rule that did not hold against
// the state captured at read time. No writes were attempted.
var ErrPreconditionFailed = errors.New("precondition failed")

// Params carries the caller-supplied inputs of an operation: the target id
// and, for patch-style operations, the validated column changes.
type Params struct {
	ID    string
	Patch map[string]any
}

// State is the snapshot an operation read, keyed by collection. Preconditions
// and write-set computation see exactly this state; the write batch fails
// with a conflict if any captured row changed before commit.
type State struct {
	records map[string]*store.Record
	lists   map[string][]store.Record
}

func newState() *State {
	return &State{
		records: make(map[string]*store.Record),
		lists:   make(map[string][]store.Record),
	}
}

func (s *State) put(collection string, record *store.Record) {
	s.records[collection+"/"+record.ID] = record
}

func (s *State) putList(collection string, records []store.Record) {
	s.lists[collection] = records
}

// Record returns a captured row, or nil if the operation never read it.
func (s *State) Record(collection, id string) *store.Record {
	return s.records[collection+"/"+id]
}

// List returns the rows captured by a read-many, in read order.
func (s *State) List(collection string) []store.Record {
	return s.lists[collection]
}

// Operation is a declarative multi-collection mutation: what to read, the
// rule that must hold, and the write set derived from the captured state.
type Operation struct {
	Name         string
	Reads        func(ctx context.Context, gateway store.Gateway, params Params) (*State, error)
	Precondition func(state *State, params Params) error
	Writes       func(state *State, params Params) ([]store.WriteOp, error)
}

// Outcome reports a committed operation: the post-commit state of every
// surviving written row, grouped by collection. Deleted rows are omitted.
type Outcome struct {
	Operation   string
	CommittedAt time.Time
	Records     map[string][]store.Record
}

// First returns the first committed record of a collection.
func (o *Outcome) First(collection string) (*store.Record, bool) {
	records := o.Records[collection]
	if len(records) == 0 {
		return nil, false
	}
	return &records[0], true
}

// Coordinator executes operations exactly once per invocation: capture
// state with version tokens, check the precondition, compute the write set,
// submit it as one atomic batch. Conflicts are surfaced, never retried;
// retrying from a fresh read is the caller's decision.
type Coordinator struct {
	logger  *slog.Logger
	gateway store.Gateway
}

func NewCoordinator(logger *slog.Logger, gateway store.Gateway) *Coordinator {
	return &Coordinator{logger: logger, gateway: gateway}
}

func (c *Coordinator) Execute(ctx context.Context, op Operation, params Params) (*Outcome, error) {
	state, err := op.Reads(ctx, c.gateway, params)
	if err != nil {
		return nil, err
	}

	if err = op.Precondition(state, params); err != nil {
		c.logger.InfoContext(ctx, "Operation precondition not met",
			"operation", op.Name, "id", params.ID, "reason", err)
		return nil, err
	}

	writes, err := op.Writes(state, params)
	if err != nil {
		return nil, err
	}

	// Cancellation before submission means nothing was written. Once the
	// batch is submitted it either fully commits or fully fails.
	if err = ctx.Err(); err != nil {
		return nil, fmt.Errorf("operation %s aborted before commit: %w", op.Name, err)
	}

	commitAt, err := c.gateway.WriteBatch(ctx, writes)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.logger.WarnContext(ctx, "Operation lost a concurrent update race",
				"operation", op.Name, "id", params.ID)
		}
		return nil, err
	}

	c.logger.InfoContext(ctx, "Operation committed",
		"operation", op.Name, "id", params.ID, "writes", len(writes))

	return buildOutcome(op.Name, state, writes, commitAt), nil
}

func buildOutcome(name string, state *State, writes []store.WriteOp, commitAt time.Time) *Outcome {
	outcome := &Outcome{
		Operation:   name,
		CommittedAt: commitAt,
		Records:     make(map[string][]store.Record),
	}

	for _, write := range writes {
		switch write.Kind {
		case store.OpDelete:
			continue
		case store.OpInsert:
			record := store.Record{ID: write.ID, Version: commitAt, Fields: write.Payload}
			outcome.Records[write.Collection] = append(outcome.Records[write.Collection], record.Clone())
		case store.OpUpdate:
			base := state.Record(write.Collection, write.ID)
			if base == nil {
				continue
			}
			updated := base.Clone()
			for k, v := range write.Payload {
				updated.Fields[k] = v
			}
			updated.Version = commitAt
			outcome.Records[write.Collection] = append(outcome.Records[write.Collection], updated)
		}
	}

	return outcome
}

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"

	"github.com/bitrust/admin-backend/pkg/database"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresGateway implements Gateway on the platform database. Batches run
// inside one transaction; every guarded write compares the row's updated_at
// against the version captured at read time, so concurrent admins cannot
// silently overwrite each other.
type PostgresGateway struct {
	logger     *slog.Logger
	db         tx.DBGetter
	transactor *tx.Transactor
}

func NewPostgresGateway(logger *slog.Logger, pg *database.Postgres) *PostgresGateway {
	return &PostgresGateway{
		logger:     logger,
		db:         pg.DBGetter,
		transactor: pg.Transactor,
	}
}

func (g *PostgresGateway) GetOne(ctx context.Context, collection, id string) (*Record, error) {
	sch, err := schemaFor(collection)
	if err != nil {
		return nil, classify(err)
	}

	query, args, err := psql.Select(sch.selectColumns()...).
		From(collection).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, classify(err)
	}

	record, err := sch.scanRecord(g.db(ctx).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query %s/%s: %w", collection, id, err))
	}

	return record, nil
}

func (g *PostgresGateway) GetMany(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	sch, err := schemaFor(collection)
	if err != nil {
		return nil, classify(err)
	}

	builder := psql.Select(sch.selectColumns()...).From(collection)
	if len(filter.Eq) > 0 {
		builder = builder.Where(sq.Eq(encodeFields(filter.Eq)))
	}
	if filter.OrderBy != "" {
		direction := " ASC"
		if filter.Descending {
			direction = " DESC"
		}
		builder = builder.OrderBy(filter.OrderBy + direction)
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, classify(err)
	}

	rows, err := g.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, classify(fmt.Errorf("failed to query %s: %w", collection, err))
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := sch.scanRecord(rows)
		if err != nil {
			return nil, classify(fmt.Errorf("failed to scan %s row: %w", collection, err))
		}
		records = append(records, *record)
	}
	if err = rows.Err(); err != nil {
		return nil, classify(fmt.Errorf("failed to read %s rows: %w", collection, err))
	}

	return records, nil
}

func (g *PostgresGateway) WriteBatch(ctx context.Context, ops []WriteOp) (time.Time, error) {
	if len(ops) == 0 {
		return time.Time{}, nil
	}

	// One commit timestamp for the whole batch; it becomes the new version
	// of every written row, so callers can report post-commit state without
	// a re-read.
	commitAt := time.Now().UTC().Truncate(time.Microsecond)

	err := g.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		for _, op := range ops {
			if err := g.applyOp(ctx, op, commitAt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return time.Time{}, classify(err)
	}

	return commitAt, nil
}

func (g *PostgresGateway) applyOp(ctx context.Context, op WriteOp, commitAt time.Time) error {
	if _, err := schemaFor(op.Collection); err != nil {
		return err
	}

	switch op.Kind {
	case OpInsert:
		payload := encodeFields(op.Payload)
		payload["id"] = op.ID
		payload["updated_at"] = commitAt

		query, args, err := psql.Insert(op.Collection).SetMap(payload).ToSql()
		if err != nil {
			return err
		}
		if _, err = g.db(ctx).Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert %s/%s: %w", op.Collection, op.ID, err)
		}

	case OpUpdate:
		query, args, err := psql.Update(op.Collection).
			SetMap(encodeFields(op.Payload)).
			Set("updated_at", commitAt).
			Where(sq.Eq{"id": op.ID, "updated_at": op.Version}).
			ToSql()
		if err != nil {
			return err
		}
		tag, err := g.db(ctx).Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update %s/%s: %w", op.Collection, op.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return g.guardFailure(ctx, op)
		}

	case OpDelete:
		query, args, err := psql.Delete(op.Collection).
			Where(sq.Eq{"id": op.ID, "updated_at": op.Version}).
			ToSql()
		if err != nil {
			return err
		}
		tag, err := g.db(ctx).Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to delete %s/%s: %w", op.Collection, op.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return g.guardFailure(ctx, op)
		}

	default:
		return fmt.Errorf("unknown write kind %q", op.Kind)
	}

	return nil
}

// guardFailure decides why a version-guarded write matched no rows: the row
// either changed since it was read or is gone entirely. Runs inside the
// batch transaction, so the probe sees the same snapshot the write did.
func (g *PostgresGateway) guardFailure(ctx context.Context, op WriteOp) error {
	var exists bool
	probe := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)", op.Collection)
	if err := g.db(ctx).QueryRow(ctx, probe, op.ID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to probe %s/%s: %w", op.Collection, op.ID, err)
	}

	if exists {
		g.logger.Warn("Write batch lost a version race",
			"collection", op.Collection, "id", op.ID, "read_version", op.Version)
		return fmt.Errorf("%w: %s/%s", ErrConflict, op.Collection, op.ID)
	}
	return fmt.Errorf("%w: %s/%s", ErrNotFound, op.Collection, op.ID)
}

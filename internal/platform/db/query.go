package db

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/firewatch/firewatch/internal/shared"
)

// Builder produces Postgres-flavoured statements.
var Builder = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Querier is satisfied by *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	uniqueViolation      = "23505"
	foreignKeyViolation  = "23503"
	serializationFailure = "40001"
)

// ListAndCount runs the page select and the count select inside one read-only
// snapshot so the total always agrees with the page.
func ListAndCount[T any](ctx context.Context, pool *pgxpool.Pool, page, count sq.SelectBuilder, scan func(pgx.CollectableRow) (T, error)) ([]T, int, error) {
	pageSQL, pageArgs, err := page.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("platform/db: build page query: %w", err)
	}
	countSQL, countArgs, err := count.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("platform/db: build count query: %w", err)
	}

	var (
		items []T
		total int
	)
	err = WithReadTx(ctx, pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, pageSQL, pageArgs...)
		if err != nil {
			return fmt.Errorf("platform/db: list: %w", err)
		}
		items, err = pgx.CollectRows(rows, scan)
		if err != nil {
			return fmt.Errorf("platform/db: scan list: %w", err)
		}
		if err := tx.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
			return fmt.Errorf("platform/db: count: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []T{}
	}
	return items, total, nil
}

// One runs a single-row select. A missing row becomes shared.ErrNotFound.
func One[T any](ctx context.Context, q Querier, b sq.SelectBuilder, scan func(pgx.CollectableRow) (T, error)) (T, error) {
	var zero T
	query, args, err := b.ToSql()
	if err != nil {
		return zero, fmt.Errorf("platform/db: build query: %w", err)
	}
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return zero, err
	}
	item, err := pgx.CollectExactlyOneRow(rows, scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, shared.ErrNotFound
		}
		return zero, err
	}
	return item, nil
}

// Exec runs a write statement. Zero affected rows becomes shared.ErrNotFound
// and constraint violations are translated by MapError.
func Exec(ctx context.Context, q Querier, stmt sq.Sqlizer) error {
	query, args, err := stmt.ToSql()
	if err != nil {
		return fmt.Errorf("platform/db: build statement: %w", err)
	}
	tag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// MapError translates driver errors into shared sentinels.
func MapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolation:
		return fmt.Errorf("%w: %s", shared.ErrDuplicate, pgErr.ConstraintName)
	case foreignKeyViolation:
		return fmt.Errorf("%w: %s", shared.ErrConflict, pgErr.ConstraintName)
	case serializationFailure:
		return fmt.Errorf("%w: concurrent update", shared.ErrConflict)
	default:
		return err
	}
}

// MemberOf reports whether the user belongs to the institution.
func MemberOf(ctx context.Context, q Querier, userID, institutionID string) (bool, error) {
	return BelongsTo(ctx, q, "users", userID, institutionID)
}

// BelongsTo reports whether the row id of table carries institutionID in its
// institution_id column.
func BelongsTo(ctx context.Context, q Querier, table, id, institutionID string) (bool, error) {
	query, args, err := Builder.Select("1").
		Prefix("SELECT EXISTS (").
		From(table).
		Where(sq.Eq{"id": id, "institution_id": institutionID}).
		Suffix(")").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("platform/db: build membership query: %w", err)
	}
	var ok bool
	if err := q.QueryRow(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("platform/db: membership: %w", err)
	}
	return ok, nil
}

// Null turns an empty string into SQL NULL.
func Null(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Str reads a nullable text column.
func Str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

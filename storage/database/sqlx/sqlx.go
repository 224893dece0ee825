// Package sqlxrepos implements the repositories on postgres with sqlx & squirrel.
package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/deepweb1970/gestionchantier-sub001/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// postgres error codes
const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
)

// crud runs the queries shared by every table; R is the row struct scanned by sqlx.
type crud[R any] struct {
	db        sqlx.ExtContext
	table     string
	columns   []string
	orderable []string
	notFound  error
}

// trapErr maps "no rows" to the not found error & constraint violations to validation errors.
func (c crud[R]) trapErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Cause(err) == sql.ErrNoRows {
		return c.notFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case foreignKeyViolation:
			return core.NewValidationError(errors.Errorf("%s is referenced by other records (%s)", c.table, pqErr.Constraint))
		case uniqueViolation:
			return core.NewValidationError(errors.Errorf("%s already exists (%s)", c.table, pqErr.Constraint))
		}
	}
	return errors.Wrap(err, msg)
}

func (c crud[R]) get(ctx context.Context, id string) (R, error) {
	var row R
	if _, err := uuid.Parse(id); err != nil {
		return row, c.notFound
	}
	return c.getWhere(ctx, sq.Eq{"id": id})
}

func (c crud[R]) getWhere(ctx context.Context, where sq.Sqlizer) (R, error) {
	var row R
	query, args, err := psql.Select(c.columns...).From(c.table).Where(where).Limit(1).ToSql()
	if err != nil {
		return row, errors.Wrap(err, "building query")
	}
	if err = sqlx.GetContext(ctx, c.db, &row, query, args...); err != nil {
		return row, c.trapErr(err, fmt.Sprintf("getting %s", c.table))
	}
	return row, nil
}

func (c crud[R]) query(ctx context.Context, where []sq.Sqlizer, ordering []core.DBOrdering, fallback ...core.DBOrdering) ([]R, error) {
	builder := psql.Select(c.columns...).From(c.table)
	for _, w := range where {
		builder = builder.Where(w)
	}
	if clause := core.OrderingClause(ordering, c.orderable, fallback...); clause != "" {
		builder = builder.OrderBy(clause)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	rows := make([]R, 0)
	if err = sqlx.SelectContext(ctx, c.db, &rows, query, args...); err != nil {
		return nil, c.trapErr(err, fmt.Sprintf("querying %s", c.table))
	}
	return rows, nil
}

func (c crud[R]) insert(ctx context.Context, values map[string]interface{}) error {
	query, args, err := psql.Insert(c.table).SetMap(values).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	_, err = c.db.ExecContext(ctx, query, args...)
	return c.trapErr(err, fmt.Sprintf("inserting into %s", c.table))
}

func (c crud[R]) update(ctx context.Context, id string, values map[string]interface{}) error {
	if _, err := uuid.Parse(id); err != nil {
		return c.notFound
	}
	delete(values, "id")
	delete(values, "created_at")

	query, args, err := psql.Update(c.table).SetMap(values).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return c.trapErr(err, fmt.Sprintf("updating %s", c.table))
	}
	if cnt, err := res.RowsAffected(); err == nil && cnt == 0 {
		return c.notFound
	}
	return nil
}

// delete ignores malformed IDs.
func (c crud[R]) delete(ctx context.Context, ids ...string) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}

	query, args, err := psql.Delete(c.table).Where(sq.Eq{"id": valid}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, c.trapErr(err, fmt.Sprintf("deleting %s", c.table))
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting deleted rows")
	}
	return int(cnt), nil
}

// search matches `value` against any of `columns`, ignoring case.
func search(value string, columns ...string) sq.Sqlizer {
	pattern := "%" + value + "%"
	or := make(sq.Or, 0, len(columns))
	for _, col := range columns {
		or = append(or, sq.ILike{col: pattern})
	}
	return or
}

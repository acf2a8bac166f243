package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/trezcool/ecole/core"
)

// pgUniqueViolation is the postgres SQLSTATE of a UNIQUE constraint violation.
const pgUniqueViolation = "23505"

type baseRepository struct {
	exec core.DBExecutor
}

func (repo baseRepository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 {
		return svcExec[0]
	}
	return repo.exec
}

// trapNoRowsErr maps sql "no rows" err to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if cause := errors.Cause(err); cause == sql.ErrNoRows || cause == notFound {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// isUniqueViolation reports whether err comes from a UNIQUE constraint, for any of the supported drivers.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// trapUniqueErr maps a UNIQUE constraint violation to duplicate
func trapUniqueErr(err, duplicate error, msg string) error {
	if isUniqueViolation(err) {
		return duplicate
	}
	return errors.Wrap(err, msg)
}

// insertReturningID runs a named INSERT ending with "RETURNING id".
func insertReturningID(ctx context.Context, exec core.DBExecutor, query string, arg interface{}) (int, error) {
	q, args, err := exec.BindNamed(query, arg)
	if err != nil {
		return 0, err
	}
	var id int
	if err = exec.QueryRowxContext(ctx, q, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// execNamedOne runs a named UPDATE or DELETE that must affect exactly one row.
func execNamedOne(ctx context.Context, exec core.DBExecutor, query string, arg interface{}, notFound error) error {
	q, args, err := exec.BindNamed(query, arg)
	if err != nil {
		return err
	}
	return execOne(ctx, exec, q, notFound, args...)
}

func execOne(ctx context.Context, exec core.DBExecutor, query string, notFound error, args ...interface{}) error {
	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// whereClause accumulates "?"-placeholder conditions joined with AND.
type whereClause struct {
	conds []string
	args  []interface{}
}

func (w *whereClause) add(cond string, args ...interface{}) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *whereClause) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// likeValue returns the lowered "%s%" pattern matched against LOWER(column).
func likeValue(s string) string {
	return "%" + strings.ToLower(s) + "%"
}

package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"releaseguard/internal/platform/database"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrMultipleRows = errors.New("multiple records matched")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

type querier struct {
	db      *sql.DB
	dialect database.Dialect
}

// conn returns the transaction bound to ctx by Store.WithTx, or the pool.
func (q *querier) conn(ctx context.Context) DBTX {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return q.db
}

func (q *querier) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return q.conn(ctx).ExecContext(ctx, Rebind(q.dialect, query), args...)
}

func (q *querier) query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return q.conn(ctx).QueryContext(ctx, Rebind(q.dialect, query), args...)
}

func (q *querier) queryRow(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return q.conn(ctx).QueryRowContext(ctx, Rebind(q.dialect, query), args...)
}

// Rebind rewrites ? placeholders to $1..$n for PostgreSQL. Queries in this
// package never contain a literal question mark.
func Rebind(dialect database.Dialect, query string) string {
	if dialect != database.Postgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Store groups the Account Store repositories over one connection pool.
type Store struct {
	db *sql.DB

	Organizations *OrganizationRepository
	Roles         *RoleRepository
	Users         *UserRepository
	Sessions      *SessionRepository
	AuditLogs     *AuditLogRepository
}

func NewStore(db *database.DB) *Store {
	q := &querier{db: db.DB, dialect: db.Dialect}
	return &Store{
		db:            db.DB,
		Organizations: &OrganizationRepository{q: q},
		Roles:         &RoleRepository{q: q},
		Users:         &UserRepository{q: q},
		Sessions:      &SessionRepository{q: q},
		AuditLogs:     &AuditLogRepository{q: q},
	}
}

// WithTx runs fn in a transaction. Repository calls made with the context
// passed to fn join the transaction. Nested calls reuse the outer one.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Package postgres implements internal/store's Store/UnitOfWork contract
// against a Postgres schema, grounded in Go idiom on cloudldap-cloudldap's
// repo layer (jmoiron/sqlx + lib/pq) rather than the original Python
// SQLAlchemy models it was ported from.
package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/MultifactorLab/MultiDirectory/internal/store"
)

// Store is the top-level Postgres-backed store.Store handle.
type Store struct {
	*queries
	conn *sqlx.DB
}

// Open wraps an already-connected *sqlx.DB. Callers build the DB with
// sqlx.Connect(ctx, "postgres", dsn) so connection errors surface before
// the server starts accepting LDAP connections.
func Open(conn *sqlx.DB) *Store {
	return &Store{queries: &queries{q: conn}, conn: conn}
}

// Begin opens a transactional UnitOfWork. Nested savepoints are available
// immediately via Savepoint/RollbackTo/ReleaseSavepoint.
func (s *Store) Begin(ctx context.Context) (store.UnitOfWork, error) {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: begin")
	}
	return &unitOfWork{queries: &queries{q: tx}, tx: tx}, nil
}

// unitOfWork adapts a *sqlx.Tx to store.UnitOfWork, using Postgres named
// SAVEPOINTs for the nested-transaction requirement of Modify's replace
// semantics.
type unitOfWork struct {
	*queries
	tx *sqlx.Tx
}

func (u *unitOfWork) Savepoint(ctx context.Context, name string) error {
	_, err := u.tx.ExecContext(ctx, "SAVEPOINT "+quoteIdent(name))
	return errors.Wrap(err, "postgres: savepoint")
}

func (u *unitOfWork) RollbackTo(ctx context.Context, name string) error {
	_, err := u.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+quoteIdent(name))
	return errors.Wrap(err, "postgres: rollback to savepoint")
}

func (u *unitOfWork) ReleaseSavepoint(ctx context.Context, name string) error {
	_, err := u.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+quoteIdent(name))
	return errors.Wrap(err, "postgres: release savepoint")
}

func (u *unitOfWork) Commit(ctx context.Context) error {
	return errors.Wrap(u.tx.Commit(), "postgres: commit")
}

func (u *unitOfWork) Rollback(ctx context.Context) error {
	err := u.tx.Rollback()
	if err == nil || err == sql.ErrTxDone {
		return nil
	}
	return errors.Wrap(err, "postgres: rollback")
}

// quoteIdent double-quotes a savepoint name. Names are always generated
// internally (see internal/handler/modify.go), never taken from client
// input, so this only guards against an accidental embedded quote rather
// than hostile input.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

var _ store.Store = (*Store)(nil)
var _ store.UnitOfWork = (*unitOfWork)(nil)

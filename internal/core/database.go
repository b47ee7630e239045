// AngelaMos | 2026
// database.go

package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/nthalt/user-api/internal/config"
)

const (
	pingTimeout        = 5 * time.Second
	retryDelay         = time.Second
	uniqueViolationSQL = "23505"
)

// Database owns the users table connection pool.
type Database struct {
	DB *sqlx.DB
}

// NewDatabase opens the pool and waits for Postgres to accept connections,
// retrying cfg.ConnectRetries times so the API can start alongside it.
func NewDatabase(
	ctx context.Context,
	cfg config.DatabaseConfig,
) (*Database, error) {
	db, err := sqlx.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	d := &Database{DB: db}
	if err := d.waitReady(ctx, cfg.ConnectRetries); err != nil {
		_ = db.Close() //nolint:errcheck // cleanup on connection failure
		return nil, err
	}

	return d, nil
}

func (d *Database) waitReady(ctx context.Context, retries int) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = d.Ping(ctx); err == nil {
			return nil
		}
		if attempt >= retries {
			return fmt.Errorf("connect to database after %d attempts: %w", attempt+1, err)
		}

		slog.WarnContext(ctx, "database not ready, retrying",
			"attempt", attempt+1,
			"error", err,
		)

		select {
		case <-time.After(retryDelay * time.Duration(attempt+1)):
		case <-ctx.Done():
			return fmt.Errorf("connect to database: %w", ctx.Err())
		}
	}
}

func (d *Database) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

func (d *Database) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := d.DB.PingContext(pingCtx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

func (d *Database) Stats() sql.DBStats {
	return d.DB.Stats()
}

// SQL exposes the underlying *sql.DB for the migration runner.
func (d *Database) SQL() *sql.DB {
	return d.DB.DB
}

// DBTX is satisfied by both *sqlx.DB and *sqlx.Tx, so repositories can be
// bound to either.
type DBTX interface {
	sqlx.ExtContext
	sqlx.ExecerContext
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(
		ctx context.Context,
		dest any,
		query string,
		args ...any,
	) error
}

// InTx runs fn in a transaction. Any error or panic from fn rolls the
// transaction back; otherwise it is committed.
func InTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback() //nolint:errcheck // best-effort rollback on panic
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %w (original: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// UniqueViolation reports whether err is a Postgres unique constraint
// failure and, if so, which constraint fired.
func UniqueViolation(err error) (constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationSQL {
		return "", false
	}
	return pgErr.ConstraintName, true
}

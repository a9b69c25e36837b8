package userstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/loginguard"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the credentials table. Identifiers are unique regardless
// of case.
const Schema = `
CREATE TABLE IF NOT EXISTS loginguard_users (
	id            TEXT PRIMARY KEY,
	identifier    TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	status        SMALLINT NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS loginguard_users_identifier_idx ON loginguard_users (lower(identifier));
`

const (
	findByIdentifierSQL = `SELECT id, password_hash, status FROM loginguard_users WHERE lower(identifier) = lower($1)`
	updatePasswordSQL   = `UPDATE loginguard_users SET password_hash = $1, updated_at = NOW() WHERE id = $2`
	insertUserSQL       = `INSERT INTO loginguard_users (id, identifier, password_hash, status) VALUES ($1, $2, $3, $4)`
)

const uniqueViolation = "23505"

// querier is the subset of *pgxpool.Pool the store uses.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Postgres reads credentials from the loginguard_users table.
type Postgres struct {
	q querier
}

var (
	_ loginguard.UserStore           = (*Postgres)(nil)
	_ loginguard.PasswordHashUpdater = (*Postgres)(nil)
)

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{q: pool}
}

// Connect opens a pool for dsn and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("userstore: open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("userstore: ping: %w", err)
	}
	return pool, nil
}

// EnsureSchema applies [Schema].
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	_, err := p.q.Exec(ctx, Schema)
	return err
}

func (p *Postgres) FindByIdentifier(ctx context.Context, identifier string) (loginguard.CredentialRecord, error) {
	var (
		rec    loginguard.CredentialRecord
		status int16
	)
	err := p.q.QueryRow(ctx, findByIdentifierSQL, identifier).Scan(&rec.UserID, &rec.PasswordHash, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return loginguard.CredentialRecord{}, loginguard.ErrUserNotFound
		}
		return loginguard.CredentialRecord{}, err
	}
	if status < 0 || status > 255 {
		return loginguard.CredentialRecord{}, fmt.Errorf("userstore: status %d out of range", status)
	}
	rec.Status = loginguard.AccountStatus(status)
	return rec, nil
}

func (p *Postgres) UpdatePasswordHash(ctx context.Context, userID, hash string) error {
	tag, err := p.q.Exec(ctx, updatePasswordSQL, hash, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return loginguard.ErrUserNotFound
	}
	return nil
}

// Insert adds an account.
func (p *Postgres) Insert(ctx context.Context, identifier string, rec loginguard.CredentialRecord) error {
	_, err := p.q.Exec(ctx, insertUserSQL, rec.UserID, identifier, rec.PasswordHash, int16(rec.Status))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateIdentifier
		}
		return err
	}
	return nil
}

package userstore

import (
	"context"
	"errors"
	"testing"

	"github.com/MrEthical07/loginguard"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *int16:
			*p = r.values[i].(int16)
		}
	}
	return nil
}

type fakeQuerier struct {
	row      fakeRow
	tag      pgconn.CommandTag
	execErr  error
	lastSQL  string
	lastArgs []any
}

func (f *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.lastSQL, f.lastArgs = sql, args
	return f.row
}

func (f *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.lastSQL, f.lastArgs = sql, args
	return f.tag, f.execErr
}

func TestPostgresFindByIdentifier(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{values: []any{"u1", "$argon2id$...", int16(loginguard.AccountDisabled)}}}
	p := &Postgres{q: q}

	rec, err := p.FindByIdentifier(context.Background(), "Alice")
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.UserID)
	assert.Equal(t, loginguard.AccountDisabled, rec.Status)
	assert.Equal(t, findByIdentifierSQL, q.lastSQL)
	assert.Equal(t, []any{"Alice"}, q.lastArgs)
}

func TestPostgresFindMapsNoRows(t *testing.T) {
	p := &Postgres{q: &fakeQuerier{row: fakeRow{err: pgx.ErrNoRows}}}

	_, err := p.FindByIdentifier(context.Background(), "nobody")
	assert.ErrorIs(t, err, loginguard.ErrUserNotFound)
}

func TestPostgresFindPassesThroughFailures(t *testing.T) {
	boom := errors.New("connection refused")
	p := &Postgres{q: &fakeQuerier{row: fakeRow{err: boom}}}

	_, err := p.FindByIdentifier(context.Background(), "alice")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, loginguard.ErrUserNotFound)
}

func TestPostgresUpdatePasswordHash(t *testing.T) {
	q := &fakeQuerier{tag: pgconn.NewCommandTag("UPDATE 1")}
	p := &Postgres{q: q}
	require.NoError(t, p.UpdatePasswordHash(context.Background(), "u1", "new-hash"))
	assert.Equal(t, []any{"new-hash", "u1"}, q.lastArgs)

	q.tag = pgconn.NewCommandTag("UPDATE 0")
	assert.ErrorIs(t, p.UpdatePasswordHash(context.Background(), "u9", "x"), loginguard.ErrUserNotFound)
}

func TestPostgresInsertDuplicate(t *testing.T) {
	p := &Postgres{q: &fakeQuerier{execErr: &pgconn.PgError{Code: uniqueViolation}}}

	err := p.Insert(context.Background(), "alice", loginguard.CredentialRecord{UserID: "u1"})
	assert.ErrorIs(t, err, ErrDuplicateIdentifier)
}

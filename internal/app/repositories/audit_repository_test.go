package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/circlehub/internal/app/models"
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
		case *int64:
			*p = r.values[i].(int64)
		}
	}
	return nil
}

type fakeQuerier struct {
	execErr error
	row     fakeRow
	sql     []string
	args    [][]any
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.sql = append(q.sql, sql)
	q.args = append(q.args, args)
	return pgconn.NewCommandTag("INSERT 0 1"), q.execErr
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.sql = append(q.sql, sql)
	q.args = append(q.args, args)
	return q.row
}

func TestTrialAuditRecord(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{values: []any{int64(42)}}}
	repo := NewTrialAuditRepository(q)

	entry := &models.TrialAudit{UserID: "u1", Scope: models.TrialScopeUser, IPAddress: "10.0.0.1", Eligible: true}
	require.NoError(t, repo.Record(context.Background(), entry))

	assert.EqualValues(t, 42, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())
	require.Len(t, q.sql, 1)
	assert.Contains(t, q.sql[0], "INSERT INTO trial_audit")
	assert.Contains(t, q.sql[0], "RETURNING id")
	assert.Contains(t, q.sql[0], "$8")
}

func TestTrialAuditCountByIP(t *testing.T) {
	q := &fakeQuerier{row: fakeRow{values: []any{int64(3)}}}
	repo := NewTrialAuditRepository(q)

	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n, err := repo.CountByIP(context.Background(), "10.0.0.1", since)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	require.Len(t, q.sql, 1)
	assert.Contains(t, q.sql[0], "SELECT count(*) FROM trial_audit")
	assert.Equal(t, []any{"10.0.0.1", since}, q.args[0])
}

func TestWebhookEventMarkProcessed(t *testing.T) {
	ctx := context.Background()

	t.Run("first delivery", func(t *testing.T) {
		repo := NewWebhookEventRepository(&fakeQuerier{})
		fresh, err := repo.MarkProcessed(ctx, "evt_1", "invoice.paid")
		require.NoError(t, err)
		assert.True(t, fresh)
	})

	t.Run("duplicate delivery", func(t *testing.T) {
		dup := &pgconn.PgError{Code: "23505", ConstraintName: "webhook_events_pkey"}
		repo := NewWebhookEventRepository(&fakeQuerier{execErr: dup})
		fresh, err := repo.MarkProcessed(ctx, "evt_1", "invoice.paid")
		require.NoError(t, err)
		assert.False(t, fresh)
	})

	t.Run("database failure", func(t *testing.T) {
		repo := NewWebhookEventRepository(&fakeQuerier{execErr: errors.New("connection reset")})
		_, err := repo.MarkProcessed(ctx, "evt_1", "invoice.paid")
		assert.Error(t, err)
	})
}

package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yigit/circlehub/internal/app/models"
	"github.com/yigit/circlehub/internal/pkg/dberrors"
	"github.com/yigit/circlehub/internal/pkg/helpers"
	"github.com/yigit/circlehub/internal/pkg/logger"
)

// PgxQuerier is the subset of *pgxpool.Pool the ledger repositories use
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgTrialAuditRepository appends trial eligibility decisions to trial_audit
type PgTrialAuditRepository struct {
	db PgxQuerier
	sb squirrel.StatementBuilderType
}

func NewTrialAuditRepository(db PgxQuerier) *PgTrialAuditRepository {
	return &PgTrialAuditRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Record inserts entry and fills its ID and CreatedAt
func (r *PgTrialAuditRepository) Record(ctx context.Context, entry *models.TrialAudit) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	sql, args, err := r.sb.Insert("trial_audit").
		Columns("user_id", "scope", "community_id", "ip_address", "user_agent", "eligible", "reason", "created_at").
		Values(entry.UserID, entry.Scope, helpers.GetNullString(entry.CommunityID), entry.IPAddress,
			entry.UserAgent, entry.Eligible, entry.Reason, entry.CreatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build trial audit insert: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&entry.ID); err != nil {
		logger.Error().Err(err).Str("userID", entry.UserID).Msg("Error recording trial audit")
		return fmt.Errorf("error recording trial audit: %w", err)
	}
	return nil
}

// CountByIP counts trial checks from ip since the given time
func (r *PgTrialAuditRepository) CountByIP(ctx context.Context, ip string, since time.Time) (int64, error) {
	sql, args, err := r.sb.Select("count(*)").
		From("trial_audit").
		Where(squirrel.Eq{"ip_address": ip}).
		Where(squirrel.GtOrEq{"created_at": since}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build trial audit count: %w", err)
	}

	var n int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error counting trial audit rows: %w", err)
	}
	return n, nil
}

const webhookEventsPkey = "webhook_events_pkey"

// PgWebhookEventRepository records processed gateway events in webhook_events
type PgWebhookEventRepository struct {
	db PgxQuerier
	sb squirrel.StatementBuilderType
}

func NewWebhookEventRepository(db PgxQuerier) *PgWebhookEventRepository {
	return &PgWebhookEventRepository{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *PgWebhookEventRepository) MarkProcessed(ctx context.Context, eventID, eventType string) (bool, error) {
	sql, args, err := r.sb.Insert("webhook_events").
		Columns("event_id", "event_type", "received_at").
		Values(eventID, eventType, time.Now().UTC()).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build webhook event insert: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, webhookEventsPkey) {
			return false, nil
		}
		logger.Error().Err(err).Str("eventID", eventID).Msg("Error recording webhook event")
		return false, fmt.Errorf("error recording webhook event: %w", err)
	}
	return true, nil
}

// Forget removes eventID so a redelivery is processed again
func (r *PgWebhookEventRepository) Forget(ctx context.Context, eventID string) error {
	sql, args, err := r.sb.Delete("webhook_events").
		Where(squirrel.Eq{"event_id": eventID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build webhook event delete: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("error deleting webhook event: %w", err)
	}
	return nil
}

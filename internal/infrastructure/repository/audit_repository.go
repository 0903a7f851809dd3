package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/audit"
	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
)

// AuditRepository stores delivery audit events in PostgreSQL. Writes are
// append-only; the query surface is paged and ordered newest first.
type AuditRepository struct {
	db *pgxpool.Pool
}

// NewAuditRepository creates a new audit event repository
func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one audit event.
func (r *AuditRepository) Append(ctx context.Context, event *audit.Event) error {
	if event == nil {
		return fmt.Errorf("%w: event cannot be nil", ErrInvalidInput)
	}

	query := `
		INSERT INTO audit_events (
			id, user_id, target_id, occurred_at, channel,
			subject, body, severity, kind, item_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Exec(ctx, query,
		event.ID, event.UserID, event.TargetID, event.Timestamp, string(event.Channel),
		event.Subject, event.Body, string(event.Severity), string(event.Kind), event.ItemCount,
	)
	if err != nil {
		return fmt.Errorf("failed to append audit event: %w", err)
	}
	return nil
}

// ListByTarget retrieves events for one delivery target.
func (r *AuditRepository) ListByTarget(ctx context.Context, targetID uuid.UUID, page audit.Page) ([]*audit.Event, int, error) {
	return r.list(ctx, `target_id = $1`, []any{targetID}, page)
}

// ListByUser retrieves events for one user across all their targets.
func (r *AuditRepository) ListByUser(ctx context.Context, userID uuid.UUID, page audit.Page) ([]*audit.Event, int, error) {
	return r.list(ctx, `user_id = $1`, []any{userID}, page)
}

// ListByTimeRange retrieves events whose timestamp falls in [from, to).
func (r *AuditRepository) ListByTimeRange(ctx context.Context, from, to time.Time, page audit.Page) ([]*audit.Event, int, error) {
	return r.list(ctx, `occurred_at >= $1 AND occurred_at < $2`, []any{from, to}, page)
}

// ListByKind retrieves events of one kind.
func (r *AuditRepository) ListByKind(ctx context.Context, kind audit.Kind, page audit.Page) ([]*audit.Event, int, error) {
	return r.list(ctx, `kind = $1`, []any{string(kind)}, page)
}

// list runs the shared paged query. The total count covers the whole filter,
// not just the returned page.
func (r *AuditRepository) list(ctx context.Context, where string, args []any, page audit.Page) ([]*audit.Event, int, error) {
	page = page.Normalize()

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM audit_events WHERE %s`, where)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit events: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, target_id, occurred_at, channel,
			subject, body, severity, kind, item_count
		FROM audit_events
		WHERE %s
		ORDER BY occurred_at DESC, id
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)

	rows, err := r.db.Query(ctx, query, append(args, page.Limit, page.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit events: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func scanEvents(rows pgx.Rows) ([]*audit.Event, error) {
	var events []*audit.Event
	for rows.Next() {
		var e audit.Event
		var channel, severity, kind string
		err := rows.Scan(
			&e.ID, &e.UserID, &e.TargetID, &e.Timestamp, &channel,
			&e.Subject, &e.Body, &severity, &kind, &e.ItemCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		e.Channel = notification.Channel(channel)
		e.Severity = notification.Severity(severity)
		e.Kind = audit.Kind(kind)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit events: %w", err)
	}
	return events, nil
}

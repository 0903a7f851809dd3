package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
)

// SuppressionRepository stores suppression windows in PostgreSQL, one row per
// window keyed by (target_id, comparison_type, comparison_hash). It satisfies
// suppression.Persistence.
type SuppressionRepository struct {
	db *pgxpool.Pool
}

// NewSuppressionRepository creates a new suppression window repository
func NewSuppressionRepository(db *pgxpool.Pool) *SuppressionRepository {
	return &SuppressionRepository{db: db}
}

// GetSuppressionInfo retrieves the window record for the request's key, or nil
// when no window has ever been opened for it.
func (r *SuppressionRepository) GetSuppressionInfo(ctx context.Context, req notification.SuppressionRequest) (*notification.SuppressedItem, error) {
	query := `
		SELECT target_id, comparison_type, comparison_hash, comparison_property,
			start_time, window_minutes
		FROM suppression_windows
		WHERE target_id = $1 AND comparison_type = $2 AND comparison_hash = $3
	`

	var item notification.SuppressedItem
	err := r.db.QueryRow(ctx, query,
		req.Command.Contact.ID, notification.ComparisonTypeNotifyCommand, req.Key.Hash(),
	).Scan(
		&item.TargetID, &item.ComparisonType, &item.ComparisonHash,
		&item.ComparisonProperty, &item.StartTime, &item.WindowMinutes,
	)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get suppression window: %w", err)
	}

	item.StartTime = item.StartTime.UTC()
	return &item, nil
}

// SuppressStartingNow opens the window for the request's key, resetting an
// existing row in place. The upsert keeps concurrent deciders from racing on
// first occurrence: both writes land, last start time wins, and both items
// were already allowed through.
func (r *SuppressionRepository) SuppressStartingNow(ctx context.Context, req notification.SuppressionRequest) error {
	query := `
		INSERT INTO suppression_windows (
			target_id, comparison_type, comparison_hash, comparison_property,
			start_time, window_minutes
		) VALUES ($1, $2, $3, $4, NOW(), $5)
		ON CONFLICT (target_id, comparison_type, comparison_hash)
		DO UPDATE SET
			comparison_property = EXCLUDED.comparison_property,
			start_time = EXCLUDED.start_time,
			window_minutes = EXCLUDED.window_minutes
	`

	_, err := r.db.Exec(ctx, query,
		req.Command.Contact.ID, notification.ComparisonTypeNotifyCommand,
		req.Key.Hash(), req.Key.PropertyString(), int(req.Window.Minutes()),
	)
	if err != nil {
		return fmt.Errorf("failed to open suppression window: %w", err)
	}
	return nil
}

// PurgeExpired deletes windows that ended before now. Expired rows are
// harmless for correctness, this is housekeeping only.
func (r *SuppressionRepository) PurgeExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM suppression_windows
		WHERE start_time + make_interval(mins => window_minutes) < NOW()
	`

	tag, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired windows: %w", err)
	}
	return tag.RowsAffected(), nil
}

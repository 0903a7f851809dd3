package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	domerrors "github.com/davidleathers/dependable-notify-backend/internal/domain/errors"
	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
)

// DirectoryRepository serves notification contacts and groups from PostgreSQL.
// The per-contact regulation schedule is stored as JSONB so shift tables can
// change shape without a migration.
type DirectoryRepository struct {
	db *pgxpool.Pool
}

// NewDirectoryRepository creates a new contact directory repository
func NewDirectoryRepository(db *pgxpool.Pool) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

// GetContact retrieves a contact by ID.
func (r *DirectoryRepository) GetContact(ctx context.Context, id uuid.UUID) (*notification.NotificationContact, error) {
	query := `
		SELECT id, user_id, timezone_id, active,
			phone, email, email_name, toast_user_id, schedule
		FROM notification_contacts
		WHERE id = $1
	`

	var c notification.NotificationContact
	var scheduleJSON []byte
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.TimezoneID, &c.Active,
		&c.Addresses.Phone, &c.Addresses.Email, &c.Addresses.EmailName,
		&c.Addresses.ToastUserID, &scheduleJSON,
	)
	if err != nil {
		if IsNotFound(err) {
			return nil, domerrors.ErrContactNotFound
		}
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	if err := json.Unmarshal(scheduleJSON, &c.Schedule); err != nil {
		return nil, fmt.Errorf("failed to unmarshal contact schedule: %w", err)
	}
	return &c, nil
}

// GetGroup retrieves a group by ID.
func (r *DirectoryRepository) GetGroup(ctx context.Context, id uuid.UUID) (*notification.NotificationGroup, error) {
	query := `
		SELECT id, active, member_ids, tags
		FROM notification_groups
		WHERE id = $1
	`

	var g notification.NotificationGroup
	err := r.db.QueryRow(ctx, query, id).Scan(&g.ID, &g.Active, &g.MemberIDs, &g.Tags)
	if err != nil {
		if IsNotFound(err) {
			return nil, domerrors.ErrGroupNotFound
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return &g, nil
}

// UpsertContact writes a contact row, replacing any existing row with the
// same id.
func (r *DirectoryRepository) UpsertContact(ctx context.Context, c *notification.NotificationContact) error {
	if c == nil {
		return fmt.Errorf("%w: contact cannot be nil", ErrInvalidInput)
	}

	scheduleJSON, err := json.Marshal(c.Schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal contact schedule: %w", err)
	}

	query := `
		INSERT INTO notification_contacts (
			id, user_id, timezone_id, active,
			phone, email, email_name, toast_user_id, schedule
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			timezone_id = EXCLUDED.timezone_id,
			active = EXCLUDED.active,
			phone = EXCLUDED.phone,
			email = EXCLUDED.email,
			email_name = EXCLUDED.email_name,
			toast_user_id = EXCLUDED.toast_user_id,
			schedule = EXCLUDED.schedule
	`

	_, err = r.db.Exec(ctx, query,
		c.ID, c.UserID, c.TimezoneID, c.Active,
		c.Addresses.Phone, c.Addresses.Email, c.Addresses.EmailName,
		c.Addresses.ToastUserID, scheduleJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert contact: %w", err)
	}
	return nil
}

// UpsertGroup writes a group row, replacing any existing row with the same id.
func (r *DirectoryRepository) UpsertGroup(ctx context.Context, g *notification.NotificationGroup) error {
	if g == nil {
		return fmt.Errorf("%w: group cannot be nil", ErrInvalidInput)
	}

	query := `
		INSERT INTO notification_groups (id, active, member_ids, tags)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			active = EXCLUDED.active,
			member_ids = EXCLUDED.member_ids,
			tags = EXCLUDED.tags
	`

	_, err := r.db.Exec(ctx, query, g.ID, g.Active, g.MemberIDs, g.Tags)
	if err != nil {
		return fmt.Errorf("failed to upsert group: %w", err)
	}
	return nil
}

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/dependable-notify-backend/internal/domain/notification"
)

// SuppressionStore keeps suppression windows in Redis. Each window is one
// JSON value whose TTL equals the window length, so expiry needs no sweeper:
// a missing key and a never-opened window look the same to the decider, and
// both mean allow.
type SuppressionStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSuppressionStore creates a Redis-backed suppression window store.
func NewSuppressionStore(client *redis.Client, logger *zap.Logger) (*SuppressionStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &SuppressionStore{client: client, logger: logger}, nil
}

func windowKey(targetID, comparisonType, comparisonHash string) string {
	return fmt.Sprintf("suppress:%s:%s:%s", targetID, comparisonType, comparisonHash)
}

// GetSuppressionInfo returns the stored window for the request's key, or nil
// when none exists or the TTL already reaped it.
func (s *SuppressionStore) GetSuppressionInfo(ctx context.Context, req notification.SuppressionRequest) (*notification.SuppressedItem, error) {
	key := windowKey(req.Command.Contact.ID.String(), notification.ComparisonTypeNotifyCommand, req.Key.Hash())

	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		s.logger.Error("suppression window get failed", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var item notification.SuppressedItem
	if err := json.Unmarshal(payload, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal suppression window: %w", err)
	}
	return &item, nil
}

// SuppressStartingNow writes the window record with a TTL equal to the window
// length, resetting any existing record for the same key.
func (s *SuppressionStore) SuppressStartingNow(ctx context.Context, req notification.SuppressionRequest) error {
	item := notification.NewSuppressedItem(req, time.Now().UTC())
	key := windowKey(item.TargetID.String(), item.ComparisonType, item.ComparisonHash)

	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal suppression window: %w", err)
	}

	if err := s.client.Set(ctx, key, payload, req.Window).Err(); err != nil {
		s.logger.Error("suppression window set failed",
			zap.String("key", key),
			zap.Duration("ttl", req.Window),
			zap.Error(err))
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

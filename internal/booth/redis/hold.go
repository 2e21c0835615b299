package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"eventsphere/internal/logger"
)

const holdPrefix = "booth_hold:"

// Holds mirrors booth reservations as expiring Redis keys. The key carries
// both ids because an expired key has no value left to read.
type Holds struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewHolds(client *redis.Client, ttl time.Duration, log *logger.Logger) *Holds {
	return &Holds{Client: client, TTL: ttl, Logger: log}
}

// Enabled is false when Redis is absent or RESERVATION_HOLD_TTL is 0.
func (h *Holds) Enabled() bool {
	return h != nil && h.Client != nil && h.TTL > 0
}

func HoldKey(boothID, exhibitorID string) string {
	return holdPrefix + boothID + ":" + exhibitorID
}

// ParseHoldKey is the inverse of HoldKey.
func ParseHoldKey(key string) (boothID, exhibitorID string, ok bool) {
	if !strings.HasPrefix(key, holdPrefix) {
		return "", "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(key, holdPrefix), ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// Place starts the hold clock for a reservation that already won in the database.
func (h *Holds) Place(ctx context.Context, boothID, exhibitorID string) error {
	if !h.Enabled() {
		return nil
	}
	if err := h.Clear(ctx, boothID); err != nil {
		return err
	}
	return h.Client.Set(ctx, HoldKey(boothID, exhibitorID), time.Now().UTC().Format(time.RFC3339), h.TTL).Err()
}

// Clear drops any hold on boothID regardless of holder.
func (h *Holds) Clear(ctx context.Context, boothID string) error {
	if !h.Enabled() {
		return nil
	}
	keys, err := h.keysFor(ctx, boothID)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return h.Client.Del(ctx, keys...).Err()
}

// Holder returns the exhibitor currently holding boothID, if any.
func (h *Holds) Holder(ctx context.Context, boothID string) (string, bool, error) {
	if !h.Enabled() {
		return "", false, nil
	}
	keys, err := h.keysFor(ctx, boothID)
	if err != nil || len(keys) == 0 {
		return "", false, err
	}
	_, exhibitorID, ok := ParseHoldKey(keys[0])
	return exhibitorID, ok, nil
}

func (h *Holds) keysFor(ctx context.Context, boothID string) ([]string, error) {
	var keys []string
	iter := h.Client.Scan(ctx, 0, holdPrefix+boothID+":*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

// EnableExpiryEvents turns on expired-key notifications. Managed Redis
// offerings often forbid CONFIG SET, so failure is only a warning.
func (h *Holds) EnableExpiryEvents(ctx context.Context) {
	if !h.Enabled() {
		return
	}
	if err := h.Client.ConfigSet(ctx, "notify-keyspace-events", "Ex").Err(); err != nil {
		h.Logger.Warn("REDIS", fmt.Sprintf("Failed to enable keyspace notifications: %v", err))
		return
	}
	h.Logger.Info("REDIS", "Keyspace notifications enabled for expired events")
}

func (h *Holds) expiredChannel() string {
	return fmt.Sprintf("__keyevent@%d__:expired", h.Client.Options().DB)
}

// Watch calls onExpired for every hold key Redis expires, until ctx ends.
func (h *Holds) Watch(ctx context.Context, onExpired func(ctx context.Context, boothID, exhibitorID string)) error {
	if !h.Enabled() {
		<-ctx.Done()
		return nil
	}

	pubsub := h.Client.PSubscribe(ctx, h.expiredChannel())
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe to expired keys: %w", err)
	}
	h.Logger.Info("REDIS", fmt.Sprintf("Subscribed to %s", h.expiredChannel()))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			boothID, exhibitorID, ok := ParseHoldKey(msg.Payload)
			if !ok {
				continue
			}
			h.Logger.LogBooth("hold_expired", boothID, fmt.Sprintf("hold by %s expired", exhibitorID))
			onExpired(ctx, boothID, exhibitorID)
		}
	}
}

// Package notify publishes per-user change events. Delivery is best-effort
// and at-most-once: Publish never blocks on the broker and never fails the
// caller.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/filevault/internal/logging"
	"github.com/redis/go-redis/v9"
)

const (
	EventFileUploaded = "file:uploaded"
	EventFileDeleted  = "file:deleted"
	EventFileRestored = "file:restored"
	EventFileVersion  = "file:version"
)

const publishTimeout = 5 * time.Second

// UserChannel is the channel scoped to one user.
func UserChannel(userID string) string {
	return "user:" + userID
}

type Publisher interface {
	Publish(ctx context.Context, userID, event string, payload any)
}

// Message is the envelope written to the channel.
type Message struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sentAt"`
}

// RedisClient is the subset of *redis.Client used by RedisPublisher.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisPublisher fans events out over Redis pub/sub. Each publish runs in
// its own goroutine; Close waits for the in-flight ones.
type RedisPublisher struct {
	client RedisClient
	log    logging.Logger
	wg     sync.WaitGroup
}

func NewRedisPublisher(client RedisClient, log logging.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, log: log.With("module", "notify")}
}

func (p *RedisPublisher) Publish(ctx context.Context, userID, event string, payload any) {
	msg, err := encode(event, payload)
	if err != nil {
		p.log.Error(ctx, "encode event", "event", event, "error", err)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()

		if err := p.client.Publish(ctx, UserChannel(userID), msg).Err(); err != nil {
			p.log.Warn(ctx, "publish event", "event", event, "user_id", userID, "error", err)
		}
	}()
}

// Close waits for pending publishes.
func (p *RedisPublisher) Close() {
	p.wg.Wait()
}

func encode(event string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return json.Marshal(Message{Event: event, Payload: raw, SentAt: time.Now().UTC()})
}

// LogPublisher only logs events. It is used when no broker is configured.
type LogPublisher struct {
	log logging.Logger
}

func NewLogPublisher(log logging.Logger) *LogPublisher {
	return &LogPublisher{log: log.With("module", "notify")}
}

func (p *LogPublisher) Publish(ctx context.Context, userID, event string, _ any) {
	p.log.Debug(ctx, "event", "channel", UserChannel(userID), "event", event)
}

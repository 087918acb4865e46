package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "match:reminders"

type redisSender struct {
	client  *redis.Client
	channel string
}

// NewRedisSender publishes every reminder as JSON on channel for a mail worker to pick up.
func NewRedisSender(client *redis.Client, channel string) Sender {
	if channel == "" {
		channel = DefaultChannel
	}

	return &redisSender{
		client:  client,
		channel: channel,
	}
}

func (that *redisSender) SendTurnReminder(ctx context.Context, reminder Reminder) error {
	payload, err := json.Marshal(reminder)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder: %w", err)
	}

	if err = that.client.Publish(ctx, that.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish reminder: %w", err)
	}

	return nil
}

// Package eventbus hands committed bridge events to whoever relays them.
// The persisted event log stays authoritative; publishers are best effort.
package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gomodule/redigo/redis"
	"github.com/hashicorp/go-hclog"

	"gotokenbridge/types"
)

// DefaultChannel is both the Redis list events are appended to and the
// pub/sub channel they are announced on.
const DefaultChannel = "bridge:events"

type Publisher interface {
	Publish(ctx context.Context, ev types.Event) error
}

// Log writes every event to a logger.
type Log struct {
	logger hclog.Logger
}

func NewLog(logger hclog.Logger) *Log {
	return &Log{logger: logger.Named("events")}
}

func (l *Log) Publish(_ context.Context, ev types.Event) error {
	l.logger.Info("event", "seq", ev.Seq, "event", ev.Name, "payload", string(ev.Payload))
	return nil
}

// Redis appends events to a list, so late relayers can catch up, and
// announces them on a channel with the same name.
type Redis struct {
	pool    *redis.Pool
	channel string
}

func NewRedis(pool *redis.Pool, channel string) *Redis {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Redis{pool: pool, channel: channel}
}

func (r *Redis) Publish(ctx context.Context, ev types.Event) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("cannot marshal event %d: %w", ev.Seq, err)
	}

	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.Send("MULTI"); err != nil {
		return err
	}
	if err := conn.Send("RPUSH", r.channel, msg); err != nil {
		return err
	}
	if err := conn.Send("PUBLISH", r.channel, msg); err != nil {
		return err
	}
	if _, err := conn.Do("EXEC"); err != nil {
		return fmt.Errorf("error Redis EXEC: %w", err)
	}
	return nil
}

// Backlog returns the events appended to the list, oldest first.
func (r *Redis) Backlog(ctx context.Context) ([]types.Event, error) {
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	values, err := redis.ByteSlices(conn.Do("LRANGE", r.channel, 0, -1))
	if err != nil {
		return nil, err
	}

	events := make([]types.Event, 0, len(values))
	for _, v := range values {
		var ev types.Event
		if err := json.Unmarshal(v, &ev); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}

// Fanout publishes to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, ev types.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Stream id that precedes every entry, reading after it starts from the beginning
const InitialId = "0"

// Field of the stream entry that holds the JSON payload
const payloadField = "payload"

// Stream entry
type Event[T any] struct {
	Id      string
	Payload T
}

// Blocks until there's an entry after lastId and returns it.
// Read timeouts are not errors, the read is issued again.
func Consume[T any](ctx context.Context, broker *Broker, key string, lastId string) (event *Event[T], err error) {
	for {
		err = ctx.Err()
		if err != nil {
			return
		}

		var streams []redis.XStream
		err = broker.retry(ctx).Run(func() (err error) {
			streams, err = broker.client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{key, lastId},
				Count:   1,
				Block:   broker.config.Broker.ConsumeTimeout,
			}).Result()
			if errors.Is(err, redis.Nil) {
				// Timeout, nothing new
				streams = nil
				return nil
			}
			return err
		})
		if err != nil {
			if ctx.Err() != nil {
				// Cancelled while reading
				err = ctx.Err()
			}
			return
		}

		if len(streams) == 0 || len(streams[0].Messages) == 0 {
			continue
		}

		return decode[T](streams[0].Messages[0])
	}
}

func decode[T any](msg redis.XMessage) (event *Event[T], err error) {
	raw, ok := msg.Values[payloadField]
	if !ok {
		return nil, fmt.Errorf("%w: entry %s has no %s field", ErrInvalidPayload, msg.ID, payloadField)
	}

	str, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("%w: entry %s has a non string payload", ErrInvalidPayload, msg.ID)
	}

	event = &Event[T]{Id: msg.ID}
	err = json.Unmarshal([]byte(str), &event.Payload)
	if err != nil {
		return nil, fmt.Errorf("%w: entry %s: %w", ErrInvalidPayload, msg.ID, err)
	}

	return
}

// Appends payload to the stream, returns id of the new entry
func Produce[T any](ctx context.Context, broker *Broker, key string, payload T) (id string, err error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return
	}

	err = broker.retry(ctx).Run(func() (err error) {
		id, err = broker.client.XAdd(ctx, &redis.XAddArgs{
			Stream: key,
			Values: map[string]any{payloadField: string(buf)},
		}).Result()
		return
	})
	return
}

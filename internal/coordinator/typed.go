package coordinator

import (
	"context"
	"encoding/json"
	"fmt"

	"go-feed-sync/internal/cache"
	"go-feed-sync/internal/syncerr"
)

// JSONFetcher adapts a typed fetch to a Fetcher storing the JSON encoding of
// the decoded value
func JSONFetcher[T any](fetch func(ctx context.Context) (T, error)) Fetcher {
	return func(ctx context.Context) ([]byte, error) {
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		payload, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode payload: %w", err)
		}
		return payload, nil
	}
}

// Decode unmarshals a stored payload
func Decode[T any](key string, payload []byte) (T, error) {
	var value T
	if err := json.Unmarshal(payload, &value); err != nil {
		return value, &syncerr.DecodeError{Resource: cache.Resource(key), Err: err}
	}
	return value, nil
}

// LoadAs is Load for typed values. On a discarded result the zero value is
// returned and must not be applied. A cached payload that no longer decodes is
// invalidated and reported as a DecodeError.
func LoadAs[T any](ctx context.Context, c *Coordinator, key string, fetch func(ctx context.Context) (T, error), opts Options) (T, Result, error) {
	var zero T

	res, err := c.Load(ctx, key, JSONFetcher(fetch), opts)
	if err != nil || !res.Updated() {
		return zero, res, err
	}

	value, err := Decode[T](key, res.Payload)
	if err != nil {
		c.invalidate(key, res.Generation)
		return zero, res, err
	}
	return value, res, nil
}

package events

import (
	"context"
	"errors"
)

// Fanout publishes every event to all of its publishers and joins their
// errors.
type Fanout []Publisher

// Publish implements Publisher.
func (f Fanout) Publish(ctx context.Context, event Event) error {
	var err error
	for _, p := range f {
		err = errors.Join(err, p.Publish(ctx, event))
	}
	return err
}

// Close closes every publisher.
func (f Fanout) Close() error {
	var err error
	for _, p := range f {
		err = errors.Join(err, p.Close())
	}
	return err
}

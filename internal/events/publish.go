// Package events publishes model lifecycle events to the message bus.
package events

import "context"

// Publisher is the minimal event-publishing seam.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte) error
	Close() error
}

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

type natsPublisher struct {
	nc *nats.Conn
}

// NewNATSPublisher connects to url, nats.DefaultURL when empty. The
// connection reconnects indefinitely; publishes made while disconnected are
// buffered by the client.
func NewNATSPublisher(ctx context.Context, url, name string) (Publisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}
	if deadline, ok := ctx.Deadline(); ok {
		opts = append(opts, nats.Timeout(time.Until(deadline)))
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return &natsPublisher{nc: nc}, nil
}

func (p *natsPublisher) Publish(ctx context.Context, subject string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.nc.Publish(subject, payload)
}

// Close flushes buffered messages before closing the connection.
func (p *natsPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	err := p.nc.Drain()
	if err != nil {
		p.nc.Close()
	}
	return err
}

package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-logr/logr"

	"github.com/anvil-platform/composer/internal/commission"
)

const DefaultSubjectPrefix = "composer.lifecycle"

// Event is the payload published for every processed commission request.
type Event struct {
	ID         string    `json:"id"`
	Source     string    `json:"source,omitempty"`
	Model      string    `json:"model"`
	Direction  string    `json:"direction"`
	Succeeded  bool      `json:"succeeded"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"durationMs"`
	Time       time.Time `json:"time"`
}

// Listener turns commission results into events. It is a
// commission.Listener; a failed publish is logged and dropped.
type Listener struct {
	publisher Publisher
	log       logr.Logger
	prefix    string
	source    string
	now       func() time.Time
}

// NewListener publishes to "<prefix>.commission" and
// "<prefix>.decommission". source identifies this process in every event.
func NewListener(log logr.Logger, publisher Publisher, prefix, source string) *Listener {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Listener{publisher: publisher, log: log, prefix: prefix, source: source, now: time.Now}
}

var _ commission.Listener = (*Listener)(nil)

func (l *Listener) Completed(r commission.Result) {
	ev := Event{
		ID:         r.ID.String(),
		Source:     l.source,
		Model:      r.Model,
		Direction:  r.Direction.String(),
		Succeeded:  r.Succeeded(),
		DurationMS: r.Duration.Milliseconds(),
		Time:       l.now().UTC(),
	}
	if r.Err != nil {
		ev.Error = r.Err.Error()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		l.log.Error(err, "encode lifecycle event", "model", r.Model)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	subject := l.prefix + "." + ev.Direction
	if err := l.publisher.Publish(ctx, subject, payload); err != nil {
		l.log.Error(err, "publish lifecycle event", "subject", subject, "model", r.Model)
	}
}

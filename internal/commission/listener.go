package commission

import (
	"time"

	"github.com/google/uuid"
)

// Result describes one processed request.
type Result struct {
	ID        uuid.UUID
	Model     string
	Direction Direction
	Duration  time.Duration
	Err       error
}

func (r Result) Succeeded() bool { return r.Err == nil }

// Listener observes processed requests. Completed runs on the worker
// goroutine and must not block.
type Listener interface {
	Completed(Result)
}

type ListenerFunc func(Result)

func (f ListenerFunc) Completed(r Result) { f(r) }

package commission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeTarget struct {
	name    string
	gate    chan struct{}
	err     error
	panics  bool
	honour  bool
	started chan struct{}

	mu       sync.Mutex
	commits  int
	decommit int
}

func newTarget(name string) *fakeTarget {
	return &fakeTarget{name: name, started: make(chan struct{}, 1)}
}

func (f *fakeTarget) QualifiedName() string { return f.name }

func (f *fakeTarget) Commission(ctx context.Context) error {
	f.started <- struct{}{}
	if f.panics {
		panic("boom")
	}
	if f.gate != nil {
		if f.honour {
			select {
			case <-f.gate:
			case <-ctx.Done():
				return ctx.Err()
			}
		} else {
			<-f.gate
		}
	}
	f.mu.Lock()
	f.commits++
	f.mu.Unlock()
	return f.err
}

func (f *fakeTarget) Decommission(context.Context) error {
	f.mu.Lock()
	f.decommit++
	f.mu.Unlock()
	return f.err
}

func waitQueued(t *testing.T, c *Commissioner, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		got := len(c.queue)
		c.mu.Unlock()
		if got == n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d queued requests", n)
}

func TestCommission_FIFO(t *testing.T) {
	var (
		mu    sync.Mutex
		order []string
	)
	c := New("scope", Commissioning, WithListeners(ListenerFunc(func(r Result) {
		mu.Lock()
		order = append(order, r.Model)
		mu.Unlock()
	})))
	defer c.Dispose()

	blocker := newTarget("blocker")
	blocker.gate = make(chan struct{})

	var wg sync.WaitGroup
	submit := func(target Target) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Commission(context.Background(), target); err != nil {
				t.Errorf("commission %s: %v", target.QualifiedName(), err)
			}
		}()
	}

	submit(blocker)
	<-blocker.started

	for i, name := range []string{"c1", "c2", "c3"} {
		submit(newTarget(name))
		waitQueued(t, c, i+1)
	}
	close(blocker.gate)
	wg.Wait()

	if diff := cmp.Diff([]string{"blocker", "c1", "c2", "c3"}, order); diff != "" {
		t.Fatalf("completion order mismatch (-want +got):\n%s", diff)
	}
}

func TestCommission_PropagatesTargetError(t *testing.T) {
	c := New("scope", Commissioning)
	defer c.Dispose()

	boom := errors.New("boom")
	failing := newTarget("failing")
	failing.err = boom

	if _, err := c.Commission(context.Background(), failing); !errors.Is(err, boom) {
		t.Fatalf("expected target error, got %v", err)
	}

	ok := newTarget("ok")
	elapsed, err := c.Commission(context.Background(), ok)
	if err != nil {
		t.Fatalf("worker did not survive failure: %v", err)
	}
	if elapsed < 0 {
		t.Fatalf("negative elapsed %v", elapsed)
	}
}

func TestCommission_RecoversPanic(t *testing.T) {
	c := New("scope", Commissioning)
	defer c.Dispose()

	p := newTarget("panicky")
	p.panics = true
	if _, err := c.Commission(context.Background(), p); err == nil {
		t.Fatalf("expected panic to surface as error")
	}
	if _, err := c.Commission(context.Background(), newTarget("after")); err != nil {
		t.Fatalf("worker did not survive panic: %v", err)
	}
}

func TestDecommissionDirection(t *testing.T) {
	c := New("scope", Decommissioning)
	defer c.Dispose()

	target := newTarget("x")
	if _, err := c.Commission(context.Background(), target); err != nil {
		t.Fatalf("decommission: %v", err)
	}
	if target.decommit != 1 || target.commits != 0 {
		t.Fatalf("wrong direction executed: commits=%d decommits=%d", target.commits, target.decommit)
	}
}

func TestDispose_InterruptsInFlightAndQueued(t *testing.T) {
	c := New("scope", Commissioning)

	inflight := newTarget("inflight")
	inflight.gate = make(chan struct{})
	inflight.honour = true

	errs := make(chan error, 2)
	go func() {
		_, err := c.Commission(context.Background(), inflight)
		errs <- err
	}()
	<-inflight.started

	queued := newTarget("queued")
	go func() {
		_, err := c.Commission(context.Background(), queued)
		errs <- err
	}()
	waitQueued(t, c, 1)

	c.Dispose()

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			if !errors.Is(err, ErrInterrupted) {
				t.Fatalf("expected ErrInterrupted, got %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("caller was never notified")
		}
	}

	select {
	case <-c.exited:
	default:
		t.Fatalf("worker still running after Dispose")
	}

	if _, err := c.Commission(context.Background(), newTarget("late")); !errors.Is(err, ErrDisposed) {
		t.Fatalf("expected ErrDisposed, got %v", err)
	}
	c.Dispose()
}

func TestCommission_CallerContext(t *testing.T) {
	c := New("scope", Commissioning)
	defer c.Dispose()

	blocker := newTarget("blocker")
	blocker.gate = make(chan struct{})
	go func() { _, _ = c.Commission(context.Background(), blocker) }()
	<-blocker.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	skipped := newTarget("skipped")
	if _, err := c.Commission(ctx, skipped); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	close(blocker.gate)
	if _, err := c.Commission(context.Background(), newTarget("next")); err != nil {
		t.Fatalf("next: %v", err)
	}
	if skipped.commits != 0 {
		t.Fatalf("expired request was executed")
	}
}

func TestCommission_AbandonedCommissionIsUndone(t *testing.T) {
	c := New("scope", Commissioning)
	defer c.Dispose()

	stubborn := newTarget("stubborn")
	stubborn.gate = make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Commission(ctx, stubborn); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	close(stubborn.gate)
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	stubborn.mu.Lock()
	commits, decommits := stubborn.commits, stubborn.decommit
	stubborn.mu.Unlock()
	if commits != 1 || decommits != 1 {
		t.Fatalf("expected the late commission to be undone: commits=%d decommits=%d", commits, decommits)
	}
}

func TestFlush_AfterDispose(t *testing.T) {
	c := New("scope", Commissioning)
	if err := c.Flush(context.Background()); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	c.Dispose()
	if err := c.Flush(context.Background()); !errors.Is(err, ErrDisposed) {
		t.Fatalf("expected ErrDisposed, got %v", err)
	}
}

func TestFactory_NamesFromCounter(t *testing.T) {
	f := NewFactory(logr.Discard())
	a := f.New("/app", Commissioning)
	b := f.New("/app", Decommissioning)
	defer a.Dispose()
	defer b.Dispose()

	if a.Name() != "/app-commissioner-1" || b.Name() != "/app-commissioner-2" {
		t.Fatalf("unexpected names %q %q", a.Name(), b.Name())
	}
	if b.Direction() != Decommissioning {
		t.Fatalf("unexpected direction %v", b.Direction())
	}
}

func TestMetricsRecorded(t *testing.T) {
	before := testutil.ToFloat64(commissionRequestsTotal.WithLabelValues("commission", "success"))

	c := New("scope", Commissioning)
	defer c.Dispose()
	if _, err := c.Commission(context.Background(), newTarget("m")); err != nil {
		t.Fatalf("commission: %v", err)
	}

	after := testutil.ToFloat64(commissionRequestsTotal.WithLabelValues("commission", "success"))
	if after != before+1 {
		t.Fatalf("expected success counter to grow by 1, got %v -> %v", before, after)
	}
}

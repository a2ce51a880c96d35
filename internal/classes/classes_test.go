package classes

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRegistry_ScopeThenGlobal(t *testing.T) {
	r := NewRegistry()
	r.Register(GlobalScope, "store.Memory", func(*Context) (any, error) { return "global", nil })
	r.Register("/app/", "store.Memory", func(*Context) (any, error) { return "scoped", nil })

	h, err := r.Resolve("store.Memory", "/app/")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	inst, _ := h.New(NewContext(ContextOptions{}))
	if inst != "scoped" {
		t.Fatalf("expected scoped instance, got %v", inst)
	}

	h, err = r.Resolve("store.Memory", "/other/")
	if err != nil {
		t.Fatalf("Resolve fallback: %v", err)
	}
	inst, _ = h.New(NewContext(ContextOptions{}))
	if inst != "global" {
		t.Fatalf("expected global instance, got %v", inst)
	}

	if _, err := r.Resolve("store.Disk", "/app/"); !errors.Is(err, ErrClassNotFound) {
		t.Fatalf("expected ErrClassNotFound, got %v", err)
	}
	if diff := cmp.Diff([]string{"store.Memory"}, r.Names("/app/")); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestHandle_WrapsFactoryError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRegistry()
	r.Register(GlobalScope, "bad.Bad", func(*Context) (any, error) { return nil, boom })

	h, _ := r.Resolve("bad.Bad", "")
	if _, err := h.New(NewContext(ContextOptions{})); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped factory error, got %v", err)
	}
}

func TestContext(t *testing.T) {
	ctx := NewContext(ContextOptions{
		Name:    "cache",
		Entries: map[string]string{"region": "eu"},
		Lookup: func(key string) (any, error) {
			if key == "disk" {
				return 42, nil
			}
			return nil, ErrNoSuchEntry
		},
	})

	if ctx.Parameters() != nil {
		t.Fatalf("expected nil parameters")
	}
	if v, ok := ctx.Entry("region"); !ok || v != "eu" {
		t.Fatalf("unexpected entry %q %v", v, ok)
	}
	if v, err := ctx.Lookup("disk"); err != nil || v != 42 {
		t.Fatalf("unexpected lookup %v %v", v, err)
	}
	if _, err := ctx.Lookup("nope"); !errors.Is(err, ErrNoSuchEntry) {
		t.Fatalf("expected ErrNoSuchEntry, got %v", err)
	}
}

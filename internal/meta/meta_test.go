package meta

import (
	"testing"
	"time"

	"github.com/anvil-platform/composer/internal/semver"
)

func TestReferenceMatches(t *testing.T) {
	svc := ServiceDescriptor{Classname: "store.Cache", Version: semver.MustParseVersion("1.4.0")}

	cases := []struct {
		name string
		ref  ReferenceDescriptor
		want bool
	}{
		{"wildcard", ReferenceDescriptor{Classname: "store.Cache"}, true},
		{"compatible", ReferenceDescriptor{Classname: "store.Cache", Constraint: semver.MustParseConstraint("^1.2.0")}, true},
		{"too new", ReferenceDescriptor{Classname: "store.Cache", Constraint: semver.MustParseConstraint(">=2.0.0")}, false},
		{"other service", ReferenceDescriptor{Classname: "store.Index"}, false},
	}
	for _, tc := range cases {
		if got := tc.ref.Matches(svc); got != tc.want {
			t.Fatalf("%s: Matches=%v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestTypeLookups(t *testing.T) {
	typ := &Type{
		Classname:    "store.MemoryCache",
		Services:     []ServiceDescriptor{{Classname: "store.Cache"}},
		Extensions:   []ExtensionDescriptor{{Interface: "lifecycle.Warmup"}},
		Capabilities: []Capability{CapabilityStartable},
		Attributes:   map[string]string{AttributeDeploymentTimeout: "1500"},
	}

	if _, ok := typ.Service(ReferenceDescriptor{Classname: "store.Cache"}); !ok {
		t.Fatalf("expected service match")
	}
	if !typ.Extension(StageDescriptor{Key: "warm", Interface: "lifecycle.Warmup"}) {
		t.Fatalf("expected extension match")
	}
	if typ.Extension(StageDescriptor{Key: "audit", Interface: "lifecycle.Audit"}) {
		t.Fatalf("unexpected extension match")
	}
	if !typ.Has(CapabilityStartable) || typ.Has(CapabilityStoppable) {
		t.Fatalf("unexpected capability set")
	}
	if got := typ.DeploymentTimeout(); got != 1500*time.Millisecond {
		t.Fatalf("DeploymentTimeout=%v", got)
	}
}

func TestServicePicksHighestSatisfyingVersion(t *testing.T) {
	typ := &Type{
		Classname: "store.Tiered",
		Services: []ServiceDescriptor{
			{Classname: "store.Cache", Version: semver.MustParseVersion("1.2.0")},
			{Classname: "store.Cache", Version: semver.MustParseVersion("2.1.0")},
			{Classname: "store.Cache", Version: semver.MustParseVersion("1.5.0")},
			{Classname: "store.Index", Version: semver.MustParseVersion("3.0.0")},
		},
	}

	got, ok := typ.Service(ReferenceDescriptor{Classname: "store.Cache", Constraint: semver.MustParseConstraint("<2.0.0")})
	if !ok || got.String() != "store.Cache:1.5.0" {
		t.Fatalf("expected store.Cache:1.5.0, got %v (%v)", got, ok)
	}
	got, ok = typ.Service(ReferenceDescriptor{Classname: "store.Cache"})
	if !ok || got.String() != "store.Cache:2.1.0" {
		t.Fatalf("expected store.Cache:2.1.0, got %v (%v)", got, ok)
	}
	if _, ok := typ.Service(ReferenceDescriptor{Classname: "store.Cache", Constraint: semver.MustParseConstraint(">=3.0.0")}); ok {
		t.Fatalf("unexpected match above every declared version")
	}
}

func TestDeploymentTimeoutIgnoresGarbage(t *testing.T) {
	typ := &Type{Attributes: map[string]string{AttributeDeploymentTimeout: "soon"}}
	if got := typ.DeploymentTimeout(); got != 0 {
		t.Fatalf("expected 0, got %v", got)
	}
}

func TestContextDescriptor(t *testing.T) {
	var none ContextDescriptor
	if none.Enabled() || none.Staged() {
		t.Fatalf("zero context must be disabled")
	}
	staged := ContextDescriptor{Delivery: Delivery{Kind: DeliveryStaged, Interface: "ctx.Handler"}}
	if !staged.Enabled() || !staged.Staged() {
		t.Fatalf("staged context must be enabled and staged")
	}
	if staged.Delivery.Stage().Interface != "ctx.Handler" {
		t.Fatalf("unexpected stage %v", staged.Delivery.Stage())
	}
}

func TestParseCollectionPolicy(t *testing.T) {
	if ParseCollectionPolicy("demand") != CollectionHard {
		t.Fatalf("demand should map to hard")
	}
	if ParseCollectionPolicy("") != CollectionUndefined {
		t.Fatalf("empty should be undefined")
	}
	if CollectionConservative.String() != "conservative" {
		t.Fatalf("unexpected String()")
	}
}

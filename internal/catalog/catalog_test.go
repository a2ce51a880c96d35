package catalog

import (
	"errors"
	"testing"

	"github.com/go-logr/logr"
	"github.com/google/go-cmp/cmp"

	"github.com/anvil-platform/composer/internal/meta"
)

func cacheRef() meta.ReferenceDescriptor {
	return meta.ReferenceDescriptor{Classname: "store.Cache"}
}

func classnames(types []*meta.Type) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, t.Classname)
	}
	return out
}

func newRepo(t *testing.T, parent *Repository, types ...*meta.Type) *Repository {
	t.Helper()
	r, err := New(logr.Discard(), parent, types)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestType_DelegatesToParent(t *testing.T) {
	parent := newRepo(t, nil, &meta.Type{Classname: "store.Disk"})
	child := newRepo(t, parent, &meta.Type{Classname: "store.Memory"})

	if _, err := child.Type("store.Disk"); err != nil {
		t.Fatalf("expected parent hit, got %v", err)
	}
	if _, err := parent.Type("store.Memory"); !errors.Is(err, ErrTypeUnknown) {
		t.Fatalf("expected ErrTypeUnknown from root, got %v", err)
	}
}

func TestTypesForReference_AppendsParentMatches(t *testing.T) {
	svc := []meta.ServiceDescriptor{{Classname: "store.Cache"}}
	parent := newRepo(t, nil,
		&meta.Type{Classname: "store.Disk", Services: svc},
		&meta.Type{Classname: "store.Shared", Services: svc},
	)
	child := newRepo(t, parent,
		&meta.Type{Classname: "store.Memory", Services: svc},
		&meta.Type{Classname: "store.Shared", Services: svc},
		&meta.Type{Classname: "web.Handler"},
	)

	got := classnames(child.TypesForReference(cacheRef(), true))
	want := []string{"store.Memory", "store.Shared", "store.Disk", "store.Shared"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("candidates mismatch (-want +got):\n%s", diff)
	}

	local := classnames(child.TypesForReference(cacheRef(), false))
	if diff := cmp.Diff([]string{"store.Memory", "store.Shared"}, local); diff != "" {
		t.Fatalf("local candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestTypesForStage(t *testing.T) {
	r := newRepo(t, nil,
		&meta.Type{Classname: "audit.Auditor", Extensions: []meta.ExtensionDescriptor{{Interface: "lifecycle.Audit"}}},
		&meta.Type{Classname: "store.Memory"},
	)
	got := classnames(r.TypesForStage(meta.StageDescriptor{Key: "audit", Interface: "lifecycle.Audit"}, true))
	if diff := cmp.Diff([]string{"audit.Auditor"}, got); diff != "" {
		t.Fatalf("stage candidates mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New(logr.Discard(), nil, []*meta.Type{{Classname: "a.A"}, {Classname: "a.A"}})
	if !errors.Is(err, ErrDuplicateType) {
		t.Fatalf("expected ErrDuplicateType, got %v", err)
	}
}

func TestProfiles_ImplicitWhenNonePackaged(t *testing.T) {
	typ := &meta.Type{Classname: "store.MemoryCache"}
	r := newRepo(t, nil, typ)

	profiles, err := r.Profiles(typ)
	if err != nil {
		t.Fatalf("Profiles: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected one implicit profile, got %d", len(profiles))
	}
	if profiles[0].Mode != meta.ModeImplicit || profiles[0].Name != "memorycache" {
		t.Fatalf("unexpected implicit profile %+v", profiles[0])
	}
}

func TestProfile_Lookup(t *testing.T) {
	typ := &meta.Type{
		Classname: "store.MemoryCache",
		Profiles:  []meta.Profile{{Name: "small"}, {Name: "large"}},
	}
	r := newRepo(t, nil, typ)

	p, err := r.Profile(typ, "large")
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if p.Mode != meta.ModePackaged || p.Classname != "store.MemoryCache" {
		t.Fatalf("packaged profile not normalized: %+v", p)
	}
	if _, err := r.Profile(typ, "huge"); !errors.Is(err, ErrProfileUnknown) {
		t.Fatalf("expected ErrProfileUnknown, got %v", err)
	}
	if _, err := r.Profiles(&meta.Type{Classname: "nope.Nope"}); !errors.Is(err, ErrTypeUnknown) {
		t.Fatalf("expected ErrTypeUnknown, got %v", err)
	}
}

func TestExpand_Template(t *testing.T) {
	typ := &meta.Type{
		Classname: "store.MemoryCache",
		Profiles: []meta.Profile{{
			Name:         "small",
			Activation:   meta.ActivationEnabled,
			Collection:   meta.CollectionConservative,
			Parameters:   map[string]string{"size": "16", "ttl": "60"},
			Dependencies: []meta.Directive{{Key: "disk", Path: "/disk"}},
		}},
	}
	r := newRepo(t, nil, typ)

	got, err := r.Expand(meta.Profile{
		Name:       "tuned",
		Classname:  "store.MemoryCache",
		Mode:       meta.ModeExplicit,
		Template:   "small",
		Parameters: map[string]string{"size": "64"},
	})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	want := meta.Profile{
		Name:         "tuned",
		Classname:    "store.MemoryCache",
		Mode:         meta.ModeExplicit,
		Activation:   meta.ActivationEnabled,
		Collection:   meta.CollectionConservative,
		Parameters:   map[string]string{"size": "64", "ttl": "60"},
		Dependencies: []meta.Directive{{Key: "disk", Path: "/disk"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("expanded profile mismatch (-want +got):\n%s", diff)
	}
}

package model

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/anvil-platform/composer/internal/classes"
	"github.com/anvil-platform/composer/internal/meta"
)

func navigationScope(t *testing.T) *ContainmentModel {
	t.Helper()
	return newScope(t, meta.ContainmentProfile{
		Types: []*meta.Type{{Classname: "x.Leaf"}},
		Components: []meta.Profile{
			explicit("top", "x.Leaf"),
		},
		Containers: []meta.ContainmentProfile{{
			Name:       "app",
			Components: []meta.Profile{explicit("leaf", "x.Leaf")},
			Containers: []meta.ContainmentProfile{{
				Name:       "inner",
				Components: []meta.Profile{explicit("deep", "x.Leaf")},
			}},
		}},
	})
}

func TestResolve(t *testing.T) {
	root := navigationScope(t)
	appModel, _ := root.Model("app")
	app := appModel.(*ContainmentModel)
	innerModel, _ := app.Model("inner")
	inner := innerModel.(*ContainmentModel)

	cases := []struct {
		from *ContainmentModel
		path string
		want string
	}{
		{root, "", "/"},
		{root, "/", "/"},
		{root, "top", "/top"},
		{root, "/top", "/top"},
		{root, "app/inner/deep", "/app/inner/deep"},
		{app, "", "/app"},
		{app, "./leaf", "/app/leaf"},
		{app, "../top", "/top"},
		{app, "..", "/"},
		{inner, "/app/leaf", "/app/leaf"},
		{inner, "../../top", "/top"},
	}
	for _, tc := range cases {
		got, err := tc.from.Resolve(tc.path)
		if err != nil {
			t.Fatalf("%s.Resolve(%q): %v", tc.from.QualifiedName(), tc.path, err)
		}
		if got.QualifiedName() != tc.want {
			t.Fatalf("%s.Resolve(%q) = %s, want %s", tc.from.QualifiedName(), tc.path, got.QualifiedName(), tc.want)
		}
	}
}

func TestResolve_Errors(t *testing.T) {
	root := navigationScope(t)

	if _, err := root.Resolve("../top"); !errors.Is(err, ErrNoParent) {
		t.Fatalf("expected ErrNoParent, got %v", err)
	}
	if _, err := root.Resolve("top/deeper"); !errors.Is(err, ErrIllegalAddress) {
		t.Fatalf("expected ErrIllegalAddress, got %v", err)
	}
	if _, err := root.Resolve("app/missing"); !errors.Is(err, ErrNoSuchModel) {
		t.Fatalf("expected ErrNoSuchModel, got %v", err)
	}
}

func TestQualifiedNames(t *testing.T) {
	root := navigationScope(t)
	deep := component(t, root, "app/inner/deep")
	if deep.Partition() != "/app/inner/" || deep.QualifiedName() != "/app/inner/deep" {
		t.Fatalf("unexpected names partition=%q qualified=%q", deep.Partition(), deep.QualifiedName())
	}
	if root.Partition() != "" || root.QualifiedName() != "/" {
		t.Fatalf("unexpected root names partition=%q qualified=%q", root.Partition(), root.QualifiedName())
	}
}

func TestProviders_RequiresAssembly(t *testing.T) {
	root := newScope(t, meta.ContainmentProfile{
		Types: []*meta.Type{
			{Classname: "store.Disk", Services: services("store.Cache")},
			{Classname: "web.Handler", Dependencies: []meta.DependencyDescriptor{
				requires("primary", "store.Cache"),
				requires("secondary", "store.Cache"),
			}},
		},
		Components: []meta.Profile{explicit("disk", "store.Disk"), explicit("web", "web.Handler")},
	})
	web := component(t, root, "web")

	if _, err := web.Providers(); !errors.Is(err, ErrNotAssembled) {
		t.Fatalf("expected ErrNotAssembled, got %v", err)
	}
	if err := web.Commission(context.Background()); !errors.Is(err, ErrNotAssembled) {
		t.Fatalf("expected ErrNotAssembled from Commission, got %v", err)
	}
	if web.State() != StateUnassembled {
		t.Fatalf("unexpected state %s", web.State())
	}

	if err := root.Assemble(nil); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	providers, err := web.Providers()
	if err != nil {
		t.Fatalf("Providers: %v", err)
	}
	if diff := cmp.Diff([]string{"/disk"}, qualifiedNames(providers)); diff != "" {
		t.Fatalf("providers not deduplicated (-want +got):\n%s", diff)
	}
	if web.State() != StateAssembled {
		t.Fatalf("unexpected state %s", web.State())
	}
}

func TestPolicies(t *testing.T) {
	root := newScope(t, meta.ContainmentProfile{
		Types: []*meta.Type{
			{Classname: "x.Durable", Collection: meta.CollectionConservative},
			{Classname: "x.Transient", Lifestyle: meta.LifestyleTransient},
		},
		Components: []meta.Profile{
			{Name: "lowered", Classname: "x.Durable", Mode: meta.ModeExplicit, Collection: meta.CollectionWeak},
			{Name: "raised", Classname: "x.Durable", Mode: meta.ModeExplicit, Collection: meta.CollectionHard},
			{Name: "transient", Classname: "x.Transient", Mode: meta.ModeExplicit},
			{Name: "forced", Classname: "x.Transient", Mode: meta.ModeExplicit, Activation: meta.ActivationEnabled},
			{Name: "packaged", Classname: "x.Durable", Mode: meta.ModePackaged},
		},
	})

	if got := component(t, root, "lowered").CollectionPolicy(); got != meta.CollectionConservative {
		t.Fatalf("collection floor not applied: %s", got)
	}
	if got := component(t, root, "raised").CollectionPolicy(); got != meta.CollectionHard {
		t.Fatalf("collection override ignored: %s", got)
	}
	if component(t, root, "transient").ActivationPolicy() {
		t.Fatalf("transient explicit model should activate on demand")
	}
	if !component(t, root, "forced").ActivationPolicy() {
		t.Fatalf("enabled directive should win")
	}
	if component(t, root, "packaged").ActivationPolicy() {
		t.Fatalf("packaged model should activate on demand")
	}
	if !component(t, root, "raised").ActivationPolicy() {
		t.Fatalf("explicit model should activate at startup")
	}
}

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type lifecycleInstance struct {
	name string
	rec  *recorder
	deps map[string]any
}

func (l *lifecycleInstance) Start(context.Context) error {
	l.rec.add("start " + l.name)
	return nil
}

func (l *lifecycleInstance) Stop(context.Context) error {
	l.rec.add("stop " + l.name)
	return nil
}

type auditor struct{ rec *recorder }

func (a *auditor) Create(_ context.Context, stage string, instance any) error {
	a.rec.add("create " + stage + " " + instance.(*lifecycleInstance).name)
	return nil
}

func (a *auditor) Destroy(_ context.Context, stage string, instance any) error {
	a.rec.add("destroy " + stage + " " + instance.(*lifecycleInstance).name)
	return nil
}

func lifecycleRegistry(rec *recorder, depKeys ...string) *classes.Registry {
	reg := classes.NewRegistry()
	factory := func(ctx *classes.Context) (any, error) {
		inst := &lifecycleInstance{name: ctx.Name, rec: rec, deps: map[string]any{}}
		for _, k := range depKeys {
			if v, err := ctx.Lookup(k); err == nil && v != nil {
				inst.deps[k] = v
			}
		}
		return inst, nil
	}
	for _, name := range []string{"store.Disk", "store.Index", "web.Handler"} {
		reg.Register(classes.GlobalScope, name, factory)
	}
	reg.Register(classes.GlobalScope, "ext.Auditor", func(*classes.Context) (any, error) {
		return &auditor{rec: rec}, nil
	})
	return reg
}

func lifecycleProfile() meta.ContainmentProfile {
	caps := []meta.Capability{meta.CapabilityStartable, meta.CapabilityStoppable}
	return meta.ContainmentProfile{
		Types: []*meta.Type{
			{Classname: "web.Handler", Capabilities: caps,
				Stages:       []meta.StageDescriptor{{Key: "audit", Interface: "lifecycle.Audit"}},
				Dependencies: []meta.DependencyDescriptor{requires("index", "store.Index")}},
			{Classname: "store.Index", Capabilities: caps, Services: services("store.Index"),
				Dependencies: []meta.DependencyDescriptor{requires("disk", "store.Cache")}},
			{Classname: "store.Disk", Capabilities: caps, Services: services("store.Cache")},
			{Classname: "ext.Auditor", Extensions: []meta.ExtensionDescriptor{{Interface: "lifecycle.Audit"}}},
		},
		Components: []meta.Profile{
			explicit("web", "web.Handler"),
			explicit("index", "store.Index"),
			explicit("disk", "store.Disk"),
		},
	}
}

func TestCommission_ProvidersFirstAndReverseDecommission(t *testing.T) {
	rec := &recorder{}
	root := newScope(t, lifecycleProfile(), WithLoader(lifecycleRegistry(rec, "index", "disk")))
	if err := root.Assemble(nil); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	order, err := root.CommissionOrder()
	if err != nil {
		t.Fatalf("CommissionOrder: %v", err)
	}
	if diff := cmp.Diff([]string{"/auditor", "/disk", "/index", "/web"}, qualifiedNames(order)); diff != "" {
		t.Fatalf("commission order mismatch (-want +got):\n%s", diff)
	}

	ctx := context.Background()
	if err := root.Commission(ctx); err != nil {
		t.Fatalf("Commission: %v", err)
	}
	if root.State() != StateCommissioned {
		t.Fatalf("unexpected root state %s", root.State())
	}

	inst, err := component(t, root, "index").Instance(ctx)
	if err != nil {
		t.Fatalf("Instance: %v", err)
	}
	if _, ok := inst.(*lifecycleInstance).deps["disk"]; !ok {
		t.Fatalf("index did not receive its disk dependency")
	}

	if err := root.RemoveModel("web"); !errors.Is(err, ErrCommissioned) {
		t.Fatalf("expected ErrCommissioned, got %v", err)
	}

	if err := root.Decommission(ctx); err != nil {
		t.Fatalf("Decommission: %v", err)
	}
	want := []string{
		"start disk",
		"start index",
		"create audit web",
		"start web",
		"stop web",
		"destroy audit web",
		"stop index",
		"stop disk",
	}
	if diff := cmp.Diff(want, rec.snapshot()); diff != "" {
		t.Fatalf("lifecycle mismatch (-want +got):\n%s", diff)
	}
	if component(t, root, "web").State() != StateDecommissioned {
		t.Fatalf("web not decommissioned")
	}
	if err := root.RemoveModel("web"); err != nil {
		t.Fatalf("RemoveModel after decommission: %v", err)
	}
}

func TestCommission_RollsBackOnFailure(t *testing.T) {
	rec := &recorder{}
	reg := lifecycleRegistry(rec, "index", "disk")
	reg.Register(classes.GlobalScope, "web.Handler", func(*classes.Context) (any, error) {
		return nil, errors.New("no port")
	})
	root := newScope(t, lifecycleProfile(), WithLoader(reg))
	if err := root.Assemble(nil); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	err := root.Commission(context.Background())
	if err == nil {
		t.Fatalf("expected commission failure")
	}
	if root.State() == StateCommissioned {
		t.Fatalf("root must not be commissioned after failure")
	}
	for _, name := range []string{"disk", "index"} {
		if got := component(t, root, name).State(); got != StateDecommissioned {
			t.Fatalf("%s state = %s after rollback", name, got)
		}
	}
}

func TestCommission_DeploymentTimeout(t *testing.T) {
	reg := classes.NewRegistry()
	reg.Register(classes.GlobalScope, "x.Slow", func(c *classes.Context) (any, error) {
		return &slow{}, nil
	})
	root := newScope(t, meta.ContainmentProfile{
		Types: []*meta.Type{{
			Classname:    "x.Slow",
			Capabilities: []meta.Capability{meta.CapabilityStartable},
			Attributes:   map[string]string{meta.AttributeDeploymentTimeout: "20"},
		}},
		Components: []meta.Profile{explicit("slow", "x.Slow")},
	}, WithLoader(reg))
	if err := root.Assemble(nil); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	err := root.Commission(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCommission_DeadlineRollsBackLateStart(t *testing.T) {
	reg := classes.NewRegistry()
	reg.Register(classes.GlobalScope, "x.Stubborn", func(c *classes.Context) (any, error) {
		return stubborn{}, nil
	})
	root := newScope(t, meta.ContainmentProfile{
		Types: []*meta.Type{{
			Classname:    "x.Stubborn",
			Capabilities: []meta.Capability{meta.CapabilityStartable},
			Attributes:   map[string]string{meta.AttributeDeploymentTimeout: "20"},
		}},
		Components: []meta.Profile{explicit("stubborn", "x.Stubborn")},
	}, WithLoader(reg))
	if err := root.Assemble(nil); err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	err := root.Commission(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if root.State() == StateCommissioned {
		t.Fatalf("root must not be commissioned after failure")
	}
	if got := component(t, root, "stubborn").State(); got != StateDecommissioned {
		t.Fatalf("stubborn state = %s after rollback", got)
	}
}

// stubborn starts late and ignores cancellation.
type stubborn struct{}

func (stubborn) Start(context.Context) error {
	time.Sleep(150 * time.Millisecond)
	return nil
}

type slow struct{}

func (slow) Start(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return nil
	}
}

func TestCommission_OnDemandInstance(t *testing.T) {
	rec := &recorder{}
	profile := lifecycleProfile()
	for i := range profile.Components {
		profile.Components[i].Activation = meta.ActivationDisabled
	}
	root := newScope(t, profile, WithLoader(lifecycleRegistry(rec)))
	if err := root.Assemble(nil); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	disk := component(t, root, "disk")
	if _, err := disk.Instance(context.Background()); !errors.Is(err, ErrNotCommissioned) {
		t.Fatalf("expected ErrNotCommissioned, got %v", err)
	}
	if err := root.Commission(context.Background()); err != nil {
		t.Fatalf("Commission: %v", err)
	}
	if len(rec.snapshot()) != 0 {
		t.Fatalf("on-demand models were instantiated eagerly: %v", rec.snapshot())
	}
	if _, err := disk.Instance(context.Background()); err != nil {
		t.Fatalf("Instance: %v", err)
	}
	if diff := cmp.Diff([]string{"start disk"}, rec.snapshot()); diff != "" {
		t.Fatalf("lifecycle mismatch (-want +got):\n%s", diff)
	}
}

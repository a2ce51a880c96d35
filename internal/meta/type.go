package meta

import (
	"strconv"
	"time"

	"github.com/anvil-platform/composer/internal/semver"
)

// AttributeDeploymentTimeout is the type attribute holding the per-instance
// commission deadline in milliseconds.
const AttributeDeploymentTimeout = "deployment.timeout"

// Type describes one component implementation.
type Type struct {
	Name         string
	Classname    string
	Version      semver.Version
	Lifestyle    Lifestyle
	Collection   CollectionPolicy
	Services     []ServiceDescriptor
	Dependencies []DependencyDescriptor
	Stages       []StageDescriptor
	Extensions   []ExtensionDescriptor
	Context      ContextDescriptor
	Capabilities []Capability
	Attributes   map[string]string

	// Profiles are the packaged deployment profiles bundled with the type.
	Profiles []Profile
}

// Service returns the highest declared version of the service ref names
// that satisfies its constraint.
func (t *Type) Service(ref ReferenceDescriptor) (ServiceDescriptor, bool) {
	var named []ServiceDescriptor
	var versions []semver.Version
	for _, s := range t.Services {
		if s.Classname == ref.Classname {
			named = append(named, s)
			versions = append(versions, s.Version)
		}
	}
	best, ok := semver.MaxSatisfying(ref.Constraint, versions)
	if !ok {
		return ServiceDescriptor{}, false
	}
	for _, s := range named {
		if semver.Compare(s.Version, best) == 0 {
			return s, true
		}
	}
	return ServiceDescriptor{}, false
}

// Extension reports whether the type can act as the extension provider for
// stage.
func (t *Type) Extension(stage StageDescriptor) bool {
	for _, e := range t.Extensions {
		if e.Interface == stage.Interface {
			return true
		}
	}
	return false
}

func (t *Type) Has(c Capability) bool {
	for _, have := range t.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

func (t *Type) Attribute(key, fallback string) string {
	if v, ok := t.Attributes[key]; ok {
		return v
	}
	return fallback
}

// DeploymentTimeout returns the commission deadline declared by the type, or
// zero if none (or an unparsable one) is declared.
func (t *Type) DeploymentTimeout() time.Duration {
	raw := t.Attribute(AttributeDeploymentTimeout, "")
	if raw == "" {
		return 0
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ms <= 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

func (t *Type) String() string {
	if t.Name != "" && t.Name != t.Classname {
		return t.Name + " (" + t.Classname + ")"
	}
	return t.Classname
}

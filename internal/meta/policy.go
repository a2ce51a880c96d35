// Package meta holds the immutable descriptor records the composer works
// from: component types, their service/dependency/stage declarations, and
// the deployment profiles that configure them.
//
// Records are produced by a descriptor source (see internal/descriptor) and
// never mutated afterwards.
package meta

// Mode is the priority tier of a profile, and of every model deployed from it.
type Mode string

const (
	// ModeExplicit marks a profile declared by the user.
	ModeExplicit Mode = "explicit"
	// ModePackaged marks a profile bundled with its type.
	ModePackaged Mode = "packaged"
	// ModeImplicit marks a profile synthesized because the type bundles none.
	ModeImplicit Mode = "implicit"
)

// Lifestyle describes how instances of a type are shared.
type Lifestyle string

const (
	LifestyleSingleton Lifestyle = "singleton"
	LifestyleThread    Lifestyle = "thread"
	LifestylePooled    Lifestyle = "pooled"
	LifestyleTransient Lifestyle = "transient"
)

// CollectionPolicy is ordered: a higher value keeps instances alive longer.
// The zero value is undefined and defers to the type.
type CollectionPolicy int

const (
	CollectionUndefined CollectionPolicy = iota
	CollectionWeak
	CollectionConservative
	CollectionHard
)

func (p CollectionPolicy) String() string {
	switch p {
	case CollectionWeak:
		return "weak"
	case CollectionConservative:
		return "conservative"
	case CollectionHard:
		return "hard"
	default:
		return "undefined"
	}
}

// ParseCollectionPolicy maps the descriptor spelling to a policy. Unknown or
// empty values are undefined.
func ParseCollectionPolicy(s string) CollectionPolicy {
	switch s {
	case "weak":
		return CollectionWeak
	case "conservative":
		return CollectionConservative
	case "hard", "demand":
		return CollectionHard
	default:
		return CollectionUndefined
	}
}

// Activation is a profile's activation directive.
type Activation string

const (
	ActivationDefault  Activation = ""
	ActivationEnabled  Activation = "enabled"
	ActivationDisabled Activation = "disabled"
)

// Capability is a lifecycle contract an implementation declares up front.
type Capability string

const (
	CapabilityParameterizable  Capability = "parameterizable"
	CapabilityConfigurable     Capability = "configurable"
	CapabilityContextualizable Capability = "contextualizable"
	CapabilityStartable        Capability = "startable"
	CapabilityStoppable        Capability = "stoppable"
)

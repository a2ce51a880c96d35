package meta

import (
	"fmt"

	"github.com/anvil-platform/composer/internal/semver"
)

// ServiceDescriptor is a service a type produces.
type ServiceDescriptor struct {
	Classname string
	Version   semver.Version
}

func (s ServiceDescriptor) String() string {
	if s.Version.IsZero() {
		return s.Classname
	}
	return s.Classname + ":" + s.Version.String()
}

// ReferenceDescriptor names a service a consumer needs.
type ReferenceDescriptor struct {
	Classname  string
	Constraint semver.Constraint
}

// Matches reports whether service can satisfy the reference.
func (r ReferenceDescriptor) Matches(service ServiceDescriptor) bool {
	if r.Classname != service.Classname {
		return false
	}
	return semver.Satisfies(service.Version, r.Constraint)
}

func (r ReferenceDescriptor) String() string {
	if r.Constraint.IsAny() {
		return r.Classname
	}
	return fmt.Sprintf("%s (%s)", r.Classname, r.Constraint)
}

// DependencyDescriptor is a keyed service dependency.
type DependencyDescriptor struct {
	Key       string
	Reference ReferenceDescriptor
	Optional  bool
}

func (d DependencyDescriptor) IsRequired() bool { return !d.Optional }

func (d DependencyDescriptor) String() string {
	return fmt.Sprintf("dependency %q on %s", d.Key, d.Reference)
}

// StageDescriptor is a lifecycle stage that must be handled by an extension
// provider implementing Interface.
type StageDescriptor struct {
	Key       string
	Interface string
}

func (s StageDescriptor) String() string {
	return fmt.Sprintf("stage %q (%s)", s.Key, s.Interface)
}

// ExtensionDescriptor is a stage interface a type can handle for others.
type ExtensionDescriptor struct {
	Interface string
}

// EntryDescriptor is a context entry a type expects at contextualization.
type EntryDescriptor struct {
	Key      string
	Optional bool
}

// DeliveryKind tags the context delivery strategy of a type.
type DeliveryKind int

const (
	// DeliveryNone means the type takes no context.
	DeliveryNone DeliveryKind = iota
	// DeliveryStandard hands the entries to the instance itself.
	DeliveryStandard
	// DeliveryStaged hands the entries to an extension provider implementing
	// the delivery interface.
	DeliveryStaged
)

// Delivery is the context delivery strategy. Interface is only meaningful
// for DeliveryStaged.
type Delivery struct {
	Kind      DeliveryKind
	Interface string
}

// Stage returns the stage an extension provider must handle for staged
// delivery.
func (d Delivery) Stage() StageDescriptor {
	return StageDescriptor{Key: "context", Interface: d.Interface}
}

// ContextDescriptor is a type's context contract.
type ContextDescriptor struct {
	Delivery Delivery
	Entries  []EntryDescriptor
}

// Enabled reports whether instances of the type receive a context at all.
func (c ContextDescriptor) Enabled() bool {
	return c.Delivery.Kind != DeliveryNone || len(c.Entries) > 0
}

// Staged reports whether a provider must be located for context delivery.
func (c ContextDescriptor) Staged() bool {
	return c.Delivery.Kind == DeliveryStaged
}

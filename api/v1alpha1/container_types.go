package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Container deploys profiles into a scope, assembles the provider graph and
// commissions it.
//
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=ctr
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Models",type=integer,JSONPath=`.status.modelCount`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`
type Container struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   ContainerSpec   `json:"spec"`
	Status ContainerStatus `json:"status,omitempty"`
}

type ContainerSpec struct {
	ScopeSpec `json:",inline"`

	// Suspend keeps the container assembled but decommissioned.
	Suspend bool `json:"suspend,omitempty"`
}

// ScopeSpec describes one containment scope. A nested scope catalogs the
// ComponentTypes it lists by name, visible to it and its descendants only.
// The root scope catalogs every other ComponentType in the namespace.
type ScopeSpec struct {
	Name       string        `json:"name,omitempty"`
	Types      []string      `json:"types,omitempty"`
	Components []ProfileSpec `json:"components,omitempty"`
	Containers []ScopeSpec   `json:"containers,omitempty"`
	Exports    []ExportSpec  `json:"exports,omitempty"`
}

const (
	ContainerPhasePending      = "Pending"
	ContainerPhaseAssembled    = "Assembled"
	ContainerPhaseCommissioned = "Commissioned"
	ContainerPhaseSuspended    = "Suspended"
	ContainerPhaseFailed       = "Failed"
)

type ContainerStatus struct {
	ObservedGeneration int64              `json:"observedGeneration,omitempty"`
	Phase              string             `json:"phase,omitempty"`
	Message            string             `json:"message,omitempty"`
	ModelCount         int32              `json:"modelCount,omitempty"`
	Models             []ModelStatus      `json:"models,omitempty"`
	Bindings           []BindingStatus    `json:"bindings,omitempty"`
	CommissionedAt     *metav1.Time       `json:"commissionedAt,omitempty"`
	Conditions         []metav1.Condition `json:"conditions,omitempty"`
}

type ModelStatus struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Mode  Mode   `json:"mode,omitempty"`
	Type  string `json:"type,omitempty"`
	State string `json:"state"`
}

// BindingStatus records which provider was wired into a consumer slot.
type BindingStatus struct {
	Consumer string `json:"consumer"`
	Slot     string `json:"slot"`
	Provider string `json:"provider,omitempty"`
}

// +kubebuilder:object:root=true
type ContainerList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Container `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Container{}, &ContainerList{})
}

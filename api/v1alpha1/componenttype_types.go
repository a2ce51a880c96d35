package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ComponentType declares a component implementation: the services it
// provides, the services it depends on, its lifecycle stages and its packaged
// profiles.
//
// +kubebuilder:object:root=true
// +kubebuilder:resource:scope=Namespaced,shortName=ctype
// +kubebuilder:printcolumn:name="Class",type=string,JSONPath=`.spec.classname`
// +kubebuilder:printcolumn:name="Version",type=string,JSONPath=`.spec.version`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`
type ComponentType struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec ComponentTypeSpec `json:"spec"`
}

type ComponentTypeSpec struct {
	Classname string `json:"classname"`
	Version   string `json:"version,omitempty"`
	// +kubebuilder:validation:Enum=singleton;thread;pooled;transient
	Lifestyle  string `json:"lifestyle,omitempty"`
	Collection string `json:"collection,omitempty"`

	Services     []ServiceRef     `json:"services,omitempty"`
	Dependencies []DependencySpec `json:"dependencies,omitempty"`
	Stages       []StageSpec      `json:"stages,omitempty"`
	// Extensions lists the stage interfaces this type can handle for others.
	Extensions []string    `json:"extensions,omitempty"`
	Context    ContextSpec `json:"context,omitempty"`
	// +kubebuilder:validation:items:Enum=parameterizable;configurable;contextualizable;startable;stoppable
	Capabilities []string          `json:"capabilities,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`

	Profiles []ProfileSpec `json:"profiles,omitempty"`
}

type DependencySpec struct {
	Key     string `json:"key"`
	Service string `json:"service"`
	// Constraint is a semver range the provider's service version must
	// satisfy. Empty accepts any version.
	Constraint string `json:"constraint,omitempty"`
	Optional   bool   `json:"optional,omitempty"`
}

type StageSpec struct {
	Key       string `json:"key"`
	Interface string `json:"interface"`
}

type ContextSpec struct {
	// +kubebuilder:validation:Enum="";standard;staged
	Delivery string `json:"delivery,omitempty"`
	// Interface is the handler interface for staged delivery.
	Interface string      `json:"interface,omitempty"`
	Entries   []EntrySpec `json:"entries,omitempty"`
}

type EntrySpec struct {
	Key      string `json:"key"`
	Optional bool   `json:"optional,omitempty"`
}

// +kubebuilder:object:root=true
type ComponentTypeList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []ComponentType `json:"items"`
}

func init() {
	SchemeBuilder.Register(&ComponentType{}, &ComponentTypeList{})
}

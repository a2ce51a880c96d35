//go:build !ignore_autogenerated

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

func copyStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ProfileSpec) DeepCopyInto(out *ProfileSpec) {
	*out = *in
	out.Parameters = copyStringMap(in.Parameters)
	out.Context = copyStringMap(in.Context)
	if in.Dependencies != nil {
		out.Dependencies = make([]DirectiveSpec, len(in.Dependencies))
		copy(out.Dependencies, in.Dependencies)
	}
	if in.Stages != nil {
		out.Stages = make([]DirectiveSpec, len(in.Stages))
		copy(out.Stages, in.Stages)
	}
}

// DeepCopy copies the receiver, creating a new ProfileSpec.
func (in *ProfileSpec) DeepCopy() *ProfileSpec {
	if in == nil {
		return nil
	}
	out := new(ProfileSpec)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ContextSpec) DeepCopyInto(out *ContextSpec) {
	*out = *in
	if in.Entries != nil {
		out.Entries = make([]EntrySpec, len(in.Entries))
		copy(out.Entries, in.Entries)
	}
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ComponentTypeSpec) DeepCopyInto(out *ComponentTypeSpec) {
	*out = *in
	if in.Services != nil {
		out.Services = make([]ServiceRef, len(in.Services))
		copy(out.Services, in.Services)
	}
	if in.Dependencies != nil {
		out.Dependencies = make([]DependencySpec, len(in.Dependencies))
		copy(out.Dependencies, in.Dependencies)
	}
	if in.Stages != nil {
		out.Stages = make([]StageSpec, len(in.Stages))
		copy(out.Stages, in.Stages)
	}
	if in.Extensions != nil {
		out.Extensions = make([]string, len(in.Extensions))
		copy(out.Extensions, in.Extensions)
	}
	in.Context.DeepCopyInto(&out.Context)
	if in.Capabilities != nil {
		out.Capabilities = make([]string, len(in.Capabilities))
		copy(out.Capabilities, in.Capabilities)
	}
	out.Attributes = copyStringMap(in.Attributes)
	if in.Profiles != nil {
		out.Profiles = make([]ProfileSpec, len(in.Profiles))
		for i := range in.Profiles {
			in.Profiles[i].DeepCopyInto(&out.Profiles[i])
		}
	}
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ComponentType) DeepCopyInto(out *ComponentType) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
}

// DeepCopy copies the receiver, creating a new ComponentType.
func (in *ComponentType) DeepCopy() *ComponentType {
	if in == nil {
		return nil
	}
	out := new(ComponentType)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *ComponentType) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ComponentTypeList) DeepCopyInto(out *ComponentTypeList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]ComponentType, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

// DeepCopy copies the receiver, creating a new ComponentTypeList.
func (in *ComponentTypeList) DeepCopy() *ComponentTypeList {
	if in == nil {
		return nil
	}
	out := new(ComponentTypeList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *ComponentTypeList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ScopeSpec) DeepCopyInto(out *ScopeSpec) {
	*out = *in
	if in.Types != nil {
		out.Types = make([]string, len(in.Types))
		copy(out.Types, in.Types)
	}
	if in.Components != nil {
		out.Components = make([]ProfileSpec, len(in.Components))
		for i := range in.Components {
			in.Components[i].DeepCopyInto(&out.Components[i])
		}
	}
	if in.Containers != nil {
		out.Containers = make([]ScopeSpec, len(in.Containers))
		for i := range in.Containers {
			in.Containers[i].DeepCopyInto(&out.Containers[i])
		}
	}
	if in.Exports != nil {
		out.Exports = make([]ExportSpec, len(in.Exports))
		copy(out.Exports, in.Exports)
	}
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ContainerSpec) DeepCopyInto(out *ContainerSpec) {
	*out = *in
	in.ScopeSpec.DeepCopyInto(&out.ScopeSpec)
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ContainerStatus) DeepCopyInto(out *ContainerStatus) {
	*out = *in
	if in.Models != nil {
		out.Models = make([]ModelStatus, len(in.Models))
		copy(out.Models, in.Models)
	}
	if in.Bindings != nil {
		out.Bindings = make([]BindingStatus, len(in.Bindings))
		copy(out.Bindings, in.Bindings)
	}
	if in.CommissionedAt != nil {
		out.CommissionedAt = in.CommissionedAt.DeepCopy()
	}
	if in.Conditions != nil {
		out.Conditions = make([]metav1.Condition, len(in.Conditions))
		for i := range in.Conditions {
			in.Conditions[i].DeepCopyInto(&out.Conditions[i])
		}
	}
}

// DeepCopy copies the receiver, creating a new ContainerStatus.
func (in *ContainerStatus) DeepCopy() *ContainerStatus {
	if in == nil {
		return nil
	}
	out := new(ContainerStatus)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *Container) DeepCopyInto(out *Container) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	in.Status.DeepCopyInto(&out.Status)
}

// DeepCopy copies the receiver, creating a new Container.
func (in *Container) DeepCopy() *Container {
	if in == nil {
		return nil
	}
	out := new(Container)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *Container) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ContainerList) DeepCopyInto(out *ContainerList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]Container, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

// DeepCopy copies the receiver, creating a new ContainerList.
func (in *ContainerList) DeepCopy() *ContainerList {
	if in == nil {
		return nil
	}
	out := new(ContainerList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject copies the receiver, creating a new runtime.Object.
func (in *ContainerList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

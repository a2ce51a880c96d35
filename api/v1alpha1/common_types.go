package v1alpha1

type Mode string

const (
	ModeExplicit Mode = "explicit"
	ModePackaged Mode = "packaged"
	ModeImplicit Mode = "implicit"
)

type Activation string

const (
	ActivationEnabled  Activation = "enabled"
	ActivationDisabled Activation = "disabled"
)

// DirectiveSpec pins a dependency or stage to a model address such as
// ../store or /shared/cache.
type DirectiveSpec struct {
	Key  string `json:"key"`
	Path string `json:"path"`
}

// ProfileSpec is a named configuration of a component type.
type ProfileSpec struct {
	Name string `json:"name"`
	// Type is the classname of the ComponentType to deploy.
	Type string `json:"type,omitempty"`
	// Template names a packaged profile of the type to derive from.
	Template    string            `json:"template,omitempty"`
	Activation  Activation        `json:"activation,omitempty"`
	Collection  string            `json:"collection,omitempty"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	Context     map[string]string `json:"context,omitempty"`
	ContextPath string            `json:"contextPath,omitempty"`

	Dependencies []DirectiveSpec `json:"dependencies,omitempty"`
	Stages       []DirectiveSpec `json:"stages,omitempty"`
}

type ServiceRef struct {
	Classname string `json:"classname"`
	Version   string `json:"version,omitempty"`
}

// ExportSpec publishes an inner model's service through its container.
type ExportSpec struct {
	Service ServiceRef `json:"service"`
	Path    string     `json:"path"`
}

package meta

// Directive pins a dependency or stage slot to a model address instead of
// letting assembly search for a provider.
type Directive struct {
	Key  string
	Path string
}

// Profile is a named configuration of a Type.
type Profile struct {
	Name      string
	Classname string
	Mode      Mode

	// Template names a packaged profile of the type this profile derives
	// from. Empty means the profile stands on its own.
	Template string

	Activation   Activation
	Collection   CollectionPolicy
	Parameters   map[string]string
	Context      map[string]string
	ContextPath  string
	Dependencies []Directive
	Stages       []Directive
}

func (p Profile) DependencyPath(key string) string {
	for _, d := range p.Dependencies {
		if d.Key == key {
			return d.Path
		}
	}
	return ""
}

func (p Profile) StagePath(key string) string {
	for _, d := range p.Stages {
		if d.Key == key {
			return d.Path
		}
	}
	return ""
}

func (p Profile) String() string {
	return p.Name + " [" + string(p.Mode) + "] " + p.Classname
}

// ExportDirective publishes a service of an inner model through its
// enclosing containment.
type ExportDirective struct {
	Service ServiceDescriptor
	Path    string
}

// ContainmentProfile configures a composite scope.
type ContainmentProfile struct {
	Name       string
	Mode       Mode
	Types      []*Type
	Components []Profile
	Containers []ContainmentProfile
	Exports    []ExportDirective
}

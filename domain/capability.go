package domain

// Capability is a gatable unit of functionality a downstream client may be
// permitted to invoke on the user's behalf.
type Capability struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CapabilityRegistry is the static list of capabilities users can enable or
// disable on the consent page. The registry is fixed at startup.
type CapabilityRegistry struct {
	capabilities []Capability
	byName       map[string]Capability
}

// NewCapabilityRegistry builds a registry from the given capabilities,
// preserving their order for display.
func NewCapabilityRegistry(capabilities ...Capability) *CapabilityRegistry {
	byName := make(map[string]Capability, len(capabilities))
	for _, c := range capabilities {
		byName[c.Name] = c
	}
	return &CapabilityRegistry{capabilities: capabilities, byName: byName}
}

// DefaultCapabilityRegistry returns the built-in capability set.
func DefaultCapabilityRegistry() *CapabilityRegistry {
	return NewCapabilityRegistry(
		Capability{Name: "get_email", Description: "Read your email address"},
		Capability{Name: "get_name", Description: "Read your display name"},
	)
}

// List returns all registered capabilities in registration order.
func (r *CapabilityRegistry) List() []Capability {
	out := make([]Capability, len(r.capabilities))
	copy(out, r.capabilities)
	return out
}

// Known reports whether the named capability is registered.
func (r *CapabilityRegistry) Known(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Intersect filters the submitted names down to registered capabilities,
// dropping unknown names and duplicates. Unregistered names can never become
// enabled this way.
func (r *CapabilityRegistry) Intersect(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := seen[name]; dup {
			continue
		}
		if !r.Known(name) {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

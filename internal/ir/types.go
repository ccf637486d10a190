package ir

import "fmt"

// Wildcard matches any value in a Selector field.
const Wildcard = "*"

// Quantity is a (capability, type) request. An empty Type means "any type"
// and is only legal for terminal requests and loop-manager requests.
type Quantity struct {
	Capability string `json:"capability" yaml:"capability"`
	Type       string `json:"type" yaml:"type"`
}

// String renders the quantity as "capability (type)".
func (q Quantity) String() string {
	return fmt.Sprintf("%s (%s)", q.Capability, q.Type)
}

// Identity is the full matchable identity of a descriptor.
// Module holds the owning module for functors and the backend name for
// backend functions.
type Identity struct {
	Capability string `json:"capability"`
	Type       string `json:"type"`
	Function   string `json:"function"`
	Module     string `json:"module"`
	Version    string `json:"version"`
}

// Quantity returns the (capability, type) pair of the identity.
func (id Identity) Quantity() Quantity {
	return Quantity{Capability: id.Capability, Type: id.Type}
}

// Label renders "module.function", the short name used in graphs and logs.
func (id Identity) Label() string {
	return id.Module + "." + id.Function
}

// Selector is an explicit matching rule from configuration. Empty or "*"
// fields match anything; every other field must equal the descriptor's.
type Selector struct {
	Capability string `json:"capability,omitempty" yaml:"capability,omitempty"`
	Type       string `json:"type,omitempty" yaml:"type,omitempty"`
	Function   string `json:"function,omitempty" yaml:"function,omitempty"`
	Module     string `json:"module,omitempty" yaml:"module,omitempty"`
	Version    string `json:"version,omitempty" yaml:"version,omitempty"`
}

// String renders the selector as "capability (type) [function, module]".
func (s Selector) String() string {
	return fmt.Sprintf("%s (%s) [%s, %s]", s.Capability, s.Type, s.Function, s.Module)
}

// Functor describes one module function: a computation unit that provides a
// capability and declares what it depends on.
type Functor struct {
	Capability string `json:"capability"`
	Type       string `json:"type"`
	Function   string `json:"function"`
	Module     string `json:"module"`
	Version    string `json:"version"`
	Purpose    string `json:"purpose,omitempty"`

	// Dependencies are resolved against other functors.
	Dependencies []Quantity `json:"dependencies,omitempty"`

	// BackendReqs are resolved against backend functions.
	BackendReqs []BackendReq `json:"backend_reqs,omitempty"`

	// ForceMatching lists backend requirement tags whose members must all be
	// filled from the same backend origin and version.
	ForceMatching []string `json:"force_matching,omitempty"`

	// CanManageLoops marks the functor as a loop manager.
	CanManageLoops bool `json:"can_manage_loops,omitempty"`

	// LoopManagerCapability is the capability of the loop manager this
	// functor runs nested under. Empty means none.
	LoopManagerCapability string `json:"loop_manager_capability,omitempty"`

	// AllowedModels restricts the models the functor may run under.
	// Empty means every model is allowed. A model listed here is also the
	// set of models the functor is explicitly tailored for.
	AllowedModels []string `json:"allowed_models,omitempty"`

	// RuntimeAverage and InvalidationRate are externally supplied estimates
	// used only to order terminal outputs.
	RuntimeAverage   float64 `json:"-"`
	InvalidationRate float64 `json:"-"`
}

// Identity returns the matchable identity of the functor.
func (f *Functor) Identity() Identity {
	return Identity{
		Capability: f.Capability,
		Type:       f.Type,
		Function:   f.Function,
		Module:     f.Module,
		Version:    f.Version,
	}
}

// Quantity returns the (capability, type) the functor provides.
func (f *Functor) Quantity() Quantity {
	return Quantity{Capability: f.Capability, Type: f.Type}
}

// BackendGroups returns the distinct non-empty group names in declaration order.
func (f *Functor) BackendGroups() []string {
	var groups []string
	seen := make(map[string]bool)
	for _, req := range f.BackendReqs {
		if req.Group == "" || seen[req.Group] {
			continue
		}
		seen[req.Group] = true
		groups = append(groups, req.Group)
	}
	return groups
}

// BackendReqsInGroup returns the requirements of a group. The empty group
// returns the orphan (ungrouped) requirements.
func (f *Functor) BackendReqsInGroup(group string) []BackendReq {
	var reqs []BackendReq
	for _, req := range f.BackendReqs {
		if req.Group == group {
			reqs = append(reqs, req)
		}
	}
	return reqs
}

// BackendReq returns the requirement declared for a quantity.
func (f *Functor) BackendReq(q Quantity) (BackendReq, bool) {
	for _, req := range f.BackendReqs {
		if req.Quantity == q {
			return req, true
		}
	}
	return BackendReq{}, false
}

// MustMatch returns the requirements that share tag, if tag carries a
// forced-match rule. It returns nil for tags without a rule.
func (f *Functor) MustMatch(tag string) []Quantity {
	ruled := false
	for _, t := range f.ForceMatching {
		if t == tag {
			ruled = true
			break
		}
	}
	if !ruled {
		return nil
	}
	var out []Quantity
	for _, req := range f.BackendReqs {
		for _, t := range req.Tags {
			if t == tag {
				out = append(out, req.Quantity)
				break
			}
		}
	}
	return out
}

// BackendReq is one backend requirement of a functor.
type BackendReq struct {
	Quantity

	// Group names a set of mutually exclusive alternatives. Empty means the
	// requirement is an orphan and must be satisfied on its own.
	Group string `json:"group,omitempty"`

	// Tags link requirements for forced-match rules.
	Tags []string `json:"tags,omitempty"`

	// Permitted restricts which backends may fill the requirement.
	// Empty means any backend is permitted.
	Permitted []BackendSpec `json:"permitted,omitempty"`
}

// BackendSpec names a backend and version. Version "any" permits every
// version of the backend.
type BackendSpec struct {
	Backend string `json:"backend"`
	Version string `json:"version"`
}

// AnyVersion permits every version of a backend in a BackendSpec.
const AnyVersion = "any"

// BackendFunc describes a function provided by a native backend library.
type BackendFunc struct {
	Capability string `json:"capability"`
	Type       string `json:"type"`
	Function   string `json:"function"`
	Backend    string `json:"backend"`
	Version    string `json:"version"`

	// Disabled is the status reported by the backend loader.
	Disabled bool `json:"disabled,omitempty"`
}

// Identity returns the matchable identity of the backend function.
// The backend name takes the Module slot.
func (b *BackendFunc) Identity() Identity {
	return Identity{
		Capability: b.Capability,
		Type:       b.Type,
		Function:   b.Function,
		Module:     b.Backend,
		Version:    b.Version,
	}
}

// Quantity returns the (capability, type) the backend function provides.
func (b *BackendFunc) Quantity() Quantity {
	return Quantity{Capability: b.Capability, Type: b.Type}
}

// Signature renders "backend vversion", the forced-match comparison key.
func (b *BackendFunc) Signature() string {
	return b.Backend + " v" + b.Version
}

// Model is a physics model with its parent lineage.
type Model struct {
	Name    string   `json:"name"`
	Parents []string `json:"parents,omitempty"`
}

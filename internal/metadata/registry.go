package metadata

import (
	"fmt"
	"strings"
)

// Registry maps kind names to their contracts. It is built once and never
// mutated afterwards, so it is safe to share between goroutines.
type Registry struct {
	kinds  map[string]*Kind
	folded map[string]*Kind
	order  []*Kind
}

// Reference is a ref field of Kind pointing at some other kind.
type Reference struct {
	Kind  *Kind
	Field Field
}

// NewRegistry validates the given kinds and returns an immutable registry.
// A ref or refs target must be declared before the kind that points at it.
func NewRegistry(kinds ...*Kind) (*Registry, error) {
	r := &Registry{
		kinds:  make(map[string]*Kind, len(kinds)),
		folded: make(map[string]*Kind, len(kinds)),
	}

	for _, k := range kinds {
		if k.Name == "" || k.Table == "" {
			return nil, fmt.Errorf("kind %q: name and table are required", k.Name)
		}
		if _, dup := r.folded[strings.ToLower(k.Name)]; dup {
			return nil, fmt.Errorf("kind %q declared twice", k.Name)
		}
		for _, f := range k.Fields {
			if f.Name == PrimaryKey {
				return nil, fmt.Errorf("kind %s: field %q is reserved", k.Name, f.Name)
			}
			if f.Type != TypeRef && f.Type != TypeRefs {
				continue
			}
			if f.Target != k.Name {
				if _, ok := r.kinds[f.Target]; !ok {
					return nil, fmt.Errorf("kind %s: field %s targets undeclared kind %q", k.Name, f.Name, f.Target)
				}
			}
			if f.Type == TypeRefs && (f.JoinTable == "" || f.JoinSource == "" || f.JoinTarget == "") {
				return nil, fmt.Errorf("kind %s: field %s needs a join table layout", k.Name, f.Name)
			}
		}
		if k.Slug != nil && (k.GetField(k.Slug.Field) == nil || k.GetField(k.Slug.Source) == nil) {
			return nil, fmt.Errorf("kind %s: slug config names unknown fields", k.Name)
		}
		for _, rule := range k.Rules {
			if err := rule.Compile(); err != nil {
				return nil, fmt.Errorf("kind %s: %w", k.Name, err)
			}
		}

		r.kinds[k.Name] = k
		r.folded[strings.ToLower(k.Name)] = k
		r.order = append(r.order, k)
	}

	return r, nil
}

// Lookup returns the kind registered under exactly this name.
func (r *Registry) Lookup(name string) (*Kind, bool) {
	k, ok := r.kinds[name]
	return k, ok
}

// Resolve is Lookup without regard to case, for names taken from URLs.
func (r *Registry) Resolve(name string) (*Kind, bool) {
	k, ok := r.folded[strings.ToLower(name)]
	return k, ok
}

// Kinds returns every kind in declaration order.
func (r *Registry) Kinds() []*Kind {
	out := make([]*Kind, len(r.order))
	copy(out, r.order)
	return out
}

// ReferencesTo returns every ref and refs field, across all kinds, whose target is the named kind.
func (r *Registry) ReferencesTo(target string) []Reference {
	var refs []Reference
	for _, k := range r.order {
		for _, f := range k.Fields {
			if (f.Type == TypeRef || f.Type == TypeRefs) && f.Target == target {
				refs = append(refs, Reference{Kind: k, Field: f})
			}
		}
	}
	return refs
}

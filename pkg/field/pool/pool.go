// Package pool defines entry pools, subblock types and the registry that
// resolves a label back to the pool it came from.
//
// A [Pool] is a named, ordered list of genetic-entry labels eligible for one
// role in a block (commonly role A or role B). A [SubblockType] pairs two pools
// under a name and a color tag. The [Registry] holds both and answers
// [Registry.Lookup] exhaustively: an unknown label is an error, never a
// silent default.
package pool

import (
	"slices"

	"github.com/matzehuels/fieldtrial/pkg/errors"
)

// Role is the side of the A/B split a cell belongs to.
type Role string

const (
	RoleA Role = "A"
	RoleB Role = "B"
)

// Pool is a named ordered set of entry labels.
// Duplicate entries are allowed and treated as distinct slots when shuffling.
type Pool struct {
	Name    string   `toml:"name" json:"name"`
	Entries []string `toml:"entries" json:"entries"`
	// Color is an optional fill used by renderers for every entry of the pool.
	Color string `toml:"color" json:"color,omitempty"`
}

// Len returns the number of entry slots.
func (p Pool) Len() int { return len(p.Entries) }

// Validate checks that the pool is non-empty and its labels are safe to export.
func (p Pool) Validate() error {
	if err := errors.ValidatePoolName(p.Name); err != nil {
		return err
	}
	if len(p.Entries) == 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "pool %q is empty", p.Name)
	}
	for _, e := range p.Entries {
		if err := errors.ValidateEntryLabel(e); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "pool %q", p.Name)
		}
	}
	return nil
}

// SubblockType pairs an A-pool with a B-pool.
type SubblockType struct {
	Name  string `toml:"name" json:"name"`
	A     string `toml:"a" json:"a"`
	B     string `toml:"b" json:"b"`
	Color string `toml:"color" json:"color,omitempty"`
}

// Membership is one pool a label belongs to.
type Membership struct {
	Pool  string
	Index int // position of the label within the pool
}

// Registry holds the pools and subblock types of one trial.
type Registry struct {
	pools   map[string]Pool
	order   []string
	types   []SubblockType
	members map[string][]Membership
}

// NewRegistry validates pools and types and indexes label membership.
// Every type must reference pools that exist.
func NewRegistry(pools []Pool, types []SubblockType) (*Registry, error) {
	r := &Registry{
		pools:   make(map[string]Pool, len(pools)),
		members: make(map[string][]Membership),
	}
	for _, p := range pools {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.pools[p.Name]; dup {
			return nil, errors.New(errors.ErrCodeInvalidConfig, "duplicate pool %q", p.Name)
		}
		p.Entries = slices.Clone(p.Entries)
		r.pools[p.Name] = p
		r.order = append(r.order, p.Name)
		for i, e := range p.Entries {
			r.members[e] = append(r.members[e], Membership{Pool: p.Name, Index: i})
		}
	}
	for _, t := range types {
		if err := errors.ValidatePoolName(t.Name); err != nil {
			return nil, err
		}
		for _, name := range []string{t.A, t.B} {
			if _, ok := r.pools[name]; !ok {
				return nil, errors.New(errors.ErrCodeInvalidConfig, "subblock type %q references unknown pool %q", t.Name, name)
			}
		}
		r.types = append(r.types, t)
	}
	return r, nil
}

// Pool returns the pool with the given name.
func (r *Registry) Pool(name string) (Pool, error) {
	p, ok := r.pools[name]
	if !ok {
		return Pool{}, errors.New(errors.ErrCodeNotFound, "unknown pool %q", name)
	}
	return p, nil
}

// Pools returns all pools in declaration order.
func (r *Registry) Pools() []Pool {
	out := make([]Pool, len(r.order))
	for i, name := range r.order {
		out[i] = r.pools[name]
	}
	return out
}

// Types returns the subblock types in declaration order.
func (r *Registry) Types() []SubblockType { return slices.Clone(r.types) }

// NumTypes returns the number of subblock types.
func (r *Registry) NumTypes() int { return len(r.types) }

// Type returns the subblock type at index i.
func (r *Registry) Type(i int) (SubblockType, error) {
	if i < 0 || i >= len(r.types) {
		return SubblockType{}, errors.New(errors.ErrCodeNotFound, "subblock type index %d out of range [0, %d)", i, len(r.types))
	}
	return r.types[i], nil
}

// TypeIndex returns the index of the named subblock type.
func (r *Registry) TypeIndex(name string) (int, error) {
	for i, t := range r.types {
		if t.Name == name {
			return i, nil
		}
	}
	return 0, errors.New(errors.ErrCodeNotFound, "unknown subblock type %q", name)
}

// Lookup returns every pool containing label. An unknown label is an
// UNKNOWN_LABEL error.
func (r *Registry) Lookup(label string) ([]Membership, error) {
	m, ok := r.members[label]
	if !ok {
		return nil, errors.New(errors.ErrCodeUnknownLabel, "label %q is not in any pool", label)
	}
	return slices.Clone(m), nil
}

// Color resolves the fill color of a label drawn from pool. The label must be
// a member of that pool and the pool must carry a color.
func (r *Registry) Color(poolName, label string) (string, error) {
	p, err := r.Pool(poolName)
	if err != nil {
		return "", err
	}
	if !slices.Contains(p.Entries, label) {
		return "", errors.New(errors.ErrCodeUnknownLabel, "label %q is not in pool %q", label, poolName)
	}
	if p.Color == "" {
		return "", errors.New(errors.ErrCodeNotFound, "pool %q has no color", poolName)
	}
	return p.Color, nil
}

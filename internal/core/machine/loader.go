package machine

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Config describes a whole machine in JSON or YAML. Nodes reference each
// other by name; Roots lists the top-level states in priority order. Leaf
// and predicate implementations are resolved through a Registry, keeping
// configs free of code.
type Config struct {
	Name   string                `json:"name" yaml:"name"`
	Policy string                `json:"return_policy,omitempty" yaml:"return_policy,omitempty"`
	Roots  []string              `json:"roots" yaml:"roots"`
	Nodes  map[string]NodeConfig `json:"nodes" yaml:"nodes"`
}

// NodeConfig describes a single named node.
type NodeConfig struct {
	Type      string         `json:"type" yaml:"type"`
	Children  []string       `json:"children,omitempty" yaml:"children,omitempty"`
	Action    string         `json:"action,omitempty" yaml:"action,omitempty"`
	Condition string         `json:"condition,omitempty" yaml:"condition,omitempty"`
	Params    map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// LoadJSON decodes a Config from JSON.
func LoadJSON(r io.Reader) (*Config, error) {
	var c Config
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode machine config: %w", err)
	}
	return &c, nil
}

// LoadYAML decodes a Config from YAML.
func LoadYAML(r io.Reader) (*Config, error) {
	var c Config
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode machine config: %w", err)
	}
	return &c, nil
}

// Build wires a Machine from the config using the registry. All child-type
// rules are enforced through the same registration APIs hand-built trees
// use, so a bad config aborts setup with a configuration error instead of
// misbehaving at runtime.
func (c *Config) Build(reg *Registry, opts ...Option) (*Machine, error) {
	switch c.Policy {
	case "", "collapse":
		opts = append([]Option{WithReturnPolicy(ReturnCollapse)}, opts...)
	case "yield":
		opts = append([]Option{WithReturnPolicy(ReturnYield)}, opts...)
	default:
		return nil, fmt.Errorf("config %q: unknown return policy %q", c.Name, c.Policy)
	}
	m := New(c.Name, opts...)

	b := &configBuilder{cfg: c, reg: reg, m: m, built: make(map[string]State), building: make(map[string]bool)}
	for _, root := range c.Roots {
		st, err := b.node(root)
		if err != nil {
			return nil, err
		}
		if err := m.AddState(st); err != nil {
			return nil, err
		}
	}
	return m, nil
}

type configBuilder struct {
	cfg      *Config
	reg      *Registry
	m        *Machine
	built    map[string]State
	building map[string]bool
}

// node instantiates a named node, memoized, with cycle detection.
func (b *configBuilder) node(name string) (State, error) {
	if st, ok := b.built[name]; ok {
		return st, nil
	}
	if b.building[name] {
		return nil, fmt.Errorf("%w: %q", ErrNodeCycle, name)
	}
	nc, ok := b.cfg.Nodes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, name)
	}
	b.building[name] = true
	defer delete(b.building, name)

	st, err := b.build(name, nc)
	if err != nil {
		return nil, err
	}
	b.built[name] = st
	return st, nil
}

func (b *configBuilder) build(name string, nc NodeConfig) (State, error) {
	switch nc.Type {
	case "action":
		factory := nc.Action
		if factory == "" {
			factory = name
		}
		return b.reg.NewAction(factory, nc.Params)

	case "sequence":
		valid, err := b.condition(name, nc)
		if err != nil {
			return nil, err
		}
		seq := NewSequenceState(b.m, name, valid)
		for _, child := range nc.Children {
			cs, err := b.node(child)
			if err != nil {
				return nil, err
			}
			if err := seq.AddSubState(cs); err != nil {
				return nil, err
			}
		}
		return seq, nil

	case "selector":
		sel := NewSelectorState(b.m, name)
		for _, child := range nc.Children {
			cs, err := b.node(child)
			if err != nil {
				return nil, err
			}
			sk, ok := cs.(SequenceKind)
			if !ok {
				return nil, fmt.Errorf("selector %q: %w: %s %q must be a sequence",
					name, ErrInvalidChild, KindOf(cs), child)
			}
			sel.AddSubState(sk)
		}
		return sel, nil

	case "decision":
		valid, err := b.condition(name, nc)
		if err != nil {
			return nil, err
		}
		dec := NewDecisionState(b.m, name, valid)
		for _, child := range nc.Children {
			cs, err := b.node(child)
			if err != nil {
				return nil, err
			}
			if err := dec.AddSubState(cs); err != nil {
				return nil, err
			}
		}
		return dec, nil

	default:
		return nil, fmt.Errorf("node %q: unknown type %q", name, nc.Type)
	}
}

func (b *configBuilder) condition(name string, nc NodeConfig) (func() bool, error) {
	if nc.Condition == "" {
		return nil, nil
	}
	valid, err := b.reg.NewCondition(nc.Condition, nc.Params)
	if err != nil {
		return nil, fmt.Errorf("node %q: %w", name, err)
	}
	return valid, nil
}

package mnet

// registry.go implements the table that maps a (kind, name) pair to the
// factory used to construct that variant.  Variants are registered
// explicitly, either by StdRegistry for the built-ins or by a plugin
// loading step before any topology is built.

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// devFactoryKinds lists the kinds whose factories construct a NetDev
var devFactoryKinds = []DevKind{HostKind, SwitchKind, ControllerKind}

// a regKey identifies one registered variant
type regKey struct {
	kind DevKind
	name string
}

// A Registry holds the factories for every pluggable device, link,
// interface, and topology variant, keyed by kind and name.  Names are
// unique within a kind and a later registration overwrites an earlier
// one; there is no removal.
//
// The registry has a two-phase lifecycle: it is written while built-ins
// and plugins register, before any topology is built, and is read-only
// afterward.  It carries no lock; respecting that ordering is the
// caller's precondition.
type Registry struct {
	factories map[regKey]any
}

// NewRegistry is a constructor for an empty registry
func NewRegistry() *Registry {
	reg := new(Registry)
	reg.factories = make(map[regKey]any)
	return reg
}

// Register inserts or overwrites the factory for (kind, name).  The
// factory must be a DevFactory, LinkFactory, IntrfcFactory, or
// TopoBuilder as appropriate for the kind; the typed resolvers below
// reject anything else at lookup time.
func (reg *Registry) Register(kind DevKind, name string, factory any) {
	reg.factories[regKey{kind: kind, name: name}] = factory
}

// resolve returns the factory stored for (kind, name), or ErrUnknownType
func (reg *Registry) resolve(kind DevKind, name string) (any, error) {
	factory, present := reg.factories[regKey{kind: kind, name: name}]
	if !present {
		return nil, fmt.Errorf("%s type %q: %w", DevKindToStr(kind), name, ErrUnknownType)
	}
	return factory, nil
}

// RegisterDev registers a device factory under one of the host, switch,
// or controller kinds
func (reg *Registry) RegisterDev(kind DevKind, name string, factory DevFactory) error {
	if !slices.Contains(devFactoryKinds, kind) {
		return fmt.Errorf("register %q as %s: %w", name, DevKindToStr(kind), ErrInvalidCategory)
	}
	reg.Register(kind, name, factory)
	return nil
}

// ResolveDev returns the device factory registered for (kind, name)
func (reg *Registry) ResolveDev(kind DevKind, name string) (DevFactory, error) {
	factory, err := reg.resolve(kind, name)
	if err != nil {
		return nil, err
	}
	devFactory, ok := factory.(DevFactory)
	if !ok {
		return nil, fmt.Errorf("%s type %q registered with wrong factory form: %w",
			DevKindToStr(kind), name, ErrUnknownType)
	}
	return devFactory, nil
}

// RegisterLink registers a link factory by name
func (reg *Registry) RegisterLink(name string, factory LinkFactory) {
	reg.Register(LinkKind, name, factory)
}

// ResolveLink returns the link factory registered under name
func (reg *Registry) ResolveLink(name string) (LinkFactory, error) {
	factory, err := reg.resolve(LinkKind, name)
	if err != nil {
		return nil, err
	}
	linkFactory, ok := factory.(LinkFactory)
	if !ok {
		return nil, fmt.Errorf("link type %q registered with wrong factory form: %w", name, ErrUnknownType)
	}
	return linkFactory, nil
}

// RegisterIntrfc registers an interface factory by name
func (reg *Registry) RegisterIntrfc(name string, factory IntrfcFactory) {
	reg.Register(IntrfcKind, name, factory)
}

// ResolveIntrfc returns the interface factory registered under name
func (reg *Registry) ResolveIntrfc(name string) (IntrfcFactory, error) {
	factory, err := reg.resolve(IntrfcKind, name)
	if err != nil {
		return nil, err
	}
	intrfcFactory, ok := factory.(IntrfcFactory)
	if !ok {
		return nil, fmt.Errorf("interface type %q registered with wrong factory form: %w", name, ErrUnknownType)
	}
	return intrfcFactory, nil
}

// RegisterTopo registers a topology builder by name
func (reg *Registry) RegisterTopo(name string, builder TopoBuilder) {
	reg.Register(TopoKind, name, builder)
}

// ResolveTopo returns the topology builder registered under name
func (reg *Registry) ResolveTopo(name string) (TopoBuilder, error) {
	factory, err := reg.resolve(TopoKind, name)
	if err != nil {
		return nil, err
	}
	builder, ok := factory.(TopoBuilder)
	if !ok {
		return nil, fmt.Errorf("topology type %q registered with wrong factory form: %w", name, ErrUnknownType)
	}
	return builder, nil
}

// StdRegistry returns a fresh registry populated with the built-in
// variants.  Each call returns an independent registry, so plugin
// registrations in one run never leak into another.
func StdRegistry() *Registry {
	reg := NewRegistry()

	reg.Register(HostKind, "default", DevFactory(createDefaultDev))
	reg.Register(HostKind, "docker", DevFactory(createExecDev))
	reg.Register(HostKind, "ubuntu", DevFactory(createUbuntuHost))
	reg.Register(SwitchKind, "default", DevFactory(createDefaultDev))
	reg.Register(SwitchKind, "docker", DevFactory(createExecDev))
	reg.Register(ControllerKind, "default", DevFactory(createDefaultDev))
	reg.Register(ControllerKind, "docker", DevFactory(createExecDev))

	reg.RegisterLink("default", createDefaultLink)
	reg.RegisterIntrfc("default", createDefaultIntrfc)

	reg.RegisterTopo("default", buildEmptyTopo)
	reg.RegisterTopo("linear", buildLinearTopo)
	reg.RegisterTopo("single", buildSingleTopo)
	reg.RegisterTopo("minimal", buildMinimalTopo)
	reg.RegisterTopo("desc", buildDescTopo)

	return reg
}

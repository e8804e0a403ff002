package mnet

// topo.go holds the topology: the owning collections of controllers,
// hosts, switches, and links for one emulated network, the build/start/
// stop lifecycle, and the add/remove operations that mutate a live
// topology.  A topology assumes a single logical owner drives it
// sequentially, whether through the blocking calls or their Async
// futures; it is not designed for concurrent multi-caller mutation.

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// A TopoBuilder populates an empty topology with its devices and links.
// Builders place and wire; they start nothing.
type TopoBuilder func(topo *Topology) error

// A TopoConfig carries the construction parameters of a topology
type TopoConfig struct {
	Name     string
	TopoType string

	// default type selectors used when an add operation does not name one
	HostType       string
	SwitchType     string
	ControllerType string
	LinkType       string
	IntrfcType     string

	// global parameters
	IPBase      string
	PrefixLen   int
	SetHostMACs bool
	StaticARP   bool
	PinCPUs     bool
	ListenPort  int
	SwWaitSec   int

	// collaborators
	Reg    *Registry
	Runner Runner
	Ports  PortProvider
}

// withDefaults returns the config with unset fields replaced by defaults
func (cfg TopoConfig) withDefaults() TopoConfig {
	if cfg.Name == "" {
		cfg.Name = "mnet"
	}
	if cfg.TopoType == "" {
		cfg.TopoType = "default"
	}
	if cfg.HostType == "" {
		cfg.HostType = "default"
	}
	if cfg.SwitchType == "" {
		cfg.SwitchType = "default"
	}
	if cfg.ControllerType == "" {
		cfg.ControllerType = "default"
	}
	if cfg.LinkType == "" {
		cfg.LinkType = "default"
	}
	if cfg.IntrfcType == "" {
		cfg.IntrfcType = "default"
	}
	if cfg.IPBase == "" {
		cfg.IPBase = dfltIPBase
	}
	if cfg.PrefixLen <= 0 {
		cfg.PrefixLen = dfltPrefixLen
	}
	if cfg.ListenPort == 0 {
		cfg.ListenPort = 8000
	}
	if cfg.SwWaitSec == 0 {
		cfg.SwWaitSec = 60
	}
	if cfg.Reg == nil {
		cfg.Reg = StdRegistry()
	}
	return cfg
}

// A Topology owns four independent collections: controllers, hosts,
// switches, and links, each mapping a name unique within its own
// collection to the entity.  Iteration over a collection follows
// insertion order.  Lifecycle is Unbuilt -> Built -> Running ->
// Stopped; Build populates, Start and Stop sequence the device
// lifecycles category by category.
type Topology struct {
	name     string
	topoType string
	state    TopoState

	hostType       string
	switchType     string
	controllerType string
	linkType       string
	intrfcType     string

	ipBase      string
	prefixLen   int
	setHostMACs bool
	staticARP   bool
	pinCPUs     bool
	listenPort  int
	swWaitSec   int

	reg    *Registry
	runner Runner
	ports  PortProvider

	ctlrOrder   []string
	hostOrder   []string
	switchOrder []string
	linkOrder   []string

	ctlrs    map[string]NetDev
	hosts    map[string]NetDev
	switches map[string]NetDev
	links    map[string]*LinkFrame

	// source description for the desc-driven builder
	descSrc *TopoDesc
}

// CreateTopology is a constructor.  The topology starts Unbuilt and
// empty; Build populates it through the builder registered under its
// topology type.
func CreateTopology(cfg TopoConfig) *Topology {
	cfg = cfg.withDefaults()

	topo := new(Topology)
	topo.name = cfg.Name
	topo.topoType = cfg.TopoType
	topo.state = TopoUnbuilt
	topo.hostType = cfg.HostType
	topo.switchType = cfg.SwitchType
	topo.controllerType = cfg.ControllerType
	topo.linkType = cfg.LinkType
	topo.intrfcType = cfg.IntrfcType
	topo.ipBase = cfg.IPBase
	topo.prefixLen = cfg.PrefixLen
	topo.setHostMACs = cfg.SetHostMACs
	topo.staticARP = cfg.StaticARP
	topo.pinCPUs = cfg.PinCPUs
	topo.listenPort = cfg.ListenPort
	topo.swWaitSec = cfg.SwWaitSec
	topo.reg = cfg.Reg
	topo.runner = cfg.Runner
	topo.ports = cfg.Ports
	topo.ctlrs = make(map[string]NetDev)
	topo.hosts = make(map[string]NetDev)
	topo.switches = make(map[string]NetDev)
	topo.links = make(map[string]*LinkFrame)
	return topo
}

// TopoName returns the topology's name
func (topo *Topology) TopoName() string {
	return topo.name
}

// State returns the topology's lifecycle state
func (topo *Topology) State() TopoState {
	return topo.state
}

// SwWaitSec returns the advisory number of seconds a caller may wait
// for switches to report ready.  The topology itself never blocks on it.
func (topo *Topology) SwWaitSec() int {
	return topo.swWaitSec
}

// ListenPort returns the configured base listening port
func (topo *Topology) ListenPort() int {
	return topo.listenPort
}

// Host returns the named host, or nil if absent
func (topo *Topology) Host(name string) NetDev {
	return topo.hosts[name]
}

// Switch returns the named switch, or nil if absent
func (topo *Topology) Switch(name string) NetDev {
	return topo.switches[name]
}

// Controller returns the named controller, or nil if absent
func (topo *Topology) Controller(name string) NetDev {
	return topo.ctlrs[name]
}

// Link returns the named link, or nil if absent
func (topo *Topology) Link(name string) *LinkFrame {
	return topo.links[name]
}

// Hosts returns the host names in insertion order
func (topo *Topology) Hosts() []string {
	return slices.Clone(topo.hostOrder)
}

// Switches returns the switch names in insertion order
func (topo *Topology) Switches() []string {
	return slices.Clone(topo.switchOrder)
}

// Controllers returns the controller names in insertion order
func (topo *Topology) Controllers() []string {
	return slices.Clone(topo.ctlrOrder)
}

// Links returns the link names in insertion order
func (topo *Topology) Links() []string {
	return slices.Clone(topo.linkOrder)
}

// Dev looks a device up by name across the controller, host, and
// switch collections, in that order
func (topo *Topology) Dev(name string) (NetDev, error) {
	if dev, present := topo.ctlrs[name]; present {
		return dev, nil
	}
	if dev, present := topo.hosts[name]; present {
		return dev, nil
	}
	if dev, present := topo.switches[name]; present {
		return dev, nil
	}
	return nil, fmt.Errorf("device %q: %w", name, ErrNoSuchDev)
}

// collection maps a singular device category to its collection, order
// slice, kind, and default type selector
func (topo *Topology) collection(category string) (map[string]NetDev, *[]string, DevKind, string, error) {
	switch category {
	case "host":
		return topo.hosts, &topo.hostOrder, HostKind, topo.hostType, nil
	case "switch":
		return topo.switches, &topo.switchOrder, SwitchKind, topo.switchType, nil
	case "controller":
		return topo.ctlrs, &topo.ctlrOrder, ControllerKind, topo.controllerType, nil
	default:
		return nil, nil, DevKind(-1), "", fmt.Errorf("category %q: %w", category, ErrInvalidCategory)
	}
}

// singularize maps the plural removal categories onto the singular ones
func singularize(category string) (string, error) {
	switch category {
	case "hosts":
		return "host", nil
	case "switches":
		return "switch", nil
	case "controllers":
		return "controller", nil
	default:
		return "", fmt.Errorf("category %q: %w", category, ErrInvalidCategory)
	}
}

// devConfigDefaults fills collaborator and parameter fields the caller
// left unset from the topology's configuration
func (topo *Topology) devConfigDefaults(cfg DevConfig) DevConfig {
	if cfg.IntrfcType == "" {
		cfg.IntrfcType = topo.intrfcType
	}
	if cfg.IPBase == "" {
		cfg.IPBase = topo.ipBase
		if cfg.PrefixLen <= 0 {
			cfg.PrefixLen = topo.prefixLen
		}
	}
	if cfg.Reg == nil {
		cfg.Reg = topo.reg
	}
	if cfg.Runner == nil {
		cfg.Runner = topo.runner
	}
	if !cfg.SetMAC {
		cfg.SetMAC = topo.setHostMACs
	}
	return cfg
}

// placeDev constructs a device through the given factory and inserts it
// into the category's collection without starting it
func (topo *Topology) placeDev(name, category string, factory DevFactory, cfg DevConfig) (NetDev, error) {
	byName, order, kind, _, err := topo.collection(category)
	if err != nil {
		return nil, err
	}
	if _, present := byName[name]; present {
		return nil, fmt.Errorf("%s %q: %w", category, name, ErrDuplicateName)
	}
	dev, err := factory(name, kind, topo.devConfigDefaults(cfg))
	if err != nil {
		return nil, err
	}
	byName[name] = dev
	*order = append(*order, name)
	return dev, nil
}

// PlaceDev constructs a device of the named type (the category's
// default type when typeName is empty) and inserts it without starting
// it.  Topology builders use this; live mutation goes through AddDev.
func (topo *Topology) PlaceDev(name, category, typeName string, cfg DevConfig) (NetDev, error) {
	_, _, kind, dfltType, err := topo.collection(category)
	if err != nil {
		return nil, err
	}
	if typeName == "" {
		typeName = dfltType
	}
	factory, err := topo.reg.ResolveDev(kind, typeName)
	if err != nil {
		return nil, err
	}
	return topo.placeDev(name, category, factory, cfg)
}

// discardDev removes a device from its collection's bookkeeping
func (topo *Topology) discardDev(name, category string) {
	byName, order, _, _, err := topo.collection(category)
	if err != nil {
		return
	}
	delete(byName, name)
	if idx := slices.Index(*order, name); idx >= 0 {
		*order = slices.Delete(*order, idx, idx+1)
	}
}

// AddDev constructs, stores, and starts a device in the named category
// (one of "host", "switch", "controller").  The start is part of the
// add: a topology observed after AddDev returns is either absent the
// name or holds it running.  If the start fails the insertion is undone
// and the error surfaced.
func (topo *Topology) AddDev(ctx context.Context, name, category, typeName string, cfg DevConfig) error {
	dev, err := topo.PlaceDev(name, category, typeName, cfg)
	if err != nil {
		return err
	}
	log.Infof("adding %s %s", category, name)
	if err := dev.Start(ctx); err != nil {
		topo.discardDev(name, category)
		return err
	}
	return nil
}

// AddDevFrom is AddDev with an explicit factory in place of a
// registered type name
func (topo *Topology) AddDevFrom(ctx context.Context, name, category string, factory DevFactory, cfg DevConfig) error {
	dev, err := topo.placeDev(name, category, factory, cfg)
	if err != nil {
		return err
	}
	if err := dev.Start(ctx); err != nil {
		topo.discardDev(name, category)
		return err
	}
	return nil
}

// RmDev pops a device from the named plural category (one of "hosts",
// "switches", "controllers") and stops it.  Removal is deliberately
// best-effort: if the stop fails the device is gone from the topology's
// bookkeeping regardless, and the stop error is surfaced for the caller.
func (topo *Topology) RmDev(ctx context.Context, name, category string) error {
	singular, err := singularize(category)
	if err != nil {
		return err
	}
	byName, _, _, _, err := topo.collection(singular)
	if err != nil {
		return err
	}
	dev, present := byName[name]
	if !present {
		return fmt.Errorf("%s %q: %w", singular, name, ErrNotFound)
	}
	topo.discardDev(name, singular)
	log.Infof("removing %s %s", singular, name)
	if err := dev.Stop(ctx); err != nil {
		return fmt.Errorf("stop removed %s %s: %w", singular, name, err)
	}
	return nil
}

// resolveEndpoint parses a "device.port" specification and resolves it
// to the device and interface it names
func (topo *Topology) resolveEndpoint(endpoint string) (NetDev, *Intrfc, int, error) {
	devName, port, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, nil, 0, err
	}
	dev, err := topo.Dev(devName)
	if err != nil {
		return nil, nil, 0, err
	}
	intrfc, present := dev.DevIntrfcs()[port]
	if !present {
		return nil, nil, 0, fmt.Errorf("device %q interface %d: %w", devName, port, ErrNoSuchIntrfc)
	}
	return dev, intrfc, port, nil
}

// PlaceLink wires the two endpoints, constructs a link of the named
// type (the topology's default when typeName is empty), and stores it,
// all without starting it.  Endpoints are "device.port" strings split
// on the final dot.
func (topo *Topology) PlaceLink(name, src, dst, typeName string) (*LinkFrame, error) {
	if _, present := topo.links[name]; present {
		return nil, fmt.Errorf("link %q: %w", name, ErrDuplicateName)
	}
	if typeName == "" {
		typeName = topo.linkType
	}
	factory, err := topo.reg.ResolveLink(typeName)
	if err != nil {
		return nil, err
	}

	srcDev, srcIntrfc, srcPort, err := topo.resolveEndpoint(src)
	if err != nil {
		return nil, err
	}
	dstDev, dstIntrfc, dstPort, err := topo.resolveEndpoint(dst)
	if err != nil {
		return nil, err
	}
	if err := connectIntrfcs(srcIntrfc, dstIntrfc); err != nil {
		return nil, err
	}

	link, err := factory(name, LinkConfig{
		SrcDev:    srcDev.DevName(),
		SrcPort:   srcPort,
		DstDev:    dstDev.DevName(),
		DstPort:   dstPort,
		SrcIntrfc: srcIntrfc,
		DstIntrfc: dstIntrfc,
		Ports:     topo.ports,
	})
	if err != nil {
		disconnectIntrfcs(srcIntrfc, dstIntrfc)
		return nil, err
	}
	topo.links[name] = link
	topo.linkOrder = append(topo.linkOrder, name)
	return link, nil
}

// AddLink wires, constructs, stores, and starts a link between two
// "device.port" endpoints.  As with AddDev, the start is part of the
// add; a failed start undoes the wiring and the insertion.
func (topo *Topology) AddLink(ctx context.Context, name, src, dst, typeName string) error {
	link, err := topo.PlaceLink(name, src, dst, typeName)
	if err != nil {
		return err
	}
	log.Infof("adding link %s (%s <-> %s)", name, src, dst)
	if err := link.Start(ctx); err != nil {
		topo.dropLink(name, link)
		return err
	}
	return nil
}

// dropLink unwires a link's endpoints and removes it from bookkeeping
func (topo *Topology) dropLink(name string, link *LinkFrame) error {
	delete(topo.links, name)
	if idx := slices.Index(topo.linkOrder, name); idx >= 0 {
		topo.linkOrder = slices.Delete(topo.linkOrder, idx, idx+1)
	}
	return disconnectIntrfcs(link.srcIntrfc, link.dstIntrfc)
}

// RmLink unwires both endpoints of the named link, stops it, and
// removes it.  The peers are cleared through the interfaces resolved at
// link creation, so removal is exact even when devices have since been
// renamed out from under the maps.  As with RmDev, removal survives a
// stop failure.
func (topo *Topology) RmLink(ctx context.Context, name string) error {
	link, present := topo.links[name]
	if !present {
		return fmt.Errorf("link %q: %w", name, ErrNotFound)
	}
	log.Infof("removing link %s", name)
	unwireErr := topo.dropLink(name, link)
	if err := link.Stop(ctx); err != nil {
		return errors.Join(unwireErr, fmt.Errorf("stop removed link %s: %w", name, err))
	}
	return unwireErr
}

// Build populates the topology through the builder registered under its
// topology type.  Building places and wires devices and links but
// starts nothing.
func (topo *Topology) Build() error {
	if topo.state != TopoUnbuilt {
		return fmt.Errorf("build topology %s in state %s", topo.name, TopoStateToStr(topo.state))
	}
	builder, err := topo.reg.ResolveTopo(topo.topoType)
	if err != nil {
		return err
	}
	if err := builder(topo); err != nil {
		return err
	}
	topo.state = TopoBuilt
	return nil
}

// Start starts every device and link, controllers first, then hosts,
// then switches, then links, each category in insertion order.  Hosts
// start before switches before links so that a starting link never
// races a device that has not yet initialized its interfaces.  On
// failure the devices already started remain started; the caller is
// expected to Stop to reach a clean state.
func (topo *Topology) Start(ctx context.Context) error {
	if topo.state != TopoBuilt && topo.state != TopoStopped {
		return fmt.Errorf("start topology %s in state %s", topo.name, TopoStateToStr(topo.state))
	}
	for _, name := range topo.ctlrOrder {
		log.Infof("starting controller %s", name)
		if err := topo.ctlrs[name].Start(ctx); err != nil {
			return fmt.Errorf("start controller %s: %w", name, err)
		}
	}
	for _, name := range topo.hostOrder {
		log.Infof("starting host %s", name)
		if err := topo.hosts[name].Start(ctx); err != nil {
			return fmt.Errorf("start host %s: %w", name, err)
		}
	}
	for _, name := range topo.switchOrder {
		log.Infof("starting switch %s", name)
		if err := topo.switches[name].Start(ctx); err != nil {
			return fmt.Errorf("start switch %s: %w", name, err)
		}
	}
	for _, name := range topo.linkOrder {
		log.Infof("starting link %s", name)
		if err := topo.links[name].Start(ctx); err != nil {
			return fmt.Errorf("start link %s: %w", name, err)
		}
	}
	topo.state = TopoRunning
	return nil
}

// Stop stops every device and link in the same category order as Start.
// One entity's failure never prevents cleanup of its siblings: Stop
// visits everything, collecting failures, and returns them joined.
// Stopping a topology whose start partially failed, or that never
// started, is safe; the individual stops are idempotent no-ops.
func (topo *Topology) Stop(ctx context.Context) error {
	if topo.state == TopoUnbuilt {
		return nil
	}
	var errs []error
	for _, name := range topo.ctlrOrder {
		log.Infof("stopping controller %s", name)
		if err := topo.ctlrs[name].Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop controller %s: %w", name, err))
		}
	}
	for _, name := range topo.hostOrder {
		log.Infof("stopping host %s", name)
		if err := topo.hosts[name].Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop host %s: %w", name, err))
		}
	}
	for _, name := range topo.switchOrder {
		log.Infof("stopping switch %s", name)
		if err := topo.switches[name].Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop switch %s: %w", name, err))
		}
	}
	for _, name := range topo.linkOrder {
		log.Infof("stopping link %s", name)
		if err := topo.links[name].Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop link %s: %w", name, err))
		}
	}
	topo.state = TopoStopped
	return errors.Join(errs...)
}

// StartAsync runs Start behind a one-shot future.  The suspension point
// is the delegation to the collaborators inside the device starts.
func (topo *Topology) StartAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- topo.Start(ctx)
	}()
	return done
}

// StopAsync runs Stop behind a one-shot future
func (topo *Topology) StopAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- topo.Stop(ctx)
	}()
	return done
}

// AddDevAsync is AddDev as a future.  Construction and insertion happen
// before the future is returned; only the device start runs behind it.
func (topo *Topology) AddDevAsync(ctx context.Context, name, category, typeName string, cfg DevConfig) <-chan error {
	done := make(chan error, 1)
	dev, err := topo.PlaceDev(name, category, typeName, cfg)
	if err != nil {
		done <- err
		return done
	}
	go func() {
		if err := dev.Start(ctx); err != nil {
			topo.discardDev(name, category)
			done <- err
			return
		}
		done <- nil
	}()
	return done
}

// RmDevAsync is RmDev as a future.  The bookkeeping removal happens
// before the future is returned; only the device stop runs behind it.
func (topo *Topology) RmDevAsync(ctx context.Context, name, category string) <-chan error {
	done := make(chan error, 1)
	singular, err := singularize(category)
	if err != nil {
		done <- err
		return done
	}
	byName, _, _, _, err := topo.collection(singular)
	if err != nil {
		done <- err
		return done
	}
	dev, present := byName[name]
	if !present {
		done <- fmt.Errorf("%s %q: %w", singular, name, ErrNotFound)
		return done
	}
	topo.discardDev(name, singular)
	go func() {
		if err := dev.Stop(ctx); err != nil {
			done <- fmt.Errorf("stop removed %s %s: %w", singular, name, err)
			return
		}
		done <- nil
	}()
	return done
}

// AddLinkAsync is AddLink as a future.  Wiring, construction, and
// insertion happen before the future is returned; only the link start
// runs behind it.
func (topo *Topology) AddLinkAsync(ctx context.Context, name, src, dst, typeName string) <-chan error {
	done := make(chan error, 1)
	link, err := topo.PlaceLink(name, src, dst, typeName)
	if err != nil {
		done <- err
		return done
	}
	go func() {
		if err := link.Start(ctx); err != nil {
			topo.dropLink(name, link)
			done <- err
			return
		}
		done <- nil
	}()
	return done
}

// RmLinkAsync is RmLink as a future.  The unwire and the bookkeeping
// removal happen before the future is returned; only the link stop runs
// behind it.
func (topo *Topology) RmLinkAsync(ctx context.Context, name string) <-chan error {
	done := make(chan error, 1)
	link, present := topo.links[name]
	if !present {
		done <- fmt.Errorf("link %q: %w", name, ErrNotFound)
		return done
	}
	unwireErr := topo.dropLink(name, link)
	go func() {
		if err := link.Stop(ctx); err != nil {
			done <- errors.Join(unwireErr, fmt.Errorf("stop removed link %s: %w", name, err))
			return
		}
		done <- unwireErr
	}()
	return done
}

// buildEmptyTopo is the default topology builder: an empty topology the
// caller populates through the add operations
func buildEmptyTopo(topo *Topology) error {
	return nil
}

// buildLinearTopo builds the linear topology with two switches and one
// host on each switch:
//
//	h1 - s1 = s2 - h2
func buildLinearTopo(topo *Topology) error {
	if _, err := topo.PlaceDev("h1", "host", "", DevConfig{}); err != nil {
		return err
	}
	if _, err := topo.PlaceDev("h2", "host", "", DevConfig{}); err != nil {
		return err
	}
	if _, err := topo.PlaceDev("s1", "switch", "", DevConfig{NumIntrfcs: 2}); err != nil {
		return err
	}
	if _, err := topo.PlaceDev("s2", "switch", "", DevConfig{NumIntrfcs: 2}); err != nil {
		return err
	}
	if _, err := topo.PlaceLink("h1 to s1", "h1.0", "s1.0", ""); err != nil {
		return err
	}
	if _, err := topo.PlaceLink("h2 to s2", "h2.0", "s2.0", ""); err != nil {
		return err
	}
	if _, err := topo.PlaceLink("s1-s2 trunk", "s1.1", "s2.1", ""); err != nil {
		return err
	}
	return nil
}

// buildSingleTopo builds one switch with two hosts attached
func buildSingleTopo(topo *Topology) error {
	if _, err := topo.PlaceDev("s1", "switch", "", DevConfig{NumIntrfcs: 2}); err != nil {
		return err
	}
	if _, err := topo.PlaceDev("h1", "host", "", DevConfig{}); err != nil {
		return err
	}
	if _, err := topo.PlaceDev("h2", "host", "", DevConfig{}); err != nil {
		return err
	}
	if _, err := topo.PlaceLink("h1 to s1", "h1.0", "s1.0", ""); err != nil {
		return err
	}
	if _, err := topo.PlaceLink("h2 to s1", "h2.0", "s1.1", ""); err != nil {
		return err
	}
	return nil
}

// buildMinimalTopo builds one switch with a single host attached
func buildMinimalTopo(topo *Topology) error {
	if _, err := topo.PlaceDev("s1", "switch", "", DevConfig{}); err != nil {
		return err
	}
	if _, err := topo.PlaceDev("h1", "host", "", DevConfig{}); err != nil {
		return err
	}
	if _, err := topo.PlaceLink("h1 to s1", "h1.0", "s1.0", ""); err != nil {
		return err
	}
	return nil
}

package mnet

// node.go holds the polymorphic device model.  Every topology
// participant satisfies the NetDev interface; the DevCore struct
// supplies the shared lifecycle state machine and interface bookkeeping,
// and the built-in variants differ only in how they are configured.

import (
	"context"
	"fmt"
	"net/netip"

	"github.com/iti/rngstream"
	log "github.com/sirupsen/logrus"
)

// defaults applied when a DevConfig leaves them unset
const (
	dfltIPBase     = "10.0.0.0"
	dfltPrefixLen  = 8
	dfltIntrfcType = "default"
)

// command and image backing the ubuntu host preset
const (
	ubuntuImage   = "ubuntu:20.04"
	ubuntuCommand = "touch keepalive && less keepalive"
)

// The NetDev interface lets common code drive every device variant
// involved in topology construction and lifecycle sequencing.
type NetDev interface {
	DevName() string                                 // returns the unique name of the device
	DevKind() DevKind                                // returns the device kind (Host, Switch, Controller, Link)
	DevState() DevState                              // returns the lifecycle state
	DevIntrfcs() map[int]*Intrfc                     // interface-index -> interface owned by the device
	DevAddIntrfc(index int, addr netip.Addr) error   // adds another interface to the device
	Start(ctx context.Context) error                 // transition Created or Stopped -> Running
	Stop(ctx context.Context) error                  // transition Running -> Stopped, no-op otherwise
	StartAsync(ctx context.Context) <-chan error     // Start as a one-shot future
	StopAsync(ctx context.Context) <-chan error      // Stop as a one-shot future
}

// A DevFactory constructs a device variant.  The kind argument carries
// the category the factory was resolved under, so one factory can serve
// hosts, switches, and controllers.
type DevFactory func(name string, kind DevKind, cfg DevConfig) (NetDev, error)

// A DevConfig carries the construction parameters of a device.  The
// zero value is usable; every field has a default.
type DevConfig struct {
	// interface variant resolved through the registry, "default" if empty
	IntrfcType string

	// number of interfaces populated densely from index 0, 1 if zero
	NumIntrfcs int

	// execution parameters handed to the Runner by execution-backed
	// variants.  Both must be non-empty before such a variant starts.
	Image   string
	Command string

	// subnet the device's address sequence draws from
	IPBase    string
	PrefixLen int

	// assign deterministic hardware addresses to new interfaces
	SetMAC bool

	// collaborators, normally filled in by the owning topology
	Reg    *Registry
	Runner Runner
}

// withDefaults returns the config with unset fields replaced by defaults
func (cfg DevConfig) withDefaults() DevConfig {
	if cfg.IntrfcType == "" {
		cfg.IntrfcType = dfltIntrfcType
	}
	if cfg.NumIntrfcs <= 0 {
		cfg.NumIntrfcs = 1
	}
	if cfg.IPBase == "" {
		cfg.IPBase = dfltIPBase
	}
	if cfg.PrefixLen <= 0 {
		cfg.PrefixLen = dfltPrefixLen
	}
	if cfg.Reg == nil {
		cfg.Reg = StdRegistry()
	}
	return cfg
}

// A DevCore holds the state shared by every device variant: identity,
// the interface map, the per-device address sequence and rng stream,
// and the lifecycle state machine.  Variants customize behavior either
// through the execution spec (image+command delegated to the Runner) or
// through hooks installed with SetLifecycle; a core with neither
// reports ErrNotImplemented when started, which is a contract violation
// in the variant.
type DevCore struct {
	name    string
	kind    DevKind
	state   DevState
	intrfcs map[int]*Intrfc

	addrs   *AddrSeq
	rngstrm *rngstream.RngStream // every device has its own rng stream
	setMAC  bool

	newIntrfc IntrfcFactory

	// execution backing
	execBacked bool
	image      string
	command    string
	handle     string
	runner     Runner

	// lifecycle hooks for variants with no execution backing
	startFn func(context.Context) error
	stopFn  func(context.Context) error
}

// CreateDevCore is a constructor.  It builds the address sequence and
// rng stream, resolves the interface factory, and populates interfaces
// densely from index 0 through cfg.NumIntrfcs-1.
func CreateDevCore(name string, kind DevKind, cfg DevConfig) (*DevCore, error) {
	cfg = cfg.withDefaults()

	intrfcFactory, err := cfg.Reg.ResolveIntrfc(cfg.IntrfcType)
	if err != nil {
		return nil, err
	}
	addrs, err := CreateAddrSeq(cfg.IPBase, cfg.PrefixLen)
	if err != nil {
		return nil, err
	}

	dev := new(DevCore)
	dev.name = name
	dev.kind = kind
	dev.state = DevCreated
	dev.intrfcs = make(map[int]*Intrfc)
	dev.addrs = addrs
	dev.rngstrm = rngstream.New(name)
	dev.setMAC = cfg.SetMAC
	dev.newIntrfc = intrfcFactory
	dev.image = cfg.Image
	dev.command = cfg.Command
	dev.runner = cfg.Runner

	for idx := 0; idx < cfg.NumIntrfcs; idx++ {
		if err := dev.DevAddIntrfc(idx, netip.Addr{}); err != nil {
			return nil, err
		}
	}
	return dev, nil
}

// SetLifecycle installs the start and stop behavior of a variant with
// no execution backing
func (dev *DevCore) SetLifecycle(start, stop func(context.Context) error) {
	dev.startFn = start
	dev.stopFn = stop
}

// DevName returns the device name, as part of the NetDev interface
func (dev *DevCore) DevName() string {
	return dev.name
}

// DevKind returns the device kind, as part of the NetDev interface
func (dev *DevCore) DevKind() DevKind {
	return dev.kind
}

// DevState returns the lifecycle state, as part of the NetDev interface
func (dev *DevCore) DevState() DevState {
	return dev.state
}

// DevIntrfcs returns the device's interface map, as part of the NetDev interface
func (dev *DevCore) DevIntrfcs() map[int]*Intrfc {
	return dev.intrfcs
}

// DevAddIntrfc allocates a new interface at the given index.  The index
// must not already be populated.  When addr is the zero Addr the next
// value is drawn from the device's address sequence.
func (dev *DevCore) DevAddIntrfc(index int, addr netip.Addr) error {
	_, present := dev.intrfcs[index]
	if present {
		return fmt.Errorf("%s index %d: %w", dev.name, index, ErrDuplicateIntrfc)
	}
	if !addr.IsValid() {
		var err error
		addr, err = dev.addrs.Next()
		if err != nil {
			return err
		}
	}
	intrfc := dev.newIntrfc(dev.name, index)
	intrfc.Addr = addr
	if dev.setMAC {
		intrfc.MAC = genMAC(dev.rngstrm)
	}
	dev.intrfcs[index] = intrfc
	return nil
}

// launch performs the variant-specific part of a start
func (dev *DevCore) launch(ctx context.Context) error {
	if dev.execBacked {
		if dev.image == "" || dev.command == "" {
			return fmt.Errorf("%s: %w", dev.name, ErrMissingExecSpec)
		}
		if dev.runner == nil {
			return execFailure("start "+dev.name, fmt.Errorf("no runner configured"))
		}
		log.Debugf("running %s with image %s command %q", dev.name, dev.image, dev.command)
		handle, err := dev.runner.Run(ctx, dev.image, dev.command)
		if err != nil {
			return execFailure("start "+dev.name, err)
		}
		dev.handle = handle
		return nil
	}
	if dev.startFn == nil {
		return fmt.Errorf("start %s: %w", dev.name, ErrNotImplemented)
	}
	return dev.startFn(ctx)
}

// halt performs the variant-specific part of a stop
func (dev *DevCore) halt(ctx context.Context) error {
	if dev.handle != "" {
		handle := dev.handle
		dev.handle = ""
		if err := dev.runner.Stop(ctx, handle); err != nil {
			return execFailure("stop "+dev.name, err)
		}
		return nil
	}
	if dev.stopFn != nil {
		return dev.stopFn(ctx)
	}
	return nil
}

// Start transitions the device to Running.  Starting a device that is
// already Running is a no-op: the underlying execution is not launched
// a second time.
func (dev *DevCore) Start(ctx context.Context) error {
	if dev.state == DevRunning {
		return nil
	}
	if err := dev.launch(ctx); err != nil {
		return err
	}
	dev.state = DevRunning
	return nil
}

// Stop transitions the device to Stopped.  Stopping a device that is
// not Running, including one that never started, is a no-op.  When the
// collaborator fails the device is still considered Stopped; the error
// is surfaced for the caller to act on.
func (dev *DevCore) Stop(ctx context.Context) error {
	if dev.state != DevRunning {
		return nil
	}
	err := dev.halt(ctx)
	dev.state = DevStopped
	return err
}

// StartAsync runs Start behind a one-shot future.  The only point the
// future can block is the delegation to the Runner; the observable
// effects and error conditions are those of Start.
func (dev *DevCore) StartAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- dev.Start(ctx)
	}()
	return done
}

// StopAsync runs Stop behind a one-shot future
func (dev *DevCore) StopAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- dev.Stop(ctx)
	}()
	return done
}

// createDefaultDev constructs the built-in plain variant, whose start
// and stop are pure state transitions
func createDefaultDev(name string, kind DevKind, cfg DevConfig) (NetDev, error) {
	dev, err := CreateDevCore(name, kind, cfg)
	if err != nil {
		return nil, err
	}
	dev.SetLifecycle(
		func(context.Context) error { return nil },
		func(context.Context) error { return nil },
	)
	return dev, nil
}

// createExecDev constructs the built-in execution-backed variant.  The
// image and command arrive through the config; both must be present
// before the device starts.
func createExecDev(name string, kind DevKind, cfg DevConfig) (NetDev, error) {
	dev, err := CreateDevCore(name, kind, cfg)
	if err != nil {
		return nil, err
	}
	dev.execBacked = true
	return dev, nil
}

// createUbuntuHost constructs the ubuntu host preset, an
// execution-backed host with a canned image and keepalive command
func createUbuntuHost(name string, kind DevKind, cfg DevConfig) (NetDev, error) {
	if cfg.Image == "" {
		cfg.Image = ubuntuImage
	}
	if cfg.Command == "" {
		cfg.Command = ubuntuCommand
	}
	return createExecDev(name, kind, cfg)
}

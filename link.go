package mnet

// link.go holds the link type.  A link binds two (device, port)
// endpoints; it references the two interfaces it wires but never owns
// them.  Links are created only through Topology.AddLink and destroyed
// only through Topology.RmLink, which restore both endpoints to the
// unconnected state.

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// A LinkFactory constructs a link variant from its resolved endpoints
type LinkFactory func(name string, cfg LinkConfig) (*LinkFrame, error)

// A LinkConfig carries the resolved endpoints of a link under
// construction, plus the collaborator that realizes the wire (nil when
// the link is purely in-memory).
type LinkConfig struct {
	SrcDev  string
	SrcPort int
	DstDev  string
	DstPort int

	SrcIntrfc *Intrfc
	DstIntrfc *Intrfc

	Ports PortProvider
}

// A LinkFrame represents one wiring relationship between two interfaces
// on two devices.  It carries the same Created/Running/Stopped
// lifecycle as a device; when a PortProvider is configured, starting
// the link materializes a veth pair named after the two interfaces.
type LinkFrame struct {
	name  string
	state DevState

	srcDev  string
	srcPort int
	dstDev  string
	dstPort int

	srcIntrfc *Intrfc
	dstIntrfc *Intrfc

	ports PortProvider
}

// createDefaultLink is the built-in link constructor
func createDefaultLink(name string, cfg LinkConfig) (*LinkFrame, error) {
	link := new(LinkFrame)
	link.name = name
	link.state = DevCreated
	link.srcDev = cfg.SrcDev
	link.srcPort = cfg.SrcPort
	link.dstDev = cfg.DstDev
	link.dstPort = cfg.DstPort
	link.srcIntrfc = cfg.SrcIntrfc
	link.dstIntrfc = cfg.DstIntrfc
	link.ports = cfg.Ports
	return link, nil
}

// LinkName returns the unique name of the link
func (link *LinkFrame) LinkName() string {
	return link.name
}

// DevState returns the lifecycle state of the link
func (link *LinkFrame) DevState() DevState {
	return link.state
}

// Endpoints returns the (device, port) pairs the link binds, source
// side first
func (link *LinkFrame) Endpoints() (string, int, string, int) {
	return link.srcDev, link.srcPort, link.dstDev, link.dstPort
}

// Start transitions the link to Running, materializing the wire through
// the PortProvider when one is configured.  Starting a running link is
// a no-op.
func (link *LinkFrame) Start(ctx context.Context) error {
	if link.state == DevRunning {
		return nil
	}
	if link.ports != nil {
		if err := link.ports.CreatePair(link.srcIntrfc.Name, link.dstIntrfc.Name); err != nil {
			return execFailure("start link "+link.name, err)
		}
		if err := link.ports.SetUp(link.srcIntrfc.Name); err != nil {
			return execFailure("start link "+link.name, err)
		}
		if err := link.ports.SetUp(link.dstIntrfc.Name); err != nil {
			return execFailure("start link "+link.name, err)
		}
	}
	link.state = DevRunning
	return nil
}

// Stop transitions the link to Stopped.  Removing one end of a veth
// pair removes both, so only the source interface handle is released.
// Stopping a link that is not Running is a no-op.
func (link *LinkFrame) Stop(ctx context.Context) error {
	if link.state != DevRunning {
		return nil
	}
	link.state = DevStopped
	if link.ports != nil {
		if err := link.ports.Remove(link.srcIntrfc.Name); err != nil {
			return execFailure("stop link "+link.name, err)
		}
	}
	return nil
}

// StartAsync runs Start behind a one-shot future
func (link *LinkFrame) StartAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- link.Start(ctx)
	}()
	return done
}

// StopAsync runs Stop behind a one-shot future
func (link *LinkFrame) StopAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- link.Stop(ctx)
	}()
	return done
}

// parseEndpoint splits a "device.port" endpoint specification on its
// final dot.  Both segments must be non-empty and the port must be a
// non-negative integer.
func parseEndpoint(endpoint string) (string, int, error) {
	cut := strings.LastIndex(endpoint, ".")
	if cut <= 0 || cut == len(endpoint)-1 {
		return "", 0, fmt.Errorf("malformed endpoint %q, expected \"device.port\"", endpoint)
	}
	device := endpoint[:cut]
	port, err := strconv.Atoi(endpoint[cut+1:])
	if err != nil || port < 0 {
		return "", 0, fmt.Errorf("malformed endpoint %q, port must be a non-negative integer", endpoint)
	}
	return device, port, nil
}

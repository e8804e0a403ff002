package mnet

// intrfc.go holds the network attachment point type and the symmetric
// wiring protocol that binds two of them together.

import (
	"fmt"
	"net"
	"net/netip"

	"github.com/iti/rngstream"
)

// An IntrfcFactory constructs an interface for the named device at the
// given index
type IntrfcFactory func(device string, index int) *Intrfc

// An Intrfc struct represents one network attachment point of a device.
// It may hold a bound address, and when wired it references the
// interface on the far side of a link through Peer.  The invariant is
// that wiring is symmetric: whenever a.Peer == b then b.Peer == a,
// except transiently inside connectIntrfcs/disconnectIntrfcs.
type Intrfc struct {
	// name for the interface, unique among interfaces on the hosting device
	Name string

	// name of the device on which this interface is resident
	Device string

	// index of the interface within the device's interface map
	Index int

	// bound address, the zero Addr when unbound
	Addr netip.Addr

	// hardware address, assigned when the topology sets host MACs
	MAC net.HardwareAddr

	// pointer to the interface to which this one is directly (and
	// singularly) connected, nil when unconnected
	Peer *Intrfc
}

// createDefaultIntrfc is the built-in interface constructor.  The name
// follows the device-ethN convention.
func createDefaultIntrfc(device string, index int) *Intrfc {
	intrfc := new(Intrfc)
	intrfc.Name = fmt.Sprintf("%s-eth%d", device, index)
	intrfc.Device = device
	intrfc.Index = index
	return intrfc
}

// Wired reports whether the interface currently has a peer
func (intrfc *Intrfc) Wired() bool {
	return intrfc.Peer != nil
}

// connectIntrfcs links two interfaces through their Peer attributes.
// The assignment is atomic with respect to the symmetry invariant: if
// the second endpoint is already bound the first assignment is rolled
// back, so the structure is never left half-wired.
func connectIntrfcs(intrfc1, intrfc2 *Intrfc) error {
	if intrfc1.Peer != nil {
		return fmt.Errorf("interface %s: %w", intrfc1.Name, ErrAlreadyWired)
	}
	intrfc1.Peer = intrfc2
	if intrfc2.Peer != nil {
		intrfc1.Peer = nil
		return fmt.Errorf("interface %s: %w", intrfc2.Name, ErrAlreadyWired)
	}
	intrfc2.Peer = intrfc1
	return nil
}

// disconnectIntrfcs clears both Peer attributes, restoring the
// unconnected state.  Unwiring endpoints that are already unconnected
// is a defect in the caller and reported as ErrNotWired.
func disconnectIntrfcs(intrfc1, intrfc2 *Intrfc) error {
	if intrfc1.Peer == nil && intrfc2.Peer == nil {
		return fmt.Errorf("interfaces %s, %s: %w", intrfc1.Name, intrfc2.Name, ErrNotWired)
	}
	intrfc1.Peer = nil
	intrfc2.Peer = nil
	return nil
}

// genMAC draws a locally-administered unicast hardware address from the
// device's rng stream
func genMAC(rng *rngstream.RngStream) net.HardwareAddr {
	mac := make(net.HardwareAddr, 6)
	for idx := range mac {
		mac[idx] = byte(rng.RandU01() * 256.0)
	}
	// locally administered, not multicast
	mac[0] = (mac[0] | 0x02) &^ 0x01
	return mac
}

// Package mnet builds and drives emulated software-defined network
// topologies.  A topology is a graph of typed devices (hosts, switches,
// controllers) whose interfaces are bound pairwise by links.  The package
// owns the device/link/topology model and its lifecycle; the mechanisms
// that actually run a device (a container runtime) or realize a wire (a
// veth pair) are collaborators reached through the Runner and
// PortProvider interfaces.
package mnet

// mnet.go declares the enumerated kinds and lifecycle states shared by
// the rest of the package, with converters between their string and
// integer forms.

// DevKind is the base type for an enumerated type of network objects
type DevKind int

const (
	HostKind DevKind = iota
	SwitchKind
	ControllerKind
	LinkKind
	IntrfcKind
	TopoKind
)

// DevKindFromStr returns the DevKind corresponding to a string name for it
func DevKindFromStr(kind string) DevKind {
	switch kind {
	case "Host", "host":
		return HostKind
	case "Switch", "switch":
		return SwitchKind
	case "Controller", "controller":
		return ControllerKind
	case "Link", "link":
		return LinkKind
	case "Interface", "interface":
		return IntrfcKind
	case "Topology", "topology":
		return TopoKind
	default:
		return DevKind(-1)
	}
}

// DevKindToStr returns a string name corresponding to an input DevKind
func DevKindToStr(kind DevKind) string {
	switch kind {
	case HostKind:
		return "Host"
	case SwitchKind:
		return "Switch"
	case ControllerKind:
		return "Controller"
	case LinkKind:
		return "Link"
	case IntrfcKind:
		return "Interface"
	case TopoKind:
		return "Topology"
	default:
		return "unknown"
	}
}

// DevState is the base type for the enumerated lifecycle states of a device
type DevState int

const (
	DevCreated DevState = iota
	DevRunning
	DevStopped
)

// DevStateToStr returns a string name corresponding to an input DevState
func DevStateToStr(state DevState) string {
	switch state {
	case DevCreated:
		return "created"
	case DevRunning:
		return "running"
	case DevStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// TopoState is the base type for the enumerated lifecycle states of a topology
type TopoState int

const (
	TopoUnbuilt TopoState = iota
	TopoBuilt
	TopoRunning
	TopoStopped
)

// TopoStateToStr returns a string name corresponding to an input TopoState
func TopoStateToStr(state TopoState) string {
	switch state {
	case TopoUnbuilt:
		return "unbuilt"
	case TopoBuilt:
		return "built"
	case TopoRunning:
		return "running"
	case TopoStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

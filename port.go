package mnet

// port.go declares the collaborator that realizes links as actual
// kernel network interfaces.  The topology model only ever names
// interfaces; everything that touches the host network stack lives
// behind this interface, and a topology with no PortProvider runs the
// same lifecycle purely in memory.

// A PortProvider materializes the wire behind a link.  CreatePair
// creates a connected pair of interfaces carrying the two given names;
// Remove tears the pair down through either name.  MoveToNetns rehomes
// a named interface into the network namespace of the given process,
// used when a device's execution runs in its own namespace.
type PortProvider interface {
	CreatePair(name1, name2 string) error
	SetUp(name string) error
	Remove(name string) error
	MoveToNetns(name string, pid int) error
}

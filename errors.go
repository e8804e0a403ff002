package mnet

// errors.go declares the sentinel errors surfaced by the model.  Callers
// classify failures with errors.Is; the values wrap kind/name context via
// fmt.Errorf at the point of the offending call.

import "errors"

var (
	// ErrUnknownType reports a registry lookup miss.
	ErrUnknownType = errors.New("unknown type")

	// ErrDuplicateName reports an attempt to add an entity whose name
	// already exists in its collection.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrDuplicateIntrfc reports an attempt to add an interface at an
	// index the device already populates.
	ErrDuplicateIntrfc = errors.New("duplicate interface")

	// ErrNotFound reports a removal of an entity that is not present.
	ErrNotFound = errors.New("not found")

	// ErrNoSuchDev reports a reference to a device name the topology
	// does not hold.
	ErrNoSuchDev = errors.New("no such device")

	// ErrNoSuchIntrfc reports a reference to an interface index a
	// device does not populate.
	ErrNoSuchIntrfc = errors.New("no such interface")

	// ErrAddrSpaceExhausted reports that an address sequence has been
	// consumed through its last usable host address.
	ErrAddrSpaceExhausted = errors.New("address space exhausted")

	// ErrMissingExecSpec reports an execution-backed device whose image
	// or command is absent at start.
	ErrMissingExecSpec = errors.New("missing execution spec")

	// ErrExecution reports a failure from the execution collaborator.
	// The core attaches no retry.
	ErrExecution = errors.New("execution failure")

	// ErrInvalidCategory reports a device category outside the set the
	// operation accepts.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrNotWired reports an unwire of endpoints already unconnected.
	ErrNotWired = errors.New("not wired")

	// ErrAlreadyWired reports a wire attempt on an interface that
	// already has a peer.
	ErrAlreadyWired = errors.New("already wired")

	// ErrNotImplemented reports invocation of a lifecycle operation a
	// device variant never supplied.
	ErrNotImplemented = errors.New("not implemented")
)

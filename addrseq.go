package mnet

// addrseq.go implements the per-device IP address sequence.  Each device
// owns its own AddrSeq; sequences are never shared, so no coordination
// or locking is involved.

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

// An AddrSeq produces the usable host addresses of an IPv4 subnet
// lazily, in ascending order.  The network and broadcast addresses are
// excluded per standard subnetting rules, so a /31 or /32 base is
// exhausted from the outset.  The sequence is a pure function of
// (base, prefix); repeated runs draw identical addresses.
type AddrSeq struct {
	prefix netip.Prefix
	cursor uint32 // next address to hand out
	last   uint32 // final usable host address
	spent  bool
}

// CreateAddrSeq is a constructor.  Its arguments are the base address of
// the subnet and the prefix length, e.g. ("10.0.0.0", 8).
func CreateAddrSeq(base string, prefixLen int) (*AddrSeq, error) {
	addr, err := netip.ParseAddr(base)
	if err != nil {
		return nil, fmt.Errorf("address base %q: %w", base, err)
	}
	if !addr.Is4() {
		return nil, fmt.Errorf("address base %q is not IPv4", base)
	}
	prefix, err := addr.Prefix(prefixLen)
	if err != nil {
		return nil, fmt.Errorf("address base %q/%d: %w", base, prefixLen, err)
	}

	seq := new(AddrSeq)
	seq.prefix = prefix

	// fewer than two host bits leaves no usable addresses between
	// the network and broadcast positions
	hostBits := 32 - prefixLen
	if hostBits < 2 {
		seq.spent = true
		return seq, nil
	}

	network := prefix.Addr().As4()
	net32 := binary.BigEndian.Uint32(network[:])
	bcast := net32 | (1<<uint(hostBits) - 1)
	seq.cursor = net32 + 1
	seq.last = bcast - 1
	return seq, nil
}

// Prefix returns the subnet the sequence draws from
func (seq *AddrSeq) Prefix() netip.Prefix {
	return seq.prefix
}

// Next returns the next unconsumed host address.  Once the sequence has
// passed its last usable address every call fails with
// ErrAddrSpaceExhausted.
func (seq *AddrSeq) Next() (netip.Addr, error) {
	if seq.spent || seq.cursor > seq.last {
		seq.spent = true
		return netip.Addr{}, fmt.Errorf("%s: %w", seq.prefix, ErrAddrSpaceExhausted)
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], seq.cursor)
	seq.cursor++
	return netip.AddrFrom4(b), nil
}

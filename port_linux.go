//go:build linux

package mnet

// port_linux.go implements PortProvider on the Linux network stack.
// Links materialize as veth pairs, so removing either end of a pair
// tears down both.

import (
	"github.com/pkg/errors"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// A VethProvider realizes links as kernel veth pairs through rtnetlink.
// Calls affect the namespace of the calling process, so the provider
// must run with CAP_NET_ADMIN.
type VethProvider struct{}

// CreateVethProvider is a constructor
func CreateVethProvider() *VethProvider {
	return new(VethProvider)
}

// CreatePair creates a veth pair whose ends carry the two given names
func (vp *VethProvider) CreatePair(name1, name2 string) error {
	veth := &netlink.Veth{
		LinkAttrs: netlink.LinkAttrs{Name: name1},
		PeerName:  name2,
	}
	if err := netlink.LinkAdd(veth); err != nil {
		return errors.Wrapf(err, "create veth pair %s/%s", name1, name2)
	}
	return nil
}

// SetUp brings the named interface up
func (vp *VethProvider) SetUp(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return errors.Wrapf(err, "find interface %s", name)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return errors.Wrapf(err, "set interface %s up", name)
	}
	return nil
}

// Remove deletes the named interface.  For a veth end this removes the
// peer as well.
func (vp *VethProvider) Remove(name string) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return errors.Wrapf(err, "find interface %s", name)
	}
	if err := netlink.LinkDel(link); err != nil {
		return errors.Wrapf(err, "delete interface %s", name)
	}
	return nil
}

// MoveToNetns rehomes the named interface into the network namespace of
// the process with the given pid
func (vp *VethProvider) MoveToNetns(name string, pid int) error {
	link, err := netlink.LinkByName(name)
	if err != nil {
		return errors.Wrapf(err, "find interface %s", name)
	}
	handle, err := netns.GetFromPid(pid)
	if err != nil {
		return errors.Wrapf(err, "open netns of pid %d", pid)
	}
	defer handle.Close()
	if err := netlink.LinkSetNsFd(link, int(handle)); err != nil {
		return errors.Wrapf(err, "move interface %s to netns of pid %d", name, pid)
	}
	return nil
}

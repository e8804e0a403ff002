package mnet

// desc-topo.go holds the serializable description of a topology and the
// builder that reconstructs a topology from one.  A description is an
// inert snapshot: names, types, interface bindings, and link endpoints,
// with none of the live state.  The dictionary types allow a file to
// carry several named descriptions.

import (
	"encoding/json"
	"fmt"
	"net"
	"net/netip"
	"os"
	"path"

	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// An IntrfcDesc describes one interface of a device
type IntrfcDesc struct {
	// name of the interface, unique on its device
	Name string `json:"name" yaml:"name"`

	// index of the interface within the device's interface map
	Index int `json:"index" yaml:"index"`

	// bound address in dotted decimal, empty when unbound
	Addr string `json:"addr" yaml:"addr"`

	// hardware address, empty when none was assigned
	MAC string `json:"mac" yaml:"mac"`
}

// A DevDesc describes one device: its name, the registered type it was
// built from, the execution spec if any, and its interfaces
type DevDesc struct {
	Name    string `json:"name" yaml:"name"`
	DevType string `json:"devtype" yaml:"devtype"`

	Image   string `json:"image,omitempty" yaml:"image,omitempty"`
	Command string `json:"command,omitempty" yaml:"command,omitempty"`

	Intrfcs []IntrfcDesc `json:"interfaces" yaml:"interfaces"`
}

// A LinkDesc describes one link by its endpoints, each a "device.port"
// specification
type LinkDesc struct {
	Name     string `json:"name" yaml:"name"`
	LinkType string `json:"linktype" yaml:"linktype"`
	Src      string `json:"src" yaml:"src"`
	Dst      string `json:"dst" yaml:"dst"`
}

// A TopoDesc describes a whole topology.  The device lists preserve
// insertion order, so a topology rebuilt from its description iterates
// identically.
type TopoDesc struct {
	Name string `json:"name" yaml:"name"`

	Controllers []DevDesc `json:"controllers" yaml:"controllers"`
	Hosts       []DevDesc `json:"hosts" yaml:"hosts"`
	Switches    []DevDesc `json:"switches" yaml:"switches"`

	Links []LinkDesc `json:"links" yaml:"links"`
}

// A TopoDescDict holds a named collection of topology descriptions
type TopoDescDict struct {
	DictName string              `json:"dictname" yaml:"dictname"`
	Descs    map[string]TopoDesc `json:"descs" yaml:"descs"`
}

// CreateTopoDescDict is a constructor
func CreateTopoDescDict(name string) *TopoDescDict {
	tdd := new(TopoDescDict)
	tdd.DictName = name
	tdd.Descs = make(map[string]TopoDesc)
	return tdd
}

// AddTopoDesc includes a topology description in the dictionary, keyed
// by its name
func (tdd *TopoDescDict) AddTopoDesc(td *TopoDesc) {
	tdd.Descs[td.Name] = *td
}

// RecoverTopoDesc returns the named description from the dictionary
func (tdd *TopoDescDict) RecoverTopoDesc(name string) (*TopoDesc, bool) {
	td, present := tdd.Descs[name]
	if present {
		return &td, true
	}
	return nil, false
}

// WriteToFile serializes the TopoDescDict and writes to the file whose
// name is given as an input argument
func (tdd *TopoDescDict) WriteToFile(filename string) error {
	// path extension of the output file determines whether we serialize to json or to yaml
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*tdd)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*tdd, "", "\t")
	} else {
		return fmt.Errorf("output file %s: unrecognized extension %q", filename, pathExt)
	}

	if merr != nil {
		panic(merr)
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		panic(cerr)
	}
	_, werr := f.WriteString(string(bytes[:]))
	if werr != nil {
		panic(werr)
	}
	f.Close()

	return werr
}

// ReadTopoDescDict deserializes a slice of bytes and returns a
// TopoDescDict.  Bytes are either provided in the dict argument or read
// from the named file.
func ReadTopoDescDict(filename string, useYAML bool, dict []byte) (*TopoDescDict, error) {
	var err error

	// read from the file only if the byte slice is empty
	if len(dict) == 0 {
		fileInfo, err := os.Stat(filename)
		if err != nil || fileInfo.IsDir() {
			return nil, fmt.Errorf("topology dict %s does not exist or cannot be read", filename)
		}
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}
	example := TopoDescDict{}

	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}
	if err != nil {
		return nil, err
	}

	return &example, nil
}

// WriteToFile serializes the TopoDesc and writes to the file whose name
// is given as an input argument
func (td *TopoDesc) WriteToFile(filename string) error {
	pathExt := path.Ext(filename)
	var bytes []byte
	var merr error

	if pathExt == ".yaml" || pathExt == ".YAML" || pathExt == ".yml" {
		bytes, merr = yaml.Marshal(*td)
	} else if pathExt == ".json" || pathExt == ".JSON" {
		bytes, merr = json.MarshalIndent(*td, "", "\t")
	} else {
		return fmt.Errorf("output file %s: unrecognized extension %q", filename, pathExt)
	}

	if merr != nil {
		panic(merr)
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		panic(cerr)
	}
	_, werr := f.WriteString(string(bytes[:]))
	if werr != nil {
		panic(werr)
	}
	f.Close()

	return werr
}

// ReadTopoDesc deserializes a slice of bytes and returns a TopoDesc.
// Bytes are either provided in the dict argument or read from the named
// file, with useYAML selecting the encoding.
func ReadTopoDesc(filename string, useYAML bool, dict []byte) (*TopoDesc, error) {
	var err error

	if len(dict) == 0 {
		fileInfo, err := os.Stat(filename)
		if err != nil || fileInfo.IsDir() {
			return nil, fmt.Errorf("topology %s does not exist or cannot be read", filename)
		}
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, err
		}
	}
	example := TopoDesc{}

	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}
	if err != nil {
		return nil, err
	}

	return &example, nil
}

// describeDev builds the description of one device.  Interface indices
// may be sparse, so the map keys are collected and sorted rather than
// counted.
func describeDev(dev NetDev, devType string) DevDesc {
	dd := DevDesc{Name: dev.DevName(), DevType: devType}
	intrfcs := dev.DevIntrfcs()
	indices := make([]int, 0, len(intrfcs))
	for idx := range intrfcs {
		indices = append(indices, idx)
	}
	slices.Sort(indices)
	for _, idx := range indices {
		intrfc := intrfcs[idx]
		id := IntrfcDesc{Name: intrfc.Name, Index: intrfc.Index}
		if intrfc.Addr.IsValid() {
			id.Addr = intrfc.Addr.String()
		}
		if len(intrfc.MAC) > 0 {
			id.MAC = intrfc.MAC.String()
		}
		dd.Intrfcs = append(dd.Intrfcs, id)
	}
	return dd
}

// Desc exports the topology's structure as an inert description.  The
// built-from type of an individual device is not retained at add time,
// so exported devices carry the topology's default type selectors; a
// topology whose devices were all built from the defaults round-trips
// exactly.
func (topo *Topology) Desc() *TopoDesc {
	td := new(TopoDesc)
	td.Name = topo.name
	for _, name := range topo.ctlrOrder {
		td.Controllers = append(td.Controllers, describeDev(topo.ctlrs[name], topo.controllerType))
	}
	for _, name := range topo.hostOrder {
		td.Hosts = append(td.Hosts, describeDev(topo.hosts[name], topo.hostType))
	}
	for _, name := range topo.switchOrder {
		td.Switches = append(td.Switches, describeDev(topo.switches[name], topo.switchType))
	}
	for _, name := range topo.linkOrder {
		link := topo.links[name]
		srcDev, srcPort, dstDev, dstPort := link.Endpoints()
		td.Links = append(td.Links, LinkDesc{
			Name:     name,
			LinkType: topo.linkType,
			Src:      fmt.Sprintf("%s.%d", srcDev, srcPort),
			Dst:      fmt.Sprintf("%s.%d", dstDev, dstPort),
		})
	}
	return td
}

// SetDesc installs the description the desc topology builder consumes.
// It must be called before Build on a topology of type "desc".
func (topo *Topology) SetDesc(td *TopoDesc) {
	topo.descSrc = td
}

// placeDescDev places one described device, restoring its interface
// bindings.  The dense prefix of the described indices is constructed
// with the device; indices beyond it are added individually, so a
// sparse description rebuilds without fabricating intermediate ports.
func placeDescDev(topo *Topology, category string, dd DevDesc) error {
	cfg := DevConfig{Image: dd.Image, Command: dd.Command}
	described := make(map[int]bool, len(dd.Intrfcs))
	for _, id := range dd.Intrfcs {
		described[id.Index] = true
	}
	dense := 0
	for described[dense] {
		dense++
	}
	if dense > 0 {
		cfg.NumIntrfcs = dense
	}
	dev, err := topo.PlaceDev(dd.Name, category, dd.DevType, cfg)
	if err != nil {
		return err
	}
	for _, id := range dd.Intrfcs {
		var addr netip.Addr
		if id.Addr != "" {
			addr, err = netip.ParseAddr(id.Addr)
			if err != nil {
				return fmt.Errorf("device %s interface %d: %w", dd.Name, id.Index, err)
			}
		}
		intrfc, present := dev.DevIntrfcs()[id.Index]
		if !present {
			if err := dev.DevAddIntrfc(id.Index, addr); err != nil {
				return err
			}
			intrfc = dev.DevIntrfcs()[id.Index]
		} else if addr.IsValid() {
			intrfc.Addr = addr
		}
		if id.Name != "" {
			intrfc.Name = id.Name
		}
		if id.MAC != "" {
			mac, err := net.ParseMAC(id.MAC)
			if err != nil {
				return fmt.Errorf("device %s interface %d: %w", dd.Name, id.Index, err)
			}
			intrfc.MAC = mac
		}
	}
	return nil
}

// buildDescTopo reconstructs a topology from the description installed
// with SetDesc
func buildDescTopo(topo *Topology) error {
	if topo.descSrc == nil {
		return fmt.Errorf("topology %s: no description installed: %w", topo.name, ErrNotFound)
	}
	td := topo.descSrc
	for _, dd := range td.Controllers {
		if err := placeDescDev(topo, "controller", dd); err != nil {
			return err
		}
	}
	for _, dd := range td.Hosts {
		if err := placeDescDev(topo, "host", dd); err != nil {
			return err
		}
	}
	for _, dd := range td.Switches {
		if err := placeDescDev(topo, "switch", dd); err != nil {
			return err
		}
	}
	for _, ld := range td.Links {
		if _, err := topo.PlaceLink(ld.Name, ld.Src, ld.Dst, ld.LinkType); err != nil {
			return err
		}
	}
	return nil
}

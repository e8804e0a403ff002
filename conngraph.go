package mnet

// conngraph.go gives the topology a graph view of itself.  Devices are
// nodes and links are edges; the view supports a whole-topology
// connectivity check and shortest-path queries between devices.

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	gtopo "gonum.org/v1/gonum/graph/topo"
)

// a connGraph pairs the graph module's representation of the topology
// with the mapping between devices and graph node ids.  Nodes are keyed
// by device identity, not name: a host and a switch may share a name
// and must stay distinct in the graph.
type connGraph struct {
	graph    *simple.WeightedUndirectedGraph
	idOfDev  map[NetDev]int64
	nameOfID map[int64]string
}

// intrfcOwner returns the device holding the given interface, found by
// matching the interface object itself rather than just its recorded
// device name
func (topo *Topology) intrfcOwner(intrfc *Intrfc) NetDev {
	for _, byName := range []map[string]NetDev{topo.ctlrs, topo.hosts, topo.switches} {
		dev, present := byName[intrfc.Device]
		if present && dev.DevIntrfcs()[intrfc.Index] == intrfc {
			return dev
		}
	}
	return nil
}

// buildConnGraph returns a graph representation of the topology's
// devices and links.  Every device is a node, connected or not; every
// link is an edge with weight 1, attached through the devices that own
// its two interfaces.
func (topo *Topology) buildConnGraph() *connGraph {
	cg := new(connGraph)
	cg.graph = simple.NewWeightedUndirectedGraph(0, math.Inf(1))
	cg.idOfDev = make(map[NetDev]int64)
	cg.nameOfID = make(map[int64]string)

	nextID := int64(0)
	addNode := func(dev NetDev) {
		cg.idOfDev[dev] = nextID
		cg.nameOfID[nextID] = dev.DevName()
		cg.graph.AddNode(simple.Node(nextID))
		nextID += 1
	}
	for _, name := range topo.ctlrOrder {
		addNode(topo.ctlrs[name])
	}
	for _, name := range topo.hostOrder {
		addNode(topo.hosts[name])
	}
	for _, name := range topo.switchOrder {
		addNode(topo.switches[name])
	}

	for _, name := range topo.linkOrder {
		link := topo.links[name]
		srcOwner := topo.intrfcOwner(link.srcIntrfc)
		dstOwner := topo.intrfcOwner(link.dstIntrfc)
		if srcOwner == nil || dstOwner == nil {
			continue
		}
		weightedEdge := simple.WeightedEdge{
			F: simple.Node(cg.idOfDev[srcOwner]),
			T: simple.Node(cg.idOfDev[dstOwner]),
			W: 1.0,
		}
		cg.graph.SetWeightedEdge(weightedEdge)
	}
	return cg
}

// Connected reports whether every device in the topology can reach
// every other device through its links.  An empty topology and a
// topology of one device are trivially connected.
func (topo *Topology) Connected() bool {
	cg := topo.buildConnGraph()
	components := gtopo.ConnectedComponents(cg.graph)
	return len(components) <= 1
}

// RouteBetween returns a shortest path between two named devices as the
// sequence of device names traversed, endpoints included.  Names are
// resolved with Dev's controller/host/switch precedence.  An error is
// returned when either name is unknown or no path exists.
func (topo *Topology) RouteBetween(src, dst string) ([]string, error) {
	srcDev, err := topo.Dev(src)
	if err != nil {
		return nil, err
	}
	dstDev, err := topo.Dev(dst)
	if err != nil {
		return nil, err
	}
	cg := topo.buildConnGraph()

	spTree := path.DijkstraFrom(simple.Node(cg.idOfDev[srcDev]), cg.graph)
	nodes, weight := spTree.To(cg.idOfDev[dstDev])
	if math.IsInf(weight, 1) {
		return nil, fmt.Errorf("no route from %s to %s", src, dst)
	}
	return cg.convertNodeSeq(nodes), nil
}

// convertNodeSeq extracts the device names from a sequence of graph
// nodes (e.g. a path) and returns that list
func (cg *connGraph) convertNodeSeq(nsQ []graph.Node) []string {
	rtn := []string{}
	for _, node := range nsQ {
		rtn = append(rtn, cg.nameOfID[node.ID()])
	}
	return rtn
}

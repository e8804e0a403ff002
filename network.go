package mnet

// network.go holds the top-level façade.  A Network owns one topology
// plus the deployment choice that decides which collaborators back it:
// a "local" deployment runs the model in memory, a "docker" deployment
// wires in the Docker runner so execution-backed devices become
// containers.

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// deploymentTypes lists the supported deployments
var deploymentTypes = []string{"local", "docker"}

// A NetConfig carries the construction parameters of a network: the
// topology configuration plus the deployment selector
type NetConfig struct {
	TopoConfig

	// one of "local" (default) or "docker"
	Deployment string

	// description consumed when the topology type is "desc"
	Desc *TopoDesc
}

// A Network wraps a topology with its deployment.  The mutation and
// lifecycle operations delegate to the topology; the network exists so
// a caller never assembles collaborators by hand.
type Network struct {
	topo       *Topology
	deployment string
}

// CreateNetwork is a constructor.  It validates the deployment,
// assembles the collaborators it implies, and builds the topology, so
// the returned network is Built and ready to Start.
func CreateNetwork(cfg NetConfig) (*Network, error) {
	if cfg.Deployment == "" {
		cfg.Deployment = "local"
	}
	if !slices.Contains(deploymentTypes, cfg.Deployment) {
		return nil, fmt.Errorf("deployment type %q: %w", cfg.Deployment, ErrUnknownType)
	}
	if cfg.Deployment == "docker" && cfg.Runner == nil {
		runner, err := CreateDockerRunner()
		if err != nil {
			return nil, err
		}
		cfg.Runner = runner
	}

	topo := CreateTopology(cfg.TopoConfig)
	if cfg.Desc != nil {
		topo.SetDesc(cfg.Desc)
	}
	log.Infof("building %s topology %s, deployment %s", topo.topoType, topo.name, cfg.Deployment)
	if err := topo.Build(); err != nil {
		return nil, err
	}

	net := new(Network)
	net.topo = topo
	net.deployment = cfg.Deployment
	return net, nil
}

// Topo returns the network's topology
func (net *Network) Topo() *Topology {
	return net.topo
}

// Deployment returns the network's deployment selector
func (net *Network) Deployment() string {
	return net.deployment
}

// Start starts the topology
func (net *Network) Start(ctx context.Context) error {
	return net.topo.Start(ctx)
}

// Stop stops the topology
func (net *Network) Stop(ctx context.Context) error {
	return net.topo.Stop(ctx)
}

// StartAsync runs Start behind a one-shot future
func (net *Network) StartAsync(ctx context.Context) <-chan error {
	return net.topo.StartAsync(ctx)
}

// StopAsync runs Stop behind a one-shot future
func (net *Network) StopAsync(ctx context.Context) <-chan error {
	return net.topo.StopAsync(ctx)
}

// AddHost adds and starts a host of the named type, the topology's
// default host type when typeName is empty
func (net *Network) AddHost(ctx context.Context, name, typeName string, cfg DevConfig) error {
	return net.topo.AddDev(ctx, name, "host", typeName, cfg)
}

// AddSwitch adds and starts a switch
func (net *Network) AddSwitch(ctx context.Context, name, typeName string, cfg DevConfig) error {
	return net.topo.AddDev(ctx, name, "switch", typeName, cfg)
}

// AddController adds and starts a controller
func (net *Network) AddController(ctx context.Context, name, typeName string, cfg DevConfig) error {
	return net.topo.AddDev(ctx, name, "controller", typeName, cfg)
}

// RmHost removes and stops the named host
func (net *Network) RmHost(ctx context.Context, name string) error {
	return net.topo.RmDev(ctx, name, "hosts")
}

// RmSwitch removes and stops the named switch
func (net *Network) RmSwitch(ctx context.Context, name string) error {
	return net.topo.RmDev(ctx, name, "switches")
}

// RmController removes and stops the named controller
func (net *Network) RmController(ctx context.Context, name string) error {
	return net.topo.RmDev(ctx, name, "controllers")
}

// AddLink adds and starts a link between two "device.port" endpoints
func (net *Network) AddLink(ctx context.Context, name, src, dst, typeName string) error {
	return net.topo.AddLink(ctx, name, src, dst, typeName)
}

// RmLink removes and stops the named link
func (net *Network) RmLink(ctx context.Context, name string) error {
	return net.topo.RmLink(ctx, name)
}

// Connected reports whether the topology is one connected component
func (net *Network) Connected() bool {
	return net.topo.Connected()
}

// Desc exports the topology's structure as an inert description
func (net *Network) Desc() *TopoDesc {
	return net.topo.Desc()
}

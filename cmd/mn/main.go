package main

// The mn utility creates an emulated network from the command line: it
// builds a parametrized topology, starts it, and tears it down on
// interrupt.

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	log "github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/iti/mnet"
)

const version = "0.1.0"

func main() {
	var (
		topoType   = flag.StringP("topology", "T", "linear", "topology type to build")
		hostType   = flag.StringP("host", "H", "default", "host type")
		switchType = flag.StringP("switch", "S", "default", "switch type")
		ctlrType   = flag.StringP("controller", "C", "default", "controller type")
		linkType   = flag.StringP("link", "L", "default", "link type")
		intrfcType = flag.StringP("interface", "I", "default", "interface type")

		deployment = flag.StringP("deployment", "d", "local", "deployment type (local or docker)")
		descFile   = flag.String("topo-desc", "", "topology description file, used with -T desc")

		ipBase      = flag.StringP("ip-base", "i", "10.0.0.0", "base IP address for hosts")
		prefixLen   = flag.Int("prefix-len", 8, "prefix length of the host subnet")
		setHostMACs = flag.BoolP("set-host-macs", "M", false, "automatically set host MAC addresses")
		staticARP   = flag.BoolP("static-arp", "A", false, "enable static ARP")
		pin         = flag.Bool("pin", false, "pin hosts to CPU cores")
		listenPort  = flag.Int("listen-port", 8000, "base port for passive switch listening")
		swWaitSec   = flag.Int("sw-wait-sec", 60, "how many seconds to wait for switches to connect")

		customDir   = flag.String("custom", "", "directory of plugins with custom types")
		verbosity   = flag.StringP("verbosity", "v", "info", "log level (panic, fatal, error, warn, info, debug, trace)")
		showVersion = flag.Bool("version", false, "print the version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	level, err := log.ParseLevel(*verbosity)
	if err != nil {
		log.Fatalf("verbosity %q: %v", *verbosity, err)
	}
	log.SetLevel(level)

	reg := mnet.StdRegistry()
	if *customDir != "" {
		if err := mnet.LoadPlugins(reg, *customDir); err != nil {
			log.Fatalf("load plugins: %v", err)
		}
	}

	cfg := mnet.NetConfig{
		TopoConfig: mnet.TopoConfig{
			TopoType:       *topoType,
			HostType:       *hostType,
			SwitchType:     *switchType,
			ControllerType: *ctlrType,
			LinkType:       *linkType,
			IntrfcType:     *intrfcType,
			IPBase:         *ipBase,
			PrefixLen:      *prefixLen,
			SetHostMACs:    *setHostMACs,
			StaticARP:      *staticARP,
			PinCPUs:        *pin,
			ListenPort:     *listenPort,
			SwWaitSec:      *swWaitSec,
			Reg:            reg,
		},
		Deployment: *deployment,
	}

	if *descFile != "" {
		useYAML := filepath.Ext(*descFile) != ".json"
		td, err := mnet.ReadTopoDesc(*descFile, useYAML, []byte{})
		if err != nil {
			log.Fatalf("read topology description: %v", err)
		}
		cfg.Desc = td
	}

	net, err := mnet.CreateNetwork(cfg)
	if err != nil {
		log.Fatalf("create network: %v", err)
	}
	if !net.Connected() {
		log.Warn("topology is not fully connected")
	}

	ctx := context.Background()
	if err := net.Start(ctx); err != nil {
		log.Errorf("start network: %v", err)
		if stopErr := net.Stop(ctx); stopErr != nil {
			log.Errorf("stop network: %v", stopErr)
		}
		os.Exit(1)
	}
	log.Infof("network up, %d hosts, %d switches, %d links",
		len(net.Topo().Hosts()), len(net.Topo().Switches()), len(net.Topo().Links()))

	interrupted := make(chan os.Signal, 1)
	signal.Notify(interrupted, os.Interrupt, syscall.SIGTERM)
	<-interrupted

	log.Info("stopping network")
	if err := net.Stop(ctx); err != nil {
		log.Errorf("stop network: %v", err)
		os.Exit(1)
	}
}

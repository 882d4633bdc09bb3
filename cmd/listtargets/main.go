// Command listtargets asks a MemoryPlay host for the audio output
// targets it can reach.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/famish99/memoryplayctl/internal/config"
	"github.com/famish99/memoryplayctl/internal/memoryplay"
)

var (
	configPath = flag.String("config", "memoryplayctl.yaml", "Path to configuration file")
	host       = flag.String("h", "", "Host IPv6 address (default: config, then discovery)")
	iface      = flag.Uint("i", 0, "Network interface number")
	verbose    = flag.Bool("v", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	memoryplay.Init(memoryplay.Settings{EnableLogging: true, Verbose: *verbose})

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Errorf("Failed to load config: %v", err)
		os.Exit(1)
	}

	hostAddr, ifno := resolveHost(cfg)
	if hostAddr == "" {
		logrus.Errorf("No host given and none discoverable")
		os.Exit(1)
	}

	targets, err := memoryplay.ListTargets(hostAddr, ifno)
	if err != nil {
		logrus.Errorf("Failed to list targets: %s", memoryplay.ErrorString(err))
		if *verbose {
			logrus.Errorf("detail: %v", err)
		}
		os.Exit(1)
	}

	fmt.Printf("Found %d target(s) on %s:\n", len(targets), hostAddr)
	for i, t := range targets {
		fmt.Printf("  [%d] %s%%%d %s\n", i, t.IPAddress, t.InterfaceNumber, t.TargetName)
	}
}

// resolveHost picks the host from the flag, the config, or discovery,
// in that order. Discovery prefers loopback hosts.
func resolveHost(cfg *config.Config) (string, uint32) {
	if *host != "" {
		return *host, uint32(*iface)
	}
	if cfg.Host.IP != "" {
		return cfg.Host.Address(), cfg.Host.Interface
	}
	finder := memoryplay.CommandFinder{Command: cfg.Finder.Command, Args: cfg.Finder.Args}
	hosts, err := memoryplay.DiscoverHosts(finder)
	if err != nil {
		return "", 0
	}
	h, _ := memoryplay.PickHost(hosts)
	return h.IPAddress, h.InterfaceNumber
}

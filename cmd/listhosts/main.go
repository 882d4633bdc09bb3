// Command listhosts prints the MemoryPlay hosts discoverable on the
// local network.
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

	finder := memoryplay.CommandFinder{
		Command: cfg.Finder.Command,
		Args:    cfg.Finder.Args,
	}
	hosts, err := memoryplay.DiscoverHosts(finder)
	if err != nil {
		logrus.Errorf("Failed to list hosts: %s", memoryplay.ErrorString(err))
		if *verbose {
			logrus.Errorf("detail: %v", err)
		}
		os.Exit(1)
	}

	fmt.Printf("Found %d MemoryPlayHost instance(s):\n", len(hosts))
	for i, h := range hosts {
		fmt.Printf("  [%d] %s%%%d\n", i, h.IPAddress, h.InterfaceNumber)
		fmt.Printf("      target: %s\n", h.TargetName)
		fmt.Printf("      output: %s\n", h.OutputName)
		if h.IsLoopback {
			fmt.Printf("      loopback\n")
		}
	}
}

// Command sessionctl drives the persistent control session: transport
// commands, status queries, and the tag list.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/famish99/memoryplayctl/internal/config"
	"github.com/famish99/memoryplayctl/internal/memoryplay"
)

var (
	configPath = flag.String("config", "memoryplayctl.yaml", "Path to configuration file")
	host       = flag.String("h", "", "Host IPv6 address (default: config)")
	iface      = flag.Uint("i", 0, "Network interface number")
	iterations = flag.Int("n", 1, "Number of times to run status")
	seconds    = flag.Int64("s", 0, "Seek position/offset in seconds")
	verbose    = flag.Bool("v", false, "Enable verbose logging")
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [options] [command]

Commands:
  connect    - Connect the host to a target
  play       - Start playback
  pause      - Pause playback
  status     - Show current status (default)
  tags       - Show tag list
  forward    - Seek forward 60 seconds
  backward   - Seek backward 60 seconds
  start      - Seek to beginning
  seek       - Seek to absolute position (-s seconds)
  quit       - Stop playback

Options:
`, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	memoryplay.Init(memoryplay.Settings{EnableLogging: true, Verbose: *verbose})

	command := "status"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Errorf("Failed to load config: %v", err)
		os.Exit(1)
	}

	hostAddr, ifno := *host, uint32(*iface)
	if hostAddr == "" {
		if cfg.Host.IP != "" {
			hostAddr, ifno = cfg.Host.Address(), cfg.Host.Interface
		} else {
			logrus.Errorf("No host given (-h) and none configured")
			os.Exit(1)
		}
	}

	session, err := memoryplay.Dial(hostAddr, ifno)
	if err != nil {
		logrus.Errorf("Failed to open session: %s", memoryplay.ErrorString(err))
		os.Exit(1)
	}
	defer session.Close()

	if err := run(session, cfg, command); err != nil {
		logrus.Errorf("%s failed: %s", command, memoryplay.ErrorString(err))
		if *verbose {
			logrus.Errorf("detail: %v", err)
		}
		os.Exit(1)
	}
}

func run(session *memoryplay.Session, cfg *config.Config, command string) error {
	switch command {
	case "connect":
		target := cfg.GetPreferredTarget()
		if target == nil {
			return fmt.Errorf("%w: no target configured", memoryplay.ErrInvalidParam)
		}
		fmt.Printf("Connecting host to %s (%s%%%d)\n", target.Name, target.IP, target.Interface)
		return session.ConnectTarget(target.IP, target.Interface)

	case "play":
		return session.Play()

	case "pause":
		return session.Pause()

	case "status":
		for i := 0; i < *iterations; i++ {
			if i > 0 {
				time.Sleep(time.Second)
			}
			status, err := session.GetPlayStatus()
			if err != nil {
				return err
			}
			position, err := session.GetCurrentTime()
			if err != nil {
				return err
			}
			if position >= 0 {
				fmt.Printf("Status: %s (%ds)\n", status, position)
			} else {
				fmt.Printf("Status: %s\n", status)
			}
		}
		return nil

	case "tags":
		tags, err := session.GetTagList()
		if err != nil {
			return err
		}
		fmt.Printf("%d tag(s):\n", len(tags))
		for _, t := range tags {
			fmt.Printf("  %s\n", t.Tag)
		}
		return nil

	case "forward":
		return session.Seek(60)

	case "backward":
		return session.Seek(-60)

	case "start":
		return session.SeekToStart()

	case "seek":
		return session.SeekAbsolute(*seconds)

	case "quit":
		return session.Quit()

	default:
		flag.Usage()
		return fmt.Errorf("%w: unknown command %q", memoryplay.ErrInvalidParam, command)
	}
}

// Command uploadaudio decodes one or more audio files and streams
// them to a MemoryPlay host. Inputs the native decoder cannot demux
// are transcoded to WAV via ffmpeg and cached on disk.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/famish99/memoryplayctl/internal/cache"
	"github.com/famish99/memoryplayctl/internal/config"
	"github.com/famish99/memoryplayctl/internal/memoryplay"
	"github.com/famish99/memoryplayctl/internal/playlist"
	"github.com/famish99/memoryplayctl/internal/transcode"
	"github.com/famish99/memoryplayctl/internal/wav"
)

var (
	configPath = flag.String("config", "memoryplayctl.yaml", "Path to configuration file")
	host       = flag.String("h", "", "Host IPv6 address (default: config, then discovery)")
	iface      = flag.Uint("i", 0, "Network interface number")
	loopMode   = flag.Bool("l", false, "Enable loop playback")
	verbose    = flag.Bool("v", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	memoryplay.Init(memoryplay.Settings{EnableLogging: true, Verbose: *verbose})

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [-h ADDR] [-i IFACE] [-l] FILES...\n", os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logrus.Errorf("Failed to load config: %v", err)
		os.Exit(1)
	}

	if err := upload(cfg, flag.Args()); err != nil {
		logrus.Errorf("Upload failed: %s", memoryplay.ErrorString(err))
		if *verbose {
			logrus.Errorf("detail: %v", err)
		}
		os.Exit(1)
	}
	fmt.Println("Upload complete")
}

func upload(cfg *config.Config, args []string) error {
	hostAddr, ifno := *host, uint32(*iface)
	if hostAddr == "" {
		if cfg.Host.IP != "" {
			hostAddr, ifno = cfg.Host.Address(), cfg.Host.Interface
		} else {
			finder := memoryplay.CommandFinder{Command: cfg.Finder.Command, Args: cfg.Finder.Args}
			hosts, err := memoryplay.DiscoverHosts(finder)
			if err != nil {
				return err
			}
			h, _ := memoryplay.PickHost(hosts)
			hostAddr, ifno = h.IPAddress, h.InterfaceNumber
			logrus.Infof("Using discovered host %s%%%d", hostAddr, ifno)
		}
	}

	list := playlist.New()
	if err := list.AddFiles(args); err != nil {
		return fmt.Errorf("%w: %v", memoryplay.ErrInvalidParam, err)
	}
	if list.Length() == 0 {
		return fmt.Errorf("%w: no audio files to upload", memoryplay.ErrInvalidParam)
	}

	var files []*wav.File
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()

	var sources []memoryplay.Source
	var format memoryplay.Format
	var formatID memoryplay.FormatID

	var store *cache.DiskCache
	for _, track := range list.Tracks() {
		if store == nil && !transcode.IsNative(track.Path) {
			var err error
			store, err = cache.New(cfg.Cache.Directory, int64(cfg.Cache.MaxSizeGB)<<30)
			if err != nil {
				return fmt.Errorf("%w: %v", memoryplay.ErrUnknown, err)
			}
		}
		path, err := resolveSource(store, track.Path)
		if err != nil {
			return err
		}
		f, err := wav.Open(path, true)
		if err != nil {
			return err
		}
		files = append(files, f)

		id, err := f.Format().ID()
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			format = f.Format()
			formatID = id
		} else if id != formatID {
			return fmt.Errorf("%w: %s: format differs from first track", memoryplay.ErrInvalidParam, track.Path)
		}

		logrus.Infof("Track %d: %q (%d Hz, %d ch, %d bit)",
			f.Index(), f.Title(), f.Format().Rate, f.Format().Channels, f.Format().Bits)
		sources = append(sources, f)
	}

	return memoryplay.UploadAudio(hostAddr, ifno, sources, format, *loopMode)
}

// resolveSource returns a path the native decoder can open, running
// the source through the ffmpeg transcoder (and its cache) when the
// container is not handled natively.
func resolveSource(store *cache.DiskCache, path string) (string, error) {
	if transcode.IsNative(path) {
		return path, nil
	}
	if !transcode.Available() {
		return "", fmt.Errorf("%w: %s needs transcoding and ffmpeg is unavailable", memoryplay.ErrInvalidParam, path)
	}

	key, err := cache.SourceKey(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", memoryplay.ErrInvalidParam, err)
	}
	out, err := store.Ensure(key, func(dest string) error {
		logrus.Infof("Transcoding %s", path)
		return transcode.ToWAV(path, dest)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", memoryplay.ErrUnknown, err)
	}
	return out, nil
}

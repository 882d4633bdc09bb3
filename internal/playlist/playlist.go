package playlist

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Track is one entry of an upload: the audio source path and the
// title to tag it with.
type Track struct {
	Path  string
	Title string
	Index int
}

// Playlist is an ordered list of tracks.
type Playlist struct {
	mu     sync.RWMutex
	tracks []Track
}

// New creates an empty playlist.
func New() *Playlist {
	return &Playlist{}
}

// Add appends a track.
func (p *Playlist) Add(path, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tracks = append(p.tracks, Track{
		Path:  path,
		Title: title,
		Index: len(p.tracks) + 1,
	})
}

// AddFiles appends plain audio files, titling each after its filename
// stem, and expands .m3u/.m3u8 playlist arguments in place.
func (p *Playlist) AddFiles(paths []string) error {
	for _, path := range paths {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".m3u", ".m3u8":
			if err := p.LoadM3U(path); err != nil {
				return err
			}
		default:
			p.Add(path, stem(path))
		}
	}
	return nil
}

// LoadM3U appends the entries of an M3U playlist. EXTINF titles are
// honored; relative entries resolve against the playlist location.
func (p *Playlist) LoadM3U(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open playlist: %w", err)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	title := ""
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || line == "#EXTM3U":
		case strings.HasPrefix(line, "#EXTINF:"):
			if i := strings.Index(line, ","); i >= 0 {
				title = strings.TrimSpace(line[i+1:])
			}
		case strings.HasPrefix(line, "#"):
		default:
			entry := line
			if !filepath.IsAbs(entry) && !strings.Contains(entry, "://") {
				entry = filepath.Join(dir, entry)
			}
			if title == "" {
				title = stem(entry)
			}
			p.Add(entry, title)
			title = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read playlist: %w", err)
	}
	return nil
}

// Tracks returns a copy of the track list.
func (p *Playlist) Tracks() []Track {
	p.mu.RLock()
	defer p.mu.RUnlock()
	tracks := make([]Track, len(p.tracks))
	copy(tracks, p.tracks)
	return tracks
}

// Length returns the number of tracks.
func (p *Playlist) Length() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.tracks)
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

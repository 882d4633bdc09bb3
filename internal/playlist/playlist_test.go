package playlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddFilesTitlesFromStem(t *testing.T) {
	p := New()
	require.NoError(t, p.AddFiles([]string{"/music/01 Intro.wav", "/music/02 Theme.dsf"}))

	tracks := p.Tracks()
	require.Len(t, tracks, 2)
	require.Equal(t, "01 Intro", tracks[0].Title)
	require.Equal(t, 1, tracks[0].Index)
	require.Equal(t, "02 Theme", tracks[1].Title)
	require.Equal(t, 2, tracks[1].Index)
}

func TestLoadM3U(t *testing.T) {
	dir := t.TempDir()
	m3u := filepath.Join(dir, "album.m3u")
	content := `#EXTM3U
#EXTINF:215,First Song
01 first.wav
#EXTINF:187,Second Song
/abs/path/02 second.wav

# a comment
03 third.wav
`
	require.NoError(t, os.WriteFile(m3u, []byte(content), 0644))

	p := New()
	require.NoError(t, p.AddFiles([]string{m3u}))

	tracks := p.Tracks()
	require.Len(t, tracks, 3)

	require.Equal(t, filepath.Join(dir, "01 first.wav"), tracks[0].Path)
	require.Equal(t, "First Song", tracks[0].Title)

	require.Equal(t, "/abs/path/02 second.wav", tracks[1].Path)
	require.Equal(t, "Second Song", tracks[1].Title)

	// No EXTINF: the title falls back to the filename stem.
	require.Equal(t, "03 third", tracks[2].Title)
}

func TestLoadM3UMissingFile(t *testing.T) {
	p := New()
	require.Error(t, p.LoadM3U(filepath.Join(t.TempDir(), "absent.m3u")))
}

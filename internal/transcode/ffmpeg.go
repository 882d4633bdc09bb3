// Package transcode shells out to ffmpeg/ffprobe to turn inputs the
// native decoder cannot demux (FLAC, Ogg, M4A audio, …) into RIFF/WAV
// files it can.
package transcode

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// nativeExts are containers the decoder opens directly; everything
// else goes through ffmpeg.
var nativeExts = map[string]bool{
	".wav":  true,
	".dsf":  true,
	".dff":  true,
	".aiff": true,
	".aif":  true,
}

// IsNative reports whether the decoder handles the file without help.
func IsNative(path string) bool {
	return nativeExts[strings.ToLower(filepath.Ext(path))]
}

// Available reports whether ffmpeg can be found on this system.
func Available() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// ToWAV decodes source into a WAV file at outputPath, asking ffmpeg to
// carry the metadata over as ID3v2.3 so the native decoder can harvest
// the title and track number afterwards.
func ToWAV(source, outputPath string) error {
	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("cannot access source: %w", err)
	}

	args := []string{
		"-i", source,
		"-f", "wav",
		"-map_metadata", "0",
		"-write_id3v2", "1",
		"-id3v2_version", "3",
		"-y",
		outputPath,
	}
	logrus.Debugf("transcode: ffmpeg %s", strings.Join(args, " "))

	cmd := exec.Command("ffmpeg", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("ffmpeg failed: %w\nstderr: %s", err, stderr.String())
	}
	return nil
}

// Probe returns the stream parameters ffprobe reports for source.
func Probe(source string) (sampleRate, channels, bits int, err error) {
	cmd := exec.Command("ffprobe",
		"-v", "error",
		"-print_format", "default=noprint_wrappers=1:nokey=1",
		"-select_streams", "a:0",
		"-show_entries", "stream=sample_rate,channels,bits_per_raw_sample",
		source,
	)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, 0, 0, fmt.Errorf("ffprobe failed: %w\nstderr: %s", err, stderr.String())
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) < 2 {
		return 0, 0, 0, fmt.Errorf("unexpected ffprobe output: %q", out.String())
	}
	if _, err := fmt.Sscanf(strings.TrimSpace(lines[0]), "%d", &sampleRate); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid sample rate: %w", err)
	}
	if _, err := fmt.Sscanf(strings.TrimSpace(lines[1]), "%d", &channels); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid channels: %w", err)
	}
	bits = 16
	if len(lines) > 2 {
		if v := strings.TrimSpace(lines[2]); v != "" && v != "N/A" {
			fmt.Sscanf(v, "%d", &bits)
		}
	}
	return sampleRate, channels, bits, nil
}

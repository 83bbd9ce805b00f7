package ffmpeg

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// durationRe matches the Duration line FFmpeg prints when probing an input,
// e.g. "  Duration: 00:01:23.45, start: 0.000000, bitrate: 128 kb/s".
var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d{2}):(\d{2})\.(\d{2})`)

// audioStreamRe matches an audio stream line in FFmpeg probe output,
// e.g. "  Stream #0:1(und): Audio: aac (LC) ...".
var audioStreamRe = regexp.MustCompile(`Stream #\d+:\d+.*: Audio:`)

// Probe reads media metadata by running "ffmpeg -i file" and parsing stderr.
type Probe struct {
	exec *Executor
	path string
}

// NewProbe creates a Probe using the ffmpeg binary at path.
func NewProbe(path string, exec *Executor) *Probe {
	if exec == nil {
		exec = NewExecutor()
	}
	return &Probe{exec: exec, path: path}
}

// Duration returns the duration of the media file.
func (p *Probe) Duration(ctx context.Context, file string) (time.Duration, error) {
	out, _ := p.exec.RunOutput(ctx, p.path, []string{"-i", file})
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	d, err := ParseDuration(out)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", file, err)
	}
	return d, nil
}

// HasAudio reports whether the media file contains at least one audio stream.
func (p *Probe) HasAudio(ctx context.Context, file string) (bool, error) {
	out, _ := p.exec.RunOutput(ctx, p.path, []string{"-i", file})
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !strings.Contains(out, "Stream #") {
		return false, fmt.Errorf("%w: no streams in %s", ErrProbe, file)
	}
	return audioStreamRe.MatchString(out), nil
}

// ParseDuration extracts the duration from FFmpeg probe stderr output.
func ParseDuration(output string) (time.Duration, error) {
	m := durationRe.FindStringSubmatch(output)
	if m == nil {
		return 0, fmt.Errorf("%w: no duration in output", ErrProbe)
	}

	h, _ := strconv.Atoi(m[1])
	min, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	centi, _ := strconv.Atoi(m[4])

	return time.Duration(h)*time.Hour +
		time.Duration(min)*time.Minute +
		time.Duration(sec)*time.Second +
		time.Duration(centi)*10*time.Millisecond, nil
}

// FormatSeconds renders a duration as fractional seconds for FFmpeg arguments
// like -t and -ss.
func FormatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

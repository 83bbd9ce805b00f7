package download

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Stdout line patterns yt-dlp emits with --newline.
var (
	progressRe    = regexp.MustCompile(`\[download\]\s+([\d.]+)%`)
	destinationRe = regexp.MustCompile(`\[download\] Destination: (.+)`)
	mergerRe      = regexp.MustCompile(`\[Merger\] Merging formats into "(.+)"`)
	alreadyRe     = regexp.MustCompile(`\[download\] (.+) has already been downloaded`)
)

// YTDLPFetcher shells out to yt-dlp for a single download attempt.
type YTDLPFetcher struct {
	binPath string
	log     *zap.Logger
}

var _ Fetcher = (*YTDLPFetcher)(nil)

// NewYTDLPFetcher creates a fetcher using the yt-dlp binary at binPath.
func NewYTDLPFetcher(binPath string, log *zap.Logger) *YTDLPFetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &YTDLPFetcher{binPath: binPath, log: log}
}

// Retry counts and client identity passed to every yt-dlp invocation.
const (
	downloadRetries  = "5"
	fragmentRetries  = "5"
	extractorRetries = "3"
	userAgent        = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// fetchArgs builds the yt-dlp command line for one download attempt.
func fetchArgs(req Request) []string {
	return []string{
		"--newline",
		"--no-playlist",
		"--no-check-certificate",
		"--retries", downloadRetries,
		"--fragment-retries", fragmentRetries,
		"--extractor-retries", extractorRetries,
		"--user-agent", userAgent,
		"-f", req.Format,
		"-o", req.OutputTemplate,
		req.URL,
	}
}

// Fetch runs yt-dlp and streams its progress. The returned path is the one
// yt-dlp reported last; merged downloads report through the Merger line.
func (f *YTDLPFetcher) Fetch(ctx context.Context, req Request) (string, error) {
	args := fetchArgs(req)

	f.log.Debug("running yt-dlp",
		zap.String("format", req.Format),
		zap.String("url", req.URL))

	cmd := exec.CommandContext(ctx, f.binPath, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("create stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start yt-dlp: %w", err)
	}

	var reported string
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := scanner.Text()
		if path, percent, ok := parseLine(line); ok {
			if path != "" {
				reported = path
			}
			if percent >= 0 && req.Progress != nil {
				req.Progress(percent)
			}
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("yt-dlp: %s", lastLine(msg))
	}

	return reported, nil
}

// parseLine extracts the file path and/or progress percentage from one
// yt-dlp stdout line. percent is -1 when the line carries no progress.
func parseLine(line string) (path string, percent float64, ok bool) {
	if m := mergerRe.FindStringSubmatch(line); m != nil {
		return m[1], -1, true
	}
	if m := destinationRe.FindStringSubmatch(line); m != nil {
		return m[1], -1, true
	}
	if m := alreadyRe.FindStringSubmatch(line); m != nil {
		return m[1], -1, true
	}
	if m := progressRe.FindStringSubmatch(line); m != nil {
		p, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return "", -1, false
		}
		return "", p, true
	}
	return "", -1, false
}

// lastLine returns the final non-empty line of a multi-line error dump.
// yt-dlp prints warnings before the actual failure reason.
func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return l
		}
	}
	return s
}

// Package download acquires source videos. A Fetcher runs one download
// attempt with a fixed format selector; the Downloader walks a ladder of
// selectors from most specific to most permissive until one produces a
// usable file.
package download

import "context"

// Request describes one download attempt.
type Request struct {
	// URL is the video page address.
	URL string
	// Format is the yt-dlp format selector for this attempt.
	Format string
	// OutputTemplate is the yt-dlp output template, rooted in a work
	// directory private to this attempt.
	OutputTemplate string
	// Progress, when non-nil, receives download percentages in [0,100].
	Progress func(percent float64)
}

// Fetcher runs a single download attempt. It returns the path of the
// downloaded file when the tool reports one; an empty path with a nil error
// means the caller must locate the file in the work directory itself.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (string, error)
}

// Result describes a completed acquisition.
type Result struct {
	// Path is the downloaded video file.
	Path string
	// Format is the selector that succeeded.
	Format string
	// Attempts counts how many ladder rungs ran, including the successful one.
	Attempts int
}

package ffmpeg

import "errors"

// ErrNotFound indicates a required external binary is not installed.
var ErrNotFound = errors.New("binary not found")

// ErrTimeout is returned when FFmpeg does not exit within the graceful shutdown timeout.
var ErrTimeout = errors.New("ffmpeg did not exit within timeout")

// ErrProbe indicates media metadata could not be read from FFmpeg output.
var ErrProbe = errors.New("cannot probe media file")

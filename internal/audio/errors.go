package audio

import "errors"

// ErrProcessing indicates an FFmpeg audio operation failed or produced an
// unusable file.
var ErrProcessing = errors.New("audio processing failed")

// ErrFileNotFound indicates the specified input file does not exist.
var ErrFileNotFound = errors.New("file not found")

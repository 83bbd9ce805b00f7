package align

import "errors"

// ErrSync indicates audio/video synchronization failed.
var ErrSync = errors.New("synchronization failed")

// ErrInputMissing indicates a stage input file is absent, as opposed to a
// processing failure on a present file.
var ErrInputMissing = errors.New("synchronization input missing")

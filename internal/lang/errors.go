package lang

import "errors"

// ErrInvalid indicates an invalid language code was specified.
var ErrInvalid = errors.New("invalid language code")

// ErrSynthesisUnsupported indicates the speech engine has no voice model
// for the requested language.
var ErrSynthesisUnsupported = errors.New("language not supported for synthesis")

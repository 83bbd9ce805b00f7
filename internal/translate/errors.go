package translate

import "errors"

// ErrTranslation indicates the translation backend failed or produced no
// usable output.
var ErrTranslation = errors.New("translation failed")

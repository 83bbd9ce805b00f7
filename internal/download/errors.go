package download

import "errors"

// ErrAcquisition indicates the video could not be downloaded with any
// format selector.
var ErrAcquisition = errors.New("video acquisition failed")

// ErrEmptyDownload indicates a download completed but produced a file too
// small to be real media.
var ErrEmptyDownload = errors.New("downloaded file is empty or truncated")

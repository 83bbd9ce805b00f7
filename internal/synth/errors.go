package synth

import "errors"

// ErrSynthesis indicates speech generation failed.
var ErrSynthesis = errors.New("speech synthesis failed")

// ErrVoiceMissing indicates the speaker reference WAV is absent or unusable.
var ErrVoiceMissing = errors.New("speaker reference WAV missing")

// Package transcribe turns an audio file into diarized, timestamped text
// through the AssemblyAI HTTP API: upload the audio, submit a transcription
// job, then poll until it reaches a terminal status.
package transcribe

import "sort"

// Word is a single recognized word with millisecond timing.
type Word struct {
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	Speaker    string  `json:"speaker"`
}

// Utterance is a continuous stretch of speech from one speaker.
// Start and End are milliseconds from the beginning of the audio.
type Utterance struct {
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	Start      int     `json:"start"`
	End        int     `json:"end"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words,omitempty"`

	// Gender is not detected by the service; it is assigned from
	// configuration so the synthesis stage can pick a voice.
	Gender string `json:"gender,omitempty"`
}

// Transcript is the usable result of a transcription job.
type Transcript struct {
	Utterances   []Utterance
	Text         string
	LanguageCode string
}

// SpeakerProfile describes one distinct speaker found in a transcript.
type SpeakerProfile struct {
	// ID is the service-assigned speaker label ("A", "B", ...).
	ID string
	// Gender is the voice gender used for this speaker during synthesis.
	Gender string
	// Order is the speaker's 1-based rank over the sorted distinct
	// speaker labels, so "A" ranks before "B" regardless of who talks
	// first.
	Order int
}

// SpeakerProfiles extracts the distinct speakers of a transcript sorted by
// label, assigning each the given default gender and a 1-based rank.
func SpeakerProfiles(utterances []Utterance, defaultGender string) []SpeakerProfile {
	seen := map[string]bool{}
	var ids []string
	for _, u := range utterances {
		if !seen[u.Speaker] {
			seen[u.Speaker] = true
			ids = append(ids, u.Speaker)
		}
	}
	sort.Strings(ids)

	profiles := make([]SpeakerProfile, len(ids))
	for i, id := range ids {
		profiles[i] = SpeakerProfile{ID: id, Gender: defaultGender, Order: i + 1}
	}
	return profiles
}

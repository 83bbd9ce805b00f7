// Package textchunk splits text into length-bounded fragments along sentence
// boundaries. Both the translation and synthesis stages use it, with different
// limits: translation APIs take a few thousand characters per request, while
// the speech engine has a hard ceiling in the low hundreds.
//
// Fragments are trimmed and never empty. Joining the fragments with single
// spaces reproduces the input modulo whitespace normalization; fragment order
// matches input order.
package textchunk

import (
	"regexp"
	"strings"
	"unicode"
)

// Split divides text into fragments of at most max characters, keeping whole
// sentences together. Sentences are delimited by '.', '!' or '?' followed by
// whitespace. A single sentence longer than max becomes its own fragment
// rather than being dropped; callers that cannot tolerate oversized fragments
// should use SplitHard.
//
// Empty or whitespace-only input returns nil. max < 1 is treated as 1.
func Split(text string, max int) []string {
	return split(text, max, false)
}

// SplitHard behaves like Split but additionally slices any sentence longer
// than max into max-sized pieces, in order. Use this for downstream services
// with a hard input-length ceiling that cannot accept oversized fragments.
func SplitHard(text string, max int) []string {
	return split(text, max, true)
}

func split(text string, max int, hard bool) []string {
	if max < 1 {
		max = 1
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, sentence := range sentences(text) {
		length := len([]rune(sentence))

		if hard && length > max {
			// The sentence alone exceeds the ceiling: flush what we have and
			// slice it mid-sentence. Less ideal, but no fragment may exceed max.
			flush()
			runes := []rune(sentence)
			for i := 0; i < len(runes); i += max {
				end := min(i+max, len(runes))
				piece := strings.TrimSpace(string(runes[i:end]))
				if piece != "" {
					chunks = append(chunks, piece)
				}
			}
			continue
		}

		// The +1 accounts for the joining space.
		if currentLen > 0 && currentLen+length+1 > max {
			flush()
		}

		if length > max {
			// Oversized sentence in soft mode: emit as its own fragment.
			chunks = append(chunks, sentence)
			continue
		}

		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += length
	}
	flush()

	return chunks
}

// sentences splits text into sentence-like units at '.', '!' or '?' followed
// by whitespace. The terminating punctuation stays attached to its sentence.
// Units are trimmed; empty units are dropped.
func sentences(text string) []string {
	var out []string
	runes := []rune(text)
	start := 0

	emit := func(end int) {
		s := strings.TrimSpace(string(runes[start:end]))
		if s != "" {
			out = append(out, s)
		}
		start = end
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			emit(i + 1)
		}
	}
	emit(len(runes))

	return out
}

// speechReplacer normalizes typographic characters that trip up speech
// engines into their plain ASCII equivalents.
var speechReplacer = strings.NewReplacer(
	"„", `"`, // „
	"“", `"`, // “
	"”", `"`, // ”
	"’", "'", // ’
	"‘", "'", // ‘
	"`", "'",
	"–", "-", // –
	"—", "-", // —
	"…", "...", // …
)

// controlChars matches control characters that must not reach the speech
// engine. Newlines and tabs are covered by the later whitespace collapse.
var controlChars = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]")

// CleanForSpeech prepares text for the synthesis engine: typographic quotes,
// dashes and ellipses become ASCII, control characters are stripped, and all
// whitespace runs collapse to single spaces. Returns "" if nothing survives.
func CleanForSpeech(text string) string {
	text = speechReplacer.Replace(text)
	text = controlChars.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

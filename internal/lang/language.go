package lang

import (
	"fmt"
	"strings"
)

// validLanguages contains ISO 639-1 language codes accepted for transcription.
// This is not exhaustive but covers the languages the transcription service
// handles well; users can request additions.
var validLanguages = map[string]bool{
	"af": true, // Afrikaans
	"ar": true, // Arabic
	"bg": true, // Bulgarian
	"bn": true, // Bengali
	"ca": true, // Catalan
	"cs": true, // Czech
	"da": true, // Danish
	"de": true, // German
	"el": true, // Greek
	"en": true, // English
	"es": true, // Spanish
	"et": true, // Estonian
	"fa": true, // Persian
	"fi": true, // Finnish
	"fr": true, // French
	"he": true, // Hebrew
	"hi": true, // Hindi
	"hr": true, // Croatian
	"hu": true, // Hungarian
	"id": true, // Indonesian
	"it": true, // Italian
	"ja": true, // Japanese
	"ko": true, // Korean
	"lt": true, // Lithuanian
	"lv": true, // Latvian
	"ms": true, // Malay
	"nl": true, // Dutch
	"no": true, // Norwegian
	"pl": true, // Polish
	"pt": true, // Portuguese
	"ro": true, // Romanian
	"ru": true, // Russian
	"sk": true, // Slovak
	"sl": true, // Slovenian
	"sr": true, // Serbian
	"sv": true, // Swedish
	"sw": true, // Swahili
	"ta": true, // Tamil
	"th": true, // Thai
	"tl": true, // Tagalog
	"tr": true, // Turkish
	"uk": true, // Ukrainian
	"ur": true, // Urdu
	"vi": true, // Vietnamese
	"zh": true, // Chinese
}

// synthesisLanguages contains the base codes the XTTS voice model ships with.
// Synthesis in any other language produces garbage audio, so the pipeline
// rejects unsupported targets up front.
var synthesisLanguages = map[string]bool{
	"ar": true,
	"cs": true,
	"de": true,
	"en": true,
	"es": true,
	"fr": true,
	"hi": true,
	"hu": true,
	"it": true,
	"ja": true,
	"ko": true,
	"nl": true,
	"pl": true,
	"pt": true,
	"ru": true,
	"tr": true,
	"zh": true,
}

// Normalize normalizes a language code to lowercase with hyphen separator.
// Accepts: "pt-BR", "pt_BR", "PT-BR", "pt-br" -> "pt-br"
func Normalize(lang string) string {
	return strings.ToLower(strings.ReplaceAll(lang, "_", "-"))
}

// Validate checks if the language code is valid.
// Accepts ISO 639-1 codes (e.g., "en", "fr") and locales (e.g., "pt-BR", "zh-CN").
// Returns ErrInvalid if the base language is not recognized.
func Validate(lang string) error {
	if lang == "" {
		return nil // Empty means auto-detect, which is valid
	}

	if !validLanguages[BaseCode(lang)] {
		return fmt.Errorf("invalid language code %q (use ISO 639-1 codes like 'en', 'fr', 'pt-BR'): %w",
			lang, ErrInvalid)
	}

	return nil
}

// ValidateSynthesis checks that the speech engine can voice the language.
// Unlike Validate, an empty code is rejected: synthesis always needs an
// explicit target language.
func ValidateSynthesis(lang string) error {
	if lang == "" {
		return fmt.Errorf("synthesis target language is required: %w", ErrInvalid)
	}
	if !synthesisLanguages[BaseCode(lang)] {
		return fmt.Errorf("no voice model for %q: %w", lang, ErrSynthesisUnsupported)
	}
	return nil
}

// BaseCode extracts the ISO 639-1 base language code from a locale.
// The transcription and synthesis services only accept base codes,
// not regional variants. Examples: "pt-BR" -> "pt", "zh-CN" -> "zh".
func BaseCode(lang string) string {
	if lang == "" {
		return ""
	}
	normalized := Normalize(lang)
	if idx := strings.Index(normalized, "-"); idx != -1 {
		return normalized[:idx]
	}
	return normalized
}

// DisplayName returns a human-readable name for common locales.
// Falls back to the code itself for unknown locales.
// Used in the translation prompt instruction.
func DisplayName(lang string) string {
	normalized := Normalize(lang)

	displayNames := map[string]string{
		"en":    "English",
		"en-us": "American English",
		"en-gb": "British English",
		"fr":    "French",
		"es":    "Spanish",
		"pt":    "Portuguese",
		"pt-br": "Brazilian Portuguese",
		"zh":    "Chinese",
		"zh-cn": "Simplified Chinese",
		"de":    "German",
		"it":    "Italian",
		"ja":    "Japanese",
		"ko":    "Korean",
		"ru":    "Russian",
		"ar":    "Arabic",
		"nl":    "Dutch",
		"pl":    "Polish",
		"tr":    "Turkish",
		"cs":    "Czech",
		"hu":    "Hungarian",
		"hi":    "Hindi",
	}

	if name, ok := displayNames[normalized]; ok {
		return name
	}
	if name, ok := displayNames[BaseCode(normalized)]; ok {
		return name
	}
	return lang
}

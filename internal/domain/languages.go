package domain

import "strings"

// languageNames maps whisper language codes to full language names.
var languageNames = map[string]string{
	"en": "english", "zh": "chinese", "de": "german", "es": "spanish",
	"ru": "russian", "ko": "korean", "fr": "french", "ja": "japanese",
	"pt": "portuguese", "tr": "turkish", "pl": "polish", "ca": "catalan",
	"nl": "dutch", "ar": "arabic", "sv": "swedish", "it": "italian",
	"id": "indonesian", "hi": "hindi", "fi": "finnish", "vi": "vietnamese",
	"he": "hebrew", "uk": "ukrainian", "el": "greek", "ms": "malay",
	"cs": "czech", "ro": "romanian", "da": "danish", "hu": "hungarian",
	"ta": "tamil", "no": "norwegian", "th": "thai", "ur": "urdu",
	"hr": "croatian", "bg": "bulgarian", "lt": "lithuanian", "la": "latin",
	"mi": "maori", "ml": "malayalam", "cy": "welsh", "sk": "slovak",
	"te": "telugu", "fa": "persian", "lv": "latvian", "bn": "bengali",
	"sr": "serbian", "az": "azerbaijani", "sl": "slovenian", "kn": "kannada",
	"et": "estonian", "mk": "macedonian", "br": "breton", "eu": "basque",
	"is": "icelandic", "hy": "armenian", "ne": "nepali", "mn": "mongolian",
	"bs": "bosnian", "kk": "kazakh", "sq": "albanian", "sw": "swahili",
	"gl": "galician", "mr": "marathi", "pa": "punjabi", "si": "sinhala",
	"km": "khmer", "sn": "shona", "yo": "yoruba", "so": "somali",
	"af": "afrikaans", "oc": "occitan", "ka": "georgian", "be": "belarusian",
	"tg": "tajik", "sd": "sindhi", "gu": "gujarati", "am": "amharic",
	"yi": "yiddish", "lo": "lao", "uz": "uzbek", "fo": "faroese",
	"ht": "haitian creole", "ps": "pashto", "tk": "turkmen", "nn": "nynorsk",
	"mt": "maltese", "sa": "sanskrit", "lb": "luxembourgish", "my": "myanmar",
	"bo": "tibetan", "tl": "tagalog", "mg": "malagasy", "as": "assamese",
	"tt": "tatar", "haw": "hawaiian", "ln": "lingala", "ha": "hausa",
	"ba": "bashkir", "jw": "javanese", "su": "sundanese",
}

// languageAliases maps alternate language names to whisper codes.
var languageAliases = map[string]string{
	"burmese":       "my",
	"valencian":     "ca",
	"flemish":       "nl",
	"haitian":       "ht",
	"letzeburgesch": "lb",
	"pushto":        "ps",
	"panjabi":       "pa",
	"moldavian":     "ro",
	"moldovan":      "ro",
	"sinhalese":     "si",
	"castilian":     "es",
	"mandarin":      "zh",
}

// languageCodes maps language names (including aliases) to codes.
var languageCodes = buildLanguageCodes()

// buildLanguageCodes inverts the code table and merges aliases.
func buildLanguageCodes() map[string]string {
	codes := make(map[string]string, len(languageNames)+len(languageAliases))
	for code, name := range languageNames {
		codes[name] = code
	}
	for alias, code := range languageAliases {
		codes[alias] = code
	}
	return codes
}

// LanguageName converts a language code to its full name when known.
// Unknown specifiers pass through unchanged.
func LanguageName(spec string) string {
	if name, ok := languageNames[strings.ToLower(strings.TrimSpace(spec))]; ok {
		return name
	}
	return spec
}

// LanguageCode converts a language name to its code when known.
// Unknown specifiers pass through unchanged.
func LanguageCode(spec string) string {
	if code, ok := languageCodes[strings.ToLower(strings.TrimSpace(spec))]; ok {
		return code
	}
	return spec
}

// KnownLanguageNames returns all full language names for UI selection.
func KnownLanguageNames() []string {
	names := make([]string, 0, len(languageNames))
	for _, name := range languageNames {
		names = append(names, name)
	}
	return names
}

package language

import (
	"strings"

	"golang.org/x/text/language"
)

type entry struct {
	code    string // ISO 639-1 (2-letter)
	display string // Human-readable name
}

var languages = []entry{
	{"en", "English"},
	{"es", "Spanish"},
	{"fr", "French"},
	{"de", "German"},
	{"it", "Italian"},
	{"pt", "Portuguese"},
	{"ja", "Japanese"},
	{"ko", "Korean"},
	{"zh", "Chinese"},
	{"ru", "Russian"},
	{"ar", "Arabic"},
	{"hi", "Hindi"},
	{"nl", "Dutch"},
	{"pl", "Polish"},
	{"sv", "Swedish"},
	{"da", "Danish"},
	{"no", "Norwegian"},
	{"fi", "Finnish"},
}

var byCode map[string]*entry

func init() {
	byCode = make(map[string]*entry, len(languages))
	for i := range languages {
		byCode[languages[i].code] = &languages[i]
	}
}

// Normalize lowercases and trims a language code, reducing region variants
// (en-US, pt-BR) to their base two-letter code.
func Normalize(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if idx := strings.IndexAny(code, "-_"); idx > 0 {
		code = code[:idx]
	}
	return code
}

// IsKnown reports whether the code names a language this pipeline can narrate.
func IsKnown(code string) bool {
	_, ok := byCode[Normalize(code)]
	return ok
}

// DisplayName returns the human-readable name for a language code, falling
// back to the code itself for unknown values.
func DisplayName(code string) string {
	if e, ok := byCode[Normalize(code)]; ok {
		return e.display
	}
	return code
}

// UsesLatinScript reports whether the language is written in Latin script.
// Languages outside Latin script receive extra whitespace normalization
// before synthesis.
func UsesLatinScript(code string) bool {
	normalized := Normalize(code)
	if normalized == "" {
		return true
	}
	tag, err := language.Parse(normalized)
	if err != nil {
		return true
	}
	script, _ := tag.Script()
	return script.String() == "Latn"
}

// Known returns the ordered list of language codes the pipeline understands.
func Known() []string {
	codes := make([]string, len(languages))
	for i, e := range languages {
		codes[i] = e.code
	}
	return codes
}

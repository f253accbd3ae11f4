package translate

import (
	"fmt"
	"strings"

	"chorus/internal/language"
)

// ContextType selects the translation persona. Titles, body content and
// excerpts each read differently and get distinct prompting.
type ContextType string

const (
	ContextTitle   ContextType = "title"
	ContextContent ContextType = "content"
	ContextExcerpt ContextType = "excerpt"
)

// literaryRegisterLanguages are targets where the content persona asks for a
// literary register rather than plain prose.
var literaryRegisterLanguages = map[string]struct{}{
	"fr": {},
	"it": {},
	"es": {},
	"pt": {},
	"ja": {},
}

func systemPrompt(contextType ContextType, sourceLanguage, targetLanguage string) string {
	source := language.DisplayName(sourceLanguage)
	target := language.DisplayName(targetLanguage)

	switch contextType {
	case ContextTitle:
		return fmt.Sprintf(
			"You are a professional translator specializing in headlines and titles. "+
				"Translate the given title from %s to %s. "+
				"Keep it concise and impactful, preserve proper nouns, and never add explanations. "+
				"Respond with the translated title only.", source, target)
	case ContextExcerpt:
		return fmt.Sprintf(
			"You are a professional translator working on short promotional excerpts. "+
				"Translate the given excerpt from %s to %s. "+
				"Favor evocative brevity over literal word order while keeping the meaning intact. "+
				"Respond with the translated excerpt only.", source, target)
	default:
		register := "Use clear, natural prose appropriate for spoken narration."
		if _, literary := literaryRegisterLanguages[targetLanguage]; literary {
			register = "Use a polished literary register natural to the target language."
		}
		return fmt.Sprintf(
			"You are a professional translator. Translate the given text from %s to %s, "+
				"preserving tone, register and paragraph structure. %s "+
				"Respond with the translation only, without commentary.", source, target, register)
	}
}

func normalizeContext(contextType ContextType) ContextType {
	switch contextType {
	case ContextTitle, ContextExcerpt:
		return contextType
	default:
		return ContextContent
	}
}

// maxOutputTokens bounds the completion proportionally to input length. A
// rough four characters per token estimate keeps the bound generous without
// letting the model ramble.
func maxOutputTokens(text string, ratio float64) int {
	if ratio <= 0 {
		ratio = 2.0
	}
	estimated := float64(len(strings.TrimSpace(text))) / 4.0 * ratio
	tokens := int(estimated)
	if tokens < 256 {
		tokens = 256
	}
	return tokens
}

package voice

import (
	"fmt"

	"chorus/internal/language"
	"chorus/internal/queue"
	"chorus/internal/services"
)

// Provider names the synthesis backend for a language.
type Provider string

const (
	ProviderElevenLabs Provider = "elevenlabs"
	ProviderCartesia   Provider = "cartesia"
)

// Selection is the resolved route for one language.
type Selection struct {
	Provider Provider
	VoiceID  string
	Speed    float64
}

type route struct {
	provider Provider
	voiceID  string
}

// routes maps language code to its synthesis backend and default voice.
// English stays on ElevenLabs for quality; every other language uses
// Cartesia's multilingual voices. New languages are added here without
// touching orchestration.
var routes = map[string]route{
	"en": {ProviderElevenLabs, "EXAVITQu4vr4xnSDxMaL"},
	"es": {ProviderCartesia, "5c5ad5e7-1020-476b-8b91-fdcbe9cc313c"},
	"fr": {ProviderCartesia, "a8a1eb38-5f15-4c1d-8722-7ac0f329727d"},
	"de": {ProviderCartesia, "3f4ade23-6eb4-4279-ab05-6a144947c4d5"},
	"it": {ProviderCartesia, "e5923af7-a329-4e9b-b95a-5ace4a083535"},
	"pt": {ProviderCartesia, "700d1ee3-a641-4018-ba6e-899dcadc9e2b"},
	"ja": {ProviderCartesia, "2b568345-1d48-4047-b25f-7baccf842eb0"},
	"ko": {ProviderCartesia, "304fdbd8-65e6-40d6-ab78-f9d18b9efdf9"},
	"hi": {ProviderCartesia, "c1abd502-9231-4558-a054-10ac950c356d"},
}

const defaultSpeed = 1.0

// Select resolves the provider and voice for a language, honoring any
// per-language override or global voice id carried in the job config.
func Select(lang string, cfg queue.VoiceConfig) (Selection, error) {
	code := language.Normalize(lang)
	r, ok := routes[code]
	if !ok {
		return Selection{}, services.Wrap(services.ErrValidation, "voice", "select",
			fmt.Sprintf("no voice route for language %q", lang), nil)
	}

	selection := Selection{
		Provider: r.provider,
		VoiceID:  r.voiceID,
		Speed:    defaultSpeed,
	}
	if cfg.Speed > 0 {
		selection.Speed = cfg.Speed
	}
	if cfg.VoiceID != "" && r.provider == ProviderElevenLabs {
		selection.VoiceID = cfg.VoiceID
	}
	if override, ok := cfg.VoiceOverrides[code]; ok && override != "" {
		selection.VoiceID = override
	}
	return selection, nil
}

// Supported lists the languages with a synthesis route, in no fixed order.
func Supported() []string {
	langs := make([]string, 0, len(routes))
	for code := range routes {
		langs = append(langs, code)
	}
	return langs
}

package tts

import "strings"

// Gender selects a voice when no explicit voice name is given.
type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

// VoiceProfile describes an Azure neural voice.
type VoiceProfile struct {
	Name     string `json:"name"`
	Language string `json:"language"`
	Gender   Gender `json:"gender"`
}

// DefaultLanguage is used when a language has no voices.
const DefaultLanguage = "en-US"

// voices lists the female voice first, then the male voice.
var voices = map[string][]VoiceProfile{
	"vi-VN": {
		{Name: "vi-VN-HoaiMyNeural", Language: "vi-VN", Gender: GenderFemale},
		{Name: "vi-VN-NamMinhNeural", Language: "vi-VN", Gender: GenderMale},
	},
	"en-US": {
		{Name: "en-US-JennyNeural", Language: "en-US", Gender: GenderFemale},
		{Name: "en-US-GuyNeural", Language: "en-US", Gender: GenderMale},
		{Name: "en-US-AriaNeural", Language: "en-US", Gender: GenderFemale},
		{Name: "en-US-DavisNeural", Language: "en-US", Gender: GenderMale},
	},
	"en-GB": {
		{Name: "en-GB-SoniaNeural", Language: "en-GB", Gender: GenderFemale},
		{Name: "en-GB-RyanNeural", Language: "en-GB", Gender: GenderMale},
	},
	"ja-JP": {
		{Name: "ja-JP-NanamiNeural", Language: "ja-JP", Gender: GenderFemale},
		{Name: "ja-JP-KeitaNeural", Language: "ja-JP", Gender: GenderMale},
	},
	"ko-KR": {
		{Name: "ko-KR-SunHiNeural", Language: "ko-KR", Gender: GenderFemale},
		{Name: "ko-KR-InJoonNeural", Language: "ko-KR", Gender: GenderMale},
	},
	"zh-CN": {
		{Name: "zh-CN-XiaoxiaoNeural", Language: "zh-CN", Gender: GenderFemale},
		{Name: "zh-CN-YunxiNeural", Language: "zh-CN", Gender: GenderMale},
	},
	"fr-FR": {
		{Name: "fr-FR-DeniseNeural", Language: "fr-FR", Gender: GenderFemale},
		{Name: "fr-FR-HenriNeural", Language: "fr-FR", Gender: GenderMale},
	},
	"de-DE": {
		{Name: "de-DE-KatjaNeural", Language: "de-DE", Gender: GenderFemale},
		{Name: "de-DE-ConradNeural", Language: "de-DE", Gender: GenderMale},
	},
	"es-ES": {
		{Name: "es-ES-ElviraNeural", Language: "es-ES", Gender: GenderFemale},
		{Name: "es-ES-AlvaroNeural", Language: "es-ES", Gender: GenderMale},
	},
}

// short language codes mapped to the locale we have voices for
var locales = map[string]string{
	"vi": "vi-VN",
	"en": "en-US",
	"ja": "ja-JP",
	"ko": "ko-KR",
	"zh": "zh-CN",
	"fr": "fr-FR",
	"de": "de-DE",
	"es": "es-ES",
}

// NormalizeLanguage maps "vi", "EN_us" and similar to a catalog locale.
// Unknown languages become DefaultLanguage.
func NormalizeLanguage(lang string) string {
	lang = strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if lang == "" {
		return DefaultLanguage
	}

	parts := strings.SplitN(lang, "-", 2)
	base := strings.ToLower(parts[0])
	if len(parts) == 2 {
		full := base + "-" + strings.ToUpper(parts[1])
		if _, ok := voices[full]; ok {
			return full
		}
	}
	if loc, ok := locales[base]; ok {
		return loc
	}
	return DefaultLanguage
}

// Voices returns the catalog for a language.
func Voices(lang string) []VoiceProfile {
	list := voices[NormalizeLanguage(lang)]
	out := make([]VoiceProfile, len(list))
	copy(out, list)
	return out
}

// VoiceFor picks the default voice of the given gender for a language.
// An empty gender selects the female voice.
func VoiceFor(lang string, gender Gender) VoiceProfile {
	list := voices[NormalizeLanguage(lang)]
	for _, v := range list {
		if v.Gender == gender {
			return v
		}
	}
	return list[0]
}

// AlternateVoice returns the n-th distinct voice of a gender, cycling when
// the catalog has fewer. Used to give dialogue speakers distinct voices.
func AlternateVoice(lang string, gender Gender, n int) VoiceProfile {
	var matches []VoiceProfile
	for _, v := range voices[NormalizeLanguage(lang)] {
		if v.Gender == gender {
			matches = append(matches, v)
		}
	}
	if len(matches) == 0 {
		return VoiceFor(lang, gender)
	}
	if n < 0 {
		n = -n
	}
	return matches[n%len(matches)]
}

// LookupVoice finds a voice by name across all languages.
func LookupVoice(name string) (VoiceProfile, bool) {
	for _, list := range voices {
		for _, v := range list {
			if strings.EqualFold(v.Name, name) {
				return v, true
			}
		}
	}
	return VoiceProfile{}, false
}

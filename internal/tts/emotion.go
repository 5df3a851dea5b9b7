package tts

import "strings"

// emotionStyles maps the emotion labels produced by script generation to
// Azure speaking styles. Not every voice supports every style; Azure falls
// back to the neutral voice for unsupported ones.
var emotionStyles = map[string]string{
	"happy":      "cheerful",
	"cheerful":   "cheerful",
	"joyful":     "cheerful",
	"sad":        "sad",
	"angry":      "angry",
	"excited":    "excited",
	"calm":       "calm",
	"relaxed":    "calm",
	"whisper":    "whispering",
	"whispering": "whispering",
	"serious":    "serious",
	"friendly":   "friendly",
	"hopeful":    "hopeful",
	"scared":     "terrified",
	"fearful":    "fearful",
	"gentle":     "gentle",
	"empathetic": "empathetic",
	"curious":    "chat",
	"surprised":  "excited",
	"shouting":   "shouting",
	"news":       "newscast",
}

// StyleForEmotion returns the Azure style for an emotion label, or "" for
// neutral and unknown labels.
func StyleForEmotion(emotion string) string {
	return emotionStyles[strings.ToLower(strings.TrimSpace(emotion))]
}

// WithEmotion returns a copy of the segment with the style set from an
// emotion label. An explicit style is left alone.
func (s Segment) WithEmotion(emotion string) Segment {
	if s.Style == "" {
		s.Style = StyleForEmotion(emotion)
	}
	return s
}

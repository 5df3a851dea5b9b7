package tts

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Segment is one utterance of a synthesis request. Voice wins over Gender
// when both are set. Rate, Pitch and Volume take SSML prosody values.
type Segment struct {
	Text        string  `json:"text"`
	Voice       string  `json:"voice,omitempty"`
	Gender      Gender  `json:"gender,omitempty"`
	Style       string  `json:"style,omitempty"`
	StyleDegree float64 `json:"style_degree,omitempty"`
	Role        string  `json:"role,omitempty"`
	Rate        string  `json:"rate,omitempty"`
	Pitch       string  `json:"pitch,omitempty"`
	Volume      string  `json:"volume,omitempty"`
	BreakAfter  int     `json:"break_after_ms,omitempty"`
}

// MaxBreakMs is the longest pause Azure accepts in a break element.
const MaxBreakMs = 5000

var styles = map[string]bool{
	"advertisement_upbeat": true, "affectionate": true, "angry": true,
	"assistant": true, "calm": true, "chat": true, "cheerful": true,
	"customerservice": true, "depressed": true, "disgruntled": true,
	"documentary-narration": true, "embarrassed": true, "empathetic": true,
	"envious": true, "excited": true, "fearful": true, "friendly": true,
	"gentle": true, "hopeful": true, "lyrical": true, "narration-professional": true,
	"narration-relaxed": true, "newscast": true, "newscast-casual": true,
	"newscast-formal": true, "poetry-reading": true, "sad": true, "serious": true,
	"shouting": true, "sports_commentary": true, "sports_commentary_excited": true,
	"terrified": true, "unfriendly": true, "whispering": true,
}

var roles = map[string]bool{
	"Girl": true, "Boy": true,
	"YoungAdultFemale": true, "YoungAdultMale": true,
	"OlderAdultFemale": true, "OlderAdultMale": true,
	"SeniorFemale": true, "SeniorMale": true,
}

var (
	namedRates   = map[string]bool{"x-slow": true, "slow": true, "medium": true, "fast": true, "x-fast": true, "default": true}
	namedPitches = map[string]bool{"x-low": true, "low": true, "medium": true, "high": true, "x-high": true, "default": true}
	namedVolumes = map[string]bool{"silent": true, "x-soft": true, "soft": true, "medium": true, "loud": true, "x-loud": true, "default": true}

	relativePercent = regexp.MustCompile(`^[+-]?\d+(\.\d+)?%$`)
	multiplier      = regexp.MustCompile(`^\d+(\.\d+)?$`)
	pitchValue      = regexp.MustCompile(`^[+-]?\d+(\.\d+)?(Hz|st|%)$`)
	volumeValue     = regexp.MustCompile(`^[+-]?\d+(\.\d+)?%?$`)
)

func validRate(v string) bool {
	return namedRates[v] || relativePercent.MatchString(v) || multiplier.MatchString(v)
}

func validPitch(v string) bool {
	return namedPitches[v] || pitchValue.MatchString(v)
}

func validVolume(v string) bool {
	return namedVolumes[v] || volumeValue.MatchString(v)
}

// Validate checks a segment's text and optional attributes.
func (s Segment) Validate() error {
	if strings.TrimSpace(s.Text) == "" {
		return fmt.Errorf("segment text is empty")
	}
	if s.Style != "" && !styles[s.Style] {
		return fmt.Errorf("unknown style %q", s.Style)
	}
	if s.StyleDegree != 0 && (s.StyleDegree < 0.01 || s.StyleDegree > 2) {
		return fmt.Errorf("style degree %.2f out of range 0.01..2", s.StyleDegree)
	}
	if s.Role != "" && !roles[s.Role] {
		return fmt.Errorf("unknown role %q", s.Role)
	}
	if s.Rate != "" && !validRate(s.Rate) {
		return fmt.Errorf("invalid rate %q", s.Rate)
	}
	if s.Pitch != "" && !validPitch(s.Pitch) {
		return fmt.Errorf("invalid pitch %q", s.Pitch)
	}
	if s.Volume != "" && !validVolume(s.Volume) {
		return fmt.Errorf("invalid volume %q", s.Volume)
	}
	if s.BreakAfter < 0 || s.BreakAfter > MaxBreakMs {
		return fmt.Errorf("break %dms out of range 0..%d", s.BreakAfter, MaxBreakMs)
	}
	return nil
}

// VoiceName resolves the Azure voice for the segment.
func (s Segment) VoiceName(lang string) string {
	if s.Voice != "" {
		return s.Voice
	}
	return VoiceFor(lang, s.Gender).Name
}

// BuildSSML renders segments into one SSML document. Each segment gets its
// own voice element so speakers can alternate within a single request.
func BuildSSML(lang string, segments []Segment) (string, error) {
	if len(segments) == 0 {
		return "", fmt.Errorf("no segments to synthesize")
	}
	lang = NormalizeLanguage(lang)

	var b strings.Builder
	b.WriteString(`<speak version="1.0" xmlns="http://www.w3.org/2001/10/synthesis" xmlns:mstts="https://www.w3.org/2001/mstts" xml:lang="`)
	b.WriteString(escape(lang))
	b.WriteString(`">`)

	for i, seg := range segments {
		if err := seg.Validate(); err != nil {
			return "", fmt.Errorf("segment %d: %w", i, err)
		}

		b.WriteString(`<voice name="`)
		b.WriteString(escape(seg.VoiceName(lang)))
		b.WriteString(`">`)

		if seg.Style != "" {
			b.WriteString(`<mstts:express-as style="`)
			b.WriteString(seg.Style)
			b.WriteString(`"`)
			if seg.StyleDegree != 0 {
				b.WriteString(` styledegree="`)
				b.WriteString(strconv.FormatFloat(seg.StyleDegree, 'f', -1, 64))
				b.WriteString(`"`)
			}
			if seg.Role != "" {
				b.WriteString(` role="`)
				b.WriteString(seg.Role)
				b.WriteString(`"`)
			}
			b.WriteString(`>`)
		}

		prosody := seg.Rate != "" || seg.Pitch != "" || seg.Volume != ""
		if prosody {
			b.WriteString(`<prosody`)
			writeAttr(&b, "rate", seg.Rate)
			writeAttr(&b, "pitch", seg.Pitch)
			writeAttr(&b, "volume", seg.Volume)
			b.WriteString(`>`)
		}

		b.WriteString(escape(strings.TrimSpace(seg.Text)))

		if prosody {
			b.WriteString(`</prosody>`)
		}
		if seg.Style != "" {
			b.WriteString(`</mstts:express-as>`)
		}
		if seg.BreakAfter > 0 {
			fmt.Fprintf(&b, `<break time="%dms"/>`, seg.BreakAfter)
		}
		b.WriteString(`</voice>`)
	}

	b.WriteString(`</speak>`)
	return b.String(), nil
}

func writeAttr(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(` `)
	b.WriteString(name)
	b.WriteString(`="`)
	b.WriteString(escape(value))
	b.WriteString(`"`)
}

func escape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

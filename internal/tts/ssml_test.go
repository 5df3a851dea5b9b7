package tts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSSML_SingleSegment(t *testing.T) {
	ssml, err := BuildSSML("vi", []Segment{{Text: "Xin chào"}})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(ssml, `<speak version="1.0"`))
	assert.Contains(t, ssml, `xml:lang="vi-VN"`)
	assert.Contains(t, ssml, `<voice name="vi-VN-HoaiMyNeural">Xin chào</voice>`)
	assert.True(t, strings.HasSuffix(ssml, `</speak>`))
	assert.NotContains(t, ssml, "express-as")
	assert.NotContains(t, ssml, "prosody")
}

func TestBuildSSML_FullSegment(t *testing.T) {
	ssml, err := BuildSSML("en-US", []Segment{{
		Text:        "Great job!",
		Gender:      GenderMale,
		Style:       "cheerful",
		StyleDegree: 1.5,
		Role:        "YoungAdultMale",
		Rate:        "+10%",
		Pitch:       "+2st",
		Volume:      "loud",
		BreakAfter:  500,
	}})
	require.NoError(t, err)

	assert.Contains(t, ssml, `<voice name="en-US-GuyNeural">`)
	assert.Contains(t, ssml, `<mstts:express-as style="cheerful" styledegree="1.5" role="YoungAdultMale">`)
	assert.Contains(t, ssml, `<prosody rate="+10%" pitch="+2st" volume="loud">Great job!</prosody>`)
	assert.Contains(t, ssml, `</mstts:express-as><break time="500ms"/></voice>`)
}

func TestBuildSSML_MultipleVoices(t *testing.T) {
	ssml, err := BuildSSML("en", []Segment{
		{Text: "Hi", Voice: "en-US-AriaNeural"},
		{Text: "Hello", Gender: GenderMale},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(ssml, "<voice "))
	assert.Less(t, strings.Index(ssml, "en-US-AriaNeural"), strings.Index(ssml, "en-US-GuyNeural"))
}

func TestBuildSSML_EscapesText(t *testing.T) {
	ssml, err := BuildSSML("en-US", []Segment{{Text: `Tom & Jerry <3 "quotes"`}})
	require.NoError(t, err)

	assert.Contains(t, ssml, "Tom &amp; Jerry &lt;3")
	assert.NotContains(t, ssml, "<3")
}

func TestBuildSSML_Errors(t *testing.T) {
	tests := []struct {
		name    string
		segment Segment
	}{
		{"empty text", Segment{Text: "  "}},
		{"unknown style", Segment{Text: "a", Style: "sarcastic"}},
		{"style degree too high", Segment{Text: "a", Style: "sad", StyleDegree: 3}},
		{"unknown role", Segment{Text: "a", Style: "sad", Role: "Robot"}},
		{"bad rate", Segment{Text: "a", Rate: "quick"}},
		{"bad pitch", Segment{Text: "a", Pitch: "+2 semitones"}},
		{"bad volume", Segment{Text: "a", Volume: "max"}},
		{"break too long", Segment{Text: "a", BreakAfter: 6000}},
		{"negative break", Segment{Text: "a", BreakAfter: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildSSML("en-US", []Segment{tt.segment})
			assert.Error(t, err)
		})
	}

	_, err := BuildSSML("en-US", nil)
	assert.Error(t, err)
}

func TestProsodyValues(t *testing.T) {
	for _, v := range []string{"slow", "x-fast", "+20%", "-15.5%", "1.2", "default"} {
		assert.True(t, validRate(v), v)
	}
	for _, v := range []string{"high", "+50Hz", "-2st", "10%"} {
		assert.True(t, validPitch(v), v)
	}
	for _, v := range []string{"soft", "+6%", "80"} {
		assert.True(t, validVolume(v), v)
	}
}

func TestStyleForEmotion(t *testing.T) {
	assert.Equal(t, "cheerful", StyleForEmotion("Happy"))
	assert.Equal(t, "whispering", StyleForEmotion(" whisper "))
	assert.Equal(t, "", StyleForEmotion("neutral"))
	assert.Equal(t, "", StyleForEmotion("bewildered"))

	seg := Segment{Text: "a"}.WithEmotion("sad")
	assert.Equal(t, "sad", seg.Style)

	seg = Segment{Text: "a", Style: "calm"}.WithEmotion("angry")
	assert.Equal(t, "calm", seg.Style)
}

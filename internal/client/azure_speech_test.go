package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAzureSpeech_NotConfigured(t *testing.T) {
	c := NewAzureSpeechClient("", "")

	_, err := c.Synthesize(context.Background(), "<speak/>", "")
	assert.ErrorIs(t, err, ErrNotConfigured)

	_, err = c.AssessPronunciation(context.Background(), []byte("x"), "hello", "en-US")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAzureSpeech_Synthesize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("Ocp-Apim-Subscription-Key"))
		assert.Equal(t, "application/ssml+xml", r.Header.Get("Content-Type"))
		assert.Equal(t, AzureFormatMP3, r.Header.Get("X-Microsoft-OutputFormat"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "<speak/>", string(body))
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer srv.Close()

	c := NewAzureSpeechClient("key", "eastus").WithBaseURLs(srv.URL, srv.URL)
	audio, err := c.Synthesize(context.Background(), "<speak/>", "")
	require.NoError(t, err)
	assert.Equal(t, "mp3-bytes", string(audio))
}

func TestAzureSpeech_SynthesizeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad ssml", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewAzureSpeechClient("key", "eastus").WithBaseURLs(srv.URL, srv.URL)
	_, err := c.Synthesize(context.Background(), "<speak/>", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
}

func TestAzureSpeech_AssessPronunciation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "vi-VN", r.URL.Query().Get("language"))

		raw, err := base64.StdEncoding.DecodeString(r.Header.Get("Pronunciation-Assessment"))
		require.NoError(t, err)
		var params map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &params))
		assert.Equal(t, "xin chào", params["ReferenceText"])
		assert.Equal(t, true, params["EnableMiscue"])

		_, _ = w.Write([]byte(`{
			"RecognitionStatus": "Success",
			"NBest": [{
				"Display": "Xin chào.",
				"PronunciationAssessment": {"AccuracyScore": 90, "FluencyScore": 80, "CompletenessScore": 100, "PronScore": 88},
				"Words": [
					{"Word": "xin", "PronunciationAssessment": {"AccuracyScore": 95, "ErrorType": "None"}},
					{"Word": "chào", "PronunciationAssessment": {"AccuracyScore": 85}}
				]
			}]
		}`))
	}))
	defer srv.Close()

	c := NewAzureSpeechClient("key", "eastus").WithBaseURLs(srv.URL, srv.URL)
	res, err := c.AssessPronunciation(context.Background(), []byte("wav"), "xin chào", "vi-VN")
	require.NoError(t, err)

	assert.Equal(t, "Xin chào.", res.RecognizedText)
	assert.Equal(t, 88.0, res.PronunciationScore)
	assert.Equal(t, 80.0, res.FluencyScore)
	require.Len(t, res.Words, 2)
	assert.Equal(t, "None", res.Words[1].ErrorType)
	assert.Equal(t, 85.0, res.Words[1].AccuracyScore)
}

func TestAzureSpeech_RecognitionFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"RecognitionStatus": "NoMatch"}`))
	}))
	defer srv.Close()

	c := NewAzureSpeechClient("key", "eastus").WithBaseURLs(srv.URL, srv.URL)
	_, err := c.AssessPronunciation(context.Background(), []byte("wav"), "hello", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NoMatch")
}

func TestMergeDuplicateWords(t *testing.T) {
	t.Run("insertion copy kept with mean accuracy", func(t *testing.T) {
		words := []PronunciationWord{
			{Word: "I", AccuracyScore: 100, ErrorType: "None"},
			{Word: "go", AccuracyScore: 60, ErrorType: "Mispronunciation"},
			{Word: "go", AccuracyScore: 80, ErrorType: "Insertion"},
			{Word: "home", AccuracyScore: 90, ErrorType: "None"},
		}

		got := MergeDuplicateWords(words)
		require.Len(t, got, 3)
		assert.Equal(t, "I", got[0].Word)
		assert.Equal(t, "go", got[1].Word)
		assert.Equal(t, "Insertion", got[1].ErrorType)
		assert.Equal(t, 70.0, got[1].AccuracyScore)
		assert.Equal(t, "home", got[2].Word)
	})

	t.Run("repeats without insertion untouched", func(t *testing.T) {
		words := []PronunciationWord{
			{Word: "the", AccuracyScore: 90, ErrorType: "None"},
			{Word: "the", AccuracyScore: 70, ErrorType: "None"},
		}
		got := MergeDuplicateWords(words)
		assert.Len(t, got, 2)
	})
}

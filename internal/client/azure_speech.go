package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// ErrNotConfigured is returned by clients whose credentials are missing.
var ErrNotConfigured = errors.New("client not configured")

// Azure TTS output formats.
const (
	AzureFormatMP3 = "audio-24khz-48kbitrate-mono-mp3"
)

// AzureSpeechClient wraps the Azure AI Speech REST API.
type AzureSpeechClient struct {
	apiKey string
	region string
	ttsURL string
	sttURL string
	client *http.Client
}

// NewAzureSpeechClient creates a new Azure Speech client.
func NewAzureSpeechClient(apiKey, region string) *AzureSpeechClient {
	return &AzureSpeechClient{
		apiKey: apiKey,
		region: region,
		ttsURL: fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region),
		sttURL: fmt.Sprintf("https://%s.stt.speech.microsoft.com/speech/recognition/conversation/cognitiveservices/v1", region),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithBaseURLs points the client at other endpoints. Used by tests.
func (c *AzureSpeechClient) WithBaseURLs(ttsURL, sttURL string) *AzureSpeechClient {
	c.ttsURL = ttsURL
	c.sttURL = sttURL
	return c
}

// Name identifies the provider.
func (c *AzureSpeechClient) Name() string {
	return "azure"
}

func (c *AzureSpeechClient) configured() bool {
	return c != nil && c.apiKey != "" && c.region != ""
}

// Synthesize renders an SSML document to audio in the given output format.
func (c *AzureSpeechClient) Synthesize(ctx context.Context, ssml, format string) ([]byte, error) {
	if !c.configured() {
		return nil, ErrNotConfigured
	}
	if format == "" {
		format = AzureFormatMP3
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ttsURL, bytes.NewReader([]byte(ssml)))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", format)
	req.Header.Set("User-Agent", "lingo_service")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("azure tts error %d: %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("azure tts returned empty audio")
	}
	return audio, nil
}

// PronunciationWord is a single scored word.
type PronunciationWord struct {
	Word          string  `json:"word"`
	AccuracyScore float64 `json:"accuracy_score"`
	ErrorType     string  `json:"error_type"`
}

// PronunciationResult is the parsed assessment of one utterance.
type PronunciationResult struct {
	RecognizedText     string              `json:"recognized_text"`
	AccuracyScore      float64             `json:"accuracy_score"`
	FluencyScore       float64             `json:"fluency_score"`
	CompletenessScore  float64             `json:"completeness_score"`
	ProsodyScore       float64             `json:"prosody_score"`
	PronunciationScore float64             `json:"pronunciation_score"`
	Words              []PronunciationWord `json:"words"`
}

type azureWord struct {
	Word                    string `json:"Word"`
	PronunciationAssessment *struct {
		AccuracyScore float64 `json:"AccuracyScore"`
		ErrorType     string  `json:"ErrorType"`
	} `json:"PronunciationAssessment"`
	AccuracyScore float64 `json:"AccuracyScore"`
	ErrorType     string  `json:"ErrorType"`
}

type azureNBest struct {
	Display                 string `json:"Display"`
	PronunciationAssessment *struct {
		AccuracyScore     float64 `json:"AccuracyScore"`
		FluencyScore      float64 `json:"FluencyScore"`
		CompletenessScore float64 `json:"CompletenessScore"`
		ProsodyScore      float64 `json:"ProsodyScore"`
		PronScore         float64 `json:"PronScore"`
	} `json:"PronunciationAssessment"`
	AccuracyScore     float64     `json:"AccuracyScore"`
	FluencyScore      float64     `json:"FluencyScore"`
	CompletenessScore float64     `json:"CompletenessScore"`
	ProsodyScore      float64     `json:"ProsodyScore"`
	PronScore         float64     `json:"PronScore"`
	Words             []azureWord `json:"Words"`
}

type azureRecognition struct {
	RecognitionStatus string       `json:"RecognitionStatus"`
	DisplayText       string       `json:"DisplayText"`
	NBest             []azureNBest `json:"NBest"`
}

// AssessPronunciation scores a WAV (16kHz PCM) recording against the
// reference text. Miscue detection marks inserted and omitted words.
func (c *AzureSpeechClient) AssessPronunciation(ctx context.Context, audio []byte, referenceText, language string) (*PronunciationResult, error) {
	if !c.configured() {
		return nil, ErrNotConfigured
	}
	if language == "" {
		language = "en-US"
	}

	u, err := url.Parse(c.sttURL)
	if err != nil {
		return nil, fmt.Errorf("invalid stt url: %w", err)
	}
	q := u.Query()
	q.Set("language", language)
	q.Set("format", "detailed")
	u.RawQuery = q.Encode()

	params, err := json.Marshal(map[string]interface{}{
		"ReferenceText": referenceText,
		"GradingSystem": "HundredMark",
		"Granularity":   "Word",
		"Dimension":     "Comprehensive",
		"EnableMiscue":  true,

		"EnableProsodyAssessment": true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(audio))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Pronunciation-Assessment", base64.StdEncoding.EncodeToString(params))
	req.Header.Set("Ocp-Apim-Subscription-Key", c.apiKey)
	req.Header.Set("Content-Type", "audio/wav; codecs=audio/pcm; samplerate=16000")
	req.Header.Set("Accept", "application/json;text/xml")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("azure speech api error %d: %s", resp.StatusCode, string(body))
	}

	var rec azureRecognition
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if rec.RecognitionStatus != "" && rec.RecognitionStatus != "Success" {
		return nil, fmt.Errorf("recognition failed: %s", rec.RecognitionStatus)
	}
	if len(rec.NBest) == 0 {
		return nil, errors.New("recognition returned no results")
	}

	return toPronunciationResult(rec.NBest[0]), nil
}

func toPronunciationResult(best azureNBest) *PronunciationResult {
	res := &PronunciationResult{
		RecognizedText:     best.Display,
		AccuracyScore:      best.AccuracyScore,
		FluencyScore:       best.FluencyScore,
		CompletenessScore:  best.CompletenessScore,
		ProsodyScore:       best.ProsodyScore,
		PronunciationScore: best.PronScore,
	}
	if pa := best.PronunciationAssessment; pa != nil {
		res.AccuracyScore = pa.AccuracyScore
		res.FluencyScore = pa.FluencyScore
		res.CompletenessScore = pa.CompletenessScore
		res.ProsodyScore = pa.ProsodyScore
		res.PronunciationScore = pa.PronScore
	}

	words := make([]PronunciationWord, 0, len(best.Words))
	for _, w := range best.Words {
		pw := PronunciationWord{Word: w.Word, AccuracyScore: w.AccuracyScore, ErrorType: w.ErrorType}
		if pa := w.PronunciationAssessment; pa != nil {
			pw.AccuracyScore = pa.AccuracyScore
			pw.ErrorType = pa.ErrorType
		}
		if pw.ErrorType == "" {
			pw.ErrorType = "None"
		}
		words = append(words, pw)
	}
	res.Words = MergeDuplicateWords(words)
	return res
}

// MergeDuplicateWords collapses words that Azure reports more than once
// when miscue detection flags one copy as an insertion. The insertion entry
// is kept with the mean accuracy of all copies. Order is preserved.
func MergeDuplicateWords(words []PronunciationWord) []PronunciationWord {
	groups := make(map[string][]int)
	for i, w := range words {
		groups[w.Word] = append(groups[w.Word], i)
	}

	drop := make(map[int]bool)
	for _, idx := range groups {
		if len(idx) < 2 {
			continue
		}
		keep := -1
		var total float64
		for _, i := range idx {
			if words[i].ErrorType == "Insertion" && keep == -1 {
				keep = i
			}
			total += words[i].AccuracyScore
		}
		if keep == -1 {
			continue
		}
		words[keep].AccuracyScore = total / float64(len(idx))
		for _, i := range idx {
			if i != keep {
				drop[i] = true
			}
		}
	}

	if len(drop) == 0 {
		return words
	}
	out := make([]PronunciationWord, 0, len(words)-len(drop))
	for i, w := range words {
		if !drop[i] {
			out = append(out, w)
		}
	}
	return out
}

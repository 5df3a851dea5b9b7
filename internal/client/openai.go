package client

import (
	"bytes"
	"context"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"
)

// Chat roles shared by every chat provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a provider-neutral chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OpenAIClient wraps the OpenAI API client. The same client talks to Groq,
// which exposes an OpenAI-compatible API under a different base URL.
type OpenAIClient struct {
	client       *openai.Client
	name         string
	model        string
	ttsModel     string
	whisperModel string
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		client:       openai.NewClient(apiKey),
		name:         "openai",
		model:        openai.GPT4oMini,
		ttsModel:     string(openai.TTSModel1),
		whisperModel: openai.Whisper1,
	}
}

// NewGroqClient creates a client for Groq's OpenAI-compatible endpoint.
func NewGroqClient(apiKey, baseURL string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL

	return &OpenAIClient{
		client:       openai.NewClientWithConfig(cfg),
		name:         "groq",
		model:        "llama-3.3-70b-versatile",
		whisperModel: "whisper-large-v3",
	}
}

// WithModel sets the chat model to use.
func (c *OpenAIClient) WithModel(model string) *OpenAIClient {
	if model != "" {
		c.model = model
	}
	return c
}

// WithTTSModel sets the speech model to use.
func (c *OpenAIClient) WithTTSModel(model string) *OpenAIClient {
	if model != "" {
		c.ttsModel = model
	}
	return c
}

// WithWhisperModel sets the transcription model to use.
func (c *OpenAIClient) WithWhisperModel(model string) *OpenAIClient {
	if model != "" {
		c.whisperModel = model
	}
	return c
}

// Name identifies the provider in logs and responses.
func (c *OpenAIClient) Name() string {
	return c.name
}

// Chat sends the conversation and returns the assistant reply. jsonMode
// asks the model for a single JSON object.
func (c *OpenAIClient) Chat(ctx context.Context, messages []ChatMessage, jsonMode bool) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	if jsonMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices", c.name)
	}

	return resp.Choices[0].Message.Content, nil
}

// Speech synthesizes text to MP3 audio.
func (c *OpenAIClient) Speech(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	if c.ttsModel == "" {
		return nil, fmt.Errorf("%s does not support speech synthesis", c.name)
	}
	if speed <= 0 {
		speed = 1.0
	}

	resp, err := c.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.ttsModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
		Speed:          speed,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read speech audio: %w", err)
	}
	return audio, nil
}

// Transcribe runs Whisper on the audio. filename is used by the API to
// detect the container format. language is optional (ISO-639-1).
func (c *OpenAIClient) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	if filename == "" {
		filename = "audio.wav"
	}

	resp, err := c.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.whisperModel,
		Reader:   bytes.NewReader(audio),
		FilePath: filename,
		Language: language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", err
	}

	return resp.Text, nil
}

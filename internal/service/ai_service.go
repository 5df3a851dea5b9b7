package service

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/windfall/lingo_service/internal/client"
	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/tts"
)

// ChatProvider is a chat completion backend.
type ChatProvider interface {
	Name() string
	Chat(ctx context.Context, messages []client.ChatMessage, jsonMode bool) (string, error)
}

// Transcriber turns recorded speech into text.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error)
}

// AudioPublisher synthesizes a request and returns where the audio lives.
type AudioPublisher interface {
	Publish(ctx context.Context, req tts.Request) (*tts.Published, error)
}

// Conversation limits
const (
	DefaultTurns   = 8
	MinTurns       = 4
	MaxTurns       = 20
	maxHistory     = 20
	maxChatMessage = 2000
	maxTTSText     = 5000
	dialogueBreak  = 400
)

// AIService generates content through a chain of chat providers and
// publishes synthesized audio.
type AIService struct {
	chat         []ChatProvider
	transcribers []Transcriber
	audio        AudioPublisher
	log          zerolog.Logger
}

// NewAIService creates a new AIService. Providers are tried in the given
// order; audio may be nil when object storage is not configured.
func NewAIService(chat []ChatProvider, transcribers []Transcriber, audio AudioPublisher, log zerolog.Logger) *AIService {
	return &AIService{chat: chat, transcribers: transcribers, audio: audio, log: log}
}

// complete returns the first reply that accept approves. A provider whose
// reply is rejected counts as failed and the next one is tried.
func (s *AIService) complete(ctx context.Context, messages []client.ChatMessage, jsonMode bool, accept func(string) error) (string, string, error) {
	if len(s.chat) == 0 {
		return "", "", errors.AIService("no chat provider configured", nil).WithMessageID("ai.not_configured")
	}

	var errs []error
	rejected := false
	for _, p := range s.chat {
		reply, err := p.Chat(ctx, messages, jsonMode)
		if err == nil && accept != nil {
			if err = accept(reply); err != nil {
				rejected = true
			}
		}
		if err == nil {
			return reply, p.Name(), nil
		}
		if ctx.Err() != nil {
			return "", "", errors.Timeout("chat cancelled")
		}

		s.log.Warn().Err(err).Str("provider", p.Name()).Msg("Chat provider failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
	}

	appErr := errors.AIService("all chat providers failed", stderrors.Join(errs...))
	if rejected {
		appErr.WithMessageID("ai.invalid_response")
	}
	return "", "", appErr
}

// generateJSON asks for a JSON reply and decodes it into T. check may reject
// a decoded value, which moves on to the next provider.
func generateJSON[T any](ctx context.Context, s *AIService, system, prompt string, check func(*T) error) (*T, error) {
	messages := []client.ChatMessage{
		{Role: client.RoleSystem, Content: system},
		{Role: client.RoleUser, Content: prompt},
	}

	var result *T
	_, _, err := s.complete(ctx, messages, true, func(raw string) error {
		var v T
		if err := json.Unmarshal([]byte(stripCodeFences(raw)), &v); err != nil {
			return fmt.Errorf("decode reply: %w", err)
		}
		if check != nil {
			if err := check(&v); err != nil {
				return err
			}
		}
		result = &v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// stripCodeFences removes a markdown code fence around a model reply.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// languageName returns the English name of a language code, "en-US" reads
// as "English".
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	base, _ := tag.Base()
	if name := display.English.Languages().Name(base); name != "" {
		return name
	}
	return code
}

// ChatTurn is one earlier message of a tutoring conversation.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a message to the tutor.
type ChatRequest struct {
	Message  string     `json:"message"`
	History  []ChatTurn `json:"history"`
	Language string     `json:"language"`
	Level    string     `json:"level"`
}

// ChatReply is the tutor's answer.
type ChatReply struct {
	Reply    string `json:"reply"`
	Provider string `json:"provider"`
}

// Chat answers a learner message, keeping the most recent history.
func (s *AIService) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	message, err := requireText("message", req.Message, maxChatMessage)
	if err != nil {
		return nil, err
	}
	level, err := normalizeLevel(req.Level)
	if err != nil {
		return nil, err
	}
	lang := tts.NormalizeLanguage(req.Language)

	messages := []client.ChatMessage{{Role: client.RoleSystem, Content: tutorPrompt(lang, level)}}
	history := req.History
	if len(history) > maxHistory {
		history = history[len(history)-maxHistory:]
	}
	for _, turn := range history {
		switch turn.Role {
		case client.RoleUser, client.RoleAssistant:
		default:
			return nil, fieldInvalid("history.role")
		}
		if strings.TrimSpace(turn.Content) == "" {
			continue
		}
		messages = append(messages, client.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, client.ChatMessage{Role: client.RoleUser, Content: message})

	reply, provider, err := s.complete(ctx, messages, false, func(r string) error {
		if strings.TrimSpace(r) == "" {
			return fmt.Errorf("empty reply")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ChatReply{Reply: strings.TrimSpace(reply), Provider: provider}, nil
}

func tutorPrompt(lang, level string) string {
	return fmt.Sprintf(
		"You are a friendly %s tutor for a Vietnamese learner at CEFR level %s. "+
			"Reply in %s using vocabulary suited to the level, keep answers under 80 words, "+
			"and when the learner makes a mistake, add one short correction at the end.",
		languageName(lang), level, languageName(lang),
	)
}

// ConversationRequest describes a dialogue to generate.
type ConversationRequest struct {
	Topic    string `json:"topic"`
	Level    string `json:"level"`
	Language string `json:"language"`
	Turns    int    `json:"turns"`
	Speakers int    `json:"speakers"`
}

// DialogueLine is one line of a generated dialogue.
type DialogueLine struct {
	Speaker     string `json:"speaker"`
	Gender      string `json:"gender"`
	Text        string `json:"text"`
	Translation string `json:"translation"`
	Emotion     string `json:"emotion"`
}

// VocabularyItem is a word worth learning from generated content.
type VocabularyItem struct {
	Word    string `json:"word"`
	Meaning string `json:"meaning"`
	Example string `json:"example"`
}

// Conversation is a generated listening dialogue.
type Conversation struct {
	Title      string           `json:"title"`
	Summary    string           `json:"summary"`
	Lines      []DialogueLine   `json:"lines"`
	Vocabulary []VocabularyItem `json:"vocabulary"`
}

func clampTurns(turns int) int {
	switch {
	case turns == 0:
		return DefaultTurns
	case turns < MinTurns:
		return MinTurns
	case turns > MaxTurns:
		return MaxTurns
	}
	return turns
}

// GenerateConversation writes a dialogue about a topic.
func (s *AIService) GenerateConversation(ctx context.Context, req ConversationRequest) (*Conversation, error) {
	topic, err := requireText("topic", req.Topic, 200)
	if err != nil {
		return nil, err
	}
	level, err := normalizeLevel(req.Level)
	if err != nil {
		return nil, err
	}
	lang := tts.NormalizeLanguage(req.Language)
	turns := clampTurns(req.Turns)
	speakers := req.Speakers
	if speakers < 2 {
		speakers = 2
	}
	if speakers > 4 {
		speakers = 4
	}

	system := "You write short, natural dialogues for language learners. Reply with JSON only."
	prompt := fmt.Sprintf(`Write a %s dialogue about %q for a CEFR %s learner.
Use %d speakers and exactly %d lines. Give each speaker a first name and a gender ("female" or "male").
Return JSON: {"title": string, "summary": string (Vietnamese),
"lines": [{"speaker": string, "gender": string, "text": string, "translation": string (Vietnamese),
"emotion": one of "neutral","happy","sad","excited","calm","serious","surprised","friendly"}],
"vocabulary": [{"word": string, "meaning": string (Vietnamese), "example": string}]}`,
		languageName(lang), topic, level, speakers, turns)

	return generateJSON(ctx, s, system, prompt, func(c *Conversation) error {
		lines := c.Lines[:0]
		for _, l := range c.Lines {
			if strings.TrimSpace(l.Text) != "" {
				lines = append(lines, l)
			}
		}
		c.Lines = lines
		if len(c.Lines) == 0 {
			return fmt.Errorf("dialogue has no lines")
		}
		if strings.TrimSpace(c.Title) == "" {
			c.Title = topic
		}
		return nil
	})
}

// DialogueAudio turns dialogue lines into a multi-voice request. Speakers
// keep one voice each; speakers of the same gender get distinct voices.
func DialogueAudio(lang string, lines []DialogueLine) tts.Request {
	lang = tts.NormalizeLanguage(lang)
	voices := map[string]string{}
	perGender := map[tts.Gender]int{}

	segments := make([]tts.Segment, 0, len(lines))
	for i, line := range lines {
		text := strings.TrimSpace(line.Text)
		if text == "" {
			continue
		}

		voice, ok := voices[line.Speaker]
		if !ok {
			gender := tts.Gender(strings.ToLower(line.Gender))
			if gender != tts.GenderFemale && gender != tts.GenderMale {
				gender = tts.GenderFemale
				if len(voices)%2 == 1 {
					gender = tts.GenderMale
				}
			}
			voice = tts.AlternateVoice(lang, gender, perGender[gender]).Name
			perGender[gender]++
			voices[line.Speaker] = voice
		}

		seg := tts.Segment{Text: text, Voice: voice}.WithEmotion(line.Emotion)
		if i < len(lines)-1 {
			seg.BreakAfter = dialogueBreak
		}
		segments = append(segments, seg)
	}
	return tts.Request{Language: lang, Segments: segments}
}

// TTSRequest asks for audio of plain text or of prepared segments.
type TTSRequest struct {
	Text     string        `json:"text"`
	Segments []tts.Segment `json:"segments"`
	Language string        `json:"language"`
	Gender   string        `json:"gender"`
	Voice    string        `json:"voice"`
	Emotion  string        `json:"emotion"`
	Rate     string        `json:"rate"`
	Pitch    string        `json:"pitch"`
}

// TTS synthesizes the request and returns the public audio URL.
func (s *AIService) TTS(ctx context.Context, req TTSRequest) (*tts.Published, error) {
	lang := tts.NormalizeLanguage(req.Language)

	segments := req.Segments
	if len(segments) == 0 {
		text, err := requireText("text", req.Text, maxTTSText)
		if err != nil {
			return nil, err
		}
		if req.Voice != "" {
			if _, ok := tts.LookupVoice(req.Voice); !ok {
				return nil, fieldInvalid("voice")
			}
		}
		gender := tts.Gender(strings.ToLower(req.Gender))
		switch gender {
		case "", tts.GenderFemale, tts.GenderMale:
		default:
			return nil, fieldInvalid("gender")
		}
		seg := tts.Segment{
			Text:   text,
			Voice:  req.Voice,
			Gender: gender,
			Rate:   req.Rate,
			Pitch:  req.Pitch,
		}
		segments = []tts.Segment{seg.WithEmotion(req.Emotion)}
	}

	return s.Publish(ctx, tts.Request{Language: lang, Segments: segments})
}

// Publish synthesizes a prepared request.
func (s *AIService) Publish(ctx context.Context, req tts.Request) (*tts.Published, error) {
	if s.audio == nil {
		return nil, errors.Storage("audio publishing not configured", nil)
	}
	return s.audio.Publish(ctx, req)
}

// Transcribe converts speech to text, trying each transcriber in order.
func (s *AIService) Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error) {
	if len(audio) == 0 {
		return "", errors.Validation("audio is required").WithMessageID("validation.audio_required")
	}
	if len(s.transcribers) == 0 {
		return "", errors.AIService("no transcriber configured", nil).WithMessageID("ai.not_configured")
	}

	var errs []error
	for _, t := range s.transcribers {
		text, err := t.Transcribe(ctx, audio, filename, language)
		if err == nil {
			return strings.TrimSpace(text), nil
		}
		if ctx.Err() != nil {
			return "", errors.Timeout("transcription cancelled")
		}

		s.log.Warn().Err(err).Str("provider", t.Name()).Msg("Transcriber failed, trying next")
		errs = append(errs, fmt.Errorf("%s: %w", t.Name(), err))
	}
	return "", errors.AIService("all transcribers failed", stderrors.Join(errs...))
}

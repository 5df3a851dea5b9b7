package http

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/service"
	"github.com/windfall/lingo_service/internal/tts"
	"github.com/windfall/lingo_service/pkg/response"
)

// AIService is the part of service.AIService the AI routes use.
type AIService interface {
	Chat(ctx context.Context, req service.ChatRequest) (*service.ChatReply, error)
	GenerateConversation(ctx context.Context, req service.ConversationRequest) (*service.Conversation, error)
	TTS(ctx context.Context, req service.TTSRequest) (*tts.Published, error)
	Transcribe(ctx context.Context, audio []byte, filename, language string) (string, error)
}

// AIHandler handles the tutor chat, dialogue generation, TTS and
// transcription endpoints.
type AIHandler struct {
	log zerolog.Logger
	ai  AIService
}

// NewAIHandler creates a new AI handler.
func NewAIHandler(log zerolog.Logger, ai AIService) *AIHandler {
	return &AIHandler{log: log, ai: ai}
}

// Chat handles POST /api/ai/chat
func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req service.ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	reply, err := h.ai.Chat(r.Context(), req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, reply)
}

// Conversation handles POST /api/ai/conversation
func (h *AIHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	var req service.ConversationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	conv, err := h.ai.GenerateConversation(r.Context(), req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, conv)
}

// TTS handles POST /api/ai/tts
func (h *AIHandler) TTS(w http.ResponseWriter, r *http.Request) {
	var req service.TTSRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	audio, err := h.ai.TTS(r.Context(), req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, audio)
}

// Transcribe handles POST /api/ai/transcribe
//
// Request: multipart/form-data with "audio" and an optional "language".
func (h *AIHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	up, err := readAudio(w, r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	text, err := h.ai.Transcribe(r.Context(), up.audio, up.filename, up.form("language"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"text": text})
}

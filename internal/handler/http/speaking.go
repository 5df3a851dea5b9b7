package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/service"
	"github.com/windfall/lingo_service/pkg/response"
)

// SpeakingService is the part of service.SpeakingService the speaking
// routes use.
type SpeakingService interface {
	Assess(ctx context.Context, userID uuid.UUID, req service.AssessRequest) (*service.AssessmentResult, error)
	Converse(ctx context.Context, userID uuid.UUID, req service.ConverseRequest) (*service.ConverseAccepted, error)
	Reply(ctx context.Context, userID uuid.UUID, requestID string) (*service.SpeakingReply, error)
}

// SpeakingHandler handles pronunciation assessment and spoken tutoring.
type SpeakingHandler struct {
	log      zerolog.Logger
	speaking SpeakingService
}

// NewSpeakingHandler creates a new speaking handler.
func NewSpeakingHandler(log zerolog.Logger, speaking SpeakingService) *SpeakingHandler {
	return &SpeakingHandler{log: log, speaking: speaking}
}

// Assess handles POST /api/speaking/assess
//
// Multipart fields: audio, reference_text, language, lesson_id,
// duration_seconds.
func (h *SpeakingHandler) Assess(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	up, err := readAudio(w, r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	req := service.AssessRequest{
		Audio:         up.audio,
		ReferenceText: up.form("reference_text"),
		Language:      up.form("language"),
	}
	if v := up.form("lesson_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			handleError(w, r, h.log, invalidBody())
			return
		}
		req.LessonID = &id
	}
	if v := up.form("duration_seconds"); v != "" {
		if req.DurationSeconds, err = strconv.Atoi(v); err != nil {
			handleError(w, r, h.log, invalidBody())
			return
		}
	}

	res, err := h.speaking.Assess(r.Context(), user, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

// Converse handles POST /api/speaking/converse
//
// Multipart fields: audio, language, level and history, a JSON array of
// previous turns. Answers 202 with the request id to poll.
func (h *SpeakingHandler) Converse(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	up, err := readAudio(w, r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	req := service.ConverseRequest{
		Audio:    up.audio,
		Filename: up.filename,
		Language: up.form("language"),
		Level:    up.form("level"),
	}
	if v := up.form("history"); v != "" {
		if err := json.Unmarshal([]byte(v), &req.History); err != nil {
			handleError(w, r, h.log, invalidBody())
			return
		}
	}

	res, err := h.speaking.Converse(r.Context(), user, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusAccepted, res)
}

// Reply handles GET /api/speaking/reply?request_id
func (h *SpeakingHandler) Reply(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	res, err := h.speaking.Reply(r.Context(), user, r.URL.Query().Get("request_id"))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, res)
}

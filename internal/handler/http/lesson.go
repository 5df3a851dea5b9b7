package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/repository"
	"github.com/windfall/lingo_service/internal/service"
	"github.com/windfall/lingo_service/pkg/response"
)

// LessonService is the part of service.LessonService the lesson routes use.
type LessonService interface {
	List(ctx context.Context, userID uuid.UUID, q service.LessonQuery, page service.Page) (*service.List[*repository.Lesson], error)
	Get(ctx context.Context, userID, id uuid.UUID) (*repository.Lesson, error)
	Create(ctx context.Context, userID uuid.UUID, req service.CreateLessonRequest) (*repository.Lesson, error)
	Update(ctx context.Context, userID, id uuid.UUID, req service.UpdateLessonRequest) (*repository.Lesson, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Generate(ctx context.Context, userID uuid.UUID, req service.GenerateLessonRequest) (*repository.Lesson, error)
}

// LessonHandler handles the lesson library endpoints.
type LessonHandler struct {
	log     zerolog.Logger
	lessons LessonService
}

// NewLessonHandler creates a new lesson handler.
func NewLessonHandler(log zerolog.Logger, lessons LessonService) *LessonHandler {
	return &LessonHandler{log: log, lessons: lessons}
}

// List handles GET /api/lessons?type&level&language&topic&q&page&limit
func (h *LessonHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	q := r.URL.Query()
	list, err := h.lessons.List(r.Context(), user, service.LessonQuery{
		Type:     q.Get("type"),
		Level:    q.Get("level"),
		Language: q.Get("language"),
		Topic:    q.Get("topic"),
		Query:    q.Get("q"),
	}, pageFrom(r))
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	writeList(w, list)
}

// Get handles GET /api/lessons/{id}
func (h *LessonHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	lesson, err := h.lessons.Get(r.Context(), user, id)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, lesson)
}

// Create handles POST /api/lessons
func (h *LessonHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	var req service.CreateLessonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	lesson, err := h.lessons.Create(r.Context(), user, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.Created(w, lesson)
}

// Update handles PUT /api/lessons/{id}
func (h *LessonHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	var req service.UpdateLessonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	lesson, err := h.lessons.Update(r.Context(), user, id, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.JSON(w, http.StatusOK, lesson)
}

// Delete handles DELETE /api/lessons/{id}
func (h *LessonHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}

	if err := h.lessons.Delete(r.Context(), user, id); err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.NoContent(w)
}

// Generate handles POST /api/lessons/generate
func (h *LessonHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user, err := userID(r)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	var req service.GenerateLessonRequest
	if err := decodeJSON(w, r, &req); err != nil {
		handleError(w, r, h.log, err)
		return
	}

	lesson, err := h.lessons.Generate(r.Context(), user, req)
	if err != nil {
		handleError(w, r, h.log, err)
		return
	}
	response.Created(w, lesson)
}

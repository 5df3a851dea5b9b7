package http

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/middleware"
	"github.com/windfall/lingo_service/internal/service"
	"github.com/windfall/lingo_service/pkg/response"
)

// Request limits
const (
	maxBodyBytes  = 1 << 20
	maxAudioBytes = 25 << 20
)

// handleError logs server-side failures and renders err in the request
// language.
func handleError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	appErr, ok := errors.As(err)
	if !ok || appErr.HTTPStatus() >= http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}
	middleware.WriteError(w, r, err)
}

func invalidBody() *errors.AppError {
	return errors.Validation("invalid request body").WithMessageID("validation.invalid_body")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		return invalidBody()
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, errors.Validation("invalid id").WithMessageID("validation.invalid_id")
	}
	return id, nil
}

func pageFrom(r *http.Request) service.Page {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return service.NewPage(page, limit)
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

func writeList[T any](w http.ResponseWriter, list *service.List[T]) {
	response.Paginated(w, list.Items, list.Page.Number, list.Page.Limit, list.Total)
}

// upload is an audio file sent as multipart form data together with its
// text fields.
type upload struct {
	audio    []byte
	filename string
	form     func(key string) string
}

func readAudio(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		return nil, invalidBody()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		return nil, errors.Validation("audio is required").WithMessageID("validation.audio_required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, invalidBody()
	}
	return &upload{
		audio:    data,
		filename: header.Filename,
		form:     func(key string) string { return strings.TrimSpace(r.FormValue(key)) },
	}, nil
}

// userID returns the authenticated user. Routes are mounted behind the
// auth middleware, so a missing user is a wiring bug.
func userID(r *http.Request) (uuid.UUID, error) {
	id := middleware.GetUserID(r.Context())
	if id == uuid.Nil {
		return uuid.Nil, errors.Unauthorized("missing user").WithMessageID("auth.missing_token")
	}
	return id, nil
}

package middleware

import (
	"net/http"

	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/i18n"
	"github.com/windfall/lingo_service/pkg/response"
)

// WriteError renders err in the request language. Errors that are not an
// AppError are rendered as an internal error without their text.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.InternalWrap("internal server error", err)
	}

	lang := GetLanguage(r.Context())
	response.Error(w, appErr.HTTPStatus(), &response.ErrorBody{
		Code:    string(appErr.Code),
		Message: i18n.First(lang, appErr.Details, appErr.LocalizedID(), "error."+string(appErr.Code)),
		Details: appErr.Details,
	})
}

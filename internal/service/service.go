package service

import (
	stderrors "errors"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/repository"
)

// Pagination bounds
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a normalized page request. Page numbers start at 1.
type Page struct {
	Number int `json:"page"`
	Limit  int `json:"limit"`
}

// NewPage clamps page and limit into range. Zero values take defaults.
func NewPage(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return Page{Number: page, Limit: limit}
}

// Offset returns the row offset of the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// List is one page of results.
type List[T any] struct {
	Items []T
	Total int
	Page  Page
}

func newList[T any](items []T, total int, page Page) *List[T] {
	if items == nil {
		items = []T{}
	}
	return &List[T]{Items: items, Total: total, Page: page}
}

// repoErr maps repository sentinels to application errors. resource names
// the entity for not-found messages.
func repoErr(err error, resource, action string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	switch {
	case stderrors.Is(err, repository.ErrNotFound):
		return errors.NotFound(resource)
	case stderrors.Is(err, repository.ErrAlreadyExists):
		return errors.Conflict(resource + " already exists")
	case stderrors.Is(err, repository.ErrForeignKey):
		return errors.Validation(resource + " references a missing entity").
			WithMessageID("validation.reference_missing")
	default:
		return errors.Database("failed to "+action, err)
	}
}

func fieldRequired(field string) *errors.AppError {
	return errors.Validation(field+" is required").
		WithMessageID("validation.field_required").
		WithDetails(map[string]interface{}{"field": field})
}

func fieldInvalid(field string) *errors.AppError {
	return errors.Validation(field+" is invalid").
		WithMessageID("validation.field_invalid").
		WithDetails(map[string]interface{}{"field": field})
}

func fieldTooLong(field string, max int) *errors.AppError {
	return errors.Validation(field+" is too long").
		WithMessageID("validation.field_too_long").
		WithDetails(map[string]interface{}{"field": field, "max": max})
}

func outOfRange(field string, min, max interface{}) *errors.AppError {
	return errors.Validation(field+" is out of range").
		WithMessageID("validation.out_of_range").
		WithDetails(map[string]interface{}{"field": field, "min": min, "max": max})
}

// requireText trims s and checks it is present and at most max runes.
func requireText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fieldRequired(field)
	}
	if max > 0 && utf8.RuneCountInString(s) > max {
		return "", fieldTooLong(field, max)
	}
	return s, nil
}

func notOwner() *errors.AppError {
	return errors.Forbidden("not the owner").WithMessageID("auth.not_owner")
}

// CEFR levels accepted for lessons and generated content.
var levels = map[string]bool{"A1": true, "A2": true, "B1": true, "B2": true, "C1": true, "C2": true}

func normalizeLevel(level string) (string, error) {
	level = strings.ToUpper(strings.TrimSpace(level))
	if level == "" {
		return "A2", nil
	}
	if !levels[level] {
		return "", fieldInvalid("level")
	}
	return level, nil
}

func isOwner(owner *uuid.UUID, userID uuid.UUID) bool {
	return owner != nil && *owner == userID
}

package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestT(t *testing.T) {
	assert.Equal(t, "Không tìm thấy bài học.", T("vi", "error.not_found.lesson", nil))
	assert.Equal(t, "Lesson not found.", T("en", "error.not_found.lesson", nil))
	assert.Equal(t, "missing.id", T("vi", "missing.id", nil))
}

func TestT_TemplateData(t *testing.T) {
	msg := T("en", "validation.out_of_range", map[string]interface{}{
		"field": "rating", "min": 1, "max": 5,
	})
	assert.Equal(t, "rating must be between 1 and 5.", msg)
}

func TestT_UnknownLanguageFallsBackToVietnamese(t *testing.T) {
	assert.Equal(t, "Dữ liệu không hợp lệ.", T("xx", "error.VALIDATION_ERROR", nil))
}

func TestFirst(t *testing.T) {
	assert.Equal(t, "Not found.", First("en", nil, "error.not_found.unknown", "error.NOT_FOUND"))
	assert.Equal(t, "last.id", First("en", nil, "first.id", "last.id"))
	assert.Equal(t, "", First("en", nil))
}

func TestMatch(t *testing.T) {
	assert.Equal(t, "en", Match("en-US,en;q=0.9", "vi"))
	assert.Equal(t, "vi", Match("vi-VN", "en"))
	assert.Equal(t, "vi", Match("", "vi"))
	assert.Equal(t, "vi", Match("de-DE", "vi"))
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("vi"))
	assert.True(t, Supported("en"))
	assert.False(t, Supported("ja"))
}

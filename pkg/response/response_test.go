package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	JSON(rec, http.StatusOK, map[string]string{"title": "Ở nhà hàng"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "Ở nhà hàng", resp.Data.(map[string]interface{})["title"])
}

func TestPaginated(t *testing.T) {
	rec := httptest.NewRecorder()
	Paginated(rec, []int{1, 2}, 2, 20, 41)

	resp := decode(t, rec)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 20, resp.Meta.PerPage)
	assert.Equal(t, 41, resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}

func TestNewMeta_ZeroPerPage(t *testing.T) {
	assert.Equal(t, 0, NewMeta(1, 0, 10).TotalPages)
}

func TestError(t *testing.T) {
	t.Run("error body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		BadRequest(rec, "bad")
		resp := decode(t, rec)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, resp.Success)
		assert.Equal(t, "BAD_REQUEST", resp.Error.Code)
	})

	t.Run("plain error", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Error(rec, http.StatusInternalServerError, errors.New("boom"))
		resp := decode(t, rec)
		assert.Equal(t, "ERROR", resp.Error.Code)
		assert.Equal(t, "boom", resp.Error.Message)
	})

	t.Run("unknown type", func(t *testing.T) {
		rec := httptest.NewRecorder()
		Error(rec, http.StatusInternalServerError, 42)
		assert.Equal(t, "UNKNOWN_ERROR", decode(t, rec).Error.Code)
	})
}

func TestNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	NoContent(rec)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

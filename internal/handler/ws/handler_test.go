package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/lingo_service/internal/logger"
)

type fakeMarker struct {
	read    []uuid.UUID
	readAll int
	err     error
}

func (f *fakeMarker) MarkRead(_ context.Context, _, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.read = append(f.read, id)
	return nil
}

func (f *fakeMarker) MarkAllRead(_ context.Context, _ uuid.UUID) (int64, error) {
	f.readAll++
	return 3, f.err
}

type reply struct {
	Type    string                 `json:"type"`
	Payload map[string]interface{} `json:"payload"`
}

func handle(t *testing.T, h *Handler, msgType, payload string) reply {
	t.Helper()
	var raw json.RawMessage
	if payload != "" {
		raw = json.RawMessage(payload)
	}
	out, err := h.Handle(context.Background(), uuid.New(), msgType, raw)
	require.NoError(t, err)
	var r reply
	require.NoError(t, json.Unmarshal(out, &r))
	return r
}

func TestHandle_Ping(t *testing.T) {
	h := NewHandler(logger.NewNop(), &fakeMarker{})

	r := handle(t, h, TypePing, "")
	assert.Equal(t, TypePong, r.Type)
}

func TestHandle_Read(t *testing.T) {
	marker := &fakeMarker{}
	h := NewHandler(logger.NewNop(), marker)
	id := uuid.New()

	r := handle(t, h, TypeRead, fmt.Sprintf(`{"id":%q}`, id))
	assert.Equal(t, TypeSuccess, r.Type)
	assert.Equal(t, []uuid.UUID{id}, marker.read)

	r = handle(t, h, TypeRead, `{"id":"nope"}`)
	assert.Equal(t, TypeError, r.Type)

	marker.err = fmt.Errorf("not found")
	r = handle(t, h, TypeRead, fmt.Sprintf(`{"id":%q}`, id))
	assert.Equal(t, TypeError, r.Type)
}

func TestHandle_ReadAll(t *testing.T) {
	marker := &fakeMarker{}
	h := NewHandler(logger.NewNop(), marker)

	r := handle(t, h, TypeReadAll, "")
	assert.Equal(t, TypeSuccess, r.Type)
	assert.Equal(t, float64(3), r.Payload["updated"])
	assert.Equal(t, 1, marker.readAll)
}

func TestHandle_Unknown(t *testing.T) {
	h := NewHandler(logger.NewNop(), &fakeMarker{})

	r := handle(t, h, "dance", "")
	assert.Equal(t, TypeError, r.Type)
	assert.Equal(t, "unknown message type: dance", r.Payload["error"])
}

func TestNotification(t *testing.T) {
	out, err := Notification([]byte(`{"title":"Xin chào"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"notification","payload":{"title":"Xin chào"}}`, string(out))
}

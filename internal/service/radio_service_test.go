package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/logger"
)

const radioJSON = `{
  "title": "Morning Coffee Radio",
  "summary": "Hai người dẫn nói về cà phê",
  "lines": [
    {"speaker": "Mai", "gender": "female", "text": "Good morning, everyone!", "translation": "Chào buổi sáng!", "emotion": "excited"},
    {"speaker": "Nam", "gender": "male", "text": "Today we talk about coffee.", "translation": "Hôm nay ta nói về cà phê."},
    {"speaker": "Mai", "gender": "female", "text": "", "translation": ""},
    {"speaker": "Mai", "gender": "female", "text": "See you tomorrow.", "translation": "Hẹn gặp lại.", "emotion": "friendly"}
  ],
  "vocabulary": []
}`

func newRadioFixture(chat *fakeChat) (*RadioService, *fakeRadio, *fakePublisher) {
	repo := newFakeRadio()
	pub := &fakePublisher{}
	ai := NewAIService([]ChatProvider{chat}, nil, pub, logger.NewNop())
	return NewRadioService(repo, ai, logger.NewNop()), repo, pub
}

func TestRadioService_Generate(t *testing.T) {
	chat := &fakeChat{name: "openai", replies: []string{radioJSON}}
	svc, repo, pub := newRadioFixture(chat)
	userID := uuid.New()

	ep, err := svc.Generate(context.Background(), userID, RadioRequest{Topic: "coffee", Level: "b1"})
	require.NoError(t, err)
	assert.Equal(t, "Morning Coffee Radio", ep.Title)
	assert.Equal(t, "B1", ep.Level)
	assert.Equal(t, "en-US", ep.Language)
	assert.Contains(t, ep.AudioURL, "https://cdn.test/")
	assert.Positive(t, ep.DurationSeconds)
	assert.Len(t, repo.rows, 1)
	assert.Contains(t, chat.last[1].Content, "about 390 words")

	var script RadioScript
	require.NoError(t, json.Unmarshal(ep.Script, &script))
	assert.Len(t, script.Lines, 3)

	require.Len(t, pub.requests, 1)
	segs := pub.requests[0].Segments
	require.Len(t, segs, 3)
	assert.Equal(t, "excited", segs[0].Style)
	assert.Equal(t, "chat", segs[1].Style)
	assert.NotEqual(t, segs[0].Voice, segs[1].Voice)
}

func TestRadioService_GenerateValidation(t *testing.T) {
	svc, _, _ := newRadioFixture(&fakeChat{name: "openai", replies: []string{radioJSON}})

	tests := map[string]RadioRequest{
		"no topic":     {},
		"too long":     {Topic: "coffee", Minutes: MaxRadioMinutes + 1},
		"negative":     {Topic: "coffee", Minutes: -1},
		"invalid cefr": {Topic: "coffee", Level: "X1"},
	}
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Generate(context.Background(), uuid.New(), req)
			assert.True(t, errors.IsCode(err, errors.ErrValidation))
		})
	}
}

func TestRadioService_GenerateFailsWithoutAudio(t *testing.T) {
	svc, repo, pub := newRadioFixture(&fakeChat{name: "openai", replies: []string{radioJSON}})
	pub.err = fmt.Errorf("all providers failed")

	_, err := svc.Generate(context.Background(), uuid.New(), RadioRequest{Topic: "coffee"})
	assert.Error(t, err)
	assert.Empty(t, repo.rows)
}

func TestRadioService_Ownership(t *testing.T) {
	svc, _, _ := newRadioFixture(&fakeChat{name: "openai", replies: []string{radioJSON}})
	owner, stranger := uuid.New(), uuid.New()

	ep, err := svc.Generate(context.Background(), owner, RadioRequest{Topic: "coffee"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), stranger, ep.ID)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
	err = svc.Delete(context.Background(), stranger, ep.ID)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))

	list, err := svc.List(context.Background(), owner, NewPage(1, 10))
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)

	require.NoError(t, svc.Delete(context.Background(), owner, ep.ID))
	_, err = svc.Get(context.Background(), owner, ep.ID)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
}

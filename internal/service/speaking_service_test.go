package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windfall/lingo_service/internal/client"
	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/logger"
	"github.com/windfall/lingo_service/internal/repository"
)

type fakeAssessor struct {
	result *client.PronunciationResult
	err    error
	ref    string
}

func (f *fakeAssessor) AssessPronunciation(ctx context.Context, audio []byte, referenceText, language string) (*client.PronunciationResult, error) {
	f.ref = referenceText
	return f.result, f.err
}

type fakeQueue struct {
	mu    sync.Mutex
	lists map[string][][]byte
	ttls  map[string]time.Duration
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{lists: map[string][][]byte{}, ttls: map[string]time.Duration{}}
}

func (f *fakeQueue) RPush(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists[key] = append(f.lists[key], data)
	return nil
}

func (f *fakeQueue) SetExpiry(ctx context.Context, key string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ttls[key] = ttl
	return nil
}

func (f *fakeQueue) BLPop(ctx context.Context, timeout time.Duration, key string) ([]byte, error) {
	deadline := time.Now().Add(timeout)
	for {
		f.mu.Lock()
		if list := f.lists[key]; len(list) > 0 {
			f.lists[key] = list[1:]
			f.mu.Unlock()
			return list[0], nil
		}
		f.mu.Unlock()
		if time.Now().After(deadline) {
			return nil, redis.Nil
		}
		time.Sleep(5 * time.Millisecond)
	}
}

type speakingFixture struct {
	svc      *SpeakingService
	assessor *fakeAssessor
	queue    *fakeQueue
	chat     *fakeChat
	pub      *fakePublisher
	history  *fakeHistory
}

func newSpeakingFixture() *speakingFixture {
	f := &speakingFixture{
		assessor: &fakeAssessor{},
		queue:    newFakeQueue(),
		chat:     &fakeChat{name: "groq", replies: []string{"Great job! What did you eat?"}},
		pub:      &fakePublisher{},
	}
	history, historyRepo, _ := newHistoryService()
	f.history = historyRepo
	ai := NewAIService(
		[]ChatProvider{f.chat},
		[]Transcriber{&fakeTranscriber{name: "groq", text: "I ate pho today"}},
		f.pub,
		logger.NewNop(),
	)
	f.svc = NewSpeakingService(f.assessor, ai, history, f.queue, logger.NewNop())
	f.svc.wait = time.Second
	return f
}

func TestSpeakingService_Assess(t *testing.T) {
	f := newSpeakingFixture()
	f.assessor.result = &client.PronunciationResult{
		RecognizedText:     "the quick brown fox",
		AccuracyScore:      90,
		FluencyScore:       80,
		CompletenessScore:  100,
		ProsodyScore:       75,
		PronunciationScore: 84.6,
	}
	userID := uuid.New()

	res, err := f.svc.Assess(context.Background(), userID, AssessRequest{
		Audio:         []byte("wav"),
		ReferenceText: " the quick brown fox ",
	})
	require.NoError(t, err)
	assert.Equal(t, "the quick brown fox", f.assessor.ref)
	assert.Equal(t, 75.0, res.Prosody)
	assert.NotNil(t, res.Words)
	assert.Equal(t, 13, res.XPEarned)

	require.Len(t, f.history.rows, 1)
	entry := f.history.rows[0]
	assert.Equal(t, repository.ActivitySpeaking, entry.ActivityType)
	assert.Equal(t, 85, *entry.Score)
}

func TestSpeakingService_AssessErrors(t *testing.T) {
	f := newSpeakingFixture()

	_, err := f.svc.Assess(context.Background(), uuid.New(), AssessRequest{ReferenceText: "hi"})
	assert.True(t, errors.IsCode(err, errors.ErrValidation))

	_, err = f.svc.Assess(context.Background(), uuid.New(), AssessRequest{Audio: []byte("wav")})
	assert.True(t, errors.IsCode(err, errors.ErrValidation))

	f.assessor.err = fmt.Errorf("azure 500")
	_, err = f.svc.Assess(context.Background(), uuid.New(), AssessRequest{Audio: []byte("wav"), ReferenceText: "hi"})
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, "speaking.assessment_failed", appErr.MessageID)

	noAzure := NewSpeakingService(nil, nil, nil, nil, logger.NewNop())
	_, err = noAzure.Assess(context.Background(), uuid.New(), AssessRequest{Audio: []byte("wav"), ReferenceText: "hi"})
	assert.True(t, errors.IsCode(err, errors.ErrAIService))
}

func TestSpeakingService_ConverseAndReply(t *testing.T) {
	f := newSpeakingFixture()
	userID := uuid.New()

	accepted, err := f.svc.Converse(context.Background(), userID, ConverseRequest{
		Audio:    []byte("webm"),
		Filename: "turn.webm",
		Language: "en",
	})
	require.NoError(t, err)
	assert.Equal(t, "I ate pho today", accepted.Transcript)

	reply, err := f.svc.Reply(context.Background(), userID, accepted.RequestID)
	require.NoError(t, err)
	assert.Equal(t, accepted.RequestID, reply.RequestID)
	assert.Equal(t, "Great job! What did you eat?", reply.Reply)
	assert.Contains(t, reply.AudioURL, "https://cdn.test/")

	f.svc.Wait()
	assert.Equal(t, replyTTL, f.queue.ttls[replyKey(accepted.RequestID)])
	assert.Equal(t, "I ate pho today", f.chat.last[len(f.chat.last)-1].Content)
}

func TestSpeakingService_ReplyWithoutAudio(t *testing.T) {
	f := newSpeakingFixture()
	f.pub.err = fmt.Errorf("storage down")
	userID := uuid.New()

	accepted, err := f.svc.Converse(context.Background(), userID, ConverseRequest{Audio: []byte("webm")})
	require.NoError(t, err)

	reply, err := f.svc.Reply(context.Background(), userID, accepted.RequestID)
	require.NoError(t, err)
	assert.NotEmpty(t, reply.Reply)
	assert.Empty(t, reply.AudioURL)
	f.svc.Wait()
}

func TestSpeakingService_ReplyBelongsToRequester(t *testing.T) {
	f := newSpeakingFixture()
	accepted, err := f.svc.Converse(context.Background(), uuid.New(), ConverseRequest{Audio: []byte("webm")})
	require.NoError(t, err)
	f.svc.Wait()

	_, err = f.svc.Reply(context.Background(), uuid.New(), accepted.RequestID)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
}

func TestSpeakingService_ReplyFailures(t *testing.T) {
	f := newSpeakingFixture()
	f.svc.wait = 20 * time.Millisecond
	userID := uuid.New()

	_, err := f.svc.Reply(context.Background(), userID, "not-a-uuid")
	assert.True(t, errors.IsCode(err, errors.ErrValidation))

	_, err = f.svc.Reply(context.Background(), userID, uuid.NewString())
	appErr, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrTimeout, appErr.Code)
	assert.Equal(t, "speaking.reply_not_ready", appErr.MessageID)

	f.chat.err = fmt.Errorf("all down")
	accepted, err := f.svc.Converse(context.Background(), userID, ConverseRequest{Audio: []byte("webm")})
	require.NoError(t, err)
	f.svc.Wait()
	_, err = f.svc.Reply(context.Background(), userID, accepted.RequestID)
	assert.True(t, errors.IsCode(err, errors.ErrAIService))
}

func TestSpeakingService_ConverseWithoutQueue(t *testing.T) {
	svc := NewSpeakingService(nil, nil, nil, nil, logger.NewNop())
	_, err := svc.Converse(context.Background(), uuid.New(), ConverseRequest{Audio: []byte("webm")})
	assert.True(t, errors.IsCode(err, errors.ErrAIService))
}

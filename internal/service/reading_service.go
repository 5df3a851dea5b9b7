package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/windfall/lingo_service/internal/errors"
	"github.com/windfall/lingo_service/internal/repository"
	"github.com/windfall/lingo_service/internal/tts"
)

// Reading limits
const (
	DefaultReadingWords = 300
	MinReadingWords     = 100
	MaxReadingWords     = 800
	readingQuestions    = 5
)

// ReadingRequest asks for a reading passage.
type ReadingRequest struct {
	Topic    string `json:"topic"`
	Level    string `json:"level"`
	Language string `json:"language"`
	Words    int    `json:"words"`
}

// ReadingQuestion is a multiple-choice comprehension question.
type ReadingQuestion struct {
	ID          string   `json:"id"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	AnswerIndex int      `json:"answer_index"`
	Explanation string   `json:"explanation"`
}

// ReadingPassage is the stored content of a reading lesson.
type ReadingPassage struct {
	Title      string            `json:"title"`
	Passage    string            `json:"passage"`
	Questions  []ReadingQuestion `json:"questions"`
	Vocabulary []VocabularyItem  `json:"vocabulary"`
}

// PublicQuestion is a question without its answer.
type PublicQuestion struct {
	ID       string   `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// ReadingView is a reading lesson as shown to a learner.
type ReadingView struct {
	ID         uuid.UUID        `json:"id"`
	Title      string           `json:"title"`
	Level      string           `json:"level"`
	Language   string           `json:"language"`
	Topic      string           `json:"topic"`
	Passage    string           `json:"passage"`
	Questions  []PublicQuestion `json:"questions"`
	Vocabulary []VocabularyItem `json:"vocabulary"`
	CreatedAt  time.Time        `json:"created_at"`
}

// SubmitReadingRequest holds the learner's answers keyed by question id.
type SubmitReadingRequest struct {
	Answers         map[string]int `json:"answers"`
	DurationSeconds int            `json:"duration_seconds"`
}

// QuestionResult grades one answer.
type QuestionResult struct {
	ID          string `json:"id"`
	Correct     bool   `json:"correct"`
	Selected    *int   `json:"selected"`
	AnswerIndex int    `json:"answer_index"`
	Explanation string `json:"explanation"`
}

// ReadingResult is a graded submission.
type ReadingResult struct {
	Score        int                      `json:"score"`
	Correct      int                      `json:"correct"`
	Total        int                      `json:"total"`
	Results      []QuestionResult         `json:"results"`
	XPEarned     int                      `json:"xp_earned"`
	Gamification *repository.Gamification `json:"gamification"`
}

// ReadingService generates and grades reading lessons.
type ReadingService struct {
	lessons repository.LessonRepository
	history *HistoryService
	ai      *AIService
}

// NewReadingService creates a new ReadingService.
func NewReadingService(lessons repository.LessonRepository, history *HistoryService, ai *AIService) *ReadingService {
	return &ReadingService{lessons: lessons, history: history, ai: ai}
}

func checkPassage(p *ReadingPassage) error {
	if strings.TrimSpace(p.Passage) == "" {
		return fmt.Errorf("passage is empty")
	}
	if len(p.Questions) == 0 {
		return fmt.Errorf("passage has no questions")
	}
	seen := make(map[string]bool, len(p.Questions))
	for i := range p.Questions {
		q := &p.Questions[i]
		if len(q.Options) < 2 {
			return fmt.Errorf("question %d has fewer than two options", i)
		}
		if q.AnswerIndex < 0 || q.AnswerIndex >= len(q.Options) {
			return fmt.Errorf("question %d answer out of range", i)
		}
		q.ID = strings.TrimSpace(q.ID)
		if q.ID == "" || seen[q.ID] {
			q.ID = freeQuestionID(seen, i)
		}
		seen[q.ID] = true
	}
	return nil
}

// freeQuestionID returns "q<n>" for the question at index i, suffixed until
// it is unused. Answers are keyed by question id, so ids must be unique.
func freeQuestionID(seen map[string]bool, i int) string {
	id := fmt.Sprintf("q%d", i+1)
	for n := 2; seen[id]; n++ {
		id = fmt.Sprintf("q%d_%d", i+1, n)
	}
	return id
}

// Generate writes a passage with questions and stores it as the user's
// private reading lesson.
func (s *ReadingService) Generate(ctx context.Context, userID uuid.UUID, req ReadingRequest) (*ReadingView, error) {
	topic, err := requireText("topic", req.Topic, 200)
	if err != nil {
		return nil, err
	}
	level, err := normalizeLevel(req.Level)
	if err != nil {
		return nil, err
	}
	words := req.Words
	if words == 0 {
		words = DefaultReadingWords
	}
	if words < MinReadingWords || words > MaxReadingWords {
		return nil, outOfRange("words", MinReadingWords, MaxReadingWords)
	}
	lang := tts.NormalizeLanguage(req.Language)

	system := "You write graded reading passages with comprehension questions. Reply with JSON only."
	prompt := fmt.Sprintf(`Write a %s reading passage about %q for a CEFR %s learner, about %d words.
Add %d multiple-choice questions with 4 options each.
Return JSON: {"title": string, "passage": string,
"questions": [{"id": "q1", "question": string, "options": [string], "answer_index": number, "explanation": string (Vietnamese)}],
"vocabulary": [{"word": string, "meaning": string (Vietnamese), "example": string}]}`,
		languageName(lang), topic, level, words, readingQuestions)

	passage, err := generateJSON(ctx, s.ai, system, prompt, checkPassage)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(passage.Title) == "" {
		passage.Title = topic
	}

	content, err := json.Marshal(passage)
	if err != nil {
		return nil, errors.InternalWrap("failed to encode reading content", err)
	}

	owner := userID
	l := &repository.Lesson{
		Title:           passage.Title,
		Type:            repository.LessonReading,
		Level:           level,
		Language:        lang,
		Topic:           topic,
		Content:         content,
		DurationSeconds: int(math.Ceil(float64(len(strings.Fields(passage.Passage))) / wordsPerSecond)),
		CreatedBy:       &owner,
	}
	if err := s.lessons.Create(ctx, l); err != nil {
		return nil, repoErr(err, "lesson", "create reading lesson")
	}
	return readingView(l, passage), nil
}

func (s *ReadingService) load(ctx context.Context, userID, id uuid.UUID) (*repository.Lesson, *ReadingPassage, error) {
	l, err := visibleLesson(ctx, s.lessons, id, userID)
	if err != nil {
		return nil, nil, err
	}
	if l.Type != repository.LessonReading {
		return nil, nil, errors.NotFound("lesson")
	}

	var p ReadingPassage
	if err := json.Unmarshal(l.Content, &p); err != nil {
		return nil, nil, errors.InternalWrap("failed to decode reading content", err)
	}
	return l, &p, nil
}

func readingView(l *repository.Lesson, p *ReadingPassage) *ReadingView {
	questions := make([]PublicQuestion, len(p.Questions))
	for i, q := range p.Questions {
		questions[i] = PublicQuestion{ID: q.ID, Question: q.Question, Options: q.Options}
	}
	vocabulary := p.Vocabulary
	if vocabulary == nil {
		vocabulary = []VocabularyItem{}
	}
	return &ReadingView{
		ID:         l.ID,
		Title:      l.Title,
		Level:      l.Level,
		Language:   l.Language,
		Topic:      l.Topic,
		Passage:    p.Passage,
		Questions:  questions,
		Vocabulary: vocabulary,
		CreatedAt:  l.CreatedAt,
	}
}

// Get returns a reading lesson with the answers hidden.
func (s *ReadingService) Get(ctx context.Context, userID, id uuid.UUID) (*ReadingView, error) {
	l, p, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return readingView(l, p), nil
}

// Submit grades the answers, records the activity and awards XP.
// Unanswered questions count as wrong.
func (s *ReadingService) Submit(ctx context.Context, userID, id uuid.UUID, req SubmitReadingRequest) (*ReadingResult, error) {
	l, p, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	res := &ReadingResult{Total: len(p.Questions), Results: make([]QuestionResult, 0, len(p.Questions))}
	for _, q := range p.Questions {
		r := QuestionResult{ID: q.ID, AnswerIndex: q.AnswerIndex, Explanation: q.Explanation}
		if selected, ok := req.Answers[q.ID]; ok {
			sel := selected
			r.Selected = &sel
			r.Correct = selected == q.AnswerIndex
		}
		if r.Correct {
			res.Correct++
		}
		res.Results = append(res.Results, r)
	}
	if res.Total > 0 {
		res.Score = int(math.Round(float64(res.Correct) * 100 / float64(res.Total)))
	}

	details, err := json.Marshal(map[string]int{"correct": res.Correct, "total": res.Total})
	if err != nil {
		return nil, errors.InternalWrap("failed to encode details", err)
	}
	lessonID := l.ID
	score := res.Score
	recorded, err := s.history.Record(ctx, userID, RecordActivityRequest{
		LessonID:        &lessonID,
		ActivityType:    repository.ActivityReading,
		Score:           &score,
		DurationSeconds: req.DurationSeconds,
		Details:         details,
	})
	if err != nil {
		return nil, err
	}

	res.XPEarned = recorded.XPEarned
	res.Gamification = recorded.Gamification
	return res, nil
}

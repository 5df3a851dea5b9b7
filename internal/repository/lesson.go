package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/windfall/lingo_service/internal/client"
)

// Lesson types
const (
	LessonListening = "listening"
	LessonReading   = "reading"
	LessonSpeaking  = "speaking"
)

// Lesson is a piece of practice content.
type Lesson struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Type            string          `json:"type"`
	Level           string          `json:"level"`
	Language        string          `json:"language"`
	Topic           string          `json:"topic"`
	Content         json.RawMessage `json:"content"`
	AudioURL        string          `json:"audio_url"`
	DurationSeconds int             `json:"duration_seconds"`
	IsPublished     bool            `json:"is_published"`
	CreatedBy       *uuid.UUID      `json:"created_by,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// LessonFilter narrows List. ViewerID sees their unpublished lessons too.
type LessonFilter struct {
	ViewerID uuid.UUID
	Type     string
	Level    string
	Language string
	Topic    string
	Query    string
	Limit    int
	Offset   int
}

// LessonRepository defines the interface for lesson data access.
type LessonRepository interface {
	Create(ctx context.Context, l *Lesson) error
	GetByID(ctx context.Context, id uuid.UUID) (*Lesson, error)
	List(ctx context.Context, f LessonFilter) ([]*Lesson, int, error)
	Update(ctx context.Context, l *Lesson) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PostgresLessonRepository implements LessonRepository with PostgreSQL.
type PostgresLessonRepository struct {
	db *client.PostgresClient
}

// NewPostgresLessonRepository creates a new PostgresLessonRepository.
func NewPostgresLessonRepository(db *client.PostgresClient) *PostgresLessonRepository {
	return &PostgresLessonRepository{db: db}
}

const lessonColumns = `id, title, description, type, level, language, topic, content, audio_url,
	duration_seconds, is_published, created_by, created_at, updated_at`

func scanLesson(row pgx.Row) (*Lesson, error) {
	var l Lesson
	err := row.Scan(
		&l.ID,
		&l.Title,
		&l.Description,
		&l.Type,
		&l.Level,
		&l.Language,
		&l.Topic,
		&l.Content,
		&l.AudioURL,
		&l.DurationSeconds,
		&l.IsPublished,
		&l.CreatedBy,
		&l.CreatedAt,
		&l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *PostgresLessonRepository) Create(ctx context.Context, l *Lesson) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}
	if len(l.Content) == 0 {
		l.Content = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO lessons (
			title, description, type, level, language, topic, content, audio_url,
			duration_seconds, is_published, created_by
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		) RETURNING id, created_at, updated_at
	`

	err := r.db.Pool.QueryRow(ctx, query,
		l.Title,
		l.Description,
		l.Type,
		l.Level,
		l.Language,
		l.Topic,
		l.Content,
		l.AudioURL,
		l.DurationSeconds,
		l.IsPublished,
		l.CreatedBy,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
	return wrap(err, "create lesson")
}

func (r *PostgresLessonRepository) GetByID(ctx context.Context, id uuid.UUID) (*Lesson, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, ErrNotConfigured
	}

	l, err := scanLesson(r.db.Pool.QueryRow(ctx, `SELECT `+lessonColumns+` FROM lessons WHERE id = $1`, id))
	if err != nil {
		return nil, wrap(err, "get lesson")
	}
	return l, nil
}

func (r *PostgresLessonRepository) List(ctx context.Context, f LessonFilter) ([]*Lesson, int, error) {
	if r.db == nil || r.db.Pool == nil {
		return nil, 0, ErrNotConfigured
	}

	args := []interface{}{f.ViewerID}
	conds := []string{"(is_published OR created_by = $1)"}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Level != "" {
		add("level = $%d", f.Level)
	}
	if f.Language != "" {
		add("language = $%d", f.Language)
	}
	if f.Topic != "" {
		add("topic ILIKE $%d", f.Topic)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		add("(title ILIKE $%[1]d OR description ILIKE $%[1]d)", "%"+q+"%")
	}
	where := " WHERE " + strings.Join(conds, " AND ")

	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM lessons`+where, args...).Scan(&total); err != nil {
		return nil, 0, wrap(err, "count lessons")
	}

	query := `SELECT ` + lessonColumns + ` FROM lessons` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	rows, err := r.db.Pool.Query(ctx, query, append(args, f.Limit, f.Offset)...)
	if err != nil {
		return nil, 0, wrap(err, "list lessons")
	}
	defer rows.Close()

	var lessons []*Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, 0, wrap(err, "scan lesson")
		}
		lessons = append(lessons, l)
	}
	return lessons, total, wrap(rows.Err(), "iterate lessons")
}

func (r *PostgresLessonRepository) Update(ctx context.Context, l *Lesson) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	query := `
		UPDATE lessons
		SET title = $1, description = $2, type = $3, level = $4, language = $5, topic = $6,
		    content = $7, audio_url = $8, duration_seconds = $9, is_published = $10, updated_at = NOW()
		WHERE id = $11
		RETURNING updated_at
	`
	err := r.db.Pool.QueryRow(ctx, query,
		l.Title,
		l.Description,
		l.Type,
		l.Level,
		l.Language,
		l.Topic,
		l.Content,
		l.AudioURL,
		l.DurationSeconds,
		l.IsPublished,
		l.ID,
	).Scan(&l.UpdatedAt)
	return wrap(err, "update lesson")
}

func (r *PostgresLessonRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if r.db == nil || r.db.Pool == nil {
		return ErrNotConfigured
	}

	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM lessons WHERE id = $1`, id)
	return affected(tag, err, "delete lesson")
}

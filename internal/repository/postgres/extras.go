package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dieuphamit/giapha/internal/models"
	"github.com/dieuphamit/giapha/internal/repository"
)

// Repositories for the side collections (events, posts, quiz questions).
// These rows sit outside the family graph and carry no link invariants.

type eventRepository struct {
	db *sql.DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *sql.DB) repository.EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *models.Event) (*models.Event, error) {
	query := `
		INSERT INTO events (id, title, start_at, description, location, type, created_by_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.CreatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		event.ID, event.Title, event.StartAt, event.Description,
		event.Location, event.Type, event.CreatedByID, event.CreatedAt,
	).Scan(&event.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	return event, nil
}

func (r *eventRepository) List(ctx context.Context) ([]*models.Event, error) {
	query := `SELECT id, title, start_at, description, location, type, created_by_id, created_at
		FROM events ORDER BY start_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event := &models.Event{}
		if err := rows.Scan(
			&event.ID, &event.Title, &event.StartAt, &event.Description,
			&event.Location, &event.Type, &event.CreatedByID, &event.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

type postRepository struct {
	db *sql.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) (*models.Post, error) {
	query := `
		INSERT INTO posts (id, title, body, created_by_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	if post.ID == "" {
		post.ID = uuid.NewString()
	}
	post.CreatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		post.ID, post.Title, post.Body, post.CreatedByID, post.CreatedAt,
	).Scan(&post.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	return post, nil
}

func (r *postRepository) List(ctx context.Context) ([]*models.Post, error) {
	query := `SELECT id, title, body, created_by_id, created_at FROM posts ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var posts []*models.Post
	for rows.Next() {
		post := &models.Post{}
		if err := rows.Scan(&post.ID, &post.Title, &post.Body, &post.CreatedByID, &post.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

type quizRepository struct {
	db *sql.DB
}

// NewQuizRepository creates a new quiz question repository
func NewQuizRepository(db *sql.DB) repository.QuizRepository {
	return &quizRepository{db: db}
}

func (r *quizRepository) Create(ctx context.Context, q *models.QuizQuestion) (*models.QuizQuestion, error) {
	query := `
		INSERT INTO quiz_questions (id, question, correct_answer, hint, created_by_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	q.CreatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		q.ID, q.Question, q.CorrectAnswer, q.Hint, q.CreatedByID, q.CreatedAt,
	).Scan(&q.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create quiz question: %w", err)
	}
	return q, nil
}

func (r *quizRepository) List(ctx context.Context) ([]*models.QuizQuestion, error) {
	query := `SELECT id, question, correct_answer, hint, created_by_id, created_at
		FROM quiz_questions ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query quiz questions: %w", err)
	}
	defer rows.Close()

	var questions []*models.QuizQuestion
	for rows.Next() {
		q := &models.QuizQuestion{}
		if err := rows.Scan(&q.ID, &q.Question, &q.CorrectAnswer, &q.Hint, &q.CreatedByID, &q.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan quiz question: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

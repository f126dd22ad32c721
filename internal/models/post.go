package models

import "time"

// Post is a news post on the clan board.
type Post struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Body        string    `json:"body" db:"body"`
	CreatedByID string    `json:"created_by_id" db:"created_by_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// QuizQuestion is a family-history quiz entry.
type QuizQuestion struct {
	ID            string    `json:"id" db:"id"`
	Question      string    `json:"question" db:"question"`
	CorrectAnswer string    `json:"correct_answer" db:"correct_answer"`
	Hint          string    `json:"hint" db:"hint"`
	CreatedByID   string    `json:"created_by_id" db:"created_by_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

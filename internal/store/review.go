package store

import (
	"time"

	"github.com/google/uuid"

	"zujuan/internal/model"
)

// CreateReview stores a review verdict for a question.
func (s *Store) CreateReview(r model.Review) (model.Review, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = model.ReviewPending
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now
	_, err := s.db.Exec(
		`INSERT INTO question_reviews (id, question_id, reviewer_id, status, comment, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.QuestionID, r.ReviewerID, r.Status, r.Comment, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return model.Review{}, err
	}
	return r, nil
}

// ListReviews returns all reviews for a question, oldest first.
func (s *Store) ListReviews(questionID string) ([]model.Review, error) {
	rows, err := s.db.Query(
		`SELECT id, question_id, reviewer_id, status, comment, created_at, updated_at
		 FROM question_reviews WHERE question_id = ? ORDER BY created_at`, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var reviews []model.Review
	for rows.Next() {
		var r model.Review
		if err := rows.Scan(&r.ID, &r.QuestionID, &r.ReviewerID, &r.Status, &r.Comment,
			&r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

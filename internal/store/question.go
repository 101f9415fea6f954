package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"zujuan/internal/model"
)

const questionColumns = `id, question_text, options, answer, explanation,
	has_geometry, geometry_svg, geometry_tikz, knowledge_points,
	difficulty, question_type, source, year, ai_generated, is_public,
	created_by, created_at, updated_at`

// InsertQuestion stores a question and returns its generated ID.
func (s *Store) InsertQuestion(q model.Question) (string, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	options, err := encodeJSON(q.Options)
	if err != nil {
		return "", err
	}
	points, err := encodeJSON(q.KnowledgePoints)
	if err != nil {
		return "", err
	}
	now := time.Now().UTC()
	_, err = s.db.Exec(
		`INSERT INTO questions (id, question_text, options, answer, explanation,
		 has_geometry, geometry_svg, geometry_tikz, knowledge_points,
		 difficulty, question_type, source, year, ai_generated, is_public,
		 created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.QuestionText, options, q.Answer, q.Explanation,
		q.HasGeometry, q.GeometrySVG, q.GeometryTikZ, points,
		q.Difficulty, q.QuestionType, q.Source, q.Year, q.AIGenerated, q.IsPublic,
		q.CreatedBy, now, now,
	)
	if err != nil {
		return "", err
	}
	return q.ID, nil
}

// UpdateQuestion rewrites the editable fields of a question.
func (s *Store) UpdateQuestion(q model.Question) error {
	options, err := encodeJSON(q.Options)
	if err != nil {
		return err
	}
	points, err := encodeJSON(q.KnowledgePoints)
	if err != nil {
		return err
	}
	res, err := s.db.Exec(
		`UPDATE questions SET question_text = ?, options = ?, answer = ?, explanation = ?,
		 has_geometry = ?, geometry_svg = ?, geometry_tikz = ?, knowledge_points = ?,
		 difficulty = ?, question_type = ?, source = ?, year = ?, is_public = ?, updated_at = ?
		 WHERE id = ?`,
		q.QuestionText, options, q.Answer, q.Explanation,
		q.HasGeometry, q.GeometrySVG, q.GeometryTikZ, points,
		q.Difficulty, q.QuestionType, q.Source, q.Year, q.IsPublic, time.Now().UTC(),
		q.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteQuestion removes a question and its embedding.
func (s *Store) DeleteQuestion(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM question_embeddings WHERE question_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM question_reviews WHERE question_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM questions WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// GetQuestion returns a question by ID, or nil if not found.
func (s *Store) GetQuestion(id string) (*model.Question, error) {
	row := s.db.QueryRow(`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	q, err := scanQuestion(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return q, nil
}

// GetQuestions returns the questions for the given IDs keyed by ID.
// Missing IDs are simply absent from the map.
func (s *Store) GetQuestions(ids []string) (map[string]model.Question, error) {
	out := make(map[string]model.Question, len(ids))
	for _, id := range ids {
		q, err := s.GetQuestion(id)
		if err != nil {
			return nil, err
		}
		if q != nil {
			out[q.ID] = *q
		}
	}
	return out, nil
}

// ListQuestions returns one page of questions newest-first, with an optional
// LIKE search over question text and answer, plus the unpaged total.
func (s *Store) ListQuestions(page, limit int, search string) ([]model.Question, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	where := ``
	var args []any
	if search != "" {
		where = ` WHERE question_text LIKE ? OR answer LIKE ?`
		like := "%" + search + "%"
		args = append(args, like, like)
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, (page-1)*limit)
	rows, err := s.db.Query(
		`SELECT `+questionColumns+` FROM questions`+where+
			` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows.Scan)
		if err != nil {
			return nil, 0, err
		}
		questions = append(questions, *q)
	}
	return questions, total, rows.Err()
}

// QuestionCount returns the number of stored questions.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

func scanQuestion(scan func(...any) error) (*model.Question, error) {
	var q model.Question
	var options, points string
	err := scan(&q.ID, &q.QuestionText, &options, &q.Answer, &q.Explanation,
		&q.HasGeometry, &q.GeometrySVG, &q.GeometryTikZ, &points,
		&q.Difficulty, &q.QuestionType, &q.Source, &q.Year, &q.AIGenerated, &q.IsPublic,
		&q.CreatedBy, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if q.Options, err = decodeJSON(options); err != nil {
		return nil, err
	}
	if q.KnowledgePoints, err = decodeJSON(points); err != nil {
		return nil, err
	}
	return &q, nil
}

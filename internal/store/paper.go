package store

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"zujuan/internal/model"
)

// CreatePaper stores a paper together with its question bindings.
func (s *Store) CreatePaper(p model.Paper) (string, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	tags, err := encodeJSON(p.Tags)
	if err != nil {
		return "", err
	}
	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	_, err = tx.Exec(
		`INSERT INTO papers (id, title, description, template_type, total_score,
		 time_limit, tags, subject, grade_level, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Title, p.Description, p.TemplateType, p.TotalScore,
		p.TimeLimit, tags, p.Subject, p.GradeLevel, p.CreatedBy, now, now,
	)
	if err != nil {
		return "", err
	}

	for _, pq := range p.Questions {
		_, err = tx.Exec(
			`INSERT INTO paper_questions (id, paper_id, question_id, position, score, custom_label)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), p.ID, pq.QuestionID, pq.Order, pq.Score, pq.CustomLabel,
		)
		if err != nil {
			return "", err
		}
	}

	return p.ID, tx.Commit()
}

// GetPaper returns a paper with its ordered question bindings, or nil.
func (s *Store) GetPaper(id string) (*model.Paper, error) {
	var p model.Paper
	var tags string
	err := s.db.QueryRow(
		`SELECT id, title, description, template_type, total_score, time_limit,
		 tags, subject, grade_level, created_by, created_at, updated_at
		 FROM papers WHERE id = ?`, id,
	).Scan(&p.ID, &p.Title, &p.Description, &p.TemplateType, &p.TotalScore, &p.TimeLimit,
		&tags, &p.Subject, &p.GradeLevel, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p.Tags, err = decodeJSON(tags); err != nil {
		return nil, err
	}
	if p.Questions, err = s.paperQuestions(p.ID); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPapers returns one page of papers newest-first plus the total count.
func (s *Store) ListPapers(page, limit int) ([]model.Paper, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM papers`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.Query(
		`SELECT id, title, description, template_type, total_score, time_limit,
		 tags, subject, grade_level, created_by, created_at, updated_at
		 FROM papers ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, (page-1)*limit,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var papers []model.Paper
	for rows.Next() {
		var p model.Paper
		var tags string
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.TemplateType, &p.TotalScore,
			&p.TimeLimit, &tags, &p.Subject, &p.GradeLevel, &p.CreatedBy,
			&p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		if p.Tags, err = decodeJSON(tags); err != nil {
			return nil, 0, err
		}
		papers = append(papers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range papers {
		if papers[i].Questions, err = s.paperQuestions(papers[i].ID); err != nil {
			return nil, 0, err
		}
	}
	return papers, total, nil
}

func (s *Store) paperQuestions(paperID string) ([]model.PaperQuestion, error) {
	rows, err := s.db.Query(
		`SELECT question_id, position, score, custom_label
		 FROM paper_questions WHERE paper_id = ? ORDER BY position`, paperID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PaperQuestion
	for rows.Next() {
		var pq model.PaperQuestion
		if err := rows.Scan(&pq.QuestionID, &pq.Order, &pq.Score, &pq.CustomLabel); err != nil {
			return nil, err
		}
		out = append(out, pq)
	}
	return out, rows.Err()
}

package store

import (
	"encoding/json"
	"time"
)

// QuestionEmbedding pairs a question with its stored vector.
type QuestionEmbedding struct {
	QuestionID string
	Vector     []float32
}

// UpsertEmbedding stores the embedding vector for a question. Vectors are
// kept as JSON text so the schema stays portable across sqlite builds.
func (s *Store) UpsertEmbedding(questionID string, vector []float32) error {
	data, err := json.Marshal(vector)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO question_embeddings (question_id, embedding, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT(question_id) DO UPDATE SET embedding = excluded.embedding`,
		questionID, string(data), time.Now().UTC(),
	)
	return err
}

// ListEmbeddings returns every stored question embedding.
func (s *Store) ListEmbeddings() ([]QuestionEmbedding, error) {
	rows, err := s.db.Query(`SELECT question_id, embedding FROM question_embeddings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []QuestionEmbedding
	for rows.Next() {
		var e QuestionEmbedding
		var raw string
		if err := rows.Scan(&e.QuestionID, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &e.Vector); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

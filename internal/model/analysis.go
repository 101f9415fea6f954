package model

import (
	"errors"
	"strings"
)

// AnalysisResult is the structured output of a vision-model pass over a
// question photograph. Field names follow the JSON contract the model is
// prompted to produce.
type AnalysisResult struct {
	QuestionText    string   `json:"questionText"`
	Options         []string `json:"options,omitempty"`
	Answer          string   `json:"answer"`
	Explanation     string   `json:"explanation,omitempty"`
	HasGeometry     bool     `json:"hasGeometry"`
	GeometrySVG     string   `json:"geometrySvg,omitempty"`
	KnowledgePoints []string `json:"knowledgePoints"`
	Difficulty      string   `json:"difficulty,omitempty"`
	QuestionType    string   `json:"questionType,omitempty"`
	Confidence      float64  `json:"confidence,omitempty"`
}

var (
	// ErrMissingQuestionText indicates the model produced no question text.
	ErrMissingQuestionText = errors.New("analysis result has no question text")
	// ErrMissingAnswer indicates the model produced no answer.
	ErrMissingAnswer = errors.New("analysis result has no answer")
	// ErrMissingQuestionType indicates the model produced no question type.
	ErrMissingQuestionType = errors.New("analysis result has no question type")
	// ErrMissingOptions indicates a choice question came back without options.
	ErrMissingOptions = errors.New("choice question has no options")
)

// Validate checks that the result carries everything required to persist
// a question: text, answer, type, and options for choice types.
func (r *AnalysisResult) Validate() error {
	if r == nil || strings.TrimSpace(r.QuestionText) == "" {
		return ErrMissingQuestionText
	}
	if strings.TrimSpace(r.Answer) == "" {
		return ErrMissingAnswer
	}
	if strings.TrimSpace(r.QuestionType) == "" {
		return ErrMissingQuestionType
	}
	if QuestionType(r.QuestionType).RequiresOptions() && len(r.Options) == 0 {
		return ErrMissingOptions
	}
	return nil
}

// ToQuestion converts an analysis result into a Question ready for insert.
func (r *AnalysisResult) ToQuestion(createdBy string) Question {
	difficulty := Difficulty(r.Difficulty)
	if difficulty == "" {
		difficulty = DifficultyMedium
	}
	qtype := QuestionType(r.QuestionType)
	if qtype == "" {
		qtype = TypeSolve
	}
	return Question{
		QuestionText:    r.QuestionText,
		Options:         r.Options,
		Answer:          r.Answer,
		Explanation:     r.Explanation,
		HasGeometry:     r.HasGeometry,
		GeometrySVG:     r.GeometrySVG,
		KnowledgePoints: r.KnowledgePoints,
		Difficulty:      difficulty,
		QuestionType:    qtype,
		AIGenerated:     true,
		CreatedBy:       createdBy,
	}
}

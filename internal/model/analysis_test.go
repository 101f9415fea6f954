package model

import (
	"errors"
	"testing"
)

func TestAnalysisResultValidate(t *testing.T) {
	tests := []struct {
		name    string
		result  *AnalysisResult
		wantErr error
	}{
		{
			"complete solve question",
			&AnalysisResult{QuestionText: "求解", Answer: "2", QuestionType: "solve"},
			nil,
		},
		{
			"missing text",
			&AnalysisResult{Answer: "2", QuestionType: "solve"},
			ErrMissingQuestionText,
		},
		{
			"missing answer",
			&AnalysisResult{QuestionText: "求解", QuestionType: "solve"},
			ErrMissingAnswer,
		},
		{
			"missing type",
			&AnalysisResult{QuestionText: "求解", Answer: "2"},
			ErrMissingQuestionType,
		},
		{
			"choice without options",
			&AnalysisResult{QuestionText: "选一个", Answer: "A", QuestionType: "choice"},
			ErrMissingOptions,
		},
		{
			"nil result",
			nil,
			ErrMissingQuestionText,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.result.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestToQuestionCarriesAllFields(t *testing.T) {
	r := &AnalysisResult{
		QuestionText:    "求 $f(x)$ 的最小值。",
		Options:         []string{"A. 1", "B. 2"},
		Answer:          "B",
		Explanation:     "配方后顶点处取得最小值。",
		HasGeometry:     true,
		GeometrySVG:     "<svg></svg>",
		KnowledgePoints: []string{"二次函数"},
		Difficulty:      "hard",
		QuestionType:    "choice",
	}
	q := r.ToQuestion("user-1")
	if q.QuestionText != r.QuestionText || q.Answer != r.Answer {
		t.Errorf("text/answer not carried: %+v", q)
	}
	if q.Explanation != r.Explanation {
		t.Errorf("Explanation = %q, want %q", q.Explanation, r.Explanation)
	}
	if !q.HasGeometry || q.GeometrySVG != r.GeometrySVG {
		t.Errorf("geometry not carried: %+v", q)
	}
	if q.Difficulty != DifficultyHard || q.QuestionType != TypeChoice {
		t.Errorf("difficulty/type = %q/%q", q.Difficulty, q.QuestionType)
	}
	if q.CreatedBy != "user-1" || !q.AIGenerated {
		t.Errorf("attribution not set: %+v", q)
	}
}

func TestToQuestionDefaults(t *testing.T) {
	q := (&AnalysisResult{QuestionText: "题", Answer: "答"}).ToQuestion("u")
	if q.Difficulty != DifficultyMedium {
		t.Errorf("Difficulty = %q, want medium default", q.Difficulty)
	}
	if q.QuestionType != TypeSolve {
		t.Errorf("QuestionType = %q, want solve default", q.QuestionType)
	}
}

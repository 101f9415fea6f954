package rag

import (
	"math"
	"strings"
	"testing"

	"zujuan/internal/model"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"empty", nil, nil, 0},
		{"length mismatch", []float32{1}, []float32{1, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosine() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuildUserPrompt(t *testing.T) {
	t.Run("no related questions", func(t *testing.T) {
		got := buildUserPrompt("what is a derivative?", nil)
		if got != "what is a derivative?" {
			t.Errorf("prompt = %q", got)
		}
	})

	t.Run("with related questions", func(t *testing.T) {
		related := []model.RelatedQuestion{
			{QuestionText: "Differentiate $x^2$", Answer: "$2x$"},
		}
		got := buildUserPrompt("what is a derivative?", related)
		if !strings.Contains(got, "Differentiate $x^2$") {
			t.Error("prompt should include the related question text")
		}
		if !strings.Contains(got, "$2x$") {
			t.Error("prompt should include the related answer")
		}
		if !strings.Contains(got, "Student question: what is a derivative?") {
			t.Error("prompt should end with the student question")
		}
	})
}

package ai

import (
	"encoding/json"
	"strings"

	"zujuan/internal/model"
)

// analysisPrompt asks the vision model for the structured question fields.
// The response must be a single JSON object so ExtractResult can parse it.
const analysisPrompt = `You are an expert at transcribing math exam questions from photographs.

Analyze the image and return a single JSON object with exactly these fields:
{
  "questionText": "the full question text; keep math as LaTeX inside $...$",
  "options": ["A. ...", "B. ...", "C. ...", "D. ..."],
  "answer": "the correct answer",
  "explanation": "step-by-step solution if visible, otherwise empty",
  "hasGeometry": false,
  "geometrySvg": "",
  "knowledgePoints": ["topic1", "topic2"],
  "difficulty": "easy|medium|hard",
  "questionType": "choice|multi|fillblank|solve|proof",
  "confidence": 0.95
}

Rules:
- "options" must be empty unless the question is multiple choice.
- If the question contains a geometric figure, set "hasGeometry" to true and
  draw the figure as an SVG document in "geometrySvg". Use a 400x400 viewBox,
  black strokes on a white background, and only line, circle, ellipse, rect,
  polygon, path and text elements.
- "confidence" is your estimate between 0 and 1 of transcription accuracy.
- Return the JSON object only, with no surrounding prose.`

// ExtractResult parses a model response into an analysis result. Responses
// wrapped in markdown code fences are unwrapped first. If no JSON can be
// recovered the raw text becomes the question text so nothing is lost.
func ExtractResult(raw string) *model.AnalysisResult {
	text := stripFences(raw)

	var result model.AnalysisResult
	if err := json.Unmarshal([]byte(text), &result); err == nil {
		return &result
	}

	// Some models wrap the object in prose; try the outermost braces.
	if start := strings.Index(text, "{"); start >= 0 {
		if end := strings.LastIndex(text, "}"); end > start {
			if err := json.Unmarshal([]byte(text[start:end+1]), &result); err == nil {
				return &result
			}
		}
	}

	return &model.AnalysisResult{
		QuestionText: strings.TrimSpace(raw),
		QuestionType: string(model.TypeSolve),
		Difficulty:   string(model.DifficultyMedium),
	}
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

package export

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"zujuan/internal/model"
)

func TestGaokaoTemplate(t *testing.T) {
	tpl, err := GetTemplate("gaokao_new_1")
	if err != nil {
		t.Fatalf("GetTemplate: %v", err)
	}
	if len(tpl.Slots) != 19 {
		t.Errorf("slots = %d, want 19", len(tpl.Slots))
	}
	sum := 0
	counts := make(map[model.QuestionType]int)
	for _, slot := range tpl.Slots {
		sum += slot.DefaultScore
		counts[slot.QuestionType]++
	}
	if sum != 150 || tpl.TotalScore != 150 {
		t.Errorf("score sum = %d, TotalScore = %d, want 150", sum, tpl.TotalScore)
	}
	want := map[model.QuestionType]int{
		model.TypeChoice:    8,
		model.TypeMulti:     3,
		model.TypeFillBlank: 3,
		model.TypeSolve:     5,
	}
	for qt, n := range want {
		if counts[qt] != n {
			t.Errorf("%s slots = %d, want %d", qt, counts[qt], n)
		}
	}
}

func TestGetTemplateUnknown(t *testing.T) {
	if _, err := GetTemplate("nope"); err == nil {
		t.Error("unknown template should error")
	}
}

func TestEscapeLaTeX(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain specials", "50% & #1", `50\% \& \#1`},
		{"math span preserved", "设 $x^2+y_1$ 为", `设 $x^2+y_1$ 为`},
		{"unclosed dollar repaired", "值为 $x^2", "值为 $x^2$"},
		{"blank run", "答案是____。", `答案是\undsp 。`},
		{"degree in text", "角为30°", `角为30$^\circ$`},
		{"markdown bold stripped", "**重点**内容", "重点内容"},
		{"fullwidth parens", "（1）求值", "(1)求值"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeLaTeX(tt.in); got != tt.want {
				t.Errorf("escapeLaTeX(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeMath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trig function", "$sin x$", `$\sin x$`},
		{"already escaped", `$\sin x$`, `$\sin x$`},
		{"function in identifier untouched", "$arcsine$", "$arcsine$"},
		{"superscript digits", "x²", "x^2"},
		{"pi", "2πr", `2\pi r`},
		{"parallel shorthand", "AB//CD", `AB\spar CD`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeMath(tt.in); got != tt.want {
				t.Errorf("normalizeMath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestStripOptionPrefix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"A. 答案一", "答案一"},
		{"B．答案二", "答案二"},
		{"C、答案三", "答案三"},
		{"D。答案四", "答案四"},
		{"Ａ﹒答案五", "答案五"},
		{"b) 答案六", "答案六"},
		{"没有前缀", "没有前缀"},
	}
	for _, tt := range tests {
		if got := stripOptionPrefix(tt.in); got != tt.want {
			t.Errorf("stripOptionPrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func samplePaper() (*model.Paper, map[string]model.Question) {
	questions := map[string]model.Question{
		"q1": {
			ID: "q1", QuestionText: "计算 $1+1$ 的值。",
			Options:      []string{"A. 1", "B. 2", "C. 3", "D. 4"},
			Answer:       "B",
			QuestionType: model.TypeChoice,
		},
		"q2": {
			ID: "q2", QuestionText: "求 $x^2=4$ 的解。",
			Answer: "$x=\\pm 2$", Explanation: "开平方即可。",
			QuestionType: model.TypeSolve,
		},
	}
	paper := &model.Paper{
		Title: "期中测试",
		Questions: []model.PaperQuestion{
			{QuestionID: "q2", Order: 15, Score: 13},
			{QuestionID: "q1", Order: 1, Score: 5},
		},
	}
	return paper, questions
}

func TestBuildLaTeX(t *testing.T) {
	paper, questions := samplePaper()
	latex := BuildLaTeX(paper, questions, Options{IncludeAnswer: true, IncludeExplanation: true})

	for _, want := range []string{
		`\documentclass[no-math]{ctexart}`,
		"期中测试",
		"一、",
		"选择题：本题共 1 小题，每小题 5 分，共 5 分。",
		"二、",
		"解答题：本题共 1 小题，共 13 分。",
		`\choice{1}{2}{3}{4}`,
		`\textbf{答案：} B`,
		`\textbf{解析：} 开平方即可。`,
		`\end{document}`,
	} {
		if !strings.Contains(latex, want) {
			t.Errorf("document missing %q", want)
		}
	}
}

func TestBuildLaTeXWithoutAnswers(t *testing.T) {
	paper, questions := samplePaper()
	latex := BuildLaTeX(paper, questions, Options{})

	if strings.Contains(latex, `\textbf{答案：}`) {
		t.Error("answers should be omitted")
	}
	if !strings.Contains(latex, `\vspace{6em}`) {
		t.Error("solve questions should leave working space when answers are omitted")
	}
}

func TestBuildLaTeXSkipsMissingQuestions(t *testing.T) {
	paper := &model.Paper{
		Title:     "空卷",
		Questions: []model.PaperQuestion{{QuestionID: "ghost", Order: 1, Score: 5}},
	}
	latex := BuildLaTeX(paper, map[string]model.Question{}, Options{})
	if !strings.Contains(latex, `\end{document}`) {
		t.Error("document should still close")
	}
	if strings.Contains(latex, "ghost") {
		t.Error("missing question ids should not leak into the document")
	}
}

func TestBuildDOCX(t *testing.T) {
	paper, questions := samplePaper()
	data, err := BuildDOCX(paper, questions, Options{IncludeAnswer: true})
	if err != nil {
		t.Fatalf("BuildDOCX: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("output is not a zip: %v", err)
	}
	var docXML string
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			rc, err := f.Open()
			if err != nil {
				t.Fatalf("open document.xml: %v", err)
			}
			var buf bytes.Buffer
			if _, err := buf.ReadFrom(rc); err != nil {
				t.Fatalf("read document.xml: %v", err)
			}
			rc.Close()
			docXML = buf.String()
		}
	}
	if docXML == "" {
		t.Fatal("archive missing word/document.xml")
	}
	for _, want := range []string{"期中测试", "计算 $1+1$ 的值。", "【答案】B", "1. (5分)"} {
		if !strings.Contains(docXML, want) {
			t.Errorf("document.xml missing %q", want)
		}
	}
}
